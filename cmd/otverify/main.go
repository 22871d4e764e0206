// This tool inspects a generated .ot metadata file, verifies its
// checksum, prints the slice table, and cross-checks the companion
// chain .wav (if present) against the stored sample totals.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/cwbudde/otchain"
	"github.com/go-audio/riff"
)

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("otverify", flag.ContinueOnError)

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if flagSet.NArg() != 1 {
		return errors.New("usage: otverify <chain.ot>")
	}

	otPath := flagSet.Arg(0)

	data, err := os.ReadFile(otPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", otPath, err)
	}

	ot, err := otchain.DecodeOTFile(data)
	if err != nil {
		return fmt.Errorf("%s: %w", otPath, err)
	}

	fmt.Fprintf(out, "%s: checksum ok\n", otPath)
	fmt.Fprintf(out, "tempo: %g BPM\n", float64(ot.Tempo)/24)
	fmt.Fprintf(out, "trim: %d..%d samples (%d bars)\n", ot.TrimStart, ot.TrimEnd, ot.TrimLength)
	fmt.Fprintf(out, "slices: %d\n", len(ot.Slices))

	for i, sl := range ot.Slices {
		loop := fmt.Sprintf("%d", sl.LoopPoint)
		if sl.LoopPoint == otchain.NoLoopPoint {
			loop = "off"
		}

		fmt.Fprintf(out, "  %2d: start=%d end=%d loop=%s\n", i, sl.StartPoint, sl.End(), loop)
	}

	wavPath := strings.TrimSuffix(otPath, ".ot") + ".wav"

	samples, err := chainSampleCount(wavPath)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "no companion %s, skipping audio check\n", wavPath)

		return nil
	}

	if err != nil {
		return err
	}

	if samples < int(ot.TrimEnd) {
		return fmt.Errorf("%s holds %d samples but the .ot trim end is %d", wavPath, samples, ot.TrimEnd)
	}

	fmt.Fprintf(out, "%s: %d samples, covers the .ot trim end\n", wavPath, samples)

	return nil
}

// chainSampleCount walks the wav container chunks and returns the
// number of mono 16-bit samples in its data chunk.
func chainSampleCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	parser := riff.New(f)

	err = parser.ParseHeaders()
	if err != nil {
		return 0, fmt.Errorf("%s is not a riff file: %w", path, err)
	}

	for {
		chunk, err := parser.NextChunk()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return 0, fmt.Errorf("failed to walk the chunks of %s: %w", path, err)
		}

		if chunk.ID == riff.DataFormatID {
			return chunk.Size / 2, nil
		}

		chunk.Drain()
	}

	return 0, fmt.Errorf("%s has no data chunk", path)
}
