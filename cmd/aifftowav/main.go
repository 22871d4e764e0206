// This tool converts an aiff file into an identical wav file and stores
// it in the same folder as the source, so aiff sources can be used as
// chain inputs.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("aifftowav", flag.ContinueOnError)

	path := flagSet.String("path", "", "The path to the aiff file to convert to wav")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if *path == "" {
		return errors.New("you must set the -path flag")
	}

	file, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", *path, err)
	}
	defer file.Close()

	decoder := aiff.NewDecoder(file)
	if !decoder.IsValidFile() {
		return fmt.Errorf("%s is not a valid aiff file", *path)
	}

	// the validity check consumed the reader
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w", *path, err)
	}

	decoder = aiff.NewDecoder(file)

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", *path, err)
	}

	outPath := (*path)[:len(*path)-len(filepath.Ext(*path))] + ".wav"

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer outFile.Close()

	encoder := wav.NewEncoder(outFile, int(decoder.SampleRate), int(decoder.BitDepth), int(decoder.NumChans), 1)

	buf.SourceBitDepth = int(decoder.BitDepth)

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", outPath, err)
	}

	log.Printf("aiff file converted to %s", outPath)

	return nil
}
