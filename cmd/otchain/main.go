// This tool concatenates mono 16-bit PCM wav files into an Octatrack
// sample chain: one .wav holding all inputs back to back plus the .ot
// metadata file marking each input as a slice.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cwbudde/otchain"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("otchain", flag.ContinueOnError)

	folder := flagSet.String("folder", ".", "folder to write the chain .wav and .ot files to")
	name := flagSet.String("name", otchain.DefaultOutputFilename, "name of the generated files, without extension")
	rate := flagSet.Int("rate", otchain.DefaultSampleRate, "sample rate in Hz every input must match")
	tempo := flagSet.Int("tempo", otchain.DefaultTempo, "tempo in BPM stored in the .ot file")
	evenly := flagSet.Bool("evenly", false, "pad every input to the longest one so slices start on a uniform grid")
	noLoop := flagSet.Bool("no-loop", false, "mark slices as non-looping instead of looping their full length")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if flagSet.NArg() == 0 {
		return errors.New("no input files given")
	}

	if *rate <= 0 {
		return fmt.Errorf("invalid sample rate %d", *rate)
	}

	if *tempo <= 0 {
		return fmt.Errorf("invalid tempo %d", *tempo)
	}

	slicer := otchain.NewSlicer()
	slicer.OutputFolder = *folder
	slicer.OutputFilename = *name
	slicer.SampleRate = *rate
	slicer.Tempo = *tempo

	if *noLoop {
		slicer.LoopPolicy = otchain.LoopNone
	}

	for _, path := range flagSet.Args() {
		err := slicer.AddFile(path)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", path, err)
		}

		log.Printf("added %s", path)
	}

	batch, err := slicer.Generate(*evenly)
	if err != nil {
		return fmt.Errorf("failed to generate the chain: %w", err)
	}

	log.Printf("wrote %s and %s: %d slices, %d samples (%d written)",
		batch.WavPath, batch.OTPath, len(batch.Slices), batch.TotalSamples, batch.WrittenSamples)

	return nil
}
