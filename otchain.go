package otchain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// DefaultSampleRate is the sample rate a fresh Slicer expects of
	// its inputs.
	DefaultSampleRate = 44100
	// DefaultTempo is the BPM stored in generated chains.
	DefaultTempo = 124
	// DefaultOutputFilename names the generated pair when the caller
	// doesn't.
	DefaultOutputFilename = "output"
)

var (
	// ErrSliceCapacity is returned when admitting a file would exceed
	// the record's slice slots.
	ErrSliceCapacity = errors.New("no more slice slots available")
	// ErrFileNotFound is returned when an input path does not exist.
	ErrFileNotFound = errors.New("input file not found")
	// ErrFormatMismatch is returned when an input does not match the
	// chain's audio format.
	ErrFormatMismatch = errors.New("input does not match the chain audio format")
)

// LoopPolicy selects the loop point written for every slice.
type LoopPolicy int

const (
	// LoopWholeSlice loops each slice over its full real content; the
	// loop point equals the slice length.
	LoopWholeSlice LoopPolicy = iota
	// LoopNone marks every slice as non-looping.
	LoopNone
)

type pendingFile struct {
	path    string
	samples int
}

// Slicer accumulates input files and materializes them into a chain
// .wav plus its .ot metadata file. A Slicer is not safe for concurrent
// use; admission and generation are strictly sequential.
type Slicer struct {
	// OutputFolder is the folder the .wav and .ot files are written to.
	OutputFolder string
	// OutputFilename names both generated files, without extension.
	OutputFilename string
	// SampleRate every input must match, in Hz.
	SampleRate int
	// Tempo of the chain in BPM.
	Tempo int
	// LoopPolicy selects the per-slice loop point.
	LoopPolicy LoopPolicy

	pending       []pendingFile
	maxFileLength int
	startOffset   uint32
}

// NewSlicer returns a Slicer with the default sample rate, tempo and
// output name.
func NewSlicer() *Slicer {
	return &Slicer{
		OutputFilename: DefaultOutputFilename,
		SampleRate:     DefaultSampleRate,
		Tempo:          DefaultTempo,
	}
}

// AddFile admits one input file to the batch. The file must exist and
// match the chain format exactly; its header is probed here so the
// batch's padding width is known before generation, but no start point
// is assigned until Generate, when the final width is fixed.
//
// A failed admission rejects only that file and leaves earlier
// admissions intact.
func (s *Slicer) AddFile(path string) error {
	// One slot must remain for the slice this file becomes.
	if len(s.pending) >= MaxSlices {
		return ErrSliceCapacity
	}

	samples, err := probeWAV(path, s.SampleRate)
	if err != nil {
		return err
	}

	s.pending = append(s.pending, pendingFile{path: path, samples: samples})

	if samples > s.maxFileLength {
		s.maxFileLength = samples
	}

	return nil
}

// PendingFiles returns the number of admitted inputs awaiting
// generation.
func (s *Slicer) PendingFiles() int {
	return len(s.pending)
}

// Batch describes one generated chain.
type Batch struct {
	// Slices in admission order.
	Slices []Slice
	// TotalSamples is the sum of the real sample counts of all inputs.
	TotalSamples uint32
	// WrittenSamples counts everything written to the chain .wav,
	// padding included.
	WrittenSamples uint32
	// WavPath and OTPath locate the generated pair.
	WavPath string
	OTPath  string
}

// Generate materializes the admitted inputs, in admission order, into
// the concatenated chain .wav and its .ot metadata file. With
// evenlySpaced every input is zero-padded to the longest admitted one,
// so all slices start on a uniform grid; slice lengths still describe
// the real content only.
//
// Any decode or write failure aborts the whole batch: the partial .wav
// is left in an undefined state for the caller to discard and no .ot
// file is written. On success the Slicer resets to its defaults.
func (s *Slicer) Generate(evenlySpaced bool) (*Batch, error) {
	wavPath := filepath.Join(s.OutputFolder, s.OutputFilename+".wav")
	otPath := filepath.Join(s.OutputFolder, s.OutputFilename+".ot")

	if err := removeIfExists(wavPath); err != nil {
		return nil, err
	}

	batch := &Batch{WavPath: wavPath, OTPath: otPath}

	if len(s.pending) > 0 {
		err := s.materialize(batch, wavPath, evenlySpaced)
		if err != nil {
			return nil, err
		}
	}

	for _, sl := range batch.Slices {
		batch.TotalSamples += sl.Length
	}

	batch.WrittenSamples = s.startOffset

	data := EncodeOTFile(batch.Slices, s.SampleRate, s.Tempo)

	if err := removeIfExists(otPath); err != nil {
		return nil, err
	}

	if err := os.WriteFile(otPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", otPath, err)
	}

	s.reset()

	return batch, nil
}

// materialize runs the second phase: every pending input is decoded and
// appended in admission order, and its slice is assigned the running
// start offset. The cursor advances by the padded width in evenly
// spaced mode, so the emitted positions depend on the final maximum
// discovered during admission.
func (s *Slicer) materialize(batch *Batch, wavPath string, evenlySpaced bool) error {
	w, err := newChainWriter(wavPath, s.SampleRate)
	if err != nil {
		return err
	}

	for _, in := range s.pending {
		samples, err := readMonoPCM16(in.path, s.SampleRate)
		if err != nil {
			w.abort()

			return err
		}

		realLength := len(samples)

		emitted := realLength
		if evenlySpaced {
			emitted = s.maxFileLength
			samples = append(samples, make([]int, emitted-realLength)...)
		}

		if err := w.writeSamples(samples); err != nil {
			w.abort()

			return err
		}

		sl := Slice{
			StartPoint: s.startOffset,
			Length:     uint32(realLength),
			LoopPoint:  uint32(realLength),
		}
		if s.LoopPolicy == LoopNone {
			sl.LoopPoint = NoLoopPoint
		}

		batch.Slices = append(batch.Slices, sl)
		s.startOffset += uint32(emitted)
	}

	return w.close()
}

// reset returns the Slicer to its post-construction state. Sample rate
// and tempo go back to their defaults rather than keeping the
// caller-configured values.
func (s *Slicer) reset() {
	s.pending = nil
	s.maxFileLength = 0
	s.startOffset = 0
	s.SampleRate = DefaultSampleRate
	s.Tempo = DefaultTempo
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}
