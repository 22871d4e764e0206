package otchain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// The chain format is fixed apart from the sample rate: mono, 16-bit
// signed integer PCM. Inputs must match it exactly, there is no
// implicit conversion.
const (
	chainChannels = 1
	chainBitDepth = 16
)

const wavFormatPCM = 1

// probeWAV validates the file header against the chain format and
// returns the file's real sample count without decoding the PCM data.
func probeWAV(path string, sampleRate int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()

	if err := dec.Err(); err != nil {
		return 0, fmt.Errorf("failed to read the wav header of %s: %w", path, err)
	}

	if err := matchChainFormat(dec, sampleRate); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("failed to locate the PCM data of %s: %w", path, err)
	}

	return int(dec.PCMLen()) / (chainBitDepth / 8), nil
}

// readMonoPCM16 decodes the file's full sample data after validating it
// against the chain format.
func readMonoPCM16(path string, sampleRate int) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()

	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("failed to read the wav header of %s: %w", path, err)
	}

	if err := matchChainFormat(dec, sampleRate); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return buf.Data, nil
}

func matchChainFormat(dec *wav.Decoder, sampleRate int) error {
	if dec.NumChans != chainChannels ||
		dec.BitDepth != chainBitDepth ||
		int(dec.SampleRate) != sampleRate ||
		dec.WavAudioFormat != wavFormatPCM {
		return fmt.Errorf("%w: got %d ch / %d Hz / %d bit (format %d), want %d ch / %d Hz / %d bit PCM",
			ErrFormatMismatch, dec.NumChans, dec.SampleRate, dec.BitDepth, dec.WavAudioFormat,
			chainChannels, sampleRate, chainBitDepth)
	}

	return nil
}

// chainWriter appends sample runs to the concatenated chain .wav file.
// Writes are strictly sequential: each input's samples are fully
// committed before the next input is decoded.
type chainWriter struct {
	f      *os.File
	enc    *wav.Encoder
	format *audio.Format
}

func newChainWriter(path string, sampleRate int) (*chainWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	return &chainWriter{
		f:      f,
		enc:    wav.NewEncoder(f, sampleRate, chainBitDepth, chainChannels, wavFormatPCM),
		format: &audio.Format{NumChannels: chainChannels, SampleRate: sampleRate},
	}, nil
}

func (w *chainWriter) writeSamples(data []int) error {
	buf := &audio.IntBuffer{
		Format:         w.format,
		SourceBitDepth: chainBitDepth,
		Data:           data,
	}

	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("failed to append samples to the chain: %w", err)
	}

	return nil
}

// close finalizes the container headers and syncs the file.
func (w *chainWriter) close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()

		return fmt.Errorf("failed to finalize the chain file: %w", err)
	}

	if err := w.f.Close(); err != nil {
		return fmt.Errorf("failed to close the chain file: %w", err)
	}

	return nil
}

// abort drops the writer without finalizing the container; the partial
// file on disk is left for the caller to discard.
func (w *chainWriter) abort() {
	w.f.Close()
}
