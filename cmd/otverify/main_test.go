package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/otchain"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func buildChain(t *testing.T, dir string) string {
	t.Helper()

	inPath := filepath.Join(dir, "in.wav")

	f, err := os.Create(inPath)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}

	enc := wav.NewEncoder(f, 44100, 16, 1, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		SourceBitDepth: 16,
		Data:           make([]int, 150),
	}

	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write fixture samples: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finalize fixture: %v", err)
	}

	f.Close()

	s := otchain.NewSlicer()
	s.OutputFolder = dir
	s.OutputFilename = "chain"

	if err := s.AddFile(inPath); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	batch, err := s.Generate(false)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	return batch.OTPath
}

func TestRunVerifiesChain(t *testing.T) {
	dir := t.TempDir()

	otPath := buildChain(t, dir)

	var out bytes.Buffer

	err := run([]string{otPath}, &out)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out.String())
	}

	report := out.String()

	if !strings.Contains(report, "checksum ok") {
		t.Errorf("report does not confirm the checksum:\n%s", report)
	}

	if !strings.Contains(report, "slices: 1") {
		t.Errorf("report does not list the slice:\n%s", report)
	}

	if !strings.Contains(report, "covers the .ot trim end") {
		t.Errorf("report does not confirm the companion wav:\n%s", report)
	}
}

func TestRunDetectsCorruption(t *testing.T) {
	dir := t.TempDir()

	otPath := buildChain(t, dir)

	data, err := os.ReadFile(otPath)
	if err != nil {
		t.Fatalf("failed to read .ot file: %v", err)
	}

	data[100]++

	if err := os.WriteFile(otPath, data, 0o644); err != nil {
		t.Fatalf("failed to corrupt .ot file: %v", err)
	}

	var out bytes.Buffer

	if err := run([]string{otPath}, &out); err == nil {
		t.Fatal("expected failure for a corrupted .ot file")
	}
}

func TestRunWithoutCompanionWav(t *testing.T) {
	dir := t.TempDir()

	otPath := buildChain(t, dir)

	if err := os.Remove(strings.TrimSuffix(otPath, ".ot") + ".wav"); err != nil {
		t.Fatalf("failed to remove companion wav: %v", err)
	}

	var out bytes.Buffer

	err := run([]string{otPath}, &out)
	if err != nil {
		t.Fatalf("run failed without companion wav: %v", err)
	}

	if !strings.Contains(out.String(), "skipping audio check") {
		t.Errorf("report does not mention the missing companion:\n%s", out.String())
	}
}

func TestRunUsage(t *testing.T) {
	var out bytes.Buffer

	if err := run(nil, &out); err == nil {
		t.Fatal("expected failure without arguments")
	}
}
