// Package otchain builds sample chains for the Elektron Octatrack.
//
// A chain is a single mono 16-bit PCM .wav file concatenating a set of
// input samples, paired with a proprietary .ot metadata file that marks
// where each input landed inside the concatenation as a slice. Inputs
// are admitted with Slicer.AddFile and the .wav/.ot pair is produced by
// Slicer.Generate, optionally padding every input to the longest one so
// all slices start on a uniform sample grid.
//
// The .ot record itself can be produced and inspected directly through
// EncodeOTFile and DecodeOTFile.
package otchain
