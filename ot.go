package otchain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// The .ot record layout (all integers big-endian):
//
//	offset 0    23  magic/version header
//	offset 23   4   tempo (BPM * 24)
//	offset 27   4   trim length in bars
//	offset 31   4   loop length in bars
//	offset 35   4   stretch (0)
//	offset 39   4   loop enabled (0)
//	offset 43   2   gain (48)
//	offset 45   1   quantize (255)
//	offset 46   4   trim start (0)
//	offset 50   4   trim end (total real samples)
//	offset 54   4   loop point (0)
//	offset 58   768 64 slots x (start:4, end:4, loop:4)
//	offset 826  4   slice count
//	offset 830  2   checksum over bytes [16, 830)

const (
	// MaxSlices is the number of slice slots in an .ot record. The
	// record always carries exactly this many slots; unused slots are
	// zero-filled.
	MaxSlices = 64

	// OTFileSize is the exact size in bytes of an encoded .ot record.
	OTFileSize = 832

	// NoLoopPoint marks a slice as non-looping.
	NoLoopPoint = 0xFFFFFFFF

	// The checksum covers everything after the first 16 header bytes.
	otChecksumStart = 16

	// The device stores tempo in 1/24 BPM steps.
	tempoScale = 24

	// Bar counts are computed against a fixed 124 BPM reference, not
	// the chain's configured tempo. Changing this would change the
	// trim/loop lengths of every chain the device has seen so far.
	barReferenceTempo = 124.0

	sliceSlotSize = 12
)

// otHeader is the constant magic/version prefix of an .ot file.
var otHeader = []byte{
	0x46, 0x4F, 0x52, 0x4D, 0x00, 0x00, 0x00, 0x00,
	0x44, 0x50, 0x53, 0x31, 0x53, 0x4D, 0x50, 0x41,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00,
}

var (
	// ErrOTFileSize indicates a buffer that is not exactly OTFileSize bytes.
	ErrOTFileSize = errors.New("unexpected .ot file size")
	// ErrOTFileMagic indicates a buffer without the .ot magic header.
	ErrOTFileMagic = errors.New("missing .ot magic header")
	// ErrOTFileChecksum indicates a stored checksum that does not match
	// the record content.
	ErrOTFileChecksum = errors.New(".ot checksum mismatch")

	errOTSliceCount = errors.New("slice count exceeds the slot table")
)

// Slice marks one input's position and extent within the concatenated
// chain, in samples.
type Slice struct {
	// StartPoint is the offset of the slice's first sample.
	StartPoint uint32
	// Length is the number of real (non-padding) samples the input
	// contributed. In evenly spaced chains the cursor advances by the
	// padded width instead, so consecutive StartPoints may differ by
	// more than Length.
	Length uint32
	// LoopPoint is relative to StartPoint; NoLoopPoint disables looping.
	LoopPoint uint32
}

// End returns the offset one past the slice's last real sample.
func (s Slice) End() uint32 {
	return s.StartPoint + s.Length
}

// EncodeOTFile encodes the slice list into a complete .ot record.
// The list must not exceed MaxSlices entries; a Slicer never admits
// more than the slot table can hold.
func EncodeOTFile(slices []Slice, sampleRate, tempo int) []byte {
	data := make([]byte, 0, OTFileSize)
	data = append(data, otHeader...)

	data = binary.BigEndian.AppendUint32(data, uint32(tempo)*tempoScale)

	var totalSamples uint32
	for _, sl := range slices {
		totalSamples += sl.Length
	}

	bars := barCount(totalSamples, sampleRate)

	data = binary.BigEndian.AppendUint32(data, bars)         // trim length
	data = binary.BigEndian.AppendUint32(data, bars)         // loop length
	data = binary.BigEndian.AppendUint32(data, 0)            // stretch
	data = binary.BigEndian.AppendUint32(data, 0)            // loop enabled
	data = binary.BigEndian.AppendUint16(data, 48)           // gain
	data = append(data, 0xFF)                                // quantize
	data = binary.BigEndian.AppendUint32(data, 0)            // trim start
	data = binary.BigEndian.AppendUint32(data, totalSamples) // trim end
	data = binary.BigEndian.AppendUint32(data, 0)            // loop point

	for i := 0; i < MaxSlices; i++ {
		if i < len(slices) {
			data = binary.BigEndian.AppendUint32(data, slices[i].StartPoint)
			data = binary.BigEndian.AppendUint32(data, slices[i].End())
			data = binary.BigEndian.AppendUint32(data, slices[i].LoopPoint)

			continue
		}

		data = append(data, make([]byte, sliceSlotSize)...)
	}

	data = binary.BigEndian.AppendUint32(data, uint32(len(slices)))

	return binary.BigEndian.AppendUint16(data, otChecksum(data))
}

// barCount converts a sample count into the device's fixed-point bar
// unit at the 124 BPM reference tempo.
func barCount(totalSamples uint32, sampleRate int) uint32 {
	mult := barReferenceTempo*float32(totalSamples)/float32(sampleRate*60) + 0.5

	return uint32(mult) * 25
}

// otChecksum sums every byte after the fixed magic prefix, wrapping in
// 16 bits.
func otChecksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data[otChecksumStart:] {
		sum += uint16(b)
	}

	return sum
}

// OTFile is the decoded content of an .ot record.
type OTFile struct {
	Tempo      uint32 // 1/24 BPM units
	TrimLength uint32 // bars
	LoopLength uint32 // bars
	Gain       uint16
	Quantize   uint8
	TrimStart  uint32
	TrimEnd    uint32 // total real samples
	LoopPoint  uint32
	Slices     []Slice
}

// DecodeOTFile parses and validates a complete .ot record, including
// its checksum. Only the populated slice slots are returned.
func DecodeOTFile(data []byte) (*OTFile, error) {
	if len(data) != OTFileSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrOTFileSize, len(data), OTFileSize)
	}

	if !bytes.Equal(data[:len(otHeader)], otHeader) {
		return nil, ErrOTFileMagic
	}

	stored := binary.BigEndian.Uint16(data[OTFileSize-2:])
	if sum := otChecksum(data[:OTFileSize-2]); sum != stored {
		return nil, fmt.Errorf("%w: stored %#04x, computed %#04x", ErrOTFileChecksum, stored, sum)
	}

	count := binary.BigEndian.Uint32(data[826:830])
	if count > MaxSlices {
		return nil, fmt.Errorf("%w: %d", errOTSliceCount, count)
	}

	ot := &OTFile{
		Tempo:      binary.BigEndian.Uint32(data[23:27]),
		TrimLength: binary.BigEndian.Uint32(data[27:31]),
		LoopLength: binary.BigEndian.Uint32(data[31:35]),
		Gain:       binary.BigEndian.Uint16(data[43:45]),
		Quantize:   data[45],
		TrimStart:  binary.BigEndian.Uint32(data[46:50]),
		TrimEnd:    binary.BigEndian.Uint32(data[50:54]),
		LoopPoint:  binary.BigEndian.Uint32(data[54:58]),
		Slices:     make([]Slice, count),
	}

	for i := range ot.Slices {
		slot := data[58+i*sliceSlotSize:]

		start := binary.BigEndian.Uint32(slot[0:4])
		end := binary.BigEndian.Uint32(slot[4:8])

		ot.Slices[i] = Slice{
			StartPoint: start,
			Length:     end - start,
			LoopPoint:  binary.BigEndian.Uint32(slot[8:12]),
		}
	}

	return ot, nil
}
