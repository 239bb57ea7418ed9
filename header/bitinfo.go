package header

import "github.com/jlab-clas12/hipo6/format"

// BitInfo is the packed word at header offset 20: version, header type,
// the two padding counts, and caller-opaque user flags, all folded into a
// single uint32 so the header stays exactly 56 bytes.
//
// Bit layout (low to high):
//
//	bits 0-7:   version (always Version)
//	bits 8-13:  header type (format.HeaderType, 6 bits)
//	bits 14-15: reserved, always 0
//	bits 16-17: user-header padding count (0-3 bytes)
//	bits 18-19: data-region padding count (0-3 bytes)
//	bits 20-31: user flags, opaque to this package
type BitInfo struct {
	Version               uint8
	HeaderType            format.HeaderType
	UserHeaderPaddingBytes uint8
	DataPaddingBytes       uint8
	UserFlags              uint16 // only the low 12 bits are stored
}

const (
	versionMask    = 0xFF
	headerTypeMask = 0x3F
	paddingMask    = 0x3
	userFlagsMask  = 0xFFF

	headerTypeShift = 8
	uhPaddingShift  = 16
	dataPaddingShift = 18
	userFlagsShift  = 20
)

// Pack folds BitInfo into its 32-bit wire representation.
func (b BitInfo) Pack() uint32 {
	word := uint32(b.Version & versionMask)
	word |= (uint32(b.HeaderType) & headerTypeMask) << headerTypeShift
	word |= (uint32(b.UserHeaderPaddingBytes) & paddingMask) << uhPaddingShift
	word |= (uint32(b.DataPaddingBytes) & paddingMask) << dataPaddingShift
	word |= (uint32(b.UserFlags) & userFlagsMask) << userFlagsShift

	return word
}

// UnpackBitInfo parses a 32-bit wire value back into a BitInfo.
func UnpackBitInfo(word uint32) BitInfo {
	return BitInfo{
		Version:                uint8(word & versionMask),
		HeaderType:             format.HeaderType((word >> headerTypeShift) & headerTypeMask),
		UserHeaderPaddingBytes: uint8((word >> uhPaddingShift) & paddingMask),
		DataPaddingBytes:       uint8((word >> dataPaddingShift) & paddingMask),
		UserFlags:              uint16((word >> userFlagsShift) & userFlagsMask),
	}
}

// paddingFor returns the number of zero bytes (0-3) needed to round n up to
// a 4-byte boundary.
func paddingFor(n int) uint8 {
	return uint8((4 - n%4) % 4)
}

// paddedLen rounds n up to the next 4-byte boundary.
func paddedLen(n int) int {
	return n + int(paddingFor(n))
}
