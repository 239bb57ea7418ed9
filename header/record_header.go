// Package header implements the fixed 56-byte record header shared by
// every record, file header, and trailer in a HIPO/EVIO-6 file.
package header

import (
	"fmt"

	"github.com/jlab-clas12/hipo6/endian"
	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/format"
)

// Size is the fixed, wire-format-mandated size of a record header in
// bytes. It is part of the on-disk contract and must never change.
const Size = 56

// HeaderLengthWords is Size expressed in 32-bit words; every header
// advertises this constant at offset 8 regardless of record contents.
const HeaderLengthWords = Size / 4

// Version is the format version stamped into every header's BitInfo word.
const Version = 6

// Magic is the endian-detection sentinel stored at offset 28 of every
// header.
const Magic = 0xc0da0100

// TrailerPositionOffset is the byte offset within a file header where the
// absolute file offset of the trailer is patched in after close, reusing
// the userRegister1 field.
const TrailerPositionOffset = 40

const (
	offsetRecordLengthWords = 0
	offsetRecordNumber      = 4
	offsetHeaderLengthWords = 8
	offsetEventCount        = 12
	offsetIndexLengthBytes  = 16
	offsetBitInfo           = 20
	offsetUserHeaderLength  = 24
	offsetMagic             = 28
	offsetUncompressedLen   = 32
	offsetCompressionWord   = 36
	offsetUserRegister1     = 40
	offsetUserRegister2     = 48

	compressionTypeShift = 28
	compressedWordsMask  = 0x0FFFFFFF
)

// RecordHeader is a pure value object: 56 bytes of header state with no
// behavior beyond encode/decode and the small derived helpers (padded
// lengths, endianness) the record builder and writer need.
type RecordHeader struct {
	RecordLengthWords           uint32
	RecordNumber                uint32
	EventCount                  uint32
	IndexLengthBytes            uint32
	BitInfo                     BitInfo
	UserHeaderLengthBytes       uint32
	UncompressedDataLengthBytes uint32
	CompressionType             format.CompressionType
	CompressedWords              uint32
	UserRegister1                uint64
	UserRegister2                uint64

	// byteOrder is set by Read (detected from the magic) or by whoever
	// constructs the header for writing; Write always serializes using
	// this engine.
	byteOrder endian.EndianEngine
}

// New returns a RecordHeader reset to its default state for headerType.
func New(headerType format.HeaderType, order endian.EndianEngine) *RecordHeader {
	h := &RecordHeader{}
	h.Reset()
	h.BitInfo.HeaderType = headerType
	h.byteOrder = order

	return h
}

// Reset zeroes all fields and restores the constants every header must
// carry (magic, version, header length). It does not reallocate; callers
// recycling a pooled header call this instead of allocating a new one.
func (h *RecordHeader) Reset() {
	*h = RecordHeader{
		BitInfo: BitInfo{
			Version:    Version,
			HeaderType: format.EvioRecord,
		},
		byteOrder: h.byteOrder,
	}
}

// ByteOrder returns the endianness this header reads and writes with.
func (h *RecordHeader) ByteOrder() endian.EndianEngine {
	return h.byteOrder
}

// SetByteOrder overrides the engine used by subsequent Write calls.
func (h *RecordHeader) SetByteOrder(order endian.EndianEngine) {
	h.byteOrder = order
}

// Write serializes the header into buf at offset using h's configured byte
// order. buf must have at least offset+Size bytes.
func (h *RecordHeader) Write(buf []byte, offset int) error {
	if len(buf) < offset+Size {
		return fmt.Errorf("%w: record header needs %d bytes, got %d", errs.ErrBadLength, Size, len(buf)-offset)
	}

	order := h.byteOrder
	if order == nil {
		order = endian.GetLittleEndianEngine()
	}

	order.PutUint32(buf[offset+offsetRecordLengthWords:], h.RecordLengthWords)
	order.PutUint32(buf[offset+offsetRecordNumber:], h.RecordNumber)
	order.PutUint32(buf[offset+offsetHeaderLengthWords:], HeaderLengthWords)
	order.PutUint32(buf[offset+offsetEventCount:], h.EventCount)
	order.PutUint32(buf[offset+offsetIndexLengthBytes:], h.IndexLengthBytes)
	order.PutUint32(buf[offset+offsetBitInfo:], h.BitInfo.Pack())
	order.PutUint32(buf[offset+offsetUserHeaderLength:], h.UserHeaderLengthBytes)
	order.PutUint32(buf[offset+offsetMagic:], Magic)
	order.PutUint32(buf[offset+offsetUncompressedLen:], h.UncompressedDataLengthBytes)
	order.PutUint32(buf[offset+offsetCompressionWord:], h.compressionWord())
	order.PutUint64(buf[offset+offsetUserRegister1:], h.UserRegister1)
	order.PutUint64(buf[offset+offsetUserRegister2:], h.UserRegister2)

	return nil
}

// WriteFileHeader writes h as a file-level header. It behaves exactly like
// Write; the distinct entry point documents intent at call sites and
// guards against writing a record/trailer header where a file header is
// expected.
func (h *RecordHeader) WriteFileHeader(buf []byte, offset int) error {
	if !h.BitInfo.HeaderType.IsFileHeader() {
		return fmt.Errorf("%w: WriteFileHeader called with header type %s", errs.ErrInvalidState, h.BitInfo.HeaderType)
	}

	return h.Write(buf, offset)
}

// Read parses 56 bytes at offset into h, detecting endianness by comparing
// the magic field against both byte orders. Returns errs.ErrBadMagic if
// neither matches.
func (h *RecordHeader) Read(buf []byte, offset int) error {
	if len(buf) < offset+Size {
		return fmt.Errorf("%w: record header needs %d bytes, got %d", errs.ErrBadLength, Size, len(buf)-offset)
	}

	order, err := detectByteOrder(buf[offset+offsetMagic : offset+offsetMagic+4])
	if err != nil {
		return err
	}
	h.byteOrder = order

	h.RecordLengthWords = order.Uint32(buf[offset+offsetRecordLengthWords:])
	h.RecordNumber = order.Uint32(buf[offset+offsetRecordNumber:])
	h.EventCount = order.Uint32(buf[offset+offsetEventCount:])
	h.IndexLengthBytes = order.Uint32(buf[offset+offsetIndexLengthBytes:])
	h.BitInfo = UnpackBitInfo(order.Uint32(buf[offset+offsetBitInfo:]))
	h.UserHeaderLengthBytes = order.Uint32(buf[offset+offsetUserHeaderLength:])
	h.UncompressedDataLengthBytes = order.Uint32(buf[offset+offsetUncompressedLen:])

	compWord := order.Uint32(buf[offset+offsetCompressionWord:])
	compType := format.CompressionType(compWord >> compressionTypeShift)
	if !compType.IsValid() {
		return fmt.Errorf("%w: %d", errs.ErrInvalidCompressionType, compType)
	}
	h.CompressionType = compType
	h.CompressedWords = compWord & compressedWordsMask

	h.UserRegister1 = order.Uint64(buf[offset+offsetUserRegister1:])
	h.UserRegister2 = order.Uint64(buf[offset+offsetUserRegister2:])

	headerLenWords := order.Uint32(buf[offset+offsetHeaderLengthWords:])
	if headerLenWords != HeaderLengthWords {
		return fmt.Errorf("%w: headerLengthWords %d != %d", errs.ErrBadLength, headerLenWords, HeaderLengthWords)
	}

	return nil
}

func (h *RecordHeader) compressionWord() uint32 {
	return (uint32(h.CompressionType) << compressionTypeShift) | (h.CompressedWords & compressedWordsMask)
}

// detectByteOrder compares magicBytes (the 4 bytes at a header's magic
// offset) against both byte-order interpretations of Magic.
func detectByteOrder(magicBytes []byte) (endian.EndianEngine, error) {
	le := endian.GetLittleEndianEngine()
	if le.Uint32(magicBytes) == Magic {
		return le, nil
	}

	be := endian.GetBigEndianEngine()
	if be.Uint32(magicBytes) == Magic {
		return be, nil
	}

	return nil, errs.ErrBadMagic
}

// UserHeaderPadding returns the number of padding bytes (0-3) needed to
// round userHeaderLen up to a 4-byte boundary.
func UserHeaderPadding(userHeaderLen int) uint8 {
	return paddingFor(userHeaderLen)
}

// DataPadding returns the number of padding bytes (0-3) needed to round
// dataLen up to a 4-byte boundary.
func DataPadding(dataLen int) uint8 {
	return paddingFor(dataLen)
}

// PaddedLen rounds n up to the next 4-byte boundary.
func PaddedLen(n int) int {
	return paddedLen(n)
}

// PatchRecordNumber overwrites the recordNumber field of an already-built
// record in place. The writer uses this to stamp the final record number
// after compression has completed, since a WriterMT compressor builds a
// record before the writer goroutine (the only component that knows the
// true publication order) has assigned it one.
func PatchRecordNumber(buf []byte, recordNumber uint32, order endian.EndianEngine) {
	order.PutUint32(buf[offsetRecordNumber:], recordNumber)
}

// WriteTrailer builds a standalone trailer header (and, if recordLengths is
// non-empty, its index payload) into a freshly allocated buffer and returns
// it. eventCount and compressionType are always zero for a trailer.
//
// If recordLengths is non-nil, the trailer's data region holds one 4-byte,
// byte-order-encoded length per entry (spec.md's optional record-length
// index), and RecordLengthWords accounts for it.
func WriteTrailer(recordNumber uint32, order endian.EndianEngine, headerType format.HeaderType, recordLengths []uint32) ([]byte, error) {
	if !headerType.IsTrailer() {
		return nil, fmt.Errorf("%w: WriteTrailer called with header type %s", errs.ErrInvalidState, headerType)
	}

	indexBytes := 4 * len(recordLengths)
	total := Size + indexBytes

	buf := make([]byte, total)

	h := RecordHeader{
		RecordNumber: recordNumber,
		BitInfo: BitInfo{
			Version:    Version,
			HeaderType: headerType,
		},
		// EventCount stays 0: a trailer has no events. IndexLengthBytes and
		// UncompressedDataLengthBytes both repurpose the usual per-event
		// index fields to describe the trailer's own payload instead, the
		// record-length table this header is followed by.
		IndexLengthBytes:            uint32(indexBytes),
		UncompressedDataLengthBytes: uint32(indexBytes),
		byteOrder:                   order,
	}
	h.RecordLengthWords = uint32(total / 4)

	if err := h.Write(buf, 0); err != nil {
		return nil, err
	}

	for i, length := range recordLengths {
		order.PutUint32(buf[Size+4*i:], length)
	}

	return buf, nil
}
