// Package record implements the record builder: accumulation of opaque
// event payloads into a record, and assembly of the final on-disk binary
// layout (header, event index, user header, data region).
package record

import (
	"fmt"

	"github.com/jlab-clas12/hipo6/compress"
	"github.com/jlab-clas12/hipo6/endian"
	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/format"
	"github.com/jlab-clas12/hipo6/header"
	"github.com/jlab-clas12/hipo6/internal/options"
	"github.com/jlab-clas12/hipo6/internal/pool"
)

// Builder accumulates opaque event byte payloads and assembles them, on
// demand, into the final binary record layout described by header.RecordHeader.
//
// A Builder is not safe for concurrent use; the ring package gives each
// pipeline stage exclusive ownership of the Builder it wraps at any instant.
type Builder struct {
	cfg *Config
	hdr *header.RecordHeader

	data       *pool.ByteBuffer // uncompressed, concatenated event payloads
	lengths    []uint32         // per-event length, for the event index
	userHeader []byte

	built *pool.ByteBuffer // lazily acquired, holds the last build() result
}

// New returns a Builder configured by opts, ready to accept events.
func New(opts ...Option) (*Builder, error) {
	cfg := NewConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	b := &Builder{
		cfg:  cfg,
		hdr:  header.New(cfg.headerType, cfg.byteOrder),
		data: pool.GetRecordBuffer(),
	}

	return b, nil
}

// Header returns the builder's header for read access; its length/count
// fields are only meaningful after Build.
func (b *Builder) Header() *header.RecordHeader {
	return b.hdr
}

// ByteOrder returns the endianness this builder writes with.
func (b *Builder) ByteOrder() endian.EndianEngine {
	return b.cfg.byteOrder
}

// EventCount returns the number of events accumulated so far.
func (b *Builder) EventCount() int {
	return len(b.lengths)
}

// UncompressedDataLength returns the sum of accumulated event payload
// lengths, unpadded.
func (b *Builder) UncompressedDataLength() int {
	return b.data.Len()
}

// BinaryBuffer returns the buffer produced by the last Build call, or nil
// if Build has never been called. Reset does not clear it: until the next
// Build, it still returns the previous record's bytes.
func (b *Builder) BinaryBuffer() []byte {
	if b.built == nil {
		return nil
	}

	return b.built.Bytes()
}

// SetCompressionType changes the algorithm the next Build call uses to
// compress the data region.
func (b *Builder) SetCompressionType(kind format.CompressionType) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: %d", errs.ErrInvalidCompressionType, kind)
	}

	b.cfg.compressionType = kind

	return nil
}

// SetUserHeader installs the record-level user header; it is copied, so
// the caller's slice may be reused or mutated afterward.
func (b *Builder) SetUserHeader(uh []byte) {
	if len(uh) == 0 {
		b.userHeader = nil
		return
	}

	b.userHeader = append(b.userHeader[:0], uh...)
}

// SetRecordNumber stamps the record number the next Build call will write.
// The writer owns record-number assignment; the builder just carries it.
func (b *Builder) SetRecordNumber(n uint32) {
	b.hdr.RecordNumber = n
}

// AddEvent appends src[off:off+length] as one event payload. It returns
// false, without mutating any state, when the record is already at
// capacity (maxEventCount or maxBufferSize); the caller is expected to
// flush and retry with a fresh builder or a reset one.
func (b *Builder) AddEvent(src []byte, off, length int) bool {
	if len(b.lengths)+1 > b.cfg.maxEventCount {
		return false
	}
	if b.data.Len()+length+4 > b.cfg.maxBufferSize {
		return false
	}

	b.data.MustWrite(src[off : off+length])
	b.lengths = append(b.lengths, uint32(length)) //nolint: gosec

	return true
}

// Build materializes the final binary record (header + event index +
// padded user header + compressed-or-raw data region) and returns it. The
// returned slice is only valid until the next Build or Reset call, or until
// the builder is returned to a pool; callers that need to retain it must
// copy it.
func (b *Builder) Build() ([]byte, error) {
	eventCount := len(b.lengths)
	uncompressedLen := b.data.Len()
	indexLenBytes := 4 * eventCount

	uhPad := header.UserHeaderPadding(len(b.userHeader))
	paddedUserHeaderLen := len(b.userHeader) + int(uhPad)

	order := b.cfg.byteOrder

	var dataRegion []byte
	var compressedWords uint32
	dataPad := uint8(0)

	if b.cfg.compressionType == format.CompressionNone {
		dataRegion = b.data.Bytes()
		dataPad = header.DataPadding(uncompressedLen)
	} else {
		maxLen, err := compress.MaxCompressedLen(b.cfg.compressionType, uncompressedLen)
		if err != nil {
			return nil, err
		}

		scratch := make([]byte, maxLen)
		n, err := compress.Compress(b.cfg.compressionType, scratch, b.data.Bytes())
		if err != nil {
			return nil, err
		}

		dataRegion = scratch[:n]
		compressedWords = uint32((n + 3) / 4) //nolint: gosec
		dataPad = header.DataPadding(n)
	}

	paddedDataLen := len(dataRegion) + int(dataPad)

	totalLen := header.Size + indexLenBytes + paddedUserHeaderLen + paddedDataLen
	if totalLen%4 != 0 {
		return nil, fmt.Errorf("%w: assembled record length %d is not 4-byte aligned", errs.ErrBadLength, totalLen)
	}

	if b.built == nil {
		b.built = pool.GetBuiltRecordBuffer()
	}
	b.built.Reset()
	b.built.ExtendOrGrow(totalLen)
	buf := b.built.Bytes()

	b.hdr.EventCount = uint32(eventCount)           //nolint: gosec
	b.hdr.IndexLengthBytes = uint32(indexLenBytes)  //nolint: gosec
	b.hdr.UserHeaderLengthBytes = uint32(len(b.userHeader)) //nolint: gosec
	b.hdr.UncompressedDataLengthBytes = uint32(uncompressedLen) //nolint: gosec
	b.hdr.CompressionType = b.cfg.compressionType
	b.hdr.CompressedWords = compressedWords
	b.hdr.BitInfo.Version = header.Version
	b.hdr.BitInfo.HeaderType = b.cfg.headerType
	b.hdr.BitInfo.UserHeaderPaddingBytes = uhPad
	b.hdr.BitInfo.DataPaddingBytes = dataPad
	b.hdr.RecordLengthWords = uint32(totalLen / 4) //nolint: gosec
	b.hdr.SetByteOrder(order)

	if err := b.hdr.Write(buf, 0); err != nil {
		return nil, err
	}

	offset := header.Size
	for _, length := range b.lengths {
		order.PutUint32(buf[offset:], length)
		offset += 4
	}

	offset += copy(buf[offset:], b.userHeader)
	zeroPad(buf[offset : offset+int(uhPad)])
	offset += int(uhPad)

	offset += copy(buf[offset:], dataRegion)
	zeroPad(buf[offset : offset+int(dataPad)])

	return buf, nil
}

// zeroPad clears a padding span; the built buffer is pooled and may carry
// stale bytes from a previous record at these offsets.
func zeroPad(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Reset empties the builder's accumulated state so it can build the next
// record. It does not release pooled buffers back to their pools and does
// not reallocate backing storage; call Release to return buffers when the
// builder itself is being discarded.
func (b *Builder) Reset() {
	b.data.Reset()
	b.lengths = b.lengths[:0]
	b.userHeader = nil
	b.hdr.Reset()
	b.hdr.BitInfo.HeaderType = b.cfg.headerType
	b.hdr.SetByteOrder(b.cfg.byteOrder)
}

// Release returns the builder's pooled buffers to their pools. After
// Release, the builder must not be used again.
func (b *Builder) Release() {
	pool.PutRecordBuffer(b.data)
	if b.built != nil {
		pool.PutBuiltRecordBuffer(b.built)
		b.built = nil
	}
}
