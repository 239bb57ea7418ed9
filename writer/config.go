// Package writer implements file-lifecycle orchestration over the record
// builder: record numbering, trailer emission, split-file rollover, and
// (for WriterMT) the ring-backed compressor/writer pipeline.
package writer

import (
	"fmt"

	"github.com/jlab-clas12/hipo6/endian"
	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/format"
	"github.com/jlab-clas12/hipo6/internal/options"
)

// DefaultMaxEventCount and DefaultMaxBufferSize are the per-record capacity
// limits a Writer passes through to its record.Builder(s) absent an
// explicit override.
const (
	DefaultMaxEventCount = 1_000_000
	DefaultMaxBufferSize = 8 * 1024 * 1024
)

// Config holds the options shared by Writer and WriterMT.
type Config struct {
	byteOrder       endian.EndianEngine
	headerType      format.HeaderType
	fileHeaderType  format.HeaderType
	trailerType     format.HeaderType
	compressionType format.CompressionType
	maxEventCount   int
	maxBufferSize   int

	ringSize        int
	compressorCount int
}

// NewConfig returns a Config defaulted to little-endian HIPO records, no
// compression, and (for WriterMT) an 8-slot ring with a single compressor.
func NewConfig() *Config {
	return &Config{
		byteOrder:       endian.GetLittleEndianEngine(),
		headerType:      format.HipoRecord,
		fileHeaderType:  format.HipoFile,
		trailerType:     format.HipoTrailer,
		compressionType: format.CompressionNone,
		maxEventCount:   DefaultMaxEventCount,
		maxBufferSize:   DefaultMaxBufferSize,
		ringSize:        8,
		compressorCount: 1,
	}
}

// Option configures a Writer or WriterMT's Config.
type Option = options.Option[*Config]

// WithByteOrder sets the endianness of every header this writer emits.
func WithByteOrder(order endian.EndianEngine) Option {
	return options.NoError(func(c *Config) {
		c.byteOrder = order
	})
}

// WithEvioFlavor selects EVIO_RECORD/EVIO_FILE/EVIO_TRAILER header types
// instead of the HIPO defaults.
func WithEvioFlavor() Option {
	return options.NoError(func(c *Config) {
		c.headerType = format.EvioRecord
		c.fileHeaderType = format.EvioFile
		c.trailerType = format.EvioTrailer
	})
}

// WithCompressionType selects the algorithm used to compress each record's
// data region.
func WithCompressionType(kind format.CompressionType) Option {
	return options.New(func(c *Config) error {
		if !kind.IsValid() {
			return fmt.Errorf("%w: %d", errs.ErrInvalidCompressionType, kind)
		}
		c.compressionType = kind
		return nil
	})
}

// WithMaxEventCount caps the number of events a single record may hold.
func WithMaxEventCount(n int) Option {
	return options.NoError(func(c *Config) {
		c.maxEventCount = n
	})
}

// WithMaxBufferSize caps the uncompressed event-data bytes a single record
// may accumulate.
func WithMaxBufferSize(n int) Option {
	return options.NoError(func(c *Config) {
		c.maxBufferSize = n
	})
}

// WithRingSize sets the WriterMT ring slot count; must be a power of two.
// Ignored by the single-threaded Writer.
func WithRingSize(n int) Option {
	return options.NoError(func(c *Config) {
		c.ringSize = n
	})
}

// WithCompressorCount sets the number of WriterMT compressor workers.
// Ignored by the single-threaded Writer.
func WithCompressorCount(n int) Option {
	return options.NoError(func(c *Config) {
		c.compressorCount = n
	})
}
