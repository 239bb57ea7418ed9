package record

import (
	"fmt"

	"github.com/jlab-clas12/hipo6/endian"
	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/format"
	"github.com/jlab-clas12/hipo6/internal/options"
)

// DefaultMaxEventCount bounds how many events a single record accumulates
// before addEvent starts refusing, absent an explicit WithMaxEventCount.
const DefaultMaxEventCount = 1_000_000

// DefaultMaxBufferSize bounds the uncompressed event-data bytes a single
// record accumulates before addEvent starts refusing, absent an explicit
// WithMaxBufferSize.
const DefaultMaxBufferSize = 8 * 1024 * 1024

// Config holds a RecordBuilder's configuration: byte order, capacity
// limits, and which header type and compression algorithm new records are
// stamped with.
type Config struct {
	byteOrder        endian.EndianEngine
	maxEventCount    int
	maxBufferSize    int
	compressionType  format.CompressionType
	headerType       format.HeaderType
}

// NewConfig returns a Config with the writer's usual defaults: little
// endian, no compression, EVIO_RECORD header type.
func NewConfig() *Config {
	return &Config{
		byteOrder:       endian.GetLittleEndianEngine(),
		maxEventCount:   DefaultMaxEventCount,
		maxBufferSize:   DefaultMaxBufferSize,
		compressionType: format.CompressionNone,
		headerType:      format.EvioRecord,
	}
}

// Option configures a RecordBuilder's Config.
type Option = options.Option[*Config]

// WithByteOrder sets the endianness every header and index entry this
// builder produces is written in.
func WithByteOrder(order endian.EndianEngine) Option {
	return options.NoError(func(c *Config) {
		c.byteOrder = order
	})
}

// WithMaxEventCount caps the number of events a single record may hold.
func WithMaxEventCount(n int) Option {
	return options.New(func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: maxEventCount must be positive, got %d", errs.ErrInvalidState, n)
		}
		c.maxEventCount = n
		return nil
	})
}

// WithMaxBufferSize caps the uncompressed event-data bytes a single record
// may accumulate.
func WithMaxBufferSize(n int) Option {
	return options.New(func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: maxBufferSize must be positive, got %d", errs.ErrInvalidState, n)
		}
		c.maxBufferSize = n
		return nil
	})
}

// WithCompressionType selects the algorithm build() uses to compress the
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

// WithHeaderType sets the header type stamped into every built record
// (normally EVIO_RECORD or HIPO_RECORD).
func WithHeaderType(kind format.HeaderType) Option {
	return options.NoError(func(c *Config) {
		c.headerType = kind
	})
}
