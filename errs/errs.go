// Package errs defines the sentinel errors shared across the record writer.
// Call sites wrap these with fmt.Errorf("...: %w", errs.ErrX) to attach
// context; callers use errors.Is against the sentinels below.
package errs

import "errors"

var (
	// ErrBadMagic is returned when a header's magic field matches neither
	// the little-endian nor the big-endian encoding of the expected value.
	ErrBadMagic = errors.New("hipo6: bad header magic")

	// ErrBadLength is returned when a header's length fields are
	// inconsistent with the buffer that is supposed to hold them.
	ErrBadLength = errors.New("hipo6: inconsistent header length")

	// ErrBufferTooSmall is returned when a caller-supplied destination
	// buffer cannot hold the worst-case compressed output.
	ErrBufferTooSmall = errors.New("hipo6: destination buffer too small")

	// ErrCodecError wraps a failure reported by an underlying compressor
	// or decompressor.
	ErrCodecError = errors.New("hipo6: codec error")

	// ErrIoError wraps a file open/write/seek/close failure.
	ErrIoError = errors.New("hipo6: io error")

	// ErrCancelled is observed by ring operations after errorAlert has
	// been raised.
	ErrCancelled = errors.New("hipo6: cancelled")

	// ErrInvalidState is returned for programming errors: releasing an
	// already-released ring item, publishing or releasing out of sequence
	// order, mixing AddEvent with WriteRecord, or using a writer that is not
	// open. After a fatal error a writer returns that stored error instead.
	ErrInvalidState = errors.New("hipo6: invalid state")

	// ErrInvalidCompressionType is returned by header parsers when the
	// compression code does not fall in 0..3.
	ErrInvalidCompressionType = errors.New("hipo6: invalid compression type")

	// ErrRecordFull names the condition of a record builder refusing an
	// event because it is at capacity. No package in this module returns
	// it: the builder reports the condition as a false AddEvent result, and
	// the writers flush on that result.
	ErrRecordFull = errors.New("hipo6: record full")
)
