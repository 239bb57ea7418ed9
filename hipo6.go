// Package hipo6 implements the write-side core of the HIPO/EVIO-6
// record-oriented binary file format used by the CLAS12 data acquisition
// and offline reconstruction chain.
//
// A HIPO/EVIO-6 file is a sequence of fixed-56-byte-header records, each
// holding zero or more opaque event payloads, an optional padded user
// header, and a compressed-or-raw data region. Records are framed by a
// file-level header at the start of the file and an optional trailer (with
// an optional record-length index) at the end.
//
// # Core Features
//
//   - Event accumulation into records with configurable per-record limits
//     (event count, uncompressed byte size)
//   - Pluggable compression: none, LZ4 (fast and high-compression modes),
//     and GZIP
//   - Single-threaded Writer for straightforward sequential use
//   - Ring-buffered WriterMT for parallel compression across K workers
//     while preserving strict record-number ordering on disk
//   - Split-file rollover, per-record force-to-disk durability barriers,
//     and disk-full deferred writes
//
// # Basic Usage
//
// Writing events with the single-threaded writer:
//
//	import "github.com/jlab-clas12/hipo6"
//
//	w, err := hipo6.NewWriter()
//	if err != nil {
//	    // handle err
//	}
//	if err := w.Open("run.hipo"); err != nil {
//	    // handle err
//	}
//	for _, event := range events {
//	    if err := w.AddEvent(event); err != nil {
//	        // handle err
//	    }
//	}
//	if err := w.Close(); err != nil {
//	    // handle err
//	}
//
// Writing events with the ring-backed multi-threaded writer, compressing
// across 4 workers:
//
//	w, err := hipo6.NewWriterMT("run.hipo", nil,
//	    writer.WithCompressorCount(4),
//	    writer.WithCompressionType(format.CompressionLZ4Fast),
//	)
//	if err != nil {
//	    // handle err
//	}
//	for _, event := range events {
//	    if err := w.AddEvent(event); err != nil {
//	        break
//	    }
//	}
//	if err := w.Close(); err != nil {
//	    // handle err
//	}
//
// # Package Structure
//
// This package is a thin, documented entry point over the writer package.
// For record-level control (building a record without a file, inspecting
// header contents) use the record and header packages directly.
package hipo6

import (
	"github.com/jlab-clas12/hipo6/writer"
)

// NewWriter returns a single-threaded Writer configured by opts. The
// writer owns one record builder and appends each record to the output
// file as it fills; call Open or OpenWithUserHeader before adding events.
//
// Available options:
//   - writer.WithByteOrder(endian.EndianEngine)
//   - writer.WithEvioFlavor()
//   - writer.WithCompressionType(format.CompressionType)
//   - writer.WithMaxEventCount(int)
//   - writer.WithMaxBufferSize(int)
func NewWriter(opts ...writer.Option) (*writer.Writer, error) {
	return writer.New(opts...)
}

// NewWriterMT returns a ring-backed WriterMT configured by opts, opens
// path immediately, and starts its compressor and writer goroutines.
// userHeader, if non-empty, is written immediately after the file header,
// padded to a 4-byte boundary.
//
// Available options, in addition to the Writer options above:
//   - writer.WithRingSize(int) - ring slot count, must be a power of two
//   - writer.WithCompressorCount(int) - number of parallel compressor workers
func NewWriterMT(path string, userHeader []byte, opts ...writer.Option) (*writer.WriterMT, error) {
	return writer.NewMT(path, userHeader, opts...)
}
