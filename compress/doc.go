// Package compress provides the stateless compression primitives used to
// pack a record's event-data region.
//
// # Overview
//
// Every record carries a compression code in the top 4 bits of one header
// word (format.CompressionType). Only four codes are assigned: none, LZ4
// fast, LZ4 high-compression ("best"), or gzip. This package implements the three active algorithms as
// in-place operations over caller-supplied buffers so the record builder
// never has to guess a destination size at the wrong layer:
//
//	n, err := compress.Compress(format.CompressionLZ4Fast, dst, src)
//	orig, err := compress.Decompress(format.CompressionLZ4Fast, dst, src)
//
// # Sizing
//
// Callers size their destination buffer with MaxCompressedLen before
// calling Compress; Compress returns errs.ErrBufferTooSmall rather than
// silently truncating or reallocating on the caller's behalf.
//
// # Byte-for-byte compatibility
//
// The LZ4 codecs call directly into github.com/pierrec/lz4/v4's block
// API (no frame/checksum wrapper) so the bytes produced are the same
// block format existing HIPO readers already decode. The gzip codec
// streams through github.com/klauspost/compress/gzip, a drop-in,
// faster gzip implementation that still emits the standard DEFLATE/gzip
// container.
package compress
