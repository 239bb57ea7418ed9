package compress

import (
	"fmt"

	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/format"
)

// Codec is the stateless, in-place compression primitive a single
// CompressionType implements. Compress and Decompress never allocate: the
// caller owns sizing dst via MaxCompressedLen (for Compress) or from the
// header's uncompressedDataLengthBytes (for Decompress).
type Codec interface {
	// MaxCompressedLen returns an upper bound on the compressed size of
	// srcLen bytes of input, for sizing dst before Compress.
	MaxCompressedLen(srcLen int) int

	// Compress compresses src into dst, returning the number of bytes
	// written. Returns errs.ErrBufferTooSmall if dst cannot hold
	// MaxCompressedLen(len(src)) bytes.
	Compress(dst, src []byte) (int, error)

	// Decompress decompresses src into dst, returning the number of bytes
	// written. dst must be exactly the original (uncompressed) length.
	Decompress(dst, src []byte) (int, error)
}

var codecs = map[format.CompressionType]Codec{
	format.CompressionNone:    noopCodec{},
	format.CompressionLZ4Fast: lz4FastCodec{},
	format.CompressionLZ4Best: lz4BestCodec{},
	format.CompressionGzip:    gzipCodec{},
}

// CodecFor returns the Codec implementing kind.
//
// Returns errs.ErrInvalidCompressionType if kind is outside the 0..3 code
// space the header format reserves for compression type.
func CodecFor(kind format.CompressionType) (Codec, error) {
	c, ok := codecs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidCompressionType, kind)
	}

	return c, nil
}

// MaxCompressedLen returns an upper bound on the compressed size of srcLen
// bytes under kind.
func MaxCompressedLen(kind format.CompressionType, srcLen int) (int, error) {
	c, err := CodecFor(kind)
	if err != nil {
		return 0, err
	}

	return c.MaxCompressedLen(srcLen), nil
}

// Compress compresses src into dst under kind, returning the compressed
// length.
func Compress(kind format.CompressionType, dst, src []byte) (int, error) {
	c, err := CodecFor(kind)
	if err != nil {
		return 0, err
	}

	return c.Compress(dst, src)
}

// Decompress decompresses src into dst under kind, returning the original
// length. dst must already be sized to the original length.
func Decompress(kind format.CompressionType, dst, src []byte) (int, error) {
	c, err := CodecFor(kind)
	if err != nil {
		return 0, err
	}

	return c.Decompress(dst, src)
}

// noopCodec implements CompressionNone: the data region is copied as-is.
type noopCodec struct{}

func (noopCodec) MaxCompressedLen(srcLen int) int { return srcLen }

func (noopCodec) Compress(dst, src []byte) (int, error) {
	if len(dst) < len(src) {
		return 0, errs.ErrBufferTooSmall
	}

	return copy(dst, src), nil
}

func (noopCodec) Decompress(dst, src []byte) (int, error) {
	if len(dst) < len(src) {
		return 0, errs.ErrBufferTooSmall
	}

	return copy(dst, src), nil
}
