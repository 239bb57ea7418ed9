package compress

import (
	"fmt"
	"sync"

	"github.com/jlab-clas12/hipo6/errs"
	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances for reuse.
// The lz4.Compressor maintains internal state that benefits from reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// lz4HCPool pools lz4.CompressorHC instances for reuse.
var lz4HCPool = sync.Pool{
	New: func() any {
		return &lz4.CompressorHC{Level: lz4.Level9}
	},
}

// lz4FastCodec implements CompressionLZ4Fast using the default LZ4 block
// compressor (no high-compression search). It compresses directly into a
// caller-supplied destination, matching the record builder's in-place
// build() step.
type lz4FastCodec struct{}

var _ Codec = lz4FastCodec{}

func (lz4FastCodec) MaxCompressedLen(srcLen int) int {
	return lz4.CompressBlockBound(srcLen)
}

// Compress compresses src into dst using a pooled lz4.Compressor.
//
// Returns errs.ErrBufferTooSmall if dst cannot hold MaxCompressedLen(len(src))
// bytes, or a wrapped errs.ErrCodecError on a malformed-input failure from
// the underlying library.
func (lz4FastCodec) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	if len(dst) < lz4.CompressBlockBound(len(src)) {
		return 0, errs.ErrBufferTooSmall
	}

	c, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(c)

	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrCodecError, err)
	}

	return n, nil
}

func (lz4FastCodec) Decompress(dst, src []byte) (int, error) {
	return lz4Decompress(dst, src)
}

// lz4BestCodec implements CompressionLZ4Best using LZ4's high-compression
// ("HC") mode, trading compression speed for a smaller result. The block
// format, and therefore decompression, is identical to lz4FastCodec.
type lz4BestCodec struct{}

var _ Codec = lz4BestCodec{}

func (lz4BestCodec) MaxCompressedLen(srcLen int) int {
	return lz4.CompressBlockBound(srcLen)
}

func (lz4BestCodec) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	if len(dst) < lz4.CompressBlockBound(len(src)) {
		return 0, errs.ErrBufferTooSmall
	}

	c, _ := lz4HCPool.Get().(*lz4.CompressorHC)
	defer lz4HCPool.Put(c)

	n, err := c.CompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrCodecError, err)
	}

	return n, nil
}

func (lz4BestCodec) Decompress(dst, src []byte) (int, error) {
	return lz4Decompress(dst, src)
}

// lz4Decompress decompresses src (a raw LZ4 block) into dst, which must
// already be sized to the original (uncompressed) length recorded in the
// record header.
func lz4Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrCodecError, err)
	}

	return n, nil
}
