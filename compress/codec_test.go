package compress

import (
	"bytes"
	"testing"

	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allKinds() []format.CompressionType {
	return []format.CompressionType{
		format.CompressionNone,
		format.CompressionLZ4Fast,
		format.CompressionLZ4Best,
		format.CompressionGzip,
	}
}

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 200)

	for _, kind := range allKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			maxLen, err := MaxCompressedLen(kind, len(data))
			require.NoError(t, err)

			dst := make([]byte, maxLen)
			n, err := Compress(kind, dst, data)
			require.NoError(t, err)

			out := make([]byte, len(data))
			m, err := Decompress(kind, out, dst[:n])
			require.NoError(t, err)
			assert.Equal(t, len(data), m)
			assert.Equal(t, data, out)
		})
	}
}

func TestRoundTrip_EmptyInput(t *testing.T) {
	for _, kind := range allKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			n, err := Compress(kind, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			m, err := Decompress(kind, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, 0, m)
		})
	}
}

func TestCompress_BufferTooSmall(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 4096)

	for _, kind := range allKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			dst := make([]byte, 1)
			_, err := Compress(kind, dst, data)
			require.ErrorIs(t, err, errs.ErrBufferTooSmall)
		})
	}
}

func TestCodecFor_InvalidType(t *testing.T) {
	_, err := CodecFor(format.CompressionType(255))
	require.ErrorIs(t, err, errs.ErrInvalidCompressionType)
}

func TestLZ4Best_SmallerOrEqualToFast(t *testing.T) {
	data := bytes.Repeat([]byte("compressible data pattern "), 500)

	fastMax, _ := MaxCompressedLen(format.CompressionLZ4Fast, len(data))
	fastDst := make([]byte, fastMax)
	fastN, err := Compress(format.CompressionLZ4Fast, fastDst, data)
	require.NoError(t, err)

	bestMax, _ := MaxCompressedLen(format.CompressionLZ4Best, len(data))
	bestDst := make([]byte, bestMax)
	bestN, err := Compress(format.CompressionLZ4Best, bestDst, data)
	require.NoError(t, err)

	assert.LessOrEqual(t, bestN, fastN)
}

func BenchmarkCompress(b *testing.B) {
	data := bytes.Repeat([]byte("benchmark payload data "), 1000)

	for _, kind := range allKinds() {
		b.Run(kind.String(), func(b *testing.B) {
			maxLen, _ := MaxCompressedLen(kind, len(data))
			dst := make([]byte, maxLen)

			b.ResetTimer()
			for b.Loop() {
				_, _ = Compress(kind, dst, data)
			}
		})
	}
}
