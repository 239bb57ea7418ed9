package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/jlab-clas12/hipo6/errs"
	"github.com/klauspost/compress/gzip"
)

// gzipWriterPool pools gzip.Writer instances along with the in-memory sink
// they compress into; GZIP has no block-bounded compressor so Compress
// streams through a buffer instead of compressing in place.
var gzipWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		return &gzipSink{buf: buf, w: gzip.NewWriter(buf)}
	},
}

type gzipSink struct {
	buf *bytes.Buffer
	w   *gzip.Writer
}

// gzipCodec implements CompressionGzip by streaming through
// klauspost/compress/gzip, a faster drop-in replacement for the standard
// library's gzip package that still emits the standard container format.
type gzipCodec struct{}

var _ Codec = gzipCodec{}

// MaxCompressedLen returns a conservative upper bound for gzip output,
// following the spec's len + len/1000 + 64 rule of thumb for incompressible
// input plus container overhead.
func (gzipCodec) MaxCompressedLen(srcLen int) int {
	return srcLen + srcLen/1000 + 64
}

func (gzipCodec) Compress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}
	if len(dst) < (gzipCodec{}).MaxCompressedLen(len(src)) {
		return 0, errs.ErrBufferTooSmall
	}

	sink, _ := gzipWriterPool.Get().(*gzipSink)
	defer func() {
		sink.buf.Reset()
		gzipWriterPool.Put(sink)
	}()

	sink.buf.Reset()
	sink.w.Reset(sink.buf)

	if _, err := sink.w.Write(src); err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrCodecError, err)
	}
	if err := sink.w.Close(); err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrCodecError, err)
	}

	if sink.buf.Len() > len(dst) {
		return 0, errs.ErrBufferTooSmall
	}

	return copy(dst, sink.buf.Bytes()), nil
}

func (gzipCodec) Decompress(dst, src []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	r, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrCodecError, err)
	}
	defer r.Close()

	n, err := io.ReadFull(r, dst)
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("%w: %w", errs.ErrCodecError, err)
	}

	return n, nil
}
