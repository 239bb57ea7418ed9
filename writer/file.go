package writer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/header"
)

// fileHandle owns the on-disk file lifecycle shared by Writer and
// WriterMT: opening, buffered append, trailer-offset patching, and close.
// Exactly one goroutine may use a fileHandle at a time; WriterMT enforces
// this by giving the writer goroutine exclusive ownership.
type fileHandle struct {
	f            *os.File
	buf          *bufio.Writer
	bytesWritten int64
}

// openFile creates path, writes the file-level header (and, if userHeader
// is non-empty, the padded user header that follows it), and returns a
// fileHandle ready to receive records.
func openFile(path string, cfg *Config, userHeader []byte) (*fileHandle, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrIoError, err)
	}

	buf := bufio.NewWriter(f)

	fh := &fileHandle{f: f, buf: buf}
	if err := fh.writeFileHeader(cfg, userHeader); err != nil {
		_ = f.Close()
		return nil, err
	}

	return fh, nil
}

func (fh *fileHandle) writeFileHeader(cfg *Config, userHeader []byte) error {
	uhPad := header.UserHeaderPadding(len(userHeader))

	h := header.New(cfg.fileHeaderType, cfg.byteOrder)
	h.UserHeaderLengthBytes = uint32(len(userHeader)) //nolint: gosec
	h.BitInfo.UserHeaderPaddingBytes = uhPad
	h.RecordLengthWords = uint32((header.Size + len(userHeader) + int(uhPad)) / 4) //nolint: gosec

	buf := make([]byte, header.Size)
	if err := h.WriteFileHeader(buf, 0); err != nil {
		return err
	}

	if err := fh.write(buf); err != nil {
		return err
	}
	if len(userHeader) > 0 {
		if err := fh.write(userHeader); err != nil {
			return err
		}
	}
	if uhPad > 0 {
		if err := fh.write(make([]byte, uhPad)); err != nil {
			return err
		}
	}

	return nil
}

func (fh *fileHandle) write(data []byte) error {
	n, err := fh.buf.Write(data)
	fh.bytesWritten += int64(n)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrIoError, err)
	}

	return nil
}

// appendRecord writes a fully built record's bytes to the file.
func (fh *fileHandle) appendRecord(data []byte) error {
	return fh.write(data)
}

// sync flushes buffered bytes and fsyncs the underlying file, giving the
// caller a durability barrier as of the most recently appended record.
func (fh *fileHandle) sync() error {
	if err := fh.buf.Flush(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrIoError, err)
	}
	if err := fh.f.Sync(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrIoError, err)
	}

	return nil
}

// writeTrailerAndPatch appends a trailer header (with an optional
// record-length index), then seeks back to the file header's fixed
// trailer-position field and patches in the trailer's absolute byte
// offset.
func (fh *fileHandle) writeTrailerAndPatch(recordNumber uint32, cfg *Config, recordLengths []uint32, withIndex bool) error {
	var idx []uint32
	if withIndex {
		idx = recordLengths
	}

	trailerOffset := fh.bytesWritten

	trailer, err := header.WriteTrailer(recordNumber, cfg.byteOrder, cfg.trailerType, idx)
	if err != nil {
		return err
	}
	if err := fh.write(trailer); err != nil {
		return err
	}

	if err := fh.buf.Flush(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrIoError, err)
	}

	patch := make([]byte, 8)
	cfg.byteOrder.PutUint64(patch, uint64(trailerOffset)) //nolint: gosec
	if _, err := fh.f.WriteAt(patch, header.TrailerPositionOffset); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrIoError, err)
	}

	return nil
}

// close flushes any buffered bytes and closes the underlying file. It is
// safe to call once; callers must not reuse the handle afterward.
func (fh *fileHandle) close() error {
	flushErr := fh.buf.Flush()
	closeErr := fh.f.Close()

	if flushErr != nil {
		return fmt.Errorf("%w: %w", errs.ErrIoError, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %w", errs.ErrIoError, closeErr)
	}

	return nil
}

// splitPath derives the path for split index n (0 is the original path;
// n>=1 inserts ".<n>" before the file extension, or appends it if there is
// none).
func splitPath(base string, n int) string {
	if n == 0 {
		return base
	}

	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return fmt.Sprintf("%s.%d%s", base[:i], n, base[i:])
		}
		if base[i] == '/' {
			break
		}
	}

	return fmt.Sprintf("%s.%d", base, n)
}

// isDiskFull reports whether err (as returned by fileHandle.write/appendRecord)
// indicates the underlying device is out of space, the condition WriterMT's
// diskFull deferred-write path reacts to.
func isDiskFull(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}
