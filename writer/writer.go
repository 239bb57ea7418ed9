package writer

import (
	"fmt"

	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/format"
	"github.com/jlab-clas12/hipo6/internal/options"
	"github.com/jlab-clas12/hipo6/record"
)

// Writer is the single-threaded writer: it owns one record.Builder and
// appends its built records directly to the output file as each one fills.
//
// Writer is not safe for concurrent use.
type Writer struct {
	cfg *Config

	fh      *fileHandle
	builder *record.Builder

	recordNumber  uint32
	recordLengths []uint32

	addTrailer      bool
	addTrailerIndex bool

	splitPending  bool
	splitIndex    int
	basePath      string
	userHeader    []byte

	writingViaRecord bool // true once WriteRecord has been called, forbidding addEvent
	usedAddEvent     bool

	closed bool
	err    error
}

// New creates a Writer configured by opts. It does not open a file; call
// Open or OpenWithUserHeader before adding events.
func New(opts ...Option) (*Writer, error) {
	cfg := NewConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	builder, err := record.New(
		record.WithByteOrder(cfg.byteOrder),
		record.WithMaxEventCount(cfg.maxEventCount),
		record.WithMaxBufferSize(cfg.maxBufferSize),
		record.WithCompressionType(cfg.compressionType),
		record.WithHeaderType(cfg.headerType),
	)
	if err != nil {
		return nil, err
	}

	return &Writer{
		cfg:          cfg,
		builder:      builder,
		recordNumber: 1,
		addTrailer:   true,
	}, nil
}

// Open creates path and writes its file header, with no user header.
func (w *Writer) Open(path string) error {
	return w.OpenWithUserHeader(path, nil)
}

// OpenWithUserHeader creates path, writes its file header, and stores
// userHeader immediately after it, padded to a 4-byte boundary.
func (w *Writer) OpenWithUserHeader(path string, userHeader []byte) error {
	fh, err := openFile(path, w.cfg, userHeader)
	if err != nil {
		w.err = err
		return err
	}

	w.fh = fh
	w.basePath = path
	w.userHeader = userHeader

	return nil
}

// SetCompressionType changes the compression algorithm used for records
// built after this call.
func (w *Writer) SetCompressionType(kind format.CompressionType) error {
	if err := w.builder.SetCompressionType(kind); err != nil {
		return err
	}

	w.cfg.compressionType = kind

	return nil
}

// AddTrailer controls whether Close appends a trailer. Defaults to true.
func (w *Writer) AddTrailer(enabled bool) {
	w.addTrailer = enabled
}

// AddTrailerWithIndex controls whether the trailer carries the
// record-length index; implies AddTrailer(true) when enabled.
func (w *Writer) AddTrailerWithIndex(enabled bool) {
	w.addTrailerIndex = enabled
	if enabled {
		w.addTrailer = true
	}
}

// RequestSplit marks that the file should be closed (with a trailer, if
// enabled) and a new split file opened immediately after the next record
// this writer flushes.
func (w *Writer) RequestSplit() {
	w.splitPending = true
}

// AddEvent appends one event to the current record, flushing and starting
// a fresh record first if the current one has no room. Mutually exclusive
// with WriteRecord.
func (w *Writer) AddEvent(data []byte) error {
	return w.AddEventSlice(data, 0, len(data))
}

// AddEventSlice is AddEvent over a sub-slice of data.
func (w *Writer) AddEventSlice(data []byte, off, length int) error {
	if w.err != nil {
		return w.err
	}
	if w.writingViaRecord {
		return fmt.Errorf("%w: AddEvent cannot be mixed with WriteRecord", errs.ErrInvalidState)
	}
	w.usedAddEvent = true

	if w.builder.AddEvent(data, off, length) {
		return nil
	}

	if err := w.flush(); err != nil {
		return err
	}

	if !w.builder.AddEvent(data, off, length) {
		err := fmt.Errorf("%w: event of length %d exceeds record capacity", errs.ErrBufferTooSmall, length)
		w.err = err
		return err
	}

	return nil
}

// WriteRecord appends a caller-prebuilt record's raw bytes directly and
// advances the writer's record number; the record's own header bytes,
// including its record-number field, are written unchanged. Mutually
// exclusive with AddEvent.
func (w *Writer) WriteRecord(prebuilt []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.usedAddEvent {
		return fmt.Errorf("%w: WriteRecord cannot be mixed with AddEvent", errs.ErrInvalidState)
	}
	w.writingViaRecord = true

	if err := w.appendBuiltRecord(prebuilt); err != nil {
		w.err = err
		return err
	}

	return nil
}

// flush builds the current record (if it has any events), appends it, and
// resets the builder for the next one.
func (w *Writer) flush() error {
	if w.builder.EventCount() == 0 {
		return nil
	}

	w.builder.SetRecordNumber(w.recordNumber)
	built, err := w.builder.Build()
	if err != nil {
		w.err = err
		return err
	}

	if err := w.appendBuiltRecord(built); err != nil {
		w.err = err
		return err
	}

	w.builder.Reset()

	if w.splitPending {
		w.splitPending = false
		if err := w.rollSplit(); err != nil {
			w.err = err
			return err
		}
	}

	return nil
}

func (w *Writer) appendBuiltRecord(built []byte) error {
	if w.fh == nil {
		return fmt.Errorf("%w: writer is not open", errs.ErrInvalidState)
	}

	if err := w.fh.appendRecord(built); err != nil {
		return err
	}

	w.recordLengths = append(w.recordLengths, uint32(len(built))) //nolint: gosec
	w.recordNumber++

	return nil
}

// ForceToDisk flushes buffered bytes and fsyncs the file now; use after
// AddEvent/WriteRecord calls that must be durable before returning.
func (w *Writer) ForceToDisk() error {
	if w.fh == nil {
		return fmt.Errorf("%w: writer is not open", errs.ErrInvalidState)
	}

	return w.fh.sync()
}

func (w *Writer) rollSplit() error {
	if err := w.closeCurrentFile(); err != nil {
		return err
	}

	w.splitIndex++
	fh, err := openFile(splitPath(w.basePath, w.splitIndex), w.cfg, w.userHeader)
	if err != nil {
		return err
	}

	w.fh = fh
	w.recordNumber = 1
	w.recordLengths = w.recordLengths[:0]

	return nil
}

func (w *Writer) closeCurrentFile() error {
	if w.addTrailer {
		if err := w.fh.writeTrailerAndPatch(w.recordNumber, w.cfg, w.recordLengths, w.addTrailerIndex); err != nil {
			return err
		}
	}

	return w.fh.close()
}

// Reset discards any in-progress record and clears the stored error,
// allowing the writer to resume after a non-fatal condition. It does not
// reopen a closed file.
func (w *Writer) Reset() {
	w.builder.Reset()
	w.err = nil
}

// Close flushes any partial record, optionally appends a trailer, and
// closes the output file. It is idempotent: subsequent calls are no-ops.
// Close always attempts to flush and release OS resources even if the
// writer is in a failed state; the trailer is only written if no fatal
// error preceded the close.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.fh == nil {
		return nil
	}

	if w.err == nil {
		if err := w.flush(); err != nil {
			_ = w.fh.close()
			return err
		}
	}

	if w.err == nil && w.addTrailer {
		if err := w.fh.writeTrailerAndPatch(w.recordNumber, w.cfg, w.recordLengths, w.addTrailerIndex); err != nil {
			_ = w.fh.close()
			return err
		}
	}

	return w.fh.close()
}

// Err returns the writer's stored fatal error, if any.
func (w *Writer) Err() error {
	return w.err
}
