package writer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/header"
	"github.com/jlab-clas12/hipo6/internal/options"
	"github.com/jlab-clas12/hipo6/record"
	"github.com/jlab-clas12/hipo6/ring"
)

// WriterMT is the ring-backed, multi-threaded writer: K compressor
// goroutines build each record's binary layout in parallel while a single
// writer goroutine appends them to the output file strictly in publication
// order, preserving contiguous record numbering regardless of compression
// parallelism.
type WriterMT struct {
	cfg    *Config
	supply *ring.Supply

	fh            *fileHandle
	rootPath      string // path passed to NewMT; every split is named relative to this
	splitIndex    int
	userHeader    []byte
	recordLengths []uint32
	recordNumber  uint32

	addTrailer      bool
	addTrailerIndex bool

	current   *ring.Item // item currently held by the producer, or nil
	deferred  []*ring.DeferredRecord

	fatalErr atomic.Pointer[error]

	wg       sync.WaitGroup
	done     chan struct{}
	closeMu  sync.Mutex
	closed   bool
}

// NewMT creates a WriterMT configured by opts, spins up its compressor and
// writer goroutines, and opens path immediately.
func NewMT(path string, userHeader []byte, opts ...Option) (*WriterMT, error) {
	cfg := NewConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	fh, err := openFile(path, cfg, userHeader)
	if err != nil {
		return nil, err
	}

	supply, err := ring.New(cfg.ringSize, cfg.compressorCount, func() (ring.Builder, error) {
		return record.New(
			record.WithByteOrder(cfg.byteOrder),
			record.WithMaxEventCount(cfg.maxEventCount),
			record.WithMaxBufferSize(cfg.maxBufferSize),
			record.WithCompressionType(cfg.compressionType),
			record.WithHeaderType(cfg.headerType),
		)
	})
	if err != nil {
		_ = fh.close()
		return nil, err
	}

	w := &WriterMT{
		cfg:          cfg,
		supply:       supply,
		fh:           fh,
		rootPath:     path,
		userHeader:   userHeader,
		recordNumber: 1,
		addTrailer:   true,
		done:         make(chan struct{}),
	}

	for i := 0; i < cfg.compressorCount; i++ {
		w.wg.Add(1)
		go w.compressorLoop(i)
	}

	w.wg.Add(1)
	go w.writerLoop()

	return w, nil
}

// AddTrailer controls whether Close appends a trailer. Defaults to true.
func (w *WriterMT) AddTrailer(enabled bool) {
	w.addTrailer = enabled
}

// AddTrailerWithIndex controls whether the trailer carries the
// record-length index; implies AddTrailer(true) when enabled.
func (w *WriterMT) AddTrailerWithIndex(enabled bool) {
	w.addTrailerIndex = enabled
	if enabled {
		w.addTrailer = true
	}
}

// Err returns the first fatal error observed by a compressor or writer
// goroutine, if any.
func (w *WriterMT) Err() error {
	if p := w.fatalErr.Load(); p != nil {
		return *p
	}

	return nil
}

func (w *WriterMT) setErr(err error) {
	w.fatalErr.CompareAndSwap(nil, &err)
	w.supply.ErrorAlert()
}

// AddEvent appends one event to the producer's current record, publishing
// it and claiming a fresh one whenever the current record is full.
func (w *WriterMT) AddEvent(data []byte) error {
	return w.AddEventSlice(data, 0, len(data))
}

// AddEventSlice is AddEvent over a sub-slice of data.
func (w *WriterMT) AddEventSlice(data []byte, off, length int) error {
	if err := w.Err(); err != nil {
		return err
	}

	if w.current == nil {
		item, err := w.supply.Get()
		if err != nil {
			return err
		}
		w.current = item
	}

	if w.current.Builder.AddEvent(data, off, length) {
		return nil
	}

	if err := w.publishCurrent(false); err != nil {
		return err
	}

	item, err := w.supply.Get()
	if err != nil {
		return err
	}
	w.current = item

	if !w.current.Builder.AddEvent(data, off, length) {
		return fmt.Errorf("%w: event of length %d exceeds record capacity", errs.ErrBufferTooSmall, length)
	}

	return nil
}

// RequestSplit marks the producer's currently held record so the writer
// rolls over to a new split file immediately after appending it.
func (w *WriterMT) RequestSplit() error {
	if w.current == nil {
		return fmt.Errorf("%w: no record in progress", errs.ErrInvalidState)
	}
	w.current.SplitFileAfterWrite = true
	return nil
}

// RequestForceToDisk marks the producer's currently held record so the
// writer fsyncs immediately after appending it.
func (w *WriterMT) RequestForceToDisk() error {
	if w.current == nil {
		return fmt.Errorf("%w: no record in progress", errs.ErrInvalidState)
	}
	w.current.ForceToDisk = true
	return nil
}

func (w *WriterMT) publishCurrent(last bool) error {
	if w.current == nil {
		if last {
			// Nothing pending: claim and publish an empty, final item so
			// the writer goroutine sees the shutdown signal.
			item, err := w.supply.Get()
			if err != nil {
				return err
			}
			w.current = item
		} else {
			return nil
		}
	}

	w.current.LastItem = last
	item := w.current
	w.current = nil

	return w.supply.Publish(item)
}

func (w *WriterMT) compressorLoop(workerIndex int) {
	defer w.wg.Done()

	for {
		item, err := w.supply.GetToCompress(workerIndex)
		if err != nil {
			return
		}

		if _, err := item.Builder.Build(); err != nil {
			w.setErr(err)
			_ = w.supply.ReleaseCompressor(workerIndex, item)
			return
		}

		if err := w.supply.ReleaseCompressor(workerIndex, item); err != nil {
			w.setErr(err)
			return
		}

		if item.LastItem {
			return
		}
	}
}

func (w *WriterMT) writerLoop() {
	defer w.wg.Done()
	defer close(w.done)
	// The producer only ever publishes one LastItem, so only the single
	// compressor whose partition owns that sequence observes it; every
	// other compressor goroutine would otherwise stay parked in
	// GetToCompress forever. Alerting here, on every exit path of the
	// writer goroutine (clean shutdown or fatal error), wakes them so
	// Close's wg.Wait() below can never deadlock.
	defer w.supply.ErrorAlert()

	for {
		item, err := w.supply.GetToWrite()
		if err != nil {
			return
		}

		if err := w.handleWrite(item); err != nil {
			w.setErr(err)
			_ = w.supply.ReleaseWriter(item)
			return
		}

		last := item.LastItem
		if err := w.supply.ReleaseWriter(item); err != nil {
			w.setErr(err)
			return
		}

		if last {
			return
		}
	}
}

func (w *WriterMT) handleWrite(item *ring.Item) error {
	if item.DiskFull {
		w.deferred = append(w.deferred, item.Snapshot(w.recordNumber))
		return nil
	}

	built := item.Builder.BinaryBuffer()
	if len(built) <= header.Size {
		// An item with no events builds to a bare header, as the empty
		// final shutdown item does: nothing to append.
		return nil
	}
	header.PatchRecordNumber(built, w.recordNumber, w.cfg.byteOrder)

	if err := w.fh.appendRecord(built); err != nil {
		if isDiskFull(err) {
			// The device observed no space for this record: bypass the
			// write, keep the record number unconsumed, and hold onto a
			// detached copy for the caller to retry once space frees up.
			item.DiskFull = true
			w.deferred = append(w.deferred, item.Snapshot(w.recordNumber))
			return nil
		}
		return err
	}
	w.recordLengths = append(w.recordLengths, uint32(len(built))) //nolint: gosec
	w.recordNumber++

	if item.ForceToDisk {
		if err := w.fh.sync(); err != nil {
			return err
		}
	}

	if item.SplitFileAfterWrite {
		return w.rollSplit()
	}

	return nil
}

func (w *WriterMT) rollSplit() error {
	if w.addTrailer {
		if err := w.fh.writeTrailerAndPatch(w.recordNumber, w.cfg, w.recordLengths, w.addTrailerIndex); err != nil {
			return err
		}
	}
	if err := w.fh.close(); err != nil {
		return err
	}

	w.splitIndex++
	fh, err := openFile(splitPath(w.rootPath, w.splitIndex), w.cfg, w.userHeader)
	if err != nil {
		return err
	}

	w.fh = fh
	w.recordNumber = 1
	w.recordLengths = w.recordLengths[:0]

	return nil
}

// Close publishes any partially filled record as the final item, waits for
// the writer goroutine to drain the ring, appends a trailer (if enabled
// and no fatal error occurred), and closes the file. Idempotent.
func (w *WriterMT) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.publishCurrent(true); err != nil && w.Err() == nil {
		w.setErr(err)
	}

	<-w.done
	w.wg.Wait()

	fatalErr := w.Err()
	if fatalErr == nil && w.addTrailer {
		if err := w.fh.writeTrailerAndPatch(w.recordNumber, w.cfg, w.recordLengths, w.addTrailerIndex); err != nil {
			_ = w.fh.close()
			return err
		}
	}

	if err := w.fh.close(); err != nil {
		return err
	}

	return fatalErr
}

// Deferred returns the records that were skipped during a disk-full
// condition, in the order the writer observed them. The caller owns
// deciding what to do with them (e.g. writing them once the device has
// space again).
func (w *WriterMT) Deferred() []*ring.DeferredRecord {
	return w.deferred
}
