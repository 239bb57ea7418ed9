package ring

import (
	"fmt"
	"sync"

	"github.com/jlab-clas12/hipo6/errs"
)

// DefaultSize is the ring slot count used when no explicit size is given;
// matches spec.md's default of 8.
const DefaultSize = 8

// NewBuilderFunc constructs one Item's Builder. The ring calls it once per
// slot at construction time.
type NewBuilderFunc func() (Builder, error)

// Supply is a fixed-size, power-of-two ring of Items coordinating exactly
// one producer, K compressor workers, and one writer via sequence
// barriers. All blocking operations are cancellable via ErrorAlert.
//
// Sequence-mod-K consumer partitioning replaces the original Disruptor
// work-processor pattern: compressor worker i always handles sequences
// where seq mod K == i. This keeps workers independent while the writer
// still observes every slot in strict producer-publication order.
type Supply struct {
	mu   sync.Mutex
	cond *sync.Cond

	items []*Item
	mask  int64
	k     int64

	producerSeq  int64 // last sequence claimed by the producer; -1 before any claim
	publishedSeq int64 // last sequence published by the producer; -1 before any publish

	compressorSeq  []int64 // compressorSeq[i]: last sequence released by worker i
	compressorNext []int64 // compressorSeq[i]+k, the next sequence worker i will claim

	writerSeq int64 // last sequence released by the writer; -1 before any release

	cancelled bool
}

// New creates a Supply with size slots (must be a power of two) and k
// compressor workers, building each slot's Builder with newBuilder.
func New(size int, k int, newBuilder NewBuilderFunc) (*Supply, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: ring size must be a power of two, got %d", errs.ErrInvalidState, size)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: compressor count must be positive, got %d", errs.ErrInvalidState, k)
	}

	s := &Supply{
		items:          make([]*Item, size),
		mask:           int64(size - 1),
		k:              int64(k),
		producerSeq:    -1,
		publishedSeq:   -1,
		writerSeq:      -1,
		compressorSeq:  make([]int64, k),
		compressorNext: make([]int64, k),
	}
	s.cond = sync.NewCond(&s.mu)

	for i := 0; i < size; i++ {
		b, err := newBuilder()
		if err != nil {
			return nil, err
		}
		s.items[i] = &Item{Builder: b, ID: nextItemID()}
	}

	for i := int64(0); i < int64(k); i++ {
		s.compressorSeq[i] = i - int64(k)
		s.compressorNext[i] = i
	}

	return s, nil
}

// Size returns the number of slots in the ring.
func (s *Supply) Size() int {
	return int(s.mask + 1)
}

// Get blocks (producer role) until a slot is free, then returns it reset
// and stamped with the next sequence number.
func (s *Supply) Get() (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.producerSeq-s.writerSeq >= int64(len(s.items)) && !s.cancelled {
		s.cond.Wait()
	}
	if s.cancelled {
		return nil, errs.ErrCancelled
	}

	s.producerSeq++
	idx := s.producerSeq & s.mask
	item := s.items[idx]
	item.reset()
	item.sequence = s.producerSeq

	return item, nil
}

// Publish advances the published cursor to item's sequence, waking any
// compressor waiting on it. The producer must publish items in the order
// Get returned them.
func (s *Supply) Publish(item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.sequence != s.publishedSeq+1 {
		return fmt.Errorf("%w: publish out of order: got seq %d, expected %d", errs.ErrInvalidState, item.sequence, s.publishedSeq+1)
	}

	s.publishedSeq = item.sequence
	s.cond.Broadcast()

	return nil
}

// GetToCompress blocks (compressor role) until the next slot assigned to
// workerIndex (sequence mod K == workerIndex) has been published.
func (s *Supply) GetToCompress(workerIndex int) (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.compressorNext[workerIndex] > s.publishedSeq && !s.cancelled {
		s.cond.Wait()
	}
	if s.cancelled {
		return nil, errs.ErrCancelled
	}

	seq := s.compressorNext[workerIndex]
	idx := seq & s.mask

	return s.items[idx], nil
}

// ReleaseCompressor advances workerIndex's cursor past item, making it
// eligible for the writer once every slot before it in sequence order has
// also been released by its owning compressor.
func (s *Supply) ReleaseCompressor(workerIndex int, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.sequence != s.compressorNext[workerIndex] {
		return fmt.Errorf("%w: compressor %d released out-of-order sequence %d, expected %d", errs.ErrInvalidState, workerIndex, item.sequence, s.compressorNext[workerIndex])
	}
	if item.alreadyReleased {
		return fmt.Errorf("%w: item already released", errs.ErrInvalidState)
	}

	item.alreadyReleased = true
	s.compressorSeq[workerIndex] = item.sequence
	s.compressorNext[workerIndex] = item.sequence + s.k
	s.cond.Broadcast()

	return nil
}

// GetToWrite blocks (writer role) until the next sequence in order has
// been released by its owning compressor.
func (s *Supply) GetToWrite() (*Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.writerSeq + 1
	owner := seq % s.k

	for s.compressorSeq[owner] < seq && !s.cancelled {
		s.cond.Wait()
	}
	if s.cancelled {
		return nil, errs.ErrCancelled
	}

	idx := seq & s.mask

	return s.items[idx], nil
}

// ReleaseWriter advances the writer cursor past item, freeing its slot for
// the producer. Writer releases must be strictly sequential; an
// out-of-order release is a programming error.
func (s *Supply) ReleaseWriter(item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.sequence != s.writerSeq+1 {
		return fmt.Errorf("%w: writer released out-of-order sequence %d, expected %d", errs.ErrInvalidState, item.sequence, s.writerSeq+1)
	}

	item.alreadyReleased = true
	s.writerSeq = item.sequence
	s.cond.Broadcast()

	return nil
}

// ReleaseWriterSequential is an alias for ReleaseWriter; the original
// reference implementation distinguished the two, but both enforce the
// same strictly-increasing release order here.
func (s *Supply) ReleaseWriterSequential(item *Item) error {
	return s.ReleaseWriter(item)
}

// ErrorAlert wakes every blocked Get/GetToCompress/GetToWrite caller; those
// calls, now and afterwards, return errs.ErrCancelled. Publish and the
// release calls are not affected. Idempotent.
func (s *Supply) ErrorAlert() {
	s.mu.Lock()
	s.cancelled = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Cancelled reports whether ErrorAlert has been raised.
func (s *Supply) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancelled
}
