// Package ring implements the record supply: a fixed-size pool of reusable
// RingItems coordinating one producer, K compressor workers, and one
// writer through sequence barriers, in the style of the LMAX Disruptor.
package ring

import "sync/atomic"

var itemIDCounter uint64

func nextItemID() uint64 {
	return atomic.AddUint64(&itemIDCounter, 1)
}

// Builder is the subset of record.Builder's contract the ring needs; it is
// declared locally so this package does not import record; the writer
// package imports both and hands record.Builder values to the ring.
type Builder interface {
	AddEvent(src []byte, off, length int) bool
	Build() ([]byte, error)
	Reset()
	BinaryBuffer() []byte
	SetRecordNumber(n uint32)
}

// Item is a reusable ring slot: one Builder plus the pipeline metadata the
// producer, compressors, and writer attach to it as it moves through the
// pipeline. An Item is owned by exactly one stage at any instant; ownership
// transfers only via sequence publication/release.
type Item struct {
	Builder Builder

	// ID is an opaque, stable identifier for this slot, assigned once at
	// construction and never reused.
	ID uint64

	sequence int64

	// SplitFileAfterWrite tells the writer to close the current output
	// file and open the next split after appending this item's record.
	SplitFileAfterWrite bool

	// ForceToDisk tells the writer to fsync after appending this item's
	// record.
	ForceToDisk bool

	// DiskFull marks the item's record as deferred because the output
	// device was full. The writer sets it when appending the record fails
	// for lack of space; an item that reaches the writer already marked is
	// deferred without a write attempt.
	DiskFull bool

	// LastItem marks the final item the producer will ever publish; the
	// writer exits its loop after processing it.
	LastItem bool

	alreadyReleased bool
}

// Sequence returns the slot's assigned sequence number. It is only
// meaningful once the item has been returned by Get.
func (it *Item) Sequence() int64 {
	return it.sequence
}

func (it *Item) reset() {
	it.Builder.Reset()
	it.SplitFileAfterWrite = false
	it.ForceToDisk = false
	it.DiskFull = false
	it.LastItem = false
	it.alreadyReleased = false
}

// DeferredRecord is a detached, inert copy of a built record's bytes and
// the writer metadata that travelled with it, produced by Snapshot when the
// writer must hold on to a record past the point its ring slot needs to be
// recycled (the diskFull deferred-write path).
type DeferredRecord struct {
	RecordNumber uint32
	Bytes        []byte
	ForceToDisk  bool
}

// Snapshot deep-copies the item's last built record into a DeferredRecord
// so the slot it occupies can be released back to the ring immediately,
// before the writer has actually consumed the copy.
func (it *Item) Snapshot(recordNumber uint32) *DeferredRecord {
	built := it.Builder.BinaryBuffer()
	cp := make([]byte, len(built))
	copy(cp, built)

	return &DeferredRecord{
		RecordNumber: recordNumber,
		Bytes:        cp,
		ForceToDisk:  it.ForceToDisk,
	}
}
