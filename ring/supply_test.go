package ring

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jlab-clas12/hipo6/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBuilder is a minimal Builder stand-in for ring tests; it records
// which sequence (via SetRecordNumber) last touched it and returns that as
// its "built" payload, so tests can assert ordering without depending on
// the record package.
type fakeBuilder struct {
	recordNumber uint32
	built        []byte
}

func (f *fakeBuilder) AddEvent(src []byte, off, length int) bool { return true }
func (f *fakeBuilder) Build() ([]byte, error) {
	f.built = []byte(fmt.Sprintf("record-%d", f.recordNumber))
	return f.built, nil
}
func (f *fakeBuilder) Reset()                       { f.built = nil }
func (f *fakeBuilder) BinaryBuffer() []byte          { return f.built }
func (f *fakeBuilder) SetRecordNumber(n uint32)      { f.recordNumber = n }

func newTestSupply(t *testing.T, size, k int) *Supply {
	t.Helper()
	s, err := New(size, k, func() (Builder, error) {
		return &fakeBuilder{}, nil
	})
	require.NoError(t, err)
	return s
}

func TestNew_RejectsNonPowerOfTwoSize(t *testing.T) {
	_, err := New(3, 1, func() (Builder, error) { return &fakeBuilder{}, nil })
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestNew_RejectsZeroCompressors(t *testing.T) {
	_, err := New(8, 0, func() (Builder, error) { return &fakeBuilder{}, nil })
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestSupply_GetPublish_SingleItem(t *testing.T) {
	s := newTestSupply(t, 4, 1)

	item, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(0), item.Sequence())

	require.NoError(t, s.Publish(item))
}

func TestSupply_Publish_OutOfOrderRejected(t *testing.T) {
	s := newTestSupply(t, 4, 1)

	item0, err := s.Get()
	require.NoError(t, err)
	item1, err := s.Get()
	require.NoError(t, err)

	err = s.Publish(item1)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	require.NoError(t, s.Publish(item0))
}

func TestSupply_FullPipeline_SingleCompressor(t *testing.T) {
	s := newTestSupply(t, 4, 1)

	item, err := s.Get()
	require.NoError(t, err)
	require.NoError(t, s.Publish(item))

	got, err := s.GetToCompress(0)
	require.NoError(t, err)
	assert.Same(t, item, got)

	_, _ = got.Builder.Build()
	require.NoError(t, s.ReleaseCompressor(0, got))

	toWrite, err := s.GetToWrite()
	require.NoError(t, err)
	assert.Same(t, item, toWrite)

	require.NoError(t, s.ReleaseWriter(toWrite))
}

func TestSupply_WriterOrder_PreservedAcrossKCompressors(t *testing.T) {
	const n = 40
	const k = 4
	s := newTestSupply(t, 8, k)

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				item, err := s.GetToCompress(worker)
				if err != nil {
					return
				}
				item.Builder.SetRecordNumber(uint32(item.Sequence()) + 1) //nolint: gosec
				_, _ = item.Builder.Build()
				if err := s.ReleaseCompressor(worker, item); err != nil {
					return
				}
				// Each worker's last sequence below n lies in [n-k, n-1].
				if item.Sequence()+k >= n {
					return
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < n; i++ {
			item, err := s.Get()
			if err != nil {
				return
			}
			if err := s.Publish(item); err != nil {
				return
			}
		}
	}()

	var order []uint32
	for i := 0; i < n; i++ {
		item, err := s.GetToWrite()
		require.NoError(t, err)
		order = append(order, item.Builder.(*fakeBuilder).recordNumber)
		require.NoError(t, s.ReleaseWriter(item))
	}
	wg.Wait()

	for i, v := range order {
		assert.Equal(t, uint32(i+1), v, "writer must observe strictly increasing record numbers despite parallel compression")
	}
}

func TestSupply_ReleaseWriter_OutOfOrderRejected(t *testing.T) {
	s := newTestSupply(t, 4, 1)

	item0, _ := s.Get()
	_ = s.Publish(item0)
	item1, _ := s.Get()
	_ = s.Publish(item1)

	toWrite0, err := s.GetToCompress(0)
	require.NoError(t, err)
	require.NoError(t, s.ReleaseCompressor(0, toWrite0))

	toWrite1, err := s.GetToCompress(0)
	require.NoError(t, err)
	require.NoError(t, s.ReleaseCompressor(0, toWrite1))

	w0, err := s.GetToWrite()
	require.NoError(t, err)
	require.NoError(t, s.ReleaseWriter(w0))

	w1, err := s.GetToWrite()
	require.NoError(t, err)
	assert.Equal(t, int64(1), w1.Sequence())

	// Releasing the already-released item0 again must be rejected: its
	// sequence no longer matches writerSeq+1.
	err = s.ReleaseWriter(w0)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	require.NoError(t, s.ReleaseWriter(w1))
}

func TestSupply_ErrorAlert_UnblocksWaiters(t *testing.T) {
	s := newTestSupply(t, 2, 1)

	// Fill the ring so the next Get blocks.
	item0, _ := s.Get()
	_ = s.Publish(item0)
	item1, _ := s.Get()
	_ = s.Publish(item1)

	done := make(chan error, 1)
	go func() {
		_, err := s.Get()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.ErrorAlert()

	select {
	case err := <-done:
		require.ErrorIs(t, err, errs.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("ErrorAlert did not unblock a waiting Get")
	}

	assert.True(t, s.Cancelled())
}

func TestItem_Snapshot_DeepCopiesBytes(t *testing.T) {
	s := newTestSupply(t, 4, 1)
	item, err := s.Get()
	require.NoError(t, err)

	item.Builder.SetRecordNumber(7)
	_, err = item.Builder.Build()
	require.NoError(t, err)

	snap := item.Snapshot(7)
	assert.Equal(t, uint32(7), snap.RecordNumber)
	assert.Equal(t, "record-7", string(snap.Bytes))

	// Mutate the builder's backing storage; the snapshot must be unaffected.
	fb := item.Builder.(*fakeBuilder)
	fb.built[0] = 'X'
	assert.Equal(t, "record-7", string(snap.Bytes))
}
