package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jlab-clas12/hipo6/endian"
	"github.com/jlab-clas12/hipo6/errs"
	"github.com/jlab-clas12/hipo6/format"
	"github.com/jlab-clas12/hipo6/header"
	"github.com/jlab-clas12/hipo6/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenWriter(t *testing.T, opts ...Option) (*Writer, string) {
	t.Helper()

	w, err := New(opts...)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.hipo")
	require.NoError(t, w.Open(path))

	return w, path
}

func readFileHeader(t *testing.T, path string) *header.RecordHeader {
	t.Helper()

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf), header.Size)

	h := &header.RecordHeader{}
	require.NoError(t, h.Read(buf, 0))

	return h
}

func TestWriter_Open_WritesFileHeader(t *testing.T) {
	w, path := newOpenWriter(t)
	require.NoError(t, w.Close())

	h := readFileHeader(t, path)
	assert.True(t, h.BitInfo.HeaderType.IsFileHeader())
}

func TestWriter_Close_NoEventsEmitsTrailerOnlyFile(t *testing.T) {
	w, path := newOpenWriter(t)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	// File header plus a standalone trailer, no records in between.
	assert.Greater(t, info.Size(), int64(header.Size))
}

func TestWriter_AddEvent_OneEventProducesOneRecord(t *testing.T) {
	w, path := newOpenWriter(t)

	require.NoError(t, w.AddEvent([]byte("event-0")))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(2*header.Size))
}

func TestWriter_AddEvent_MultipleEventsIncrementRecordNumber(t *testing.T) {
	w, _ := newOpenWriter(t, WithMaxEventCount(1))

	require.NoError(t, w.AddEvent([]byte("a")))
	require.Equal(t, uint32(1), w.recordNumber, "first event alone has not triggered a flush yet")
	require.NoError(t, w.AddEvent([]byte("b")))
	require.Equal(t, uint32(2), w.recordNumber, "second event forced a flush of the first record")
	require.NoError(t, w.Close())
}

func TestWriter_WriteRecord_MutuallyExclusiveWithAddEvent(t *testing.T) {
	w, _ := newOpenWriter(t)

	require.NoError(t, w.AddEvent([]byte("a")))
	err := w.WriteRecord([]byte("not a real record"))
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestWriter_AddEvent_MutuallyExclusiveWithWriteRecord(t *testing.T) {
	b, err := record.New()
	require.NoError(t, err)
	require.True(t, b.AddEvent([]byte("x"), 0, 1))
	b.SetRecordNumber(1)
	rec, err := b.Build()
	require.NoError(t, err)

	w, _ := newOpenWriter(t)
	require.NoError(t, w.WriteRecord(rec))
	err = w.AddEvent([]byte("y"))
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestWriter_AddTrailerWithIndex_ImpliesAddTrailer(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	w.AddTrailer(false)
	w.AddTrailerWithIndex(true)
	assert.True(t, w.addTrailer)
	assert.True(t, w.addTrailerIndex)
}

func TestWriter_RequestSplit_RollsFileAfterNextFlush(t *testing.T) {
	w, err := New(WithMaxEventCount(1))
	require.NoError(t, err)

	base := filepath.Join(t.TempDir(), "run.hipo")
	require.NoError(t, w.Open(base))

	require.NoError(t, w.AddEvent([]byte("event-500")))
	w.RequestSplit()
	// Forces a flush of record 1 (event-500), which triggers the pending
	// split before event-501 is accepted into the new file's builder.
	require.NoError(t, w.AddEvent([]byte("event-501")))
	require.Equal(t, uint32(1), w.recordNumber, "record number resets to 1 on the new split file")
	require.NoError(t, w.Close())

	_, err = os.Stat(base)
	assert.NoError(t, err)
	_, err = os.Stat(splitPath(base, 1))
	assert.NoError(t, err, "split file must exist")
}

func TestWriter_ForceToDisk_Syncs(t *testing.T) {
	w, _ := newOpenWriter(t)

	require.NoError(t, w.AddEvent([]byte("x")))
	require.NoError(t, w.ForceToDisk())
	require.NoError(t, w.Close())
}

func TestWriter_Close_Idempotent(t *testing.T) {
	w, _ := newOpenWriter(t)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWriter_Close_StillClosesFileAfterFatalError(t *testing.T) {
	w, err := New(WithMaxBufferSize(8))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.hipo")
	require.NoError(t, w.Open(path))

	// First event fills the tiny buffer; the second can never fit even
	// after a flush, forcing AddEventSlice into its fatal-error path.
	require.NoError(t, w.AddEvent([]byte("abcd")))
	err = w.AddEvent([]byte("this one never fits"))
	require.Error(t, err)
	assert.Equal(t, err, w.Err())

	require.NoError(t, w.Close())

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "file must still exist and be closed")
}

func TestWriter_ByteOrder_BigEndianRoundTrips(t *testing.T) {
	w, path := newOpenWriter(t, WithByteOrder(endian.GetBigEndianEngine()))
	require.NoError(t, w.AddEvent([]byte("x")))
	require.NoError(t, w.Close())

	h := readFileHeader(t, path)
	assert.Equal(t, endian.GetBigEndianEngine(), h.ByteOrder())
}

func TestWriter_SetCompressionType_Invalid(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	err = w.SetCompressionType(format.CompressionType(99))
	assert.ErrorIs(t, err, errs.ErrInvalidCompressionType)
}

func TestWriter_SetCompressionType_AppliesToSubsequentRecords(t *testing.T) {
	w, _ := newOpenWriter(t)

	require.NoError(t, w.SetCompressionType(format.CompressionLZ4Fast))
	require.NoError(t, w.AddEvent([]byte("compress me please")))
	require.NoError(t, w.Close())
}
