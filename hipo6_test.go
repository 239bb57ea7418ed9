package hipo6

import (
	"path/filepath"
	"testing"

	"github.com/jlab-clas12/hipo6/writer"
	"github.com/stretchr/testify/require"
)

func TestNewWriter_OpenAddEventClose(t *testing.T) {
	w, err := NewWriter()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.hipo")
	require.NoError(t, w.Open(path))
	require.NoError(t, w.AddEvent([]byte("event-0")))
	require.NoError(t, w.Close())
}

func TestNewWriterMT_AddEventClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.hipo")

	w, err := NewWriterMT(path, nil, writer.WithCompressorCount(2))
	require.NoError(t, err)

	require.NoError(t, w.AddEvent([]byte("event-0")))
	require.NoError(t, w.Close())
	require.NoError(t, w.Err())
}
