package dlq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteCreatesFileUnderNodeDir(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	err := w.Write(context.Background(), "p2_relevance", map[string]string{"id": "abc"}, errors.New("boom"))
	require.NoError(t, err)

	files, err := List(dir, "p2_relevance")
	require.NoError(t, err)
	require.Len(t, files, 1)

	entry, err := Read(files[0])
	require.NoError(t, err)
	require.Equal(t, "p2_relevance", entry.Node)
	require.Equal(t, "boom", entry.Error)
}

func TestWriteDeduplicatesCollidingFilenames(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	for i := 0; i < 3; i++ {
		err := w.Write(context.Background(), "p3_extraction", "same-item-id", errors.New("fail"))
		require.NoError(t, err)
	}

	files, err := List(dir, "p3_extraction")
	require.NoError(t, err)
	require.Len(t, files, 3)
}

func TestListAcrossAllNodes(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	require.NoError(t, w.Write(context.Background(), "node-a", "x", errors.New("e1")))
	require.NoError(t, w.Write(context.Background(), "node-b", "y", errors.New("e2")))

	files, err := List(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestListOnMissingRootReturnsEmpty(t *testing.T) {
	files, err := List("/nonexistent/path/for/dlq/test", "")
	require.NoError(t, err)
	require.Empty(t, files)
}
