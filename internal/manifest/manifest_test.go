package manifest_test

import (
	"path/filepath"
	"testing"

	"frameplay/internal/manifest"

	"github.com/stretchr/testify/require"
)

func TestRecordAndReadBack(t *testing.T) {
	store, err := manifest.Open(filepath.Join(t.TempDir(), "capture.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.BeginRun("run-1", "http://localhost:6006/", 43, 6571))
	require.NoError(t, store.RecordFrame("run-1", 43, "frame_0043", "frames/frame_0043.png"))
	require.NoError(t, store.RecordFrame("run-1", 44, "frame_0044", "frames/frame_0044.png"))
	require.NoError(t, store.CompleteRun("run-1"))

	captured, err := store.CapturedFrames()
	require.NoError(t, err)
	require.Equal(t, map[int]string{
		43: "frames/frame_0043.png",
		44: "frames/frame_0044.png",
	}, captured)
}

func TestRecaptureReplacesFrameRecord(t *testing.T) {
	store, err := manifest.Open(filepath.Join(t.TempDir(), "capture.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.BeginRun("run-1", "http://localhost:6006/", 0, 10))
	require.NoError(t, store.RecordFrame("run-1", 7, "frame_0007", "frames/frame_0007.png"))

	require.NoError(t, store.BeginRun("run-2", "http://localhost:6006/", 0, 10))
	require.NoError(t, store.RecordFrame("run-2", 7, "frame_0007", "redo/frame_0007.png"))

	captured, err := store.CapturedFrames()
	require.NoError(t, err)
	require.Equal(t, map[int]string{7: "redo/frame_0007.png"}, captured)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "capture.db")
	store, err := manifest.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopen against the existing schema.
	store, err = manifest.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
