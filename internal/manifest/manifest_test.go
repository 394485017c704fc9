package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/fetch"
)

func TestLoadAbsent(t *testing.T) {
	m, status, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, status)
	assert.Empty(t, m.Slots)
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "text-effects")
	length := int64(42)
	m := New("text-effects")
	m.Merge(map[string]SlotEntry{
		"video": {
			URL:       "https://example.com/v.mp4",
			Kind:      "video",
			Filename:  "video-abc.mp4",
			Signature: &fetch.Signature{ETag: "e1", ContentLength: &length},
			CachedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	})
	require.NoError(t, Save(dir, m))

	loaded, status, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, StatusLoaded, status)
	assert.Equal(t, CurrentSchema, loaded.Version)
	assert.Equal(t, "text-effects", loaded.Namespace)
	entry, ok := loaded.Get("video")
	require.True(t, ok)
	assert.Equal(t, "video-abc.mp4", entry.Filename)
	require.NotNil(t, entry.Signature)
	assert.Equal(t, "e1", entry.Signature.ETag)
	assert.EqualValues(t, 42, *entry.Signature.ContentLength)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not survive a save")
}

func TestLoadDiscardsOtherVersions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte(`{"version":1,"slots":{"video":{"url":"u","filename":"f"}}}`), 0o644))

	m, status, err := Load(dir)
	assert.Error(t, err)
	assert.Equal(t, StatusDiscarded, status)
	assert.Empty(t, m.Slots)
}

func TestLoadDiscardsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte(`{"version":2,"slots":`), 0o644))

	m, status, err := Load(dir)
	assert.Error(t, err)
	assert.Equal(t, StatusDiscarded, status)
	require.NotNil(t, m)
	assert.Empty(t, m.Slots)
}

func TestMergeKeepsUntouchedSlots(t *testing.T) {
	m := New("ns")
	m.Merge(map[string]SlotEntry{
		"video": {URL: "a", Filename: "a.mp4"},
		"alpha": {URL: "b", Filename: "b.webm"},
	})
	m.Merge(map[string]SlotEntry{"video": {URL: "c", Filename: "c.mp4"}})

	assert.Equal(t, []string{"alpha", "video"}, m.SlotNames())
	assert.Equal(t, "c.mp4", m.Slots["video"].Filename)
	assert.Equal(t, "b.webm", m.Slots["alpha"].Filename)
}
