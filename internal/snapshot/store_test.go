package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultStoreFile)
	store := NewStore(path)

	first := newSnapshot([16]byte{1}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), sampleWindows())
	second := newSnapshot([16]byte{2}, time.Date(2026, 2, 2, 3, 4, 5, 0, time.UTC), nil)

	reg := NewRegistry()
	reg.Put(second)
	reg.Put(first)
	require.NoError(t, store.Save(reg))

	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, first.ID(), st.Live)
	require.Len(t, st.Snapshots, 2)

	// Ordered by capture time regardless of map order.
	assert.Equal(t, first.ID(), st.Snapshots[0].ID())
	assert.Equal(t, second.ID(), st.Snapshots[1].ID())

	for i, w := range first.Windows() {
		assert.Equal(t, w.Persisted(), st.Snapshots[0].Window(i))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.json"))

	st, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, st.Snapshots)
}

func TestStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultStoreFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestStore_LoadOriginalLayout(t *testing.T) {
	const doc = `{
	  "configs": {
	    "6f1c2a9e-5b7d-4c1e-9f3a-2d8e4b6a1c0f": {
	      "id": "6f1c2a9e-5b7d-4c1e-9f3a-2d8e4b6a1c0f",
	      "data": [{"title": "Code", "path": "C:\\apps\\code.exe", "process_id": 1, "class_name": "Chrome_WidgetWin_1", "desktop_index": 1}]
	    }
	  },
	  "live_config": "6f1c2a9e-5b7d-4c1e-9f3a-2d8e4b6a1c0f"
	}`
	path := filepath.Join(t.TempDir(), DefaultStoreFile)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	st, err := NewStore(path).Load()
	require.NoError(t, err)
	require.Len(t, st.Snapshots, 1)
	assert.Equal(t, "6f1c2a9e-5b7d-4c1e-9f3a-2d8e4b6a1c0f", st.Live.String())
	assert.Equal(t, `C:\apps\code.exe`, st.Snapshots[0].Window(0).ExecutablePath)
}

func TestDefaultStorePath(t *testing.T) {
	path, err := DefaultStorePath()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	assert.Equal(t, DefaultStoreFile, filepath.Base(path))
}
