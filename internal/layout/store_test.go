package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traykeep/traykeep/internal/tray"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	store := NewStore(path)

	doc := &Document{
		MenuBarLayout: []Entry{
			NewItem(tray.IconIdentity{Namespace: "com.example.a", Title: "A"}, tray.SectionHidden, 0),
			NewItem(tray.IconIdentity{Namespace: "com.example.b", Title: "B"}, tray.SectionHidden, 1),
			NewSpacer(tray.SectionVisible, 0),
			NewItem(tray.IconIdentity{Namespace: "com.example.c", Title: "C"}, tray.SectionVisible, 1),
		},
	}
	doc.RebuildPositions()

	require.NoError(t, store.Save(doc))

	loaded, err := store.Load()
	require.NoError(t, err)

	// Identity, section, order, and spacer-ness all survive the trip.
	assert.Equal(t, doc.MenuBarLayout, loaded.MenuBarLayout)
	assert.Equal(t, doc.IconPositions, loaded.IconPositions)
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.json"))

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.MenuBarLayout)
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestRebuildPositionsSkipsSpacers(t *testing.T) {
	doc := &Document{
		MenuBarLayout: []Entry{
			NewItem(tray.IconIdentity{Namespace: "a", Title: "A"}, tray.SectionHidden, 0),
			NewSpacer(tray.SectionHidden, 1),
			NewItem(tray.IconIdentity{Namespace: "b", Title: "B"}, tray.SectionHidden, 2),
		},
	}
	doc.RebuildPositions()

	assert.Equal(t, []tray.IconIdentity{
		{Namespace: "a", Title: "A"},
		{Namespace: "b", Title: "B"},
	}, doc.IconPositions[tray.SectionHidden])
}

func TestNormalize(t *testing.T) {
	entries := []Entry{
		NewItem(tray.IconIdentity{Namespace: "a"}, tray.SectionHidden, 4),
		NewItem(tray.IconIdentity{Namespace: "b"}, tray.SectionHidden, 9),
		NewItem(tray.IconIdentity{Namespace: "c"}, tray.SectionVisible, 7),
	}
	Normalize(entries)

	hidden := BySection(entries, tray.SectionHidden)
	require.Len(t, hidden, 2)
	assert.Equal(t, 0, hidden[0].Order)
	assert.Equal(t, "a", hidden[0].Namespace)
	assert.Equal(t, 1, hidden[1].Order)

	visible := BySection(entries, tray.SectionVisible)
	require.Len(t, visible, 1)
	assert.Equal(t, 0, visible[0].Order)
}
