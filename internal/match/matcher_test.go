package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traykeep/traykeep/internal/layout"
	"github.com/traykeep/traykeep/internal/tray"
)

type fakeRegistry struct {
	handles []tray.Handle
	scans   int
}

func (f *fakeRegistry) List() ([]tray.Handle, error) {
	f.scans++
	return f.handles, nil
}

func (f *fakeRegistry) Frame(ref tray.HandleRef) (tray.Rect, bool) {
	for _, h := range f.handles {
		if h.Ref == ref {
			return h.Frame, true
		}
	}
	return tray.Rect{}, false
}

func liveHandle(ref tray.HandleRef, class, owner, title string) tray.Handle {
	return tray.Handle{Ref: ref, Class: class, OwnerName: owner, Title: title}
}

func itemEntry(ns, title string) layout.Entry {
	return layout.NewItem(tray.IconIdentity{Namespace: ns, Title: title}, tray.SectionHidden, 0)
}

func TestFind_SpacerNeverScanned(t *testing.T) {
	registry := &fakeRegistry{}
	m := NewMatcher(registry, nil)

	got := m.Find(layout.NewSpacer(tray.SectionHidden, 0), nil, nil)

	assert.Equal(t, MethodSpacer, got.Method)
	assert.Nil(t, got.Handle)
	assert.Zero(t, registry.scans)
}

func TestFind_CacheHitWinsOverExact(t *testing.T) {
	registry := &fakeRegistry{handles: []tray.Handle{
		liveHandle(55, "com.example.x", "x", "X"),
		liveHandle(77, "com.example.x", "x", "X"), // exact match also exists
	}}
	m := NewMatcher(registry, nil)

	cache := map[tray.IconIdentity]tray.HandleRef{
		{Namespace: "com.example.x", Title: "X"}: 55,
	}
	got := m.Find(itemEntry("com.example.x", "X"), cache, nil)

	assert.Equal(t, MethodCacheHit, got.Method)
	require.NotNil(t, got.Handle)
	assert.Equal(t, tray.HandleRef(55), got.Handle.Ref)
}

func TestFind_StaleCacheDiscarded(t *testing.T) {
	registry := &fakeRegistry{handles: []tray.Handle{
		liveHandle(77, "com.example.x", "x", "X"),
	}}
	m := NewMatcher(registry, nil)

	cache := map[tray.IconIdentity]tray.HandleRef{
		{Namespace: "com.example.x", Title: "X"}: 55, // gone
	}
	got := m.Find(itemEntry("com.example.x", "X"), cache, nil)

	assert.Equal(t, MethodExact, got.Method)
	require.NotNil(t, got.Handle)
	assert.Equal(t, tray.HandleRef(77), got.Handle.Ref)
}

func TestFind_NamespaceOnlyWhenTitleChanged(t *testing.T) {
	// Cache points at a dead handle, the live item's title has drifted:
	// exact fails, namespace-only resolves.
	registry := &fakeRegistry{handles: []tray.Handle{
		liveHandle(56, "com.example.x", "x", "82% charged"),
	}}
	m := NewMatcher(registry, nil)

	cache := map[tray.IconIdentity]tray.HandleRef{
		{Namespace: "com.example.x", Title: "X"}: 55,
	}
	got := m.Find(itemEntry("com.example.x", "X"), cache, nil)

	assert.Equal(t, MethodNamespaceOnly, got.Method)
	require.NotNil(t, got.Handle)
	assert.Equal(t, tray.HandleRef(56), got.Handle.Ref)
}

func TestFind_OwnerNameFallback(t *testing.T) {
	registry := &fakeRegistry{handles: []tray.Handle{
		liveHandle(3, "", "nm-applet", "Network"),
	}}
	m := NewMatcher(registry, nil)

	got := m.Find(itemEntry("nm-applet", "Old Title"), nil, nil)

	assert.Equal(t, MethodOwnerName, got.Method)
	require.NotNil(t, got.Handle)
	assert.Equal(t, tray.HandleRef(3), got.Handle.Ref)
}

func TestFind_NotFound(t *testing.T) {
	registry := &fakeRegistry{handles: []tray.Handle{
		liveHandle(3, "com.other", "other", "Other"),
	}}
	m := NewMatcher(registry, nil)

	got := m.Find(itemEntry("com.example.gone", "Gone"), nil, nil)

	assert.Equal(t, MethodNotFound, got.Method)
	assert.Nil(t, got.Handle)
}

func TestFind_UsesProvidedSnapshot(t *testing.T) {
	registry := &fakeRegistry{}
	m := NewMatcher(registry, nil)

	live := []tray.Handle{liveHandle(9, "com.example.x", "x", "X")}
	got := m.Find(itemEntry("com.example.x", "X"), nil, live)

	assert.Equal(t, MethodExact, got.Method)
	assert.Zero(t, registry.scans, "provided snapshot should suppress the registry query")
}

func TestFind_EmptyNamespaceNeverMatchesEmptyClass(t *testing.T) {
	registry := &fakeRegistry{handles: []tray.Handle{
		liveHandle(3, "", "", "Mystery"),
	}}
	m := NewMatcher(registry, nil)

	got := m.Find(itemEntry("", "Mystery"), nil, nil)

	// An empty namespace must not wildcard onto metadata-less handles
	// via the namespace-only or owner-name tiers; only the exact tier
	// may pair them, and here it does (both sides empty + same title).
	assert.Equal(t, MethodExact, got.Method)
}
