package reconcile

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traykeep/traykeep/internal/capture"
	"github.com/traykeep/traykeep/internal/layout"
	"github.com/traykeep/traykeep/internal/tray"
)

func capturedIcon(ref tray.HandleRef, x int, class, title string, section tray.Section) capture.Icon {
	h := tray.Handle{
		Ref:       ref,
		Frame:     tray.Rect{X: x, Y: 0, Width: 24, Height: 24},
		Class:     class,
		OwnerName: "owner-" + class,
		Title:     title,
	}
	return capture.Icon{
		Image:   image.NewRGBA(image.Rect(0, 0, 24, 24)),
		Frame:   h.Frame,
		Handle:  &h,
		Section: section,
	}
}

func sectionIdentities(items []layout.Entry, section tray.Section) []tray.IconIdentity {
	var out []tray.IconIdentity
	for _, e := range layout.BySection(items, section) {
		out = append(out, e.Identity())
	}
	return out
}

func TestReconcile_FreshCaptureNoPersisted(t *testing.T) {
	cap := &capture.Result{Icons: []capture.Icon{
		capturedIcon(1, 100, "com.example.a", "A", tray.SectionHidden),
		capturedIcon(2, 140, "com.example.b", "B", tray.SectionHidden),
		capturedIcon(3, 500, "com.example.c", "C", tray.SectionVisible),
	}}

	res := Reconcile(cap, nil)

	hidden := layout.BySection(res.Items, tray.SectionHidden)
	require.Len(t, hidden, 2)
	assert.Equal(t, "com.example.a", hidden[0].Namespace)
	assert.Equal(t, 0, hidden[0].Order)
	assert.Equal(t, "com.example.b", hidden[1].Namespace)
	assert.Equal(t, 1, hidden[1].Order)

	visible := layout.BySection(res.Items, tray.SectionVisible)
	require.Len(t, visible, 1)
	assert.Equal(t, "com.example.c", visible[0].Namespace)
	assert.Equal(t, 0, visible[0].Order)

	assert.Equal(t, 3, res.New)
	assert.Zero(t, res.Overrides)
}

func TestReconcile_PersistedSectionOverride(t *testing.T) {
	cap := &capture.Result{Icons: []capture.Icon{
		capturedIcon(1, 100, "com.example.a", "A", tray.SectionHidden),
		capturedIcon(2, 140, "com.example.b", "B", tray.SectionHidden),
		capturedIcon(3, 500, "com.example.c", "C", tray.SectionVisible),
	}}
	persisted := []layout.Entry{
		layout.NewItem(tray.IconIdentity{Namespace: "com.example.b", Title: "B"}, tray.SectionVisible, 0),
	}

	res := Reconcile(cap, persisted)

	assert.Equal(t, 1, res.Overrides)
	assert.Equal(t, 2, res.New)

	// B keeps its user-assigned section, not the captured one.
	assert.Equal(t, []tray.IconIdentity{{Namespace: "com.example.b", Title: "B"}, {Namespace: "com.example.c", Title: "C"}},
		sectionIdentities(res.Items, tray.SectionVisible))
	assert.Equal(t, []tray.IconIdentity{{Namespace: "com.example.a", Title: "A"}},
		sectionIdentities(res.Items, tray.SectionHidden))
}

func TestReconcile_OrderStability(t *testing.T) {
	// Captured X order wins regardless of persisted order values.
	cap := &capture.Result{Icons: []capture.Icon{
		capturedIcon(3, 300, "c", "C", tray.SectionHidden),
		capturedIcon(1, 100, "a", "A", tray.SectionHidden),
		capturedIcon(2, 200, "b", "B", tray.SectionHidden),
	}}
	persisted := []layout.Entry{
		layout.NewItem(tray.IconIdentity{Namespace: "c", Title: "C"}, tray.SectionHidden, 0),
		layout.NewItem(tray.IconIdentity{Namespace: "a", Title: "A"}, tray.SectionHidden, 7),
	}

	res := Reconcile(cap, persisted)

	assert.Equal(t, []tray.IconIdentity{
		{Namespace: "a", Title: "A"},
		{Namespace: "b", Title: "B"},
		{Namespace: "c", Title: "C"},
	}, sectionIdentities(res.Items, tray.SectionHidden))
}

func TestReconcile_Idempotent(t *testing.T) {
	cap := &capture.Result{Icons: []capture.Icon{
		capturedIcon(1, 100, "a", "A", tray.SectionHidden),
		capturedIcon(2, 200, "b", "B", tray.SectionVisible),
	}}

	first := Reconcile(cap, nil)
	second := Reconcile(cap, first.Items)

	assert.Equal(t, first.Items, second.Items)
	assert.Zero(t, second.Overrides)
	assert.Zero(t, second.New)
}

func TestReconcile_EqualXTieBreaksByHandleRef(t *testing.T) {
	cap := &capture.Result{Icons: []capture.Icon{
		capturedIcon(9, 100, "high", "H", tray.SectionHidden),
		capturedIcon(4, 100, "low", "L", tray.SectionHidden),
	}}

	res := Reconcile(cap, nil)

	assert.Equal(t, []tray.IconIdentity{
		{Namespace: "low", Title: "L"},
		{Namespace: "high", Title: "H"},
	}, sectionIdentities(res.Items, tray.SectionHidden))
}

func TestReconcile_SpacersCopiedForward(t *testing.T) {
	cap := &capture.Result{Icons: []capture.Icon{
		capturedIcon(1, 100, "a", "A", tray.SectionVisible),
		capturedIcon(2, 200, "b", "B", tray.SectionVisible),
	}}
	spacer := layout.NewSpacer(tray.SectionVisible, 1)
	persisted := []layout.Entry{
		layout.NewItem(tray.IconIdentity{Namespace: "a", Title: "A"}, tray.SectionVisible, 0),
		spacer,
		layout.NewItem(tray.IconIdentity{Namespace: "b", Title: "B"}, tray.SectionVisible, 2),
	}

	res := Reconcile(cap, persisted)

	visible := layout.BySection(res.Items, tray.SectionVisible)
	require.Len(t, visible, 3)
	assert.Equal(t, "a", visible[0].Namespace)
	assert.True(t, visible[1].IsSpacer())
	assert.Equal(t, spacer.ID, visible[1].ID)
	assert.Equal(t, "b", visible[2].Namespace)

	// Dense order after normalization.
	for i, e := range visible {
		assert.Equal(t, i, e.Order)
	}
}

func TestReconcile_OwnerNameFallbackMatch(t *testing.T) {
	// Persisted under the owner name (class was unavailable back then);
	// the live icon now reports a proper class.
	cap := &capture.Result{Icons: []capture.Icon{
		capturedIcon(1, 100, "com.example.a", "A", tray.SectionVisible),
	}}
	persisted := []layout.Entry{
		layout.NewItem(tray.IconIdentity{Namespace: "owner-com.example.a", Title: "A"}, tray.SectionHidden, 0),
	}

	res := Reconcile(cap, persisted)

	assert.Equal(t, 1, res.Overrides)
	assert.Zero(t, res.New)
	hidden := layout.BySection(res.Items, tray.SectionHidden)
	require.Len(t, hidden, 1)
	// The entry is re-persisted under the live (better) identity.
	assert.Equal(t, "com.example.a", hidden[0].Namespace)
}

func TestReconcile_MetadataLessIconsProduceNoEntries(t *testing.T) {
	noMeta := capture.Icon{
		Frame:   tray.Rect{X: 50, Y: 0, Width: 24, Height: 24},
		Section: tray.SectionHidden,
	}
	cap := &capture.Result{Icons: []capture.Icon{
		noMeta,
		capturedIcon(1, 100, "a", "A", tray.SectionHidden),
	}}

	res := Reconcile(cap, nil)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "a", res.Items[0].Namespace)
}

func TestReconcile_CachesPopulated(t *testing.T) {
	cap := &capture.Result{Icons: []capture.Icon{
		capturedIcon(42, 100, "a", "A", tray.SectionHidden),
	}}

	res := Reconcile(cap, nil)

	id := tray.IconIdentity{Namespace: "a", Title: "A"}
	assert.Equal(t, tray.HandleRef(42), res.Handles[id])
	assert.NotNil(t, res.Images[id])
}
