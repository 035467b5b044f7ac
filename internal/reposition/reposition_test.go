package reposition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traykeep/traykeep/internal/platform"
	"github.com/traykeep/traykeep/internal/tray"
)

// fakeRegistry serves successive snapshots: one per List call, repeating
// the last when exhausted.
type fakeRegistry struct {
	snapshots [][]tray.Handle
	scans     int
}

func (f *fakeRegistry) List() ([]tray.Handle, error) {
	idx := f.scans
	if idx >= len(f.snapshots) {
		idx = len(f.snapshots) - 1
	}
	f.scans++
	if idx < 0 {
		return nil, nil
	}
	return f.snapshots[idx], nil
}

func (f *fakeRegistry) Frame(ref tray.HandleRef) (tray.Rect, bool) {
	return tray.Rect{}, false
}

type fakePointer struct {
	sequences [][]platform.PointerEvent
	err       error
}

func (f *fakePointer) Emit(events []platform.PointerEvent) error {
	f.sequences = append(f.sequences, events)
	return f.err
}

func (f *fakePointer) eventCount() int {
	n := 0
	for _, seq := range f.sequences {
		n += len(seq)
	}
	return n
}

type fakePerms struct{ input bool }

func (f fakePerms) HasInputControl() bool  { return f.input }
func (f fakePerms) HasScreenCapture() bool { return true }

func at(ref tray.HandleRef, x int) tray.Handle {
	return tray.Handle{Ref: ref, Frame: tray.Rect{X: x, Y: 0, Width: 24, Height: 24}}
}

func newTestRepositioner(reg *fakeRegistry, ptr *fakePointer, perms fakePerms) *Repositioner {
	r := NewRepositioner(reg, ptr, perms, nil)
	r.SetGestureDelay(time.Microsecond)
	return r
}

func TestMove_AnchorGone_NoEventsEmitted(t *testing.T) {
	registry := &fakeRegistry{snapshots: [][]tray.Handle{
		{at(10, 100)}, // anchor 20 missing from the fresh query
	}}
	pointer := &fakePointer{}
	r := newTestRepositioner(registry, pointer, fakePerms{input: true})

	err := r.Move(10, RightOf, 20)

	assert.ErrorIs(t, err, tray.ErrAnchorNotFound)
	assert.Zero(t, pointer.eventCount(), "no pointer events may be emitted when preconditions fail")
}

func TestMove_SourceGone_NoEventsEmitted(t *testing.T) {
	registry := &fakeRegistry{snapshots: [][]tray.Handle{
		{at(20, 300)},
	}}
	pointer := &fakePointer{}
	r := newTestRepositioner(registry, pointer, fakePerms{input: true})

	err := r.Move(10, RightOf, 20)

	assert.ErrorIs(t, err, tray.ErrItemNotFound)
	assert.Zero(t, pointer.eventCount())
}

func TestMove_PermissionDenied_NoRegistryQuery(t *testing.T) {
	registry := &fakeRegistry{}
	pointer := &fakePointer{}
	r := newTestRepositioner(registry, pointer, fakePerms{input: false})

	err := r.Move(10, RightOf, 20)

	assert.ErrorIs(t, err, tray.ErrPermissionDenied)
	assert.Zero(t, registry.scans)
	assert.Zero(t, pointer.eventCount())
}

func TestMove_SuccessfulDragVerified(t *testing.T) {
	registry := &fakeRegistry{snapshots: [][]tray.Handle{
		{at(10, 100), at(20, 300)}, // pre-move
		{at(10, 340), at(20, 300)}, // post-move: 10 landed right of 20
	}}
	pointer := &fakePointer{}
	r := newTestRepositioner(registry, pointer, fakePerms{input: true})

	err := r.Move(10, RightOf, 20)
	require.NoError(t, err)

	require.Len(t, pointer.sequences, 1)
	seq := pointer.sequences[0]
	require.Len(t, seq, 4)
	assert.Equal(t, platform.PointerMove, seq[0].Kind)
	assert.Equal(t, 112, seq[0].X, "first move targets the source center")
	assert.Equal(t, platform.PointerPress, seq[1].Kind)
	assert.Equal(t, platform.PointerMove, seq[2].Kind)
	assert.Equal(t, 300+24+8, seq[2].X, "drop point sits in the gap right of the anchor")
	assert.Equal(t, platform.PointerRelease, seq[3].Kind)
}

func TestMove_LeftOfDropPoint(t *testing.T) {
	registry := &fakeRegistry{snapshots: [][]tray.Handle{
		{at(10, 400), at(20, 300)},
		{at(10, 260), at(20, 300)},
	}}
	pointer := &fakePointer{}
	r := newTestRepositioner(registry, pointer, fakePerms{input: true})

	require.NoError(t, r.Move(10, LeftOf, 20))

	seq := pointer.sequences[0]
	assert.Equal(t, 300-8, seq[2].X)
}

func TestMove_DragSilentlyIgnored(t *testing.T) {
	// The post-move query shows the icon unmoved: report DragRejected
	// instead of assuming success.
	registry := &fakeRegistry{snapshots: [][]tray.Handle{
		{at(10, 100), at(20, 300)},
		{at(10, 100), at(20, 300)},
	}}
	pointer := &fakePointer{}
	r := newTestRepositioner(registry, pointer, fakePerms{input: true})

	err := r.Move(10, RightOf, 20)
	assert.ErrorIs(t, err, tray.ErrDragRejected)
}

func TestMove_SourceVanishedAfterDrag(t *testing.T) {
	registry := &fakeRegistry{snapshots: [][]tray.Handle{
		{at(10, 100), at(20, 300)},
		{at(20, 300)},
	}}
	pointer := &fakePointer{}
	r := newTestRepositioner(registry, pointer, fakePerms{input: true})

	err := r.Move(10, RightOf, 20)
	assert.ErrorIs(t, err, tray.ErrDragRejected)
}
