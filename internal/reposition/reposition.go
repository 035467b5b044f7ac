package reposition

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/traykeep/traykeep/internal/platform"
	"github.com/traykeep/traykeep/internal/tray"
)

// Side selects which side of the anchor the icon is dropped on.
type Side int

const (
	LeftOf Side = iota
	RightOf
)

func (s Side) String() string {
	if s == LeftOf {
		return "leftOf"
	}
	return "rightOf"
}

const (
	// Horizontal offset into the gap beside the anchor.
	dropOffset = 8

	// DefaultGestureDelay paces the synthetic pointer sequence. The
	// window server's drag recognition ignores sequences that arrive
	// faster than a human could produce them.
	DefaultGestureDelay = 40 * time.Millisecond
)

// Repositioner physically relocates a live icon by synthesizing a
// press/move/release drag beside an anchor item. There are no implicit
// retries at this layer: callers own retry policy.
type Repositioner struct {
	registry platform.Registry
	pointer  platform.Pointer
	perms    platform.Permissions
	logger   *slog.Logger
	delay    time.Duration
}

// NewRepositioner wires a repositioner to its collaborators.
func NewRepositioner(registry platform.Registry, pointer platform.Pointer, perms platform.Permissions, logger *slog.Logger) *Repositioner {
	return &Repositioner{
		registry: registry,
		pointer:  pointer,
		perms:    perms,
		logger:   logger,
		delay:    DefaultGestureDelay,
	}
}

// SetGestureDelay overrides the inter-event pacing.
func (r *Repositioner) SetGestureDelay(d time.Duration) {
	if d > 0 {
		r.delay = d
	}
}

// Move drags the icon identified by ref to sit on the requested side of
// anchor. Both references are re-resolved against one fresh registry
// query before any pointer event is emitted: handles go stale between
// the caller's decision and this call, and a drag launched from a stale
// frame would grab the wrong icon.
func (r *Repositioner) Move(ref tray.HandleRef, side Side, anchor tray.HandleRef) error {
	if !r.perms.HasInputControl() {
		return tray.ErrPermissionDenied
	}

	live, err := r.registry.List()
	if err != nil {
		return tray.ErrItemNotFound
	}

	source, ok := findHandle(live, ref)
	if !ok {
		return tray.ErrItemNotFound
	}
	anchorHandle, ok := findHandle(live, anchor)
	if !ok {
		return tray.ErrAnchorNotFound
	}

	destX := anchorHandle.Frame.X - dropOffset
	if side == RightOf {
		destX = anchorHandle.Frame.MaxX() + dropOffset
	}
	destY := anchorHandle.Frame.CenterY()

	sequence := []platform.PointerEvent{
		{Kind: platform.PointerMove, X: source.Frame.CenterX(), Y: source.Frame.CenterY(), Pause: r.delay},
		{Kind: platform.PointerPress, Pause: r.delay},
		{Kind: platform.PointerMove, X: destX, Y: destY, Pause: r.delay},
		{Kind: platform.PointerRelease},
	}
	if err := r.pointer.Emit(sequence); err != nil {
		return fmt.Errorf("pointer emission failed: %w", err)
	}

	return r.verify(ref, side, anchor)
}

// verify re-queries the registry and checks the icon landed on the
// requested side of the anchor. The window server is free to silently
// ignore a drag, so success is never assumed.
func (r *Repositioner) verify(ref tray.HandleRef, side Side, anchor tray.HandleRef) error {
	live, err := r.registry.List()
	if err != nil {
		return tray.ErrDragRejected
	}

	source, ok := findHandle(live, ref)
	if !ok {
		return tray.ErrDragRejected
	}
	anchorHandle, ok := findHandle(live, anchor)
	if !ok {
		return tray.ErrDragRejected
	}

	onCorrectSide := source.Frame.CenterX() < anchorHandle.Frame.CenterX()
	if side == RightOf {
		onCorrectSide = source.Frame.CenterX() > anchorHandle.Frame.CenterX()
	}
	if !onCorrectSide {
		if r.logger != nil {
			r.logger.Debug("drag verification failed",
				"ref", ref, "side", side.String(),
				"source_x", source.Frame.CenterX(), "anchor_x", anchorHandle.Frame.CenterX())
		}
		return tray.ErrDragRejected
	}
	return nil
}

func findHandle(live []tray.Handle, ref tray.HandleRef) (tray.Handle, bool) {
	for _, h := range live {
		if h.Ref == ref {
			return h, true
		}
	}
	return tray.Handle{}, false
}
