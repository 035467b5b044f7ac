package restore

import (
	"log/slog"
	"time"

	"github.com/traykeep/traykeep/internal/match"
	"github.com/traykeep/traykeep/internal/reposition"
	"github.com/traykeep/traykeep/internal/tray"
)

// DefaultSettleDelay is how long the strip is given to reflow after each
// move before the next identity is resolved against it.
const DefaultSettleDelay = 100 * time.Millisecond

// Finder resolves a persisted identity to a live handle.
type Finder interface {
	FindIdentity(id tray.IconIdentity, cache map[tray.IconIdentity]tray.HandleRef, live []tray.Handle) match.Match
}

// Mover relocates a live icon beside an anchor.
type Mover interface {
	Move(ref tray.HandleRef, side reposition.Side, anchor tray.HandleRef) error
}

// Frames resolves a registry reference to its current frame. Implemented
// by the platform backend; anchors are control items rather than
// identities, so the finder alone cannot locate them.
type Frames interface {
	Frame(ref tray.HandleRef) (tray.Rect, bool)
}

// Anchor names where the first icon of a section is placed.
type Anchor struct {
	Ref  tray.HandleRef
	Side reposition.Side
}

// Anchors maps each section to its first-item anchor, normally the
// control items: icons land left of the always-hidden or hidden spacer,
// and right of the hidden spacer for the visible section.
type Anchors map[tray.Section]Anchor

// Outcome summarizes a restoration pass. Restoration is best-effort by
// contract: individual failures are counted, never propagated.
type Outcome struct {
	Attempted int
	Moved     int
	Skipped   int
	Failed    int
	Missing   []tray.IconIdentity
}

// Restorer walks the persisted per-section orderings and physically
// re-creates them through simulated drags.
type Restorer struct {
	finder Finder
	mover  Mover
	frames Frames
	logger *slog.Logger
	settle time.Duration
}

// NewRestorer wires a restorer to its collaborators. frames may be nil,
// in which case the already-in-place check is skipped and every
// resolvable icon is dragged.
func NewRestorer(finder Finder, mover Mover, frames Frames, logger *slog.Logger) *Restorer {
	return &Restorer{
		finder: finder,
		mover:  mover,
		frames: frames,
		logger: logger,
		settle: DefaultSettleDelay,
	}
}

// SetSettleDelay overrides the post-move settle pause.
func (r *Restorer) SetSettleDelay(d time.Duration) {
	if d >= 0 {
		r.settle = d
	}
}

// Restore places every resolvable persisted identity back at its saved
// position. Sections are processed in spatial order so earlier
// placements are not disturbed by later ones. Within a section the first
// icon is dropped beside the section anchor and each subsequent icon
// lands right of its already-placed predecessor, re-resolved after the
// strip has settled.
//
// Immovable system items are skipped outright. Unmatched identities are
// recorded and skipped. An icon whose re-queried frame already sits on
// the required side of its anchor is skipped without a drag, but still
// anchors the next icon in the chain. A failed move is counted and the
// walk continues; Restore never returns an error.
func (r *Restorer) Restore(positions map[tray.Section][]tray.IconIdentity, anchors Anchors) Outcome {
	var out Outcome

	for _, section := range tray.Sections() {
		ids := positions[section]
		if len(ids) == 0 {
			continue
		}

		anchor, haveAnchor := anchors[section]
		if !haveAnchor {
			if r.logger != nil {
				r.logger.Warn("no anchor for section, skipping", "section", section)
			}
			out.Skipped += len(ids)
			continue
		}

		// Zero until the first icon of this section lands; after that,
		// each icon chains right of its predecessor.
		var prevRef tray.HandleRef

		for _, id := range ids {
			if tray.IsImmovable(id) {
				out.Skipped++
				continue
			}

			m := r.finder.FindIdentity(id, nil, nil)
			if m.Handle == nil {
				out.Missing = append(out.Missing, id)
				out.Skipped++
				if r.logger != nil {
					r.logger.Debug("persisted icon not running, skipping",
						"namespace", id.Namespace, "title", id.Title)
				}
				continue
			}

			side, anchorRef := reposition.RightOf, prevRef
			if prevRef == 0 {
				side, anchorRef = anchor.Side, anchor.Ref
			}

			if r.inPlace(m.Handle.Frame, side, anchorRef) {
				out.Skipped++
				prevRef = m.Handle.Ref
				if r.logger != nil {
					r.logger.Debug("icon already in place, skipping",
						"namespace", id.Namespace, "title", id.Title)
				}
				continue
			}

			out.Attempted++
			if err := r.mover.Move(m.Handle.Ref, side, anchorRef); err != nil {
				out.Failed++
				if r.logger != nil {
					r.logger.Warn("failed to restore icon position",
						"namespace", id.Namespace, "title", id.Title,
						"method", m.Method, "error", err)
				}
				time.Sleep(r.settle)
				continue
			}

			out.Moved++
			prevRef = m.Handle.Ref
			time.Sleep(r.settle)
		}
	}

	if r.logger != nil {
		r.logger.Info("position restoration finished",
			"attempted", out.Attempted, "moved", out.Moved,
			"skipped", out.Skipped, "failed", out.Failed,
			"missing", len(out.Missing))
	}
	return out
}

// inPlace reports whether the icon already sits on the required side of
// its anchor. Dragging an icon that is already where it belongs only
// risks a mis-drop. A zero-width icon frame means the geometry lookup
// failed; such icons are always dragged.
func (r *Restorer) inPlace(icon tray.Rect, side reposition.Side, anchor tray.HandleRef) bool {
	if r.frames == nil || icon.Width == 0 {
		return false
	}
	af, ok := r.frames.Frame(anchor)
	if !ok {
		return false
	}
	switch side {
	case reposition.LeftOf:
		return icon.MaxX() <= af.X
	case reposition.RightOf:
		return icon.X >= af.MaxX()
	}
	return false
}
