package capture

import (
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/traykeep/traykeep/internal/platform"
	"github.com/traykeep/traykeep/internal/tray"
)

// Boundaries carries the control-item positions that classify icons into
// sections: everything left of the always-hidden anchor is alwaysHidden,
// between the anchors is hidden, right of the hidden spacer is visible.
type Boundaries struct {
	HiddenAnchorX       int
	AlwaysHiddenAnchorX int
	HasAlwaysHidden     bool
}

// Classify maps a horizontal position to its section.
func (b Boundaries) Classify(x int) tray.Section {
	if b.HasAlwaysHidden && x < b.AlwaysHiddenAnchorX {
		return tray.SectionAlwaysHidden
	}
	if x < b.HiddenAnchorX {
		return tray.SectionHidden
	}
	return tray.SectionVisible
}

// Icon is one sliced sub-image with its source frame and classification.
// Handle is nil when the owner metadata lookup failed; such icons stay in
// the result so capture counts remain truthful, but they can never become
// layout entries.
type Icon struct {
	Image   image.Image
	Frame   tray.Rect
	Handle  *tray.Handle
	Section tray.Section
}

// Result is one frame-synchronized capture of the tray strip.
type Result struct {
	Composite image.Image
	Icons     []Icon
	Region    tray.Rect
	Timestamp time.Time
}

// Pipeline captures the tray strip as one composite image and slices it
// into per-icon sub-images. A single boolean guard rejects overlapping
// captures: the underlying grab suspends, and it is not re-entrant.
type Pipeline struct {
	registry platform.Registry
	capturer platform.Capturer
	perms    platform.Permissions
	logger   *slog.Logger

	busy atomic.Bool
}

// NewPipeline wires a capture pipeline to its collaborators.
func NewPipeline(registry platform.Registry, capturer platform.Capturer, perms platform.Permissions, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		registry: registry,
		capturer: capturer,
		perms:    perms,
		logger:   logger,
	}
}

// CaptureIcons takes one composite snapshot of the bounding rectangle of
// all strip windows and slices it per icon. Returns ErrPermissionDenied
// without touching the screen when capture permission is missing, and
// ErrCaptureBusy when another capture is in flight.
func (p *Pipeline) CaptureIcons(bounds Boundaries) (*Result, error) {
	if !p.perms.HasScreenCapture() {
		return nil, tray.ErrPermissionDenied
	}

	if !p.busy.CompareAndSwap(false, true) {
		return nil, tray.ErrCaptureBusy
	}
	defer p.busy.Store(false)

	handles, err := p.registry.List()
	if err != nil {
		return nil, &tray.CaptureError{Reason: "registry scan failed", Err: err}
	}

	icons := make([]tray.Handle, 0, len(handles))
	var region tray.Rect
	for _, h := range handles {
		if h.Class == tray.ControlNamespace {
			continue
		}
		icons = append(icons, h)
		region = region.Union(h.Frame)
	}

	result := &Result{
		Region:    region,
		Timestamp: time.Now(),
	}
	if len(icons) == 0 {
		return result, nil
	}

	// One composite grab keeps all icons frame-synchronized; capturing
	// icon by icon would tear whenever an icon repaints mid-sequence.
	composite, err := p.capturer.CaptureRegion(region)
	if err != nil {
		return nil, &tray.CaptureError{Reason: "composite grab failed", Err: err}
	}
	result.Composite = composite

	for _, h := range icons {
		sub := imaging.Crop(composite, image.Rect(
			h.Frame.X-region.X,
			h.Frame.Y-region.Y,
			h.Frame.MaxX()-region.X,
			h.Frame.Y+h.Frame.Height-region.Y,
		))

		icon := Icon{
			Image:   sub,
			Frame:   h.Frame,
			Section: bounds.Classify(h.Frame.CenterX()),
		}
		if h.HasMetadata() {
			handle := h
			icon.Handle = &handle
		} else if p.logger != nil {
			p.logger.Debug("icon metadata lookup failed", "ref", h.Ref, "x", h.Frame.X)
		}
		result.Icons = append(result.Icons, icon)
	}

	return result, nil
}
