package daemon

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/traykeep/traykeep/internal/capture"
	"github.com/traykeep/traykeep/internal/layout"
	"github.com/traykeep/traykeep/internal/match"
	"github.com/traykeep/traykeep/internal/reconcile"
	"github.com/traykeep/traykeep/internal/reposition"
	"github.com/traykeep/traykeep/internal/restore"
	"github.com/traykeep/traykeep/internal/section"
	"github.com/traykeep/traykeep/internal/tray"
)

// Controls exposes the control-item geometry and registry references the
// controller needs for classification boundaries and move anchors.
// Implemented by x11.ControlItems.
type Controls interface {
	SpacerFrame() (tray.Rect, bool)
	AlwaysHiddenFrame() (tray.Rect, bool)
	SpacerRef() tray.HandleRef
	ToggleRef() tray.HandleRef
	AlwaysHiddenRef() tray.HandleRef
}

// IconCapturer takes a frame-synchronized snapshot of the strip.
type IconCapturer interface {
	CaptureIcons(bounds capture.Boundaries) (*capture.Result, error)
}

// Finder resolves persisted entries to live handles.
type Finder interface {
	Find(entry layout.Entry, cache map[tray.IconIdentity]tray.HandleRef, live []tray.Handle) match.Match
	FindIdentity(id tray.IconIdentity, cache map[tray.IconIdentity]tray.HandleRef, live []tray.Handle) match.Match
}

// Mover relocates a live icon beside an anchor.
type Mover interface {
	Move(ref tray.HandleRef, side reposition.Side, anchor tray.HandleRef) error
}

// PositionRestorer replays persisted per-section orderings.
type PositionRestorer interface {
	Restore(positions map[tray.Section][]tray.IconIdentity, anchors restore.Anchors) restore.Outcome
}

// Status is a point-in-time summary of the daemon, served over IPC.
type Status struct {
	State         string         `json:"state"`
	ItemCounts    map[string]int `json:"item_counts"`
	SpacerCount   int            `json:"spacer_count"`
	LastRefresh   time.Time      `json:"last_refresh"`
	Overrides     int            `json:"overrides"`
	NewItems      int            `json:"new_items"`
	UptimeSeconds int64          `json:"uptime_seconds"`
}

// Controller serializes every registry- and pointer-touching operation
// behind one mutex. Captures, reconciles, moves and restores all mutate
// or depend on the same physical strip; interleaving any two of them
// produces drags from stale frames and torn captures, so there is no
// finer-grained locking on purpose.
type Controller struct {
	mu sync.Mutex

	machine  *section.Machine
	pipeline IconCapturer
	matcher  Finder
	mover    Mover
	restorer PositionRestorer
	store    *layout.Store
	controls Controls
	logger   *slog.Logger

	doc         *layout.Document
	cache       map[tray.IconIdentity]tray.HandleRef
	lastRefresh time.Time
	overrides   int
	newItems    int
	startTime   time.Time

	onChange []func(*layout.Document)
}

// NewController wires the controller to its collaborators and loads the
// persisted layout.
func NewController(
	machine *section.Machine,
	pipeline IconCapturer,
	matcher Finder,
	mover Mover,
	restorer PositionRestorer,
	store *layout.Store,
	controls Controls,
	logger *slog.Logger,
) (*Controller, error) {
	doc, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted layout: %w", err)
	}

	c := &Controller{
		machine:   machine,
		pipeline:  pipeline,
		matcher:   matcher,
		mover:     mover,
		restorer:  restorer,
		store:     store,
		controls:  controls,
		logger:    logger,
		doc:       doc,
		cache:     map[tray.IconIdentity]tray.HandleRef{},
		startTime: time.Now(),
	}

	// Machine transitions resize the spacer, which is a registry mutation
	// like any other; sharing the mutex keeps them out of in-flight
	// captures and drags. This also covers the auto-collapse timer, which
	// fires on its own goroutine.
	machine.SetTransitionLock(&c.mu)

	return c, nil
}

// OnLayoutChanged registers a callback invoked with the new document
// after every persisted change. Callbacks run outside the controller
// lock.
func (c *Controller) OnLayoutChanged(fn func(*layout.Document)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Toggle flips the hidden section. Debouncing happens inside the
// machine, and the resulting transition runs under the controller mutex
// via the shared transition lock, so this is safe to call from hotkey
// and IPC paths alike.
func (c *Controller) Toggle() {
	c.machine.Toggle()
}

// Refresh captures the strip, reconciles it against the persisted
// layout, and persists the merged result.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	doc, err := c.refreshLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify(doc)
	return nil
}

// refreshLocked runs one capture-reconcile-persist pass. Caller holds
// the lock. Returns the saved document for change notification.
func (c *Controller) refreshLocked() (*layout.Document, error) {
	bounds, err := c.boundaries()
	if err != nil {
		return nil, err
	}

	cap, err := c.pipeline.CaptureIcons(bounds)
	if err != nil {
		return nil, err
	}

	res := reconcile.Reconcile(cap, c.doc.MenuBarLayout)
	c.doc.MenuBarLayout = res.Items
	c.doc.RebuildPositions()
	c.cache = res.Handles
	c.lastRefresh = cap.Timestamp
	c.overrides = res.Overrides
	c.newItems = res.New

	if err := c.store.Save(c.doc); err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.Info("layout refreshed",
			"items", len(res.Items), "overrides", res.Overrides, "new", res.New)
	}
	return c.doc, nil
}

// boundaries reads the control-item frames that split the strip into
// sections.
func (c *Controller) boundaries() (capture.Boundaries, error) {
	spacer, ok := c.controls.SpacerFrame()
	if !ok {
		return capture.Boundaries{}, fmt.Errorf("spacer item unavailable; separator setup incomplete")
	}
	bounds := capture.Boundaries{HiddenAnchorX: spacer.X}
	if ah, ok := c.controls.AlwaysHiddenFrame(); ok {
		bounds.AlwaysHiddenAnchorX = ah.X
		bounds.HasAlwaysHidden = true
	}
	return bounds, nil
}

// MoveItem physically drags the icon with the given identity into the
// target section at insertIndex, then refreshes so the persisted layout
// reflects where the icon actually landed rather than where it was asked
// to land.
func (c *Controller) MoveItem(id tray.IconIdentity, target tray.Section, insertIndex int) error {
	if tray.IsImmovable(id) {
		return tray.ErrImmovableItem
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.matcher.FindIdentity(id, c.cache, nil)
	if m.Handle == nil {
		return tray.ErrItemNotFound
	}

	side, anchorRef, err := c.anchorFor(target, insertIndex, id)
	if err != nil {
		return err
	}

	if err := c.mover.Move(m.Handle.Ref, side, anchorRef); err != nil {
		return err
	}

	doc, err := c.refreshLocked()
	if err != nil {
		// The physical move succeeded; a failed refresh just means the
		// persisted layout lags until the next pass.
		if c.logger != nil {
			c.logger.Warn("post-move refresh failed", "error", err)
		}
		return nil
	}
	go c.notify(doc)
	return nil
}

// anchorFor picks the drop anchor for an insertion: the entry preceding
// insertIndex in the target section when one resolves, otherwise the
// section's control item.
func (c *Controller) anchorFor(target tray.Section, insertIndex int, moving tray.IconIdentity) (reposition.Side, tray.HandleRef, error) {
	entries := layout.BySection(c.doc.MenuBarLayout, target)

	// Walk backwards from the insertion point to the nearest resolvable
	// predecessor; spacers and the moving icon itself are not anchors. An
	// index past the end means append, so the walk starts at the last
	// occupant.
	for i := min(insertIndex-1, len(entries)-1); i >= 0; i-- {
		e := entries[i]
		if e.IsSpacer() || e.Identity() == moving {
			continue
		}
		m := c.matcher.Find(e, c.cache, nil)
		if m.Handle != nil {
			return reposition.RightOf, m.Handle.Ref, nil
		}
	}

	anchors := c.sectionAnchors()
	anchor, ok := anchors[target]
	if !ok {
		return 0, 0, tray.ErrAnchorNotFound
	}
	return anchor.Side, anchor.Ref, nil
}

// sectionAnchors maps each section to its control-item anchor: icons
// land left of the always-hidden or hidden spacer, and right of the
// toggle for the visible section.
func (c *Controller) sectionAnchors() restore.Anchors {
	anchors := restore.Anchors{
		tray.SectionHidden:  {Ref: c.controls.SpacerRef(), Side: reposition.LeftOf},
		tray.SectionVisible: {Ref: c.controls.ToggleRef(), Side: reposition.RightOf},
	}
	if ref := c.controls.AlwaysHiddenRef(); ref != 0 {
		anchors[tray.SectionAlwaysHidden] = restore.Anchor{Ref: ref, Side: reposition.LeftOf}
	}
	return anchors
}

// RestoreSavedPositions replays the persisted orderings through
// simulated drags and refreshes afterwards. Best-effort: the outcome
// reports per-item results and the call itself only fails when the
// control items are missing.
func (c *Controller) RestoreSavedPositions() restore.Outcome {
	c.mu.Lock()
	positions := c.doc.IconPositions
	anchors := c.sectionAnchors()
	out := c.restorer.Restore(positions, anchors)

	doc, err := c.refreshLocked()
	c.mu.Unlock()
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("post-restore refresh failed", "error", err)
		}
		return out
	}
	c.notify(doc)
	return out
}

// Status reports the current daemon state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[string]int, 3)
	spacers := 0
	for _, e := range c.doc.MenuBarLayout {
		if e.IsSpacer() {
			spacers++
			continue
		}
		counts[string(e.Section)]++
	}

	return Status{
		State:         c.machine.State().String(),
		ItemCounts:    counts,
		SpacerCount:   spacers,
		LastRefresh:   c.lastRefresh,
		Overrides:     c.overrides,
		NewItems:      c.newItems,
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
	}
}

// Layout returns a copy of the current document.
func (c *Controller) Layout() layout.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc := layout.Document{
		MenuBarLayout: append([]layout.Entry(nil), c.doc.MenuBarLayout...),
	}
	if c.doc.IconPositions != nil {
		doc.IconPositions = make(map[tray.Section][]tray.IconIdentity, len(c.doc.IconPositions))
		for s, ids := range c.doc.IconPositions {
			doc.IconPositions[s] = append([]tray.IconIdentity(nil), ids...)
		}
	}
	return doc
}

func (c *Controller) notify(doc *layout.Document) {
	c.mu.Lock()
	listeners := slices.Clone(c.onChange)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(doc)
	}
}
