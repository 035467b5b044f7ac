package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/traykeep/traykeep/internal/tray"
)

// Glyphs shown on the toggle item for each state.
const (
	glyphExpanded  = "‹" // ‹
	glyphCollapsed = "›" // ›
)

// ControlItems owns the two status items the hide mechanism is built on:
// a zero-content spacer whose width is manipulated to push icons
// off-screen, and an always-visible toggle carrying the user affordance.
// An optional second spacer anchors the always-hidden section.
type ControlItems struct {
	conn             *Connection
	withAlwaysHidden bool

	spacer       xproto.Window
	toggle       xproto.Window
	alwaysHidden xproto.Window
	itemHeight   int
}

// NewControlItems prepares a control-item set; the windows are not created
// until Create is called, since the panel may not exist yet at launch.
func NewControlItems(conn *Connection, withAlwaysHidden bool) *ControlItems {
	return &ControlItems{conn: conn, withAlwaysHidden: withAlwaysHidden}
}

// Create constructs the spacer and toggle windows inside the tray strip.
// Fails if the panel is not up yet; callers retry with a bounded budget.
func (ci *ControlItems) Create() error {
	strip, err := ci.conn.StripRect()
	if err != nil {
		return fmt.Errorf("tray strip unavailable: %w", err)
	}
	ci.itemHeight = strip.Height

	spacer, err := ci.createItem(strip, "traykeep-spacer", 20)
	if err != nil {
		return fmt.Errorf("failed to create spacer item: %w", err)
	}
	ci.spacer = spacer

	toggle, err := ci.createItem(strip, "traykeep-toggle", strip.Height)
	if err != nil {
		ci.destroy(spacer)
		ci.spacer = 0
		return fmt.Errorf("failed to create toggle item: %w", err)
	}
	ci.toggle = toggle
	ewmh.WmNameSet(ci.conn.XUtil, toggle, glyphCollapsed)

	if ci.withAlwaysHidden {
		ah, err := ci.createItem(strip, "traykeep-always-hidden", 20)
		if err != nil {
			ci.destroy(spacer)
			ci.destroy(toggle)
			ci.spacer, ci.toggle = 0, 0
			return fmt.Errorf("failed to create always-hidden item: %w", err)
		}
		ci.alwaysHidden = ah
	}

	return nil
}

func (ci *ControlItems) createItem(strip tray.Rect, instance string, width int) (xproto.Window, error) {
	win, err := xproto.NewWindowId(ci.conn.XUtil.Conn())
	if err != nil {
		return 0, err
	}

	scr := ci.conn.XUtil.Screen()
	err = xproto.CreateWindowChecked(
		ci.conn.XUtil.Conn(),
		scr.RootDepth,
		win,
		ci.conn.Root,
		int16(strip.MaxX()-width), int16(strip.Y),
		uint16(width), uint16(strip.Height),
		0,
		xproto.WindowClassInputOutput,
		scr.RootVisual,
		xproto.CwOverrideRedirect,
		[]uint32{1},
	).Check()
	if err != nil {
		return 0, err
	}

	icccm.WmClassSet(ci.conn.XUtil, win, &icccm.WmClass{
		Instance: instance,
		Class:    "traykeep",
	})
	ewmh.WmWindowTypeSet(ci.conn.XUtil, win, []string{"_NET_WM_WINDOW_TYPE_DOCK"})

	if err := xproto.MapWindowChecked(ci.conn.XUtil.Conn(), win).Check(); err != nil {
		ci.destroy(win)
		return 0, err
	}

	return win, nil
}

func (ci *ControlItems) destroy(win xproto.Window) {
	xproto.DestroyWindow(ci.conn.XUtil.Conn(), win)
}

// SetSpacerLength resizes the hidden-section spacer.
func (ci *ControlItems) SetSpacerLength(px int) error {
	if ci.spacer == 0 {
		return fmt.Errorf("spacer item not created")
	}
	return xproto.ConfigureWindowChecked(
		ci.conn.XUtil.Conn(),
		ci.spacer,
		xproto.ConfigWindowWidth,
		[]uint32{uint32(px)},
	).Check()
}

// SetToggleCollapsed flips the toggle glyph to reflect the current state.
func (ci *ControlItems) SetToggleCollapsed(collapsed bool) error {
	if ci.toggle == 0 {
		return fmt.Errorf("toggle item not created")
	}
	glyph := glyphExpanded
	if collapsed {
		glyph = glyphCollapsed
	}
	return ewmh.WmNameSet(ci.conn.XUtil, ci.toggle, glyph)
}

// SpacerFrame returns the hidden-section spacer's current frame.
func (ci *ControlItems) SpacerFrame() (tray.Rect, bool) {
	if ci.spacer == 0 {
		return tray.Rect{}, false
	}
	return ci.conn.WindowRect(ci.spacer)
}

// ToggleFrame returns the toggle item's current frame.
func (ci *ControlItems) ToggleFrame() (tray.Rect, bool) {
	if ci.toggle == 0 {
		return tray.Rect{}, false
	}
	return ci.conn.WindowRect(ci.toggle)
}

// AlwaysHiddenFrame returns the always-hidden anchor's frame, or false if
// that section is not configured.
func (ci *ControlItems) AlwaysHiddenFrame() (tray.Rect, bool) {
	if ci.alwaysHidden == 0 {
		return tray.Rect{}, false
	}
	return ci.conn.WindowRect(ci.alwaysHidden)
}

// SpacerRef returns the spacer's registry reference for use as a move
// anchor.
func (ci *ControlItems) SpacerRef() tray.HandleRef {
	return tray.HandleRef(ci.spacer)
}

// ToggleRef returns the toggle's registry reference.
func (ci *ControlItems) ToggleRef() tray.HandleRef {
	return tray.HandleRef(ci.toggle)
}

// AlwaysHiddenRef returns the always-hidden anchor's reference, or zero
// when that section is disabled.
func (ci *ControlItems) AlwaysHiddenRef() tray.HandleRef {
	return tray.HandleRef(ci.alwaysHidden)
}

// OwnWindows returns the set of windows the registry scan should exclude.
func (ci *ControlItems) OwnWindows() map[xproto.Window]bool {
	own := make(map[xproto.Window]bool, 3)
	if ci.spacer != 0 {
		own[ci.spacer] = true
	}
	if ci.toggle != 0 {
		own[ci.toggle] = true
	}
	if ci.alwaysHidden != 0 {
		own[ci.alwaysHidden] = true
	}
	return own
}

// Destroy tears down all control-item windows.
func (ci *ControlItems) Destroy() {
	for win := range ci.OwnWindows() {
		ci.destroy(win)
	}
	ci.spacer, ci.toggle, ci.alwaysHidden = 0, 0, 0
}
