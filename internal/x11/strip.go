package x11

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/traykeep/traykeep/internal/tray"
)

// StripRect locates the tray strip: the frame of the topmost dock-type
// window (the panel). Status icons live inside this rectangle.
func (c *Connection) StripRect() (tray.Rect, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return tray.Rect{}, fmt.Errorf("failed to get client list: %w", err)
	}

	found := false
	var strip tray.Rect
	for _, win := range clients {
		types, err := ewmh.WmWindowTypeGet(c.XUtil, win)
		if err != nil {
			continue
		}
		isDock := false
		for _, t := range types {
			if t == "_NET_WM_WINDOW_TYPE_DOCK" {
				isDock = true
				break
			}
		}
		if !isDock {
			continue
		}
		rect, ok := c.WindowRect(win)
		if !ok {
			continue
		}
		// Prefer the dock closest to the top of the screen.
		if !found || rect.Y < strip.Y {
			strip = rect
			found = true
		}
	}

	if !found {
		return tray.Rect{}, fmt.Errorf("no dock window found")
	}
	return strip, nil
}

// ListStripWindows enumerates mapped top-level windows whose center lies
// inside the tray strip, ordered ascending by X. The panel itself and the
// caller's own windows (matched by ownWindows) are excluded. Zero results
// are returned as an empty slice: a missing panel or an empty strip is a
// normal condition, not an error.
func (c *Connection) ListStripWindows(ownWindows map[xproto.Window]bool) ([]tray.Handle, error) {
	strip, err := c.StripRect()
	if err != nil {
		return nil, nil
	}

	treeReply, err := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query window tree: %w", err)
	}

	var handles []tray.Handle
	for _, win := range treeReply.Children {
		if ownWindows[win] {
			continue
		}

		attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
		if err != nil || attrs.MapState != xproto.MapStateViewable {
			continue
		}

		rect, ok := c.WindowRect(win)
		if !ok {
			continue
		}

		// Skip the panel itself and anything not inside the strip.
		if rect == strip {
			continue
		}
		cx, cy := rect.CenterX(), rect.CenterY()
		if cy < strip.Y || cy >= strip.Y+strip.Height {
			continue
		}
		if cx < strip.X || cx >= strip.X+strip.Width {
			// Pushed off the visible strip by the collapsed spacer;
			// still part of the registry.
			if rect.Y < strip.Y || rect.Y >= strip.Y+strip.Height {
				continue
			}
		}

		handles = append(handles, c.handleForWindow(win, rect))
	}

	sort.Slice(handles, func(i, j int) bool {
		if handles[i].Frame.X != handles[j].Frame.X {
			return handles[i].Frame.X < handles[j].Frame.X
		}
		return handles[i].Ref < handles[j].Ref
	})

	return handles, nil
}

// WindowRect returns a window's frame in root coordinates.
func (c *Connection) WindowRect(win xproto.Window) (tray.Rect, bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return tray.Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return tray.Rect{}, false
	}

	return tray.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, true
}

// handleForWindow collects the metadata needed to derive a durable
// identity. Any individual lookup may fail; the handle is returned with
// whatever could be read, and callers treat a handle with no class and no
// owner name as metadata-less.
func (c *Connection) handleForWindow(win xproto.Window, rect tray.Rect) tray.Handle {
	h := tray.Handle{
		Ref:   tray.HandleRef(win),
		Frame: rect,
	}

	if class, err := icccm.WmClassGet(c.XUtil, win); err == nil && class != nil {
		h.Class = class.Class
	}

	if pid, err := ewmh.WmPidGet(c.XUtil, win); err == nil {
		h.OwnerPID = int(pid)
		h.OwnerName = processName(int(pid))
	}

	if title, err := ewmh.WmNameGet(c.XUtil, win); err == nil && title != "" {
		h.Title = title
	} else if title, err := icccm.WmNameGet(c.XUtil, win); err == nil {
		h.Title = title
	}

	return h
}

// processName reads the owning process's short name from /proc.
func processName(pid int) string {
	data, err := os.ReadFile(filepath.Join("/proc", fmt.Sprintf("%d", pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
