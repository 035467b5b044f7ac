//go:build linux

package platform

import (
	"fmt"
	"image"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/traykeep/traykeep/internal/tray"
	"github.com/traykeep/traykeep/internal/x11"
)

// LinuxBackend implements every collaborator interface on top of one X11
// connection. All calls on it must come from the single serialized core
// context; the X11 connection is not safe for concurrent use.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend wraps an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Connection exposes the underlying X11 connection for X11-specific
// consumers (control items, hotkeys).
func (b *LinuxBackend) Connection() *x11.Connection {
	return b.conn
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// List scans the tray strip. Control items are included: they are real
// strip windows and the repositioner anchors moves against them.
func (b *LinuxBackend) List() ([]tray.Handle, error) {
	return b.conn.ListStripWindows(nil)
}

// Frame resolves a handle's current frame, or false if the handle is
// stale.
func (b *LinuxBackend) Frame(ref tray.HandleRef) (tray.Rect, bool) {
	return b.conn.WindowRect(xproto.Window(ref))
}

// Emit replays a synthetic pointer sequence, honoring per-event pauses.
func (b *LinuxBackend) Emit(events []PointerEvent) error {
	for _, ev := range events {
		var err error
		switch ev.Kind {
		case PointerMove:
			err = b.conn.FakeMotion(ev.X, ev.Y)
		case PointerPress:
			err = b.conn.FakeButton(true)
		case PointerRelease:
			err = b.conn.FakeButton(false)
		default:
			err = fmt.Errorf("unknown pointer event kind %d", ev.Kind)
		}
		if err != nil {
			return err
		}
		if ev.Pause > 0 {
			time.Sleep(ev.Pause)
		}
	}
	return nil
}

// CaptureRegion snapshots a root-window region.
func (b *LinuxBackend) CaptureRegion(r tray.Rect) (image.Image, error) {
	return b.conn.CaptureRegion(r)
}

// CaptureWindow snapshots one window's contents.
func (b *LinuxBackend) CaptureWindow(ref tray.HandleRef) (image.Image, error) {
	return b.conn.CaptureWindow(xproto.Window(ref))
}

// HasInputControl reports whether XTEST pointer injection is available.
func (b *LinuxBackend) HasInputControl() bool {
	return b.conn.HasXTest()
}

// HasScreenCapture probes whether root-window capture is permitted by
// grabbing a single pixel.
func (b *LinuxBackend) HasScreenCapture() bool {
	_, err := b.conn.CaptureRegion(tray.Rect{X: 0, Y: 0, Width: 1, Height: 1})
	return err == nil
}
