package platform

import (
	"image"
	"time"

	"github.com/traykeep/traykeep/internal/tray"
)

// Registry is the window-registry adapter: it enumerates tray-strip
// windows from the window server. The registry is external, mutable, and
// shared with the entire OS, so results are never cached across calls;
// any two queries may disagree.
type Registry interface {
	// List returns live handles ordered ascending by horizontal screen
	// position. Zero results (no permission, no items) yield an empty
	// list, not an error; errors are reserved for transport failures.
	List() ([]tray.Handle, error)

	// Frame returns the current frame for a handle reference, or false
	// if the reference is stale.
	Frame(ref tray.HandleRef) (tray.Rect, bool)
}

// PointerEventKind discriminates synthetic pointer events.
type PointerEventKind int

const (
	PointerMove PointerEventKind = iota
	PointerPress
	PointerRelease
)

// PointerEvent is one step of a synthesized gesture. Pause is the delay
// observed after the event is emitted; the window server's drag
// recognition heuristics ignore sequences that arrive instantaneously.
type PointerEvent struct {
	Kind  PointerEventKind
	X     int
	Y     int
	Pause time.Duration
}

// Pointer injects synthetic pointer events into the window server.
type Pointer interface {
	Emit(events []PointerEvent) error
}

// Capturer takes screenshots of screen regions or individual windows.
type Capturer interface {
	CaptureRegion(r tray.Rect) (image.Image, error)
	CaptureWindow(ref tray.HandleRef) (image.Image, error)
}

// Permissions reports whether the privileged operations the core depends
// on are currently available. Results are re-checked before every capture
// and every pointer emission, never cached by the core.
type Permissions interface {
	HasInputControl() bool
	HasScreenCapture() bool
}

// Backend bundles every window-system collaborator the core consumes.
type Backend interface {
	Registry
	Pointer
	Capturer
	Permissions
}
