package tray

// Rect describes a rectangular region in root-window coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// CenterX returns the horizontal center of the rect.
func (r Rect) CenterX() int {
	return r.X + r.Width/2
}

// CenterY returns the vertical center of the rect.
func (r Rect) CenterY() int {
	return r.Y + r.Height/2
}

// MaxX returns the first X coordinate past the right edge.
func (r Rect) MaxX() int {
	return r.X + r.Width
}

// Union returns the smallest rect covering both r and other.
func (r Rect) Union(other Rect) Rect {
	if r.Width == 0 && r.Height == 0 {
		return other
	}
	if other.Width == 0 && other.Height == 0 {
		return r
	}
	x1 := min(r.X, other.X)
	y1 := min(r.Y, other.Y)
	x2 := max(r.MaxX(), other.MaxX())
	y2 := max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// HandleRef is an opaque window-registry reference. It is valid only until
// the next registry-mutating event and must never be persisted.
type HandleRef uint32

// Handle is an ephemeral view of a live status icon. Handles are created
// fresh on every registry query and discarded after use; any operation
// that mutates the registry (including a move) invalidates them.
type Handle struct {
	Ref       HandleRef
	Frame     Rect
	OwnerPID  int
	OwnerName string
	Class     string
	Title     string
}

// Identity derives the durable identity for this handle.
func (h Handle) Identity() IconIdentity {
	return NewIdentity(h.Class, h.OwnerName, h.Title)
}

// HasMetadata reports whether the owner lookup produced enough information
// to derive an identity. Icons without metadata are kept in capture results
// but can never be matched to a persisted entry.
func (h Handle) HasMetadata() bool {
	return h.Class != "" || h.OwnerName != ""
}
