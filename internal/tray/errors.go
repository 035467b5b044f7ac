package tray

import "fmt"

// Per-item operational failures. These are returned as values to the
// immediate caller, never escalated to process-wide faults: interactive
// callers surface them to the user, the restorer counts and continues.
var (
	// ErrPermissionDenied means a required permission (screen capture or
	// input simulation) is not granted.
	ErrPermissionDenied = fmt.Errorf("permission denied")

	// ErrItemNotFound means the source icon vanished between the caller's
	// decision and the fresh pre-move registry query.
	ErrItemNotFound = fmt.Errorf("item not found in registry")

	// ErrAnchorNotFound means the destination anchor is no longer present.
	ErrAnchorNotFound = fmt.Errorf("anchor not found in registry")

	// ErrDragRejected means the synthesized drag completed but the
	// post-move verification found the icon on the wrong side of the
	// anchor. The window server silently ignores drags it does not
	// recognize as genuine, so this is an expected outcome.
	ErrDragRejected = fmt.Errorf("drag rejected by window server")

	// ErrCaptureBusy means a capture is already in flight. Overlapping
	// captures are rejected, not queued.
	ErrCaptureBusy = fmt.Errorf("capture already in progress")

	// ErrImmovableItem means the target icon is a system item the shell
	// pins in place; drags against it are rejected up front.
	ErrImmovableItem = fmt.Errorf("item is immovable")
)

// CaptureError wraps a screen-capture failure with its underlying reason.
type CaptureError struct {
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("capture failed: %s", e.Reason)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// SetupError reports that the separator items could not be constructed
// after the bounded retry budget was exhausted. This is the one condition
// treated as fatal to the hide mechanism: without both items there is
// nothing further the daemon can do automatically.
type SetupError struct {
	Attempts int
	Err      error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("separator setup failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
