package section

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/traykeep/traykeep/internal/tray"
)

// Spacer lengths, in pixels. The expanded length is a normal item width;
// the collapsed length is far wider than any screen, pushing every icon
// left of the spacer past the visible frame.
const (
	ExpandedLength  = 20
	CollapsedLength = 10000
)

// Default setup-retry budget. Creating the control items fails
// transiently while the panel is still coming up at session start.
const (
	DefaultSetupAttempts = 5
	DefaultSetupDelay    = 200 * time.Millisecond
)

const toggleDebounce = 250 * time.Millisecond

// State of the hidden section.
type State int

const (
	StateExpanded State = iota
	StateCollapsed
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateExpanded:
		return "expanded"
	case StateCollapsed:
		return "collapsed"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Items abstracts the two control windows the hide mechanism drives.
// Implemented by x11.ControlItems; tests substitute a fake.
type Items interface {
	Create() error
	SetSpacerLength(px int) error
	SetToggleCollapsed(collapsed bool) error
	SpacerFrame() (tray.Rect, bool)
	ToggleFrame() (tray.Rect, bool)
}

// Machine is the separator state machine: it owns the spacer-width hide
// trick, the debounced toggle, the auto-collapse timer, and the bounded
// setup retry.
type Machine struct {
	mu     sync.Mutex
	items  Items
	logger *slog.Logger
	state  State

	setupAttempts int
	setupDelay    time.Duration

	autoCollapseEnabled bool
	autoCollapseDelay   time.Duration
	autoCollapseTimer   *time.Timer

	debounced func(func())

	// Serializes spacer and toggle mutations with the owner's other
	// strip operations. Nil until SetTransitionLock is called.
	gate sync.Locker

	onStateChange func(State)
}

// Option configures a Machine.
type Option func(*Machine)

// WithSetupRetry overrides the setup retry budget.
func WithSetupRetry(attempts int, delay time.Duration) Option {
	return func(m *Machine) {
		if attempts > 0 {
			m.setupAttempts = attempts
		}
		m.setupDelay = delay
	}
}

// WithAutoCollapse enables collapsing the section automatically after it
// has been expanded for the given delay.
func WithAutoCollapse(enabled bool, delay time.Duration) Option {
	return func(m *Machine) {
		m.autoCollapseEnabled = enabled
		m.autoCollapseDelay = delay
	}
}

// WithToggleDebounce overrides the toggle debounce window (tests).
func WithToggleDebounce(d time.Duration) Option {
	return func(m *Machine) {
		m.debounced = debounce.New(d)
	}
}

// OnStateChange registers a callback invoked after every state
// transition, outside the machine's lock.
func OnStateChange(fn func(State)) Option {
	return func(m *Machine) {
		m.onStateChange = fn
	}
}

// NewMachine creates a machine over the given control items. Setup must
// be called before the machine is useful.
func NewMachine(items Items, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		items:         items,
		logger:        logger,
		state:         StateDisabled,
		setupAttempts: DefaultSetupAttempts,
		setupDelay:    DefaultSetupDelay,
		debounced:     debounce.New(toggleDebounce),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Setup constructs the control items, retrying on transient failure.
// After the budget is exhausted it returns a SetupError: the hide
// mechanism cannot function without both items, and no automatic
// recovery is possible.
func (m *Machine) Setup() error {
	var lastErr error
	for attempt := 1; attempt <= m.setupAttempts; attempt++ {
		lastErr = m.items.Create()
		if lastErr == nil {
			m.mu.Lock()
			m.state = StateCollapsed
			m.mu.Unlock()
			if err := m.items.SetSpacerLength(CollapsedLength); err != nil && m.logger != nil {
				m.logger.Warn("failed to set initial spacer length", "error", err)
			}
			m.items.SetToggleCollapsed(true)
			m.notify(StateCollapsed)
			return nil
		}
		if m.logger != nil {
			m.logger.Warn("control item setup failed",
				"attempt", attempt, "max_attempts", m.setupAttempts, "error", lastErr)
		}
		if attempt < m.setupAttempts {
			time.Sleep(m.setupDelay)
		}
	}
	return &tray.SetupError{Attempts: m.setupAttempts, Err: lastErr}
}

// SetTransitionLock shares an external lock with the machine. Expand and
// collapse then run under it, so a transition fired by the hotkey or the
// auto-collapse timer cannot resize the spacer while a capture or drag
// holding the same lock is in flight.
func (m *Machine) SetTransitionLock(l sync.Locker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = l
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

func (m *Machine) transitionGate() sync.Locker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate == nil {
		return nopLocker{}
	}
	return m.gate
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Toggle flips between expanded and collapsed. Rapid repeat input inside
// the debounce window coalesces into a single transition.
func (m *Machine) Toggle() {
	m.debounced(func() {
		switch m.State() {
		case StateCollapsed:
			m.Expand()
		case StateExpanded:
			m.Collapse()
		}
	})
}

// Expand shows the hidden section. No-op unless currently collapsed.
func (m *Machine) Expand() {
	gate := m.transitionGate()
	gate.Lock()

	m.mu.Lock()
	if m.state != StateCollapsed {
		m.mu.Unlock()
		gate.Unlock()
		return
	}
	m.state = StateExpanded
	m.cancelAutoCollapseLocked()
	if m.autoCollapseEnabled && m.autoCollapseDelay > 0 {
		m.autoCollapseTimer = time.AfterFunc(m.autoCollapseDelay, m.Collapse)
	}
	m.mu.Unlock()

	if err := m.items.SetSpacerLength(ExpandedLength); err != nil && m.logger != nil {
		m.logger.Warn("failed to expand spacer", "error", err)
	}
	m.items.SetToggleCollapsed(false)
	gate.Unlock()

	m.notify(StateExpanded)
}

// Collapse hides the section again. No-op unless currently expanded.
// Before widening the spacer, the toggle item must still sit on the
// visible side of it: a window-server reflow can reorder the control
// items, and collapsing in that arrangement would push the toggle
// itself off-screen. An invalid arrangement aborts silently.
func (m *Machine) Collapse() {
	gate := m.transitionGate()
	gate.Lock()

	m.mu.Lock()
	if m.state != StateExpanded {
		m.mu.Unlock()
		gate.Unlock()
		return
	}

	if !m.collapseArrangementValidLocked() {
		m.mu.Unlock()
		gate.Unlock()
		if m.logger != nil {
			m.logger.Warn("collapse aborted: control items out of position")
		}
		return
	}

	m.state = StateCollapsed
	m.cancelAutoCollapseLocked()
	m.mu.Unlock()

	if err := m.items.SetSpacerLength(CollapsedLength); err != nil && m.logger != nil {
		m.logger.Warn("failed to collapse spacer", "error", err)
	}
	m.items.SetToggleCollapsed(true)
	gate.Unlock()

	m.notify(StateCollapsed)
}

// collapseArrangementValidLocked checks the toggle sits right of the
// spacer (the spacer pushes leftward, so the toggle survives a collapse
// only from that side).
func (m *Machine) collapseArrangementValidLocked() bool {
	spacer, ok := m.items.SpacerFrame()
	if !ok {
		return false
	}
	toggle, ok := m.items.ToggleFrame()
	if !ok {
		return false
	}
	return toggle.X > spacer.X
}

// SetAutoCollapse reconfigures the auto-collapse behavior. An in-flight
// timer is restarted so the new delay takes effect immediately rather
// than on the next expand.
func (m *Machine) SetAutoCollapse(enabled bool, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.autoCollapseEnabled = enabled
	m.autoCollapseDelay = delay

	m.cancelAutoCollapseLocked()
	if m.state == StateExpanded && enabled && delay > 0 {
		m.autoCollapseTimer = time.AfterFunc(delay, m.Collapse)
	}
}

// Shutdown cancels any scheduled work. The timer does not cancel itself
// on state changes; every transition site that invalidates it must do
// so explicitly, and termination is one of those sites.
func (m *Machine) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelAutoCollapseLocked()
	m.state = StateDisabled
}

func (m *Machine) cancelAutoCollapseLocked() {
	if m.autoCollapseTimer != nil {
		m.autoCollapseTimer.Stop()
		m.autoCollapseTimer = nil
	}
}

func (m *Machine) notify(s State) {
	if m.onStateChange != nil {
		m.onStateChange(s)
	}
}

// Boundaries reports the current control-item positions for section
// classification, or an error when the items are not yet up.
func (m *Machine) SpacerX() (int, error) {
	spacer, ok := m.items.SpacerFrame()
	if !ok {
		return 0, fmt.Errorf("spacer item unavailable")
	}
	return spacer.X, nil
}
