package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
)

// Pointer event types as defined by the X protocol.
const (
	eventButtonPress   = 4
	eventButtonRelease = 5
	eventMotionNotify  = 6
)

const leftButton = 1

// FakeMotion warps the pointer to absolute root coordinates via XTEST.
func (c *Connection) FakeMotion(x, y int) error {
	if !c.xtestReady {
		return fmt.Errorf("XTEST extension unavailable")
	}
	// Detail 0 requests absolute positioning.
	return xtest.FakeInputChecked(
		c.XUtil.Conn(),
		eventMotionNotify, 0,
		xproto.TimeCurrentTime,
		c.Root,
		int16(x), int16(y),
		0,
	).Check()
}

// FakeButton presses or releases the left pointer button at the current
// pointer position.
func (c *Connection) FakeButton(press bool) error {
	if !c.xtestReady {
		return fmt.Errorf("XTEST extension unavailable")
	}
	evType := byte(eventButtonRelease)
	if press {
		evType = eventButtonPress
	}
	return xtest.FakeInputChecked(
		c.XUtil.Conn(),
		evType, leftButton,
		xproto.TimeCurrentTime,
		c.Root,
		0, 0,
		0,
	).Check()
}

// HasXTest reports whether pointer injection is available. Re-queried on
// every check rather than trusting the connect-time probe, since the
// server can revoke the extension policy at runtime.
func (c *Connection) HasXTest() bool {
	if !c.xtestReady {
		return false
	}
	_, err := xtest.GetVersion(c.XUtil.Conn(), 2, 2).Reply()
	return err == nil
}
