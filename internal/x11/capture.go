package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/traykeep/traykeep/internal/tray"
)

// CaptureRegion grabs one snapshot of a root-window region. A single
// composite grab keeps every icon frame-synchronized; per-icon slicing
// happens downstream.
func (c *Connection) CaptureRegion(r tray.Rect) (image.Image, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("invalid capture region %dx%d", r.Width, r.Height)
	}

	reply, err := xproto.GetImage(
		c.XUtil.Conn(),
		xproto.ImageFormatZPixmap,
		xproto.Drawable(c.Root),
		int16(r.X), int16(r.Y),
		uint16(r.Width), uint16(r.Height),
		0xFFFFFFFF,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("GetImage failed: %w", err)
	}

	return imageFromZPixmap(reply.Data, r.Width, r.Height)
}

// CaptureWindow grabs the contents of a single window drawable.
func (c *Connection) CaptureWindow(win xproto.Window) (image.Image, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	reply, err := xproto.GetImage(
		c.XUtil.Conn(),
		xproto.ImageFormatZPixmap,
		xproto.Drawable(win),
		0, 0,
		geom.Width, geom.Height,
		0xFFFFFFFF,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("GetImage failed: %w", err)
	}

	return imageFromZPixmap(reply.Data, int(geom.Width), int(geom.Height))
}

// imageFromZPixmap converts 32-bit BGRx pixmap data into an RGBA image.
func imageFromZPixmap(data []byte, width, height int) (*image.RGBA, error) {
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("short pixmap data: got %d bytes for %dx%d", len(data), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src := (y*width + x) * 4
			dst := img.PixOffset(x, y)
			img.Pix[dst+0] = data[src+2]
			img.Pix[dst+1] = data[src+1]
			img.Pix[dst+2] = data[src+0]
			img.Pix[dst+3] = 0xFF
		}
	}
	return img, nil
}
