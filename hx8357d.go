package hx8357d

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/flavioheleno/hx8357d/rgb565"
	"github.com/flavioheleno/hx8357d/wait"
	"tinygo.org/x/drivers"
)

// Native resolution of the panel in its power-on orientation.
const (
	Width  = 320
	Height = 480
)

// Bus is the command/data link to the controller. *lcdbus.Conn implements it.
type Bus interface {
	ResetPulse()
	WriteCmd(code uint16)
	WriteData(v uint16)
	ReadDataDummy() uint16
}

// Opts is the configuration for the HX8357D display.
type Opts struct {
	// Drawable area in pixels, starting at the panel origin
	W int // Width (default: 320, must be ≤320)
	H int // Height (default: 480, must be ≤480)
}

// Dev is the device handle for the HX8357D display.
type Dev struct {
	// Communication
	b   Bus
	clk wait.Clock

	// Display geometry
	rect image.Rectangle

	// Initialization progress
	state State
}

// New resets the controller behind b, runs the initialization script and
// returns a handle to the display.
//
// opts can be nil to use the full panel.
func New(b Bus, clk wait.Clock, opts *Opts) (*Dev, error) {
	// Apply defaults and validate options
	if opts == nil {
		opts = &Opts{W: Width, H: Height}
	}
	if opts.W <= 0 || opts.W > Width {
		return nil, fmt.Errorf("hx8357d: width must be between 1 and %d", Width)
	}
	if opts.H <= 0 || opts.H > Height {
		return nil, fmt.Errorf("hx8357d: height must be between 1 and %d", Height)
	}
	if b == nil || clk == nil {
		return nil, errors.New("hx8357d: bus and clock are required")
	}

	d := &Dev{
		b:    b,
		clk:  clk,
		rect: image.Rect(0, 0, opts.W, opts.H),
	}
	d.init()
	return d, nil
}

// State returns how far initialization went.
func (d *Dev) State() State {
	return d.state
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return rgb565.Model
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Size returns the display dimensions.
func (d *Dev) Size() (x, y int16) {
	return int16(d.rect.Dx()), int16(d.rect.Dy())
}

// SetPixel draws one pixel. Pixels outside the display are ignored.
func (d *Dev) SetPixel(x, y int16, c color.RGBA) {
	w, h := d.Size()
	if r, ok := clipArea(x, y, 1, 1, w, h); ok {
		d.fill(r, rgb565.RGB(c.R, c.G, c.B))
	}
}

// Display is a no-op: pixels go straight to the controller memory.
func (d *Dev) Display() error {
	return nil
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("hx8357d.Dev{%dx%d}", d.rect.Dx(), d.rect.Dy())
}

var _ drivers.Displayer = (*Dev)(nil)
