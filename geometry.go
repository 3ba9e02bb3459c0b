package hx8357d

import (
	"github.com/flavioheleno/hx8357d/rgb565"
	"golang.org/x/exp/constraints"
)

// Rect is a clipped drawing area: never empty and entirely on the panel.
type Rect struct {
	X, Y, W, H int
}

// clip restricts the area at (x, y) of w×h pixels to the display.
func (d *Dev) clip(x, y, w, h int) (Rect, bool) {
	return clipArea(x, y, w, h, d.rect.Dx(), d.rect.Dy())
}

// clipArea restricts the area at (x, y) of w×h pixels to a dw×dh frame.
//
// It reports false when nothing is left: an empty size or an origin off the
// frame. An area running past the right or bottom edge is cut at the edge.
func clipArea[T constraints.Integer](x, y, w, h, dw, dh T) (Rect, bool) {
	if w <= 0 || h <= 0 {
		return Rect{}, false
	}
	if x < 0 || y < 0 || x >= dw || y >= dh {
		return Rect{}, false
	}
	x1 := farEdge(x, w, dw)
	y1 := farEdge(y, h, dh)
	return Rect{X: int(x), Y: int(y), W: int(x1-x) + 1, H: int(y1-y) + 1}, true
}

// farEdge returns the last index of a span of n starting at start, limited to
// limit-1. start must be below limit.
func farEdge[T constraints.Integer](start, n, limit T) T {
	if n > limit-start {
		return limit - 1
	}
	return start + n - 1
}

// window sets the column and page address window to r and issues mem, the
// memory access command that follows.
func (d *Dev) window(r Rect, mem uint16) {
	x1 := r.X + r.W - 1
	y1 := r.Y + r.H - 1

	d.b.WriteCmd(cmdColumnAddr)
	d.b.WriteData(uint16(r.X>>8) & 0xFF)
	d.b.WriteData(uint16(r.X) & 0xFF)
	d.b.WriteData(uint16(x1>>8) & 0xFF)
	d.b.WriteData(uint16(x1) & 0xFF)

	d.b.WriteCmd(cmdPageAddr)
	d.b.WriteData(uint16(r.Y>>8) & 0xFF)
	d.b.WriteData(uint16(r.Y) & 0xFF)
	d.b.WriteData(uint16(y1>>8) & 0xFF)
	d.b.WriteData(uint16(y1) & 0xFF)

	d.b.WriteCmd(mem)
}

// SetWindow selects the area that following pixel data fills, left to right
// then top to bottom, and starts a memory write.
func (d *Dev) SetWindow(x, y, w, h int) {
	r, ok := d.clip(x, y, w, h)
	if !ok {
		return
	}
	d.window(r, cmdMemWrite)
}

// FillRect paints the clipped area with c.
func (d *Dev) FillRect(x, y, w, h int, c rgb565.Color) {
	if r, ok := d.clip(x, y, w, h); ok {
		d.fill(r, c)
	}
}

func (d *Dev) fill(r Rect, c rgb565.Color) {
	d.window(r, cmdMemWrite)
	for n := r.W * r.H; n > 0; n-- {
		d.b.WriteData(uint16(c))
	}
}

// DrawPixel paints one pixel. Pixels off the display are ignored.
func (d *Dev) DrawPixel(x, y int, c rgb565.Color) {
	d.FillRect(x, y, 1, 1, c)
}

// Clear paints the whole display with c.
func (d *Dev) Clear(c rgb565.Color) {
	d.FillRect(0, 0, d.rect.Dx(), d.rect.Dy(), c)
}

// ReadPixel reads back the pixel at (x, y). The returned word is the first
// data word the controller produces for that pixel after the dummy cycle. It
// reports false for pixels off the display.
func (d *Dev) ReadPixel(x, y int) (uint16, bool) {
	r, ok := d.clip(x, y, 1, 1)
	if !ok {
		return 0, false
	}
	d.window(r, cmdMemRead)
	return d.b.ReadDataDummy(), true
}
