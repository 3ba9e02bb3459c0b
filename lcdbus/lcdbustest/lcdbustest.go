// Package lcdbustest records display bus traffic and models the pixel memory
// of a display controller on the host.
package lcdbustest

import (
	"fmt"

	"github.com/flavioheleno/hx8357d/clock"
	"github.com/flavioheleno/hx8357d/clock/clocktest"
	"github.com/flavioheleno/hx8357d/fsmc"
	"github.com/flavioheleno/hx8357d/mmio"
	"github.com/flavioheleno/hx8357d/rgb565"
)

// Kind is the type of a bus transaction.
type Kind uint8

const (
	Cmd Kind = iota
	Data
	Read
)

func (k Kind) String() string {
	switch k {
	case Cmd:
		return "cmd"
	case Data:
		return "data"
	case Read:
		return "read"
	}
	return "?"
}

// Tx is one bus transaction.
type Tx struct {
	Kind  Kind
	Value uint16
}

func (t Tx) String() string {
	return fmt.Sprintf("%s:%#04x", t.Kind, t.Value)
}

// Recorder captures bus transactions.
//
// Reads are served from Reads in order, then from the attached Panel if any,
// then as zero.
type Recorder struct {
	Ops   []Tx
	Reads []uint16

	// Panel, when set, receives every transaction.
	Panel *Panel
}

// CmdPort returns the location with register select low.
func (r *Recorder) CmdPort() mmio.Register16 {
	return port{r, Cmd}
}

// DataPort returns the location with register select high.
func (r *Recorder) DataPort() mmio.Register16 {
	return port{r, Data}
}

// Reset drops recorded transactions.
func (r *Recorder) Reset() {
	r.Ops = r.Ops[:0]
}

// Count returns the number of recorded transactions of kind k.
func (r *Recorder) Count(k Kind) int {
	n := 0
	for _, tx := range r.Ops {
		if tx.Kind == k {
			n++
		}
	}
	return n
}

// Commands returns the recorded command codes in order.
func (r *Recorder) Commands() []uint16 {
	var out []uint16
	for _, tx := range r.Ops {
		if tx.Kind == Cmd {
			out = append(out, tx.Value)
		}
	}
	return out
}

// Params returns the data words following the i-th occurrence (0-based) of
// command code, up to the next command.
func (r *Recorder) Params(code uint16, i int) []uint16 {
	for n, tx := range r.Ops {
		if tx.Kind != Cmd || tx.Value != code {
			continue
		}
		if i > 0 {
			i--
			continue
		}
		var out []uint16
		for _, d := range r.Ops[n+1:] {
			if d.Kind == Cmd {
				break
			}
			if d.Kind == Data {
				out = append(out, d.Value)
			}
		}
		return out
	}
	return nil
}

type port struct {
	r    *Recorder
	kind Kind
}

func (p port) Get() uint16 {
	var v uint16
	switch {
	case len(p.r.Reads) > 0:
		v = p.r.Reads[0]
		p.r.Reads = p.r.Reads[1:]
	case p.r.Panel != nil:
		v = p.r.Panel.read()
	}
	p.r.Ops = append(p.r.Ops, Tx{Kind: Read, Value: v})
	return v
}

func (p port) Set(v uint16) {
	tx := Tx{Kind: p.kind, Value: v}
	p.r.Ops = append(p.r.Ops, tx)
	if p.r.Panel != nil {
		p.r.Panel.Apply(tx)
	}
}

// Panel models the graphics memory of an HX8357D-style controller: column
// and page address windows, memory write and memory read with a dummy cycle.
type Panel struct {
	Frame *rgb565.Image

	// DisplayOn and Awake follow the display on/off and sleep commands.
	DisplayOn bool
	Awake     bool

	cmd    uint16
	params []uint16

	x0, x1, y0, y1 int
	x, y           int
	readDummy      bool
}

// NewPanel returns a powered-down panel of w×h pixels.
func NewPanel(w, h int) *Panel {
	return &Panel{
		Frame: rgb565.New(w, h),
		x1:    w - 1,
		y1:    h - 1,
	}
}

// Apply feeds one write transaction to the panel.
func (p *Panel) Apply(tx Tx) {
	switch tx.Kind {
	case Cmd:
		p.command(tx.Value)
	case Data:
		p.data(tx.Value)
	}
}

func (p *Panel) command(code uint16) {
	p.cmd = code
	p.params = p.params[:0]
	switch code {
	case 0x11:
		p.Awake = true
	case 0x10:
		p.Awake = false
	case 0x29:
		p.DisplayOn = true
	case 0x28:
		p.DisplayOn = false
	case 0x2C:
		p.x, p.y = p.x0, p.y0
	case 0x2E:
		p.x, p.y = p.x0, p.y0
		p.readDummy = true
	}
}

func (p *Panel) data(v uint16) {
	switch p.cmd {
	case 0x2A, 0x2B:
		p.params = append(p.params, v&0xFF)
		if len(p.params) == 4 {
			lo := int(p.params[0])<<8 | int(p.params[1])
			hi := int(p.params[2])<<8 | int(p.params[3])
			if p.cmd == 0x2A {
				p.x0, p.x1 = lo, hi
			} else {
				p.y0, p.y1 = lo, hi
			}
		}
	case 0x2C, 0x3C:
		p.Frame.SetRGB565(p.x, p.y, rgb565.Color(v))
		p.advance()
	default:
		p.params = append(p.params, v)
	}
}

func (p *Panel) read() uint16 {
	if p.cmd != 0x2E {
		return 0
	}
	if p.readDummy {
		p.readDummy = false
		return 0
	}
	c := p.Frame.RGB565At(p.x, p.y)
	p.advance()
	return uint16(c)
}

func (p *Panel) advance() {
	p.x++
	if p.x > p.x1 {
		p.x = p.x0
		p.y++
		if p.y > p.y1 {
			p.y = p.y0
		}
	}
}

// Window returns the current column and page address window, inclusive.
func (p *Panel) Window() (x0, y0, x1, y1 int) {
	return p.x0, p.y0, p.x1, p.y1
}

// Params returns the parameters received since the last command.
func (p *Panel) Params() []uint16 {
	return p.params
}

// Configure brings up a simulated clock tree and FSMC bank and returns the
// resulting token, for building a lcdbus.Conn on the host.
func Configure() (fsmc.Configured, error) {
	s, err := clock.New(clocktest.New().Registers(), clock.F407HSE8)
	if err != nil {
		return fsmc.Configured{}, err
	}
	ready, err := s.BringUp()
	if err != nil {
		return fsmc.Configured{}, err
	}
	var bcr, btr, bwtr mmio.Word
	b := fsmc.Bank{BCR: &bcr, BTR: &btr, BWTR: &bwtr, Base: fsmc.NE4Base}
	return fsmc.Configure(ready, b, fsmc.HX8357D168MHz, mmio.Barrier)
}
