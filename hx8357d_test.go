package hx8357d

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/flavioheleno/hx8357d/lcdbus"
	"github.com/flavioheleno/hx8357d/lcdbus/lcdbustest"
	"github.com/flavioheleno/hx8357d/rgb565"
	"github.com/flavioheleno/hx8357d/wait"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// fakeBus logs bus operations and sleeps into one event list.
type fakeBus struct {
	events []string
	onCmd  func(code uint16)
	reads  []uint16
}

func (b *fakeBus) ResetPulse() { b.events = append(b.events, "reset") }

func (b *fakeBus) WriteCmd(code uint16) {
	if b.onCmd != nil {
		b.onCmd(code)
	}
	b.events = append(b.events, fmt.Sprintf("c:%02X", code))
}

func (b *fakeBus) WriteData(v uint16) { b.events = append(b.events, fmt.Sprintf("d:%02X", v)) }

func (b *fakeBus) ReadDataDummy() uint16 {
	b.events = append(b.events, "rd")
	if len(b.reads) == 0 {
		return 0
	}
	v := b.reads[0]
	b.reads = b.reads[1:]
	return v
}

func (b *fakeBus) NowMs() uint32 { return 0 }

func (b *fakeBus) SleepMs(ms uint32) { b.events = append(b.events, fmt.Sprintf("sleep:%d", ms)) }

// newTestDev returns a full-size Dev on a fakeBus without running init.
func newTestDev() (*Dev, *fakeBus) {
	b := &fakeBus{}
	return &Dev{b: b, clk: b, rect: image.Rect(0, 0, Width, Height), state: DisplayOn}, b
}

func equal(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d events %v\nwant %d events %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOptsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    *Opts
		wantErr bool
	}{
		{"nil options (uses defaults)", nil, false},
		{"valid 320x480", &Opts{W: 320, H: 480}, false},
		{"valid 1x1 (minimum)", &Opts{W: 1, H: 1}, false},
		{"width zero", &Opts{W: 0, H: 480}, true},
		{"width > 320", &Opts{W: 480, H: 320}, true},
		{"height zero", &Opts{W: 320, H: 0}, true},
		{"negative height", &Opts{W: 320, H: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBus{}
			dev, err := New(b, b, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && len(b.events) != 0 {
				t.Errorf("bus used despite invalid options: %v", b.events)
			}
			if err == nil && dev.State() != DisplayOn {
				t.Errorf("State() = %s, want DisplayOn", dev.State())
			}
		})
	}
}

func TestNewRequiresBus(t *testing.T) {
	if _, err := New(nil, &wait.Ticks{}, nil); err == nil {
		t.Error("New(nil bus) succeeded")
	}
}

func TestInitSequence(t *testing.T) {
	b := &fakeBus{}
	if _, err := New(b, b, nil); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"reset", "sleep:50",
		"c:E9", "d:20",
		"c:11", "sleep:120",
		"c:3A", "d:55",
		"c:D1", "d:00", "d:65", "d:1F",
		"c:D0", "d:07", "d:07", "d:80",
		"c:36", "d:4C",
		"c:C1", "d:10", "d:10", "d:02", "d:02",
		"c:C0", "d:00", "d:35", "d:00", "d:00", "d:01", "d:02",
		"c:C4", "d:03",
		"c:C5", "d:01",
		"c:D2", "d:01", "d:22",
		"c:E7", "d:38",
		"c:F3", "d:08", "d:12", "d:12", "d:08",
		"c:C8", "d:01", "d:52", "d:37", "d:10", "d:0D", "d:01", "d:04", "d:51",
		"d:77", "d:01", "d:01", "d:0D", "d:08", "d:80", "d:00",
		"c:29", "sleep:20",
	}
	equal(t, b.events, want)
}

func TestInitStates(t *testing.T) {
	b := &fakeBus{}
	d := &Dev{b: b, clk: b, rect: image.Rect(0, 0, Width, Height)}
	seen := map[uint16]State{}
	b.onCmd = func(code uint16) { seen[code] = d.state }
	d.init()

	tests := []struct {
		cmd  uint16
		want State
	}{
		{0xE9, Reset},
		{0x11, Reset},
		{0x3A, AwaitingSleepOut},
		{0xD1, ConfiguringRegisters},
		{0xC8, ConfiguringRegisters},
		{0x29, ConfiguringRegisters},
	}
	for _, tt := range tests {
		if got := seen[tt.cmd]; got != tt.want {
			t.Errorf("state while sending %#02x = %s, want %s", tt.cmd, got, tt.want)
		}
	}
	if d.State() != DisplayOn {
		t.Errorf("State() = %s, want DisplayOn", d.State())
	}
}

func TestSetWindow(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		want       []string
	}{
		{"full frame", 0, 0, Width, Height, []string{
			"c:2A", "d:00", "d:00", "d:01", "d:3F",
			"c:2B", "d:00", "d:00", "d:01", "d:DF",
			"c:2C",
		}},
		{"single pixel", 300, 400, 1, 1, []string{
			"c:2A", "d:01", "d:2C", "d:01", "d:2C",
			"c:2B", "d:01", "d:90", "d:01", "d:90",
			"c:2C",
		}},
		{"clamped at both edges", 310, 470, 100, 100, []string{
			"c:2A", "d:01", "d:36", "d:01", "d:3F",
			"c:2B", "d:01", "d:D6", "d:01", "d:DF",
			"c:2C",
		}},
		{"zero width", 10, 10, 0, 5, nil},
		{"zero height", 10, 10, 5, 0, nil},
		{"x past right edge", Width, 0, 5, 5, nil},
		{"y past bottom edge", 0, Height, 5, 5, nil},
		{"negative origin", -1, 0, 5, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b := newTestDev()
			d.SetWindow(tt.x, tt.y, tt.w, tt.h)
			equal(t, b.events, tt.want)
		})
	}
}

func TestFillRect(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		wantData   int // pixel words after the window set
	}{
		{"inside", 0, 0, 80, 80, 6400},
		{"clamped", 300, 470, 100, 100, 20 * 10},
		{"bottom-right pixel", Width - 1, Height - 1, 1, 1, 1},
		{"huge", 0, 0, 1 << 30, 1 << 30, Width * Height},
		{"zero size", 5, 5, 0, 0, -1},
		{"outside", Width + 10, 0, 10, 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b := newTestDev()
			d.FillRect(tt.x, tt.y, tt.w, tt.h, rgb565.Red)
			if tt.wantData < 0 {
				if len(b.events) != 0 {
					t.Errorf("expected no-op, got %d events", len(b.events))
				}
				return
			}
			// 3 commands + 8 coordinate words
			if len(b.events) < 11 || b.events[10] != "c:2C" {
				t.Fatalf("window not set: %v", b.events)
			}
			pixels := b.events[11:]
			if len(pixels) != tt.wantData {
				t.Fatalf("wrote %d pixels, want %d", len(pixels), tt.wantData)
			}
			for i, e := range pixels {
				if e != "d:F800" {
					t.Fatalf("pixel %d = %s, want d:F800", i, e)
				}
			}
		})
	}
}

func TestDrawPixelIsOnePixelFill(t *testing.T) {
	d1, b1 := newTestDev()
	d2, b2 := newTestDev()
	d1.DrawPixel(17, 42, rgb565.Blue)
	d2.FillRect(17, 42, 1, 1, rgb565.Blue)
	equal(t, b1.events, b2.events)

	d3, b3 := newTestDev()
	d3.DrawPixel(Width, 0, rgb565.Blue)
	d3.DrawPixel(0, -3, rgb565.Blue)
	if len(b3.events) != 0 {
		t.Errorf("off-screen pixels produced %v", b3.events)
	}
}

func TestClear(t *testing.T) {
	d, b := newTestDev()
	d.Clear(rgb565.Green)
	if got := len(b.events) - 11; got != Width*Height {
		t.Errorf("Clear wrote %d pixels, want %d", got, Width*Height)
	}
	if b.events[len(b.events)-1] != "d:7E0" {
		t.Errorf("last pixel = %s, want d:7E0", b.events[len(b.events)-1])
	}
}

func TestClipRespectsOpts(t *testing.T) {
	b := &fakeBus{}
	d, err := New(b, b, &Opts{W: 100, H: 50})
	if err != nil {
		t.Fatal(err)
	}
	b.events = nil
	d.FillRect(90, 40, 20, 20, rgb565.White)
	if got := len(b.events) - 11; got != 10*10 {
		t.Errorf("wrote %d pixels, want 100", got)
	}
	b.events = nil
	d.DrawPixel(100, 0, rgb565.White)
	if len(b.events) != 0 {
		t.Errorf("pixel past configured width produced %v", b.events)
	}
}

func TestReadPixel(t *testing.T) {
	d, b := newTestDev()
	b.reads = []uint16{0xF800}
	got, ok := d.ReadPixel(3, 4)
	if !ok || got != 0xF800 {
		t.Fatalf("ReadPixel() = %#04x, %v; want 0xf800, true", got, ok)
	}
	want := []string{
		"c:2A", "d:00", "d:03", "d:00", "d:03",
		"c:2B", "d:00", "d:04", "d:00", "d:04",
		"c:2E", "rd",
	}
	equal(t, b.events, want)

	d2, b2 := newTestDev()
	if _, ok := d2.ReadPixel(-1, 0); ok {
		t.Error("ReadPixel(-1, 0) reported a pixel")
	}
	if len(b2.events) != 0 {
		t.Errorf("off-screen read produced %v", b2.events)
	}
}

// newPanelDev returns a Dev wired through lcdbus to a simulated panel.
func newPanelDev(t *testing.T) (*Dev, *lcdbustest.Panel) {
	t.Helper()
	cfg, err := lcdbustest.Configure()
	if err != nil {
		t.Fatal(err)
	}
	clk := &wait.Ticks{}
	clk.Idle = clk.Tick
	panel := lcdbustest.NewPanel(Width, Height)
	rec := &lcdbustest.Recorder{Panel: panel}
	conn := lcdbus.New(cfg, rec.CmdPort(), rec.DataPort(), &gpiotest.Pin{N: "RST"}, &gpiotest.Pin{N: "BL"}, clk)
	d, err := New(conn, clk, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d, panel
}

func TestPanelRendering(t *testing.T) {
	d, panel := newPanelDev(t)
	if !panel.Awake || !panel.DisplayOn {
		t.Fatalf("panel awake=%v on=%v after init", panel.Awake, panel.DisplayOn)
	}

	d.Clear(rgb565.Black)
	d.FillRect(0, 0, 80, 80, rgb565.Red)
	d.FillRect(80, 0, 80, 80, rgb565.Green)
	d.FillRect(160, 0, 80, 80, rgb565.Blue)
	d.FillRect(310, 470, 50, 50, rgb565.White)

	tests := []struct {
		x, y int
		want rgb565.Color
	}{
		{0, 0, rgb565.Red},
		{79, 79, rgb565.Red},
		{80, 0, rgb565.Green},
		{159, 79, rgb565.Green},
		{160, 0, rgb565.Blue},
		{239, 79, rgb565.Blue},
		{240, 0, rgb565.Black},
		{0, 80, rgb565.Black},
		{310, 470, rgb565.White},
		{319, 479, rgb565.White},
		{309, 479, rgb565.Black},
	}
	for _, tt := range tests {
		if got := panel.Frame.RGB565At(tt.x, tt.y); got != tt.want {
			t.Errorf("(%d, %d) = %#04x, want %#04x", tt.x, tt.y, got, tt.want)
		}
	}

	if got, ok := d.ReadPixel(100, 10); !ok || got != uint16(rgb565.Green) {
		t.Errorf("ReadPixel(100, 10) = %#04x, %v; want green", got, ok)
	}
}

func TestDisplayer(t *testing.T) {
	d, panel := newPanelDev(t)

	if x, y := d.Size(); x != 320 || y != 480 {
		t.Errorf("Size() = %d, %d; want 320, 480", x, y)
	}
	d.SetPixel(5, 6, color.RGBA{B: 0xFF, A: 0xFF})
	if got := panel.Frame.RGB565At(5, 6); got != rgb565.Blue {
		t.Errorf("SetPixel() drew %#04x, want blue", got)
	}
	d.SetPixel(319, 479, color.RGBA{G: 0xFF, A: 0xFF})
	if got := panel.Frame.RGB565At(319, 479); got != rgb565.Green {
		t.Errorf("SetPixel(319, 479) drew %#04x, want green", got)
	}
	if err := d.Display(); err != nil {
		t.Errorf("Display() = %v", err)
	}
}

func TestDevBounds(t *testing.T) {
	dev := &Dev{
		rect: image.Rect(0, 0, 320, 480),
	}
	want := image.Rect(0, 0, 320, 480)
	if got := dev.Bounds(); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
}

func TestDevColorModel(t *testing.T) {
	dev := &Dev{}
	if dev.ColorModel() != rgb565.Model {
		t.Error("ColorModel() did not return rgb565.Model")
	}
}

func TestDevString(t *testing.T) {
	dev := &Dev{
		rect: image.Rect(0, 0, 320, 480),
	}
	want := "hx8357d.Dev{320x480}"
	if got := dev.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFarEdge(t *testing.T) {
	tests := []struct {
		start, n, limit, want uint32
	}{
		{0, 1, 320, 0},
		{0, 320, 320, 319},
		{10, 400, 320, 319},
		{319, 0xFFFFFFFF, 320, 319},
	}
	for _, tt := range tests {
		if got := farEdge(tt.start, tt.n, tt.limit); got != tt.want {
			t.Errorf("farEdge(%d, %d, %d) = %d, want %d", tt.start, tt.n, tt.limit, got, tt.want)
		}
	}
}

func TestSetPixelOffPanel(t *testing.T) {
	tests := []struct {
		name string
		x, y int16
	}{
		{"left", -1, 6},
		{"top", 6, -1},
		{"right", 320, 0},
		{"bottom", 0, 480},
		{"far", 0x7FFF, 0x7FFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b := newTestDev()
			b.events = nil
			d.SetPixel(tt.x, tt.y, color.RGBA{R: 0xFF, A: 0xFF})
			if len(b.events) != 0 {
				t.Errorf("SetPixel(%d, %d) issued %v, want nothing", tt.x, tt.y, b.events)
			}
		})
	}
}

func TestClipArea(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int16
		want       Rect
		ok         bool
	}{
		{"inside", 10, 20, 30, 40, Rect{10, 20, 30, 40}, true},
		{"far corner", 300, 470, 50, 50, Rect{300, 470, 20, 10}, true},
		{"max span", 0, 0, 0x7FFF, 0x7FFF, Rect{0, 0, 320, 480}, true},
		{"last pixel", 319, 479, 1, 1, Rect{319, 479, 1, 1}, true},
		{"zero width", 0, 0, 0, 5, Rect{}, false},
		{"negative height", 0, 0, 5, -1, Rect{}, false},
		{"negative origin", -5, 0, 10, 10, Rect{}, false},
		{"origin past edge", 320, 0, 1, 1, Rect{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := clipArea(tt.x, tt.y, tt.w, tt.h, Width, Height)
			if ok != tt.ok || got != tt.want {
				t.Errorf("clipArea() = %+v, %v; want %+v, %v", got, ok, tt.want, tt.ok)
			}
			// The int path used by the drawing calls agrees
			gotInt, okInt := clipArea(int(tt.x), int(tt.y), int(tt.w), int(tt.h), Width, Height)
			if okInt != ok || gotInt != got {
				t.Errorf("int clipArea() = %+v, %v; want %+v, %v", gotInt, okInt, got, ok)
			}
		})
	}
}
