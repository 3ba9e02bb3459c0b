package hx8357d

// State is the initialization progress of the panel. It only moves forward.
type State uint8

const (
	Reset State = iota
	AwaitingSleepOut
	ConfiguringRegisters
	DisplayOn
)

func (s State) String() string {
	switch s {
	case Reset:
		return "Reset"
	case AwaitingSleepOut:
		return "AwaitingSleepOut"
	case ConfiguringRegisters:
		return "ConfiguringRegisters"
	case DisplayOn:
		return "DisplayOn"
	}
	return "State(?)"
}

// Controller commands.
const (
	cmdSleepOut   = 0x11
	cmdDisplayOn  = 0x29
	cmdColumnAddr = 0x2A
	cmdPageAddr   = 0x2B
	cmdMemWrite   = 0x2C
	cmdMemRead    = 0x2E
	cmdMADCTL     = 0x36
	cmdPixelFmt   = 0x3A
	cmdSetExtc    = 0xE9
)

// PostResetMs is the wait between the reset pulse and the first command.
const PostResetMs = 50

// step is one entry of the initialization script.
type step struct {
	cmd     byte
	params  []byte
	delayMs uint32
	enter   State // state once the command was sent; Reset means unchanged
}

// initScript brings the controller from reset to display on with 16-bit
// pixels, in portrait orientation.
var initScript = []step{
	{cmd: cmdSetExtc, params: []byte{0x20}},
	{cmd: cmdSleepOut, delayMs: 120, enter: AwaitingSleepOut},
	{cmd: cmdPixelFmt, params: []byte{0x55}, enter: ConfiguringRegisters}, // RGB565
	{cmd: 0xD1, params: []byte{0x00, 0x65, 0x1F}},                         // VCOM
	{cmd: 0xD0, params: []byte{0x07, 0x07, 0x80}},                         // Power
	{cmd: cmdMADCTL, params: []byte{0x4C}},                                // Memory access control
	{cmd: 0xC1, params: []byte{0x10, 0x10, 0x02, 0x02}},                   // Display timing
	{cmd: 0xC0, params: []byte{0x00, 0x35, 0x00, 0x00, 0x01, 0x02}},       // Panel driving
	{cmd: 0xC4, params: []byte{0x03}},                                     // Frame rate
	{cmd: 0xC5, params: []byte{0x01}},
	{cmd: 0xD2, params: []byte{0x01, 0x22}}, // Power for normal mode
	{cmd: 0xE7, params: []byte{0x38}},
	{cmd: 0xF3, params: []byte{0x08, 0x12, 0x12, 0x08}},
	{cmd: 0xC8, params: []byte{ // Gamma
		0x01, 0x52, 0x37, 0x10, 0x0D, 0x01, 0x04, 0x51,
		0x77, 0x01, 0x01, 0x0D, 0x08, 0x80, 0x00,
	}},
	{cmd: cmdDisplayOn, delayMs: 20, enter: DisplayOn},
}

// init pulses reset and replays initScript. Nothing is read back.
func (d *Dev) init() {
	d.state = Reset
	d.b.ResetPulse()
	d.clk.SleepMs(PostResetMs)

	for _, s := range initScript {
		d.b.WriteCmd(uint16(s.cmd))
		for _, p := range s.params {
			d.b.WriteData(uint16(p))
		}
		if s.enter != Reset {
			d.state = s.enter
		}
		if s.delayMs > 0 {
			d.clk.SleepMs(s.delayMs)
		}
	}
}
