// Package lcdbus is the command/data link to an 8080-style display
// controller mapped into the FSMC address space.
//
// Every method is one or more single bus transactions. There is no error
// path: once the bank is configured, memory-mapped writes cannot fail in a
// way the CPU can observe.
package lcdbus

import (
	"github.com/flavioheleno/hx8357d/fsmc"
	"github.com/flavioheleno/hx8357d/mmio"
	"github.com/flavioheleno/hx8357d/wait"
	"periph.io/x/conn/v3/gpio"
)

// Reset pulse timing, in milliseconds. Both are minimums required by the
// controller.
const (
	ResetHoldMs   = 20
	ResetSettleMs = 50
)

// RSLine is the address line wired to the register select input.
const RSLine = 6

// Conn is a link to one display controller.
type Conn struct {
	cmd  mmio.Register16 // RS low
	data mmio.Register16 // RS high

	rst gpio.PinOut // active low
	bl  gpio.PinOut // active high

	clk wait.Clock
}

// New returns a Conn on a configured bank. cmd and data are the locations
// with register select low and high.
func New(cfg fsmc.Configured, cmd, data mmio.Register16, rst, bl gpio.PinOut, clk wait.Clock) *Conn {
	if !cfg.Valid() {
		panic("lcdbus: bus timing not configured")
	}
	return &Conn{cmd: cmd, data: data, rst: rst, bl: bl, clk: clk}
}

// ResetPulse holds the controller in reset for ResetHoldMs, releases it and
// waits ResetSettleMs.
//
// Errors from the reset and backlight lines are dropped: Out on a configured
// output line has no failure mode, and the link has no error path.
func (c *Conn) ResetPulse() {
	_ = c.rst.Out(gpio.Low)
	c.clk.SleepMs(ResetHoldMs)
	_ = c.rst.Out(gpio.High)
	c.clk.SleepMs(ResetSettleMs)
}

// BacklightSet turns the backlight on or off.
func (c *Conn) BacklightSet(on bool) {
	_ = c.bl.Out(gpio.Level(on))
}

// BacklightOn turns the backlight on.
func (c *Conn) BacklightOn() {
	c.BacklightSet(true)
}

// BacklightOff turns the backlight off.
func (c *Conn) BacklightOff() {
	c.BacklightSet(false)
}

// WriteCmd sends a command code.
func (c *Conn) WriteCmd(code uint16) {
	c.cmd.Set(code)
}

// WriteData sends one data word. 8-bit parameters go in the low byte.
func (c *Conn) WriteData(v uint16) {
	c.data.Set(v)
}

// ReadData reads one data word.
func (c *Conn) ReadData() uint16 {
	return c.data.Get()
}

// ReadDataDummy discards the first read after a read command, as the
// controller requires, and returns the second.
func (c *Conn) ReadDataDummy() uint16 {
	_ = c.data.Get()
	return c.data.Get()
}
