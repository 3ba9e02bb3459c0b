// Package pinmux configures STM32F4 GPIO ports and exposes single pins as
// periph gpio.PinIO lines.
package pinmux

import (
	"errors"
	"fmt"
	"time"

	"github.com/flavioheleno/hx8357d/mmio"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Mode is the MODER field value of a pin.
type Mode uint32

const (
	Input   Mode = 0
	Output  Mode = 1
	AltFunc Mode = 2
	Analog  Mode = 3
)

// Speed is the OSPEEDR field value of a pin.
type Speed uint32

const (
	LowSpeed      Speed = 0
	MediumSpeed   Speed = 1
	HighSpeed     Speed = 2
	VeryHighSpeed Speed = 3
)

// Config is the complete configuration of one pin.
type Config struct {
	Mode      Mode
	OpenDrain bool
	Speed     Speed
	Pull      gpio.Pull // PullNoChange leaves PUPDR untouched
	AF        uint8     // alternate function, used when Mode is AltFunc
}

// Port is the register block of one GPIO port.
type Port struct {
	Name byte // 'A'..'I'

	MODER, OTYPER, OSPEEDR, PUPDR mmio.Register32
	IDR, ODR, BSRR                mmio.Register32
	AFRL, AFRH                    mmio.Register32
}

// Configure applies cfg to pin.
func (p *Port) Configure(pin uint8, cfg Config) {
	s2 := uint(pin) * 2
	mmio.ReplaceBits(p.MODER, 0x3<<s2, uint32(cfg.Mode)<<s2)

	otype := uint32(0)
	if cfg.OpenDrain {
		otype = 1 << pin
	}
	mmio.ReplaceBits(p.OTYPER, 1<<pin, otype)
	mmio.ReplaceBits(p.OSPEEDR, 0x3<<s2, uint32(cfg.Speed)<<s2)

	if cfg.Pull != gpio.PullNoChange {
		mmio.ReplaceBits(p.PUPDR, 0x3<<s2, pupdr(cfg.Pull)<<s2)
	}

	if cfg.Mode == AltFunc {
		afr, s4 := p.AFRL, uint(pin)*4
		if pin >= 8 {
			afr, s4 = p.AFRH, uint(pin-8)*4
		}
		mmio.ReplaceBits(afr, 0xF<<s4, uint32(cfg.AF&0xF)<<s4)
	}
}

// ConfigureAF puts pin in push-pull alternate function af at the highest
// slew rate, without pull resistors.
func (p *Port) ConfigureAF(pin, af uint8) {
	p.Configure(pin, Config{Mode: AltFunc, Speed: VeryHighSpeed, Pull: gpio.Float, AF: af})
}

// ConfigureOutput puts pin in push-pull output mode and drives it to l.
//
// The level is latched before the pin switches to output so it never
// glitches.
func (p *Port) ConfigureOutput(pin uint8, l gpio.Level) {
	p.write(pin, l)
	p.Configure(pin, Config{Mode: Output, Speed: HighSpeed, Pull: gpio.Float})
}

// ConfigureInput puts pin in input mode with the given pull resistor.
func (p *Port) ConfigureInput(pin uint8, pull gpio.Pull) {
	p.Configure(pin, Config{Mode: Input, Pull: pull})
}

// Line returns pin as a gpio.PinIO.
func (p *Port) Line(pin uint8) *Line {
	return &Line{port: p, pin: pin}
}

func (p *Port) write(pin uint8, l gpio.Level) {
	if l {
		p.BSRR.Set(1 << pin)
	} else {
		p.BSRR.Set(1 << (pin + 16))
	}
}

func pupdr(pull gpio.Pull) uint32 {
	switch pull {
	case gpio.PullUp:
		return 1
	case gpio.PullDown:
		return 2
	}
	return 0
}

// Line is a single GPIO pin.
type Line struct {
	port *Port
	pin  uint8
}

// String returns the pin name, e.g. "PD3".
func (l *Line) String() string {
	return l.Name()
}

// Halt is a no-op.
func (l *Line) Halt() error {
	return nil
}

// Name returns the pin name, e.g. "PD3".
func (l *Line) Name() string {
	return fmt.Sprintf("P%c%d", l.port.Name, l.pin)
}

// Number returns the pin index across ports (PA0 is 0, PB0 is 16).
func (l *Line) Number() int {
	return int(l.port.Name-'A')*16 + int(l.pin)
}

// Function returns the current function as a string.
//
// Deprecated: Use Func.
func (l *Line) Function() string {
	return string(l.Func())
}

// Func returns the current pin function.
func (l *Line) Func() pin.Func {
	switch l.mode() {
	case Input:
		if l.Read() {
			return gpio.IN_HIGH
		}
		return gpio.IN_LOW
	case Output:
		if mmio.HasBits(l.port.ODR, 1<<l.pin) {
			return gpio.OUT_HIGH
		}
		return gpio.OUT_LOW
	case AltFunc:
		return pin.Func(fmt.Sprintf("AF%d", l.af()))
	}
	return pin.FuncNone
}

// SupportedFuncs returns the functions that SetFunc accepts.
func (l *Line) SupportedFuncs() []pin.Func {
	return []pin.Func{gpio.IN, gpio.OUT}
}

// SetFunc switches the pin to input or output.
func (l *Line) SetFunc(f pin.Func) error {
	switch f {
	case gpio.IN:
		return l.In(gpio.PullNoChange, gpio.NoEdge)
	case gpio.OUT:
		return l.Out(gpio.Level(mmio.HasBits(l.port.ODR, 1<<l.pin)))
	}
	return fmt.Errorf("pinmux: %s: unsupported function %q", l, f)
}

// In configures the pin as an input. Edge detection is not supported.
func (l *Line) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return errors.New("pinmux: edge detection is not supported")
	}
	l.port.ConfigureInput(l.pin, pull)
	return nil
}

// Read returns the input level of the pin.
func (l *Line) Read() gpio.Level {
	return gpio.Level(mmio.HasBits(l.port.IDR, 1<<l.pin))
}

// WaitForEdge always returns false.
func (l *Line) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull returns the configured pull resistor.
func (l *Line) Pull() gpio.Pull {
	switch mmio.Field(l.port.PUPDR, 0x3<<(uint(l.pin)*2), uint(l.pin)*2) {
	case 1:
		return gpio.PullUp
	case 2:
		return gpio.PullDown
	}
	return gpio.Float
}

// DefaultPull returns gpio.Float, the reset state of most pins.
func (l *Line) DefaultPull() gpio.Pull {
	return gpio.Float
}

// Out drives the pin to level, switching it to output mode if needed.
func (l *Line) Out(level gpio.Level) error {
	if l.mode() != Output {
		l.port.ConfigureOutput(l.pin, level)
		return nil
	}
	l.port.write(l.pin, level)
	return nil
}

// PWM is not supported.
func (l *Line) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("pinmux: PWM is not supported")
}

// Toggle inverts the output latch of the pin.
func (l *Line) Toggle() {
	l.port.write(l.pin, gpio.Level(!mmio.HasBits(l.port.ODR, 1<<l.pin)))
}

func (l *Line) mode() Mode {
	return Mode(mmio.Field(l.port.MODER, 0x3<<(uint(l.pin)*2), uint(l.pin)*2))
}

func (l *Line) af() uint32 {
	if l.pin >= 8 {
		return mmio.Field(l.port.AFRH, 0xF<<(uint(l.pin-8)*4), uint(l.pin-8)*4)
	}
	return mmio.Field(l.port.AFRL, 0xF<<(uint(l.pin)*4), uint(l.pin)*4)
}

var _ gpio.PinIO = (*Line)(nil)
var _ pin.PinFunc = (*Line)(nil)
