// Package board drives the user I/O of the STM32F407 explorer board: two
// LEDs, a buzzer and four push buttons.
package board

import (
	"fmt"

	"github.com/flavioheleno/hx8357d/wait"
	"periph.io/x/conn/v3/gpio"
)

// LED identifies one of the board LEDs.
type LED uint8

const (
	LED0 LED = iota // PF9
	LED1            // PF10
)

func (l LED) String() string {
	switch l {
	case LED0:
		return "LED0"
	case LED1:
		return "LED1"
	}
	return fmt.Sprintf("LED(%d)", uint8(l))
}

// LEDs drives the active-low board LEDs.
type LEDs struct {
	pins [2]gpio.PinOut
	on   [2]bool
}

// NewLEDs returns the LEDs with both turned off.
func NewLEDs(led0, led1 gpio.PinOut) (*LEDs, error) {
	l := &LEDs{pins: [2]gpio.PinOut{led0, led1}}
	for i, p := range l.pins {
		if err := p.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("board: failed to turn %s off: %w", LED(i), err)
		}
	}
	return l, nil
}

// On lights id. Unknown LEDs are ignored.
func (l *LEDs) On(id LED) {
	l.set(id, true)
}

// Off turns id off. Unknown LEDs are ignored.
func (l *LEDs) Off(id LED) {
	l.set(id, false)
}

// Toggle inverts id. Unknown LEDs are ignored.
func (l *LEDs) Toggle(id LED) {
	switch id {
	case LED0, LED1:
		l.set(id, !l.on[id])
	}
}

// IsOn reports whether id is lit.
func (l *LEDs) IsOn(id LED) bool {
	switch id {
	case LED0, LED1:
		return l.on[id]
	}
	return false
}

func (l *LEDs) set(id LED, on bool) {
	switch id {
	case LED0, LED1:
		// Active low. Out on an output line has no failure mode.
		_ = l.pins[id].Out(gpio.Level(!on))
		l.on[id] = on
	}
}

// Buzzer drives the active-high buzzer on PF8.
type Buzzer struct {
	p  gpio.PinOut
	on bool
}

// NewBuzzer returns the buzzer, silenced.
func NewBuzzer(p gpio.PinOut) (*Buzzer, error) {
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("board: failed to silence buzzer: %w", err)
	}
	return &Buzzer{p: p}, nil
}

// On starts the buzzer.
func (b *Buzzer) On() {
	b.set(true)
}

// Off stops the buzzer.
func (b *Buzzer) Off() {
	b.set(false)
}

// Toggle inverts the buzzer.
func (b *Buzzer) Toggle() {
	b.set(!b.on)
}

// IsOn reports whether the buzzer sounds.
func (b *Buzzer) IsOn() bool {
	return b.on
}

func (b *Buzzer) set(on bool) {
	_ = b.p.Out(gpio.Level(on))
	b.on = on
}

// Key identifies a push button.
type Key uint8

const (
	KeyNone Key = iota
	KeyWKUP     // PA0, active high
	Key0        // PE4, active low
	Key1        // PE3, active low
	Key2        // PE2, active low
)

func (k Key) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeyWKUP:
		return "WKUP"
	case Key0:
		return "KEY0"
	case Key1:
		return "KEY1"
	case Key2:
		return "KEY2"
	}
	return fmt.Sprintf("Key(%d)", uint8(k))
}

// DebounceMs is how long a press must hold before Scan reports it.
const DebounceMs = 20

// Keys reads the push buttons.
type Keys struct {
	wkup gpio.PinIn
	k    [3]gpio.PinIn // KEY0, KEY1, KEY2

	clk wait.Clock
}

// NewKeys configures the button inputs: pull-down on WKUP, pull-up on the
// others.
func NewKeys(wkup, key0, key1, key2 gpio.PinIn, clk wait.Clock) (*Keys, error) {
	if err := wkup.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("board: failed to configure %s: %w", KeyWKUP, err)
	}
	k := &Keys{wkup: wkup, k: [3]gpio.PinIn{key0, key1, key2}, clk: clk}
	for i, p := range k.k {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("board: failed to configure %s: %w", Key0+Key(i), err)
		}
	}
	return k, nil
}

// Read returns the highest priority key held right now, without debouncing.
// WKUP wins over KEY0, which wins over KEY1, then KEY2.
func (k *Keys) Read() Key {
	if k.wkup.Read() == gpio.High {
		return KeyWKUP
	}
	for i, p := range k.k {
		if p.Read() == gpio.Low {
			return Key0 + Key(i)
		}
	}
	return KeyNone
}

// Scan returns the pressed key once it held for DebounceMs, or KeyNone.
//
// It blocks for DebounceMs whenever a key is down.
func (k *Keys) Scan() Key {
	key := k.Read()
	if key == KeyNone {
		return KeyNone
	}
	k.clk.SleepMs(DebounceMs)
	if k.Read() == key {
		return key
	}
	return KeyNone
}

// WaitRelease blocks until no key is held, for at most ms milliseconds.
func (k *Keys) WaitRelease(ms uint32) error {
	if err := wait.Within(k.clk, ms, func() bool { return k.Read() == KeyNone }); err != nil {
		return fmt.Errorf("board: key still held after %dms: %w", ms, err)
	}
	return nil
}
