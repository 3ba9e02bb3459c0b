// Package fsmc configures bank 1 of the STM32F4 flexible static memory
// controller for an 8080-style 16-bit display interface.
//
// The display sits on sub-bank NE4. One address line (register select) tells
// the panel whether a bus cycle carries a command or data, so the panel shows
// up as two 16-bit locations. Configure must succeed before those locations
// are accessed; its result is required to build a display connection.
package fsmc

import (
	"errors"
	"fmt"
	"time"

	"github.com/flavioheleno/hx8357d/clock"
	"github.com/flavioheleno/hx8357d/mmio"
	"github.com/flavioheleno/hx8357d/pinmux"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// AccessMode is the extended access mode (BTR.ACCMOD).
type AccessMode uint8

const (
	ModeA AccessMode = 0
	ModeB AccessMode = 1
	ModeC AccessMode = 2
	ModeD AccessMode = 3
)

// Timing is one direction of a bus timing profile, in HCLK cycles.
type Timing struct {
	AddrSetup     uint8 // ADDSET, 0..15
	AddrHold      uint8 // ADDHLD, 0..15 (used by mode D only)
	DataSetup     uint8 // DATAST, 1..255
	BusTurnaround uint8 // BUSTURN, 0..15
	Mode          AccessMode
}

// BTR field positions.
const (
	btrADDSETPos  = 0
	btrADDHLDPos  = 4
	btrDATASTPos  = 8
	btrBUSTURNPos = 16
	btrACCMODPos  = 28
)

// Word returns the BTR/BWTR register value for t.
func (t Timing) Word() uint32 {
	return uint32(t.AddrSetup&0xF)<<btrADDSETPos |
		uint32(t.AddrHold&0xF)<<btrADDHLDPos |
		uint32(t.DataSetup)<<btrDATASTPos |
		uint32(t.BusTurnaround&0xF)<<btrBUSTURNPos |
		uint32(t.Mode&0x3)<<btrACCMODPos
}

// Cycles returns the length of one access in HCLK cycles.
func (t Timing) Cycles() uint32 {
	n := uint32(t.AddrSetup) + uint32(t.DataSetup) + 1 + uint32(t.BusTurnaround)
	if t.Mode == ModeD {
		n += uint32(t.AddrHold)
	}
	return n
}

// Cycle returns the length of one access at hclk.
func (t Timing) Cycle(hclk physic.Frequency) time.Duration {
	hz := uint64(hclk / physic.Hertz)
	if hz == 0 {
		return 0
	}
	return time.Duration(uint64(t.Cycles()) * uint64(time.Second) / hz)
}

func (t Timing) validate(dir string) error {
	if t.AddrSetup > 15 {
		return fmt.Errorf("fsmc: %s address setup must be between 0 and 15", dir)
	}
	if t.AddrHold > 15 {
		return fmt.Errorf("fsmc: %s address hold must be between 0 and 15", dir)
	}
	if t.DataSetup == 0 {
		return fmt.Errorf("fsmc: %s data phase must be at least 1 cycle", dir)
	}
	if t.BusTurnaround > 15 {
		return fmt.Errorf("fsmc: %s bus turnaround must be between 0 and 15", dir)
	}
	if t.Mode > ModeD {
		return fmt.Errorf("fsmc: %s access mode %d is invalid", dir, t.Mode)
	}
	return nil
}

// Profile holds independent read and write timings.
type Profile struct {
	Read  Timing
	Write Timing
}

// HX8357D168MHz is the profile for an HX8357D at HCLK 168MHz. Reads are much
// slower than writes on this controller.
var HX8357D168MHz = Profile{
	Read:  Timing{AddrSetup: 0x0F, AddrHold: 0, DataSetup: 0x60, BusTurnaround: 0, Mode: ModeA},
	Write: Timing{AddrSetup: 0x0F, AddrHold: 0, DataSetup: 0x10, BusTurnaround: 0, Mode: ModeA},
}

// Validate checks that every field fits its register.
func (p *Profile) Validate() error {
	if err := p.Read.validate("read"); err != nil {
		return err
	}
	return p.Write.validate("write")
}

// Bank is the register set of one NOR/SRAM sub-bank.
type Bank struct {
	BCR  mmio.Register32 // control
	BTR  mmio.Register32 // read (and default) timing
	BWTR mmio.Register32 // write timing, used when EXTMOD is set

	Base uintptr // start of the sub-bank address window
}

// BCR bits.
const (
	bcrMBKEN  = 1 << 0
	bcrMWID16 = 1 << 4
	bcrWREN   = 1 << 12
	bcrEXTMOD = 1 << 14
)

// NE4Base is the address window of sub-bank 4.
const NE4Base = 0x6C000000

// Configured proves that a bank was set up for 16-bit access.
type Configured struct {
	base    uintptr
	hclk    physic.Frequency
	profile Profile
}

// Valid reports whether c was issued by Configure.
func (c Configured) Valid() bool {
	return c.base != 0
}

// Base returns the start of the bank window. A cycle at this address has every
// address line low.
func (c Configured) Base() uintptr {
	return c.base
}

// Addr returns the address that raises address line A<line> and nothing else.
//
// In 16-bit mode the controller shifts the internal byte address right by one,
// so A<n> is byte address bit n+1.
func (c Configured) Addr(line uint) uintptr {
	return c.base + 1<<(line+1)
}

// Profile returns the applied timings.
func (c Configured) Profile() Profile {
	return c.profile
}

// WriteCycle returns the duration of one write access.
func (c Configured) WriteCycle() time.Duration {
	return c.profile.Write.Cycle(c.hclk)
}

// ReadCycle returns the duration of one read access.
func (c Configured) ReadCycle() time.Duration {
	return c.profile.Read.Cycle(c.hclk)
}

// Configure programs b for a 16-bit SRAM-type device with separate read and
// write timings, then enables it.
//
// barrier runs after the bank is enabled and must order the register writes
// before the first access to the bank window; pass mmio.Barrier.
func Configure(ready clock.Ready, b Bank, p Profile, barrier func()) (Configured, error) {
	if !ready.Valid() {
		return Configured{}, errors.New("fsmc: clock is not running from the PLL")
	}
	if err := p.Validate(); err != nil {
		return Configured{}, err
	}
	if b.Base == 0 {
		return Configured{}, errors.New("fsmc: bank base address is required")
	}

	// Timings may only change with the bank disabled
	mmio.ClearBits(b.BCR, bcrMBKEN)
	b.BCR.Set(bcrMWID16 | bcrWREN | bcrEXTMOD)
	b.BTR.Set(p.Read.Word())
	b.BWTR.Set(p.Write.Word())
	mmio.SetBits(b.BCR, bcrMBKEN)
	if barrier != nil {
		barrier()
	}

	return Configured{base: b.Base, hclk: ready.BusFrequency(), profile: p}, nil
}

// Pin is one GPIO pin routed to the controller.
type Pin struct {
	Port byte
	Num  uint8
}

func (p Pin) String() string {
	return fmt.Sprintf("P%c%d", p.Port, p.Num)
}

// AF12 selects the FSMC on every pin of LCDPins.
const AF12 = 12

// LCDPins are the pins of a 16-bit bus with RS on A6 and chip select NE4.
var LCDPins = []Pin{
	// D2, D3, NOE, NWE, D13, D14, D15, D0, D1
	{'D', 0}, {'D', 1}, {'D', 4}, {'D', 5}, {'D', 8}, {'D', 9}, {'D', 10}, {'D', 14}, {'D', 15},
	// D4..D12
	{'E', 7}, {'E', 8}, {'E', 9}, {'E', 10}, {'E', 11}, {'E', 12}, {'E', 13}, {'E', 14}, {'E', 15},
	// A6 (RS)
	{'F', 12},
	// NE4
	{'G', 12},
}

// ConfigurePins routes pins to the controller. port returns the register block
// of a port by name.
func ConfigurePins(pins []Pin, port func(name byte) *pinmux.Port) error {
	for _, p := range pins {
		gp := port(p.Port)
		if gp == nil {
			return fmt.Errorf("fsmc: no GPIO port for %s", p)
		}
		if p.Num > 15 {
			return fmt.Errorf("fsmc: invalid pin %s", p)
		}
		gp.Configure(p.Num, pinmux.Config{
			Mode:  pinmux.AltFunc,
			Speed: pinmux.VeryHighSpeed,
			Pull:  gpio.Float,
			AF:    AF12,
		})
	}
	return nil
}
