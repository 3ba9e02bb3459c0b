// Package clocktest simulates the reset and clock control block of an
// STM32F4 so that clock bring-up can run on the host.
package clocktest

import (
	"fmt"

	"github.com/flavioheleno/hx8357d/clock"
	"github.com/flavioheleno/hx8357d/mmio"
)

// Op is one register write observed by the simulator.
type Op struct {
	Reg   string
	Value uint32
}

func (o Op) String() string {
	return fmt.Sprintf("%s=%#08x", o.Reg, o.Value)
}

// RCC is a simulated clock controller.
//
// Ready flags follow their enable bits on the next read unless the matching
// Stuck field is set, and CFGR.SWS mirrors CFGR.SW.
type RCC struct {
	// Fault injection
	StuckHSE    bool // HSERDY never rises
	StuckPLL    bool // PLLRDY never rises
	StuckUnlock bool // PLLRDY never falls
	StuckSwitch bool // SWS never follows SW

	// Ops records every write, in order.
	Ops []Op

	cr, pllcfgr, cfgr, apb1enr, pwrcr, acr uint32
}

// New returns a simulator in the reset state: HSI selected, PLL off.
func New() *RCC {
	return &RCC{pllcfgr: 0x24003010}
}

// Registers returns the register set to hand to clock.New.
func (r *RCC) Registers() clock.Registers {
	return clock.Registers{
		CR:      &reg{r, "CR", &r.cr},
		PLLCFGR: &reg{r, "PLLCFGR", &r.pllcfgr},
		CFGR:    &reg{r, "CFGR", &r.cfgr},
		APB1ENR: &reg{r, "APB1ENR", &r.apb1enr},
		PWRCR:   &reg{r, "PWR_CR", &r.pwrcr},
		ACR:     &reg{r, "FLASH_ACR", &r.acr},
	}
}

// RunFromPLL puts the simulator in the state left by an earlier bring-up:
// PLL locked and selected as the system clock.
func (r *RCC) RunFromPLL(pllcfgr uint32) {
	r.cr |= 1<<16 | 1<<17 | 1<<24 | 1<<25
	r.pllcfgr = pllcfgr
	r.cfgr = r.cfgr&^0xF | 0x2 | 0x2<<2
}

// Value returns the current content of the named register.
func (r *RCC) Value(name string) uint32 {
	switch name {
	case "CR":
		return r.cr
	case "PLLCFGR":
		return r.pllcfgr
	case "CFGR":
		return r.cfgr
	case "APB1ENR":
		return r.apb1enr
	case "PWR_CR":
		return r.pwrcr
	case "FLASH_ACR":
		return r.acr
	}
	panic("clocktest: unknown register " + name)
}

// Index returns the position in Ops of the first write to reg for which match
// returns true, or -1.
func (r *RCC) Index(reg string, match func(v uint32) bool) int {
	for i, op := range r.Ops {
		if op.Reg == reg && match(op.Value) {
			return i
		}
	}
	return -1
}

// settle updates status bits from control bits.
func (r *RCC) settle() {
	if r.cr&(1<<16) != 0 && !r.StuckHSE {
		r.cr |= 1 << 17
	} else if r.cr&(1<<16) == 0 {
		r.cr &^= 1 << 17
	}
	if r.cr&(1<<24) != 0 {
		if !r.StuckPLL {
			r.cr |= 1 << 25
		}
	} else if !r.StuckUnlock {
		r.cr &^= 1 << 25
	}
	if !r.StuckSwitch {
		r.cfgr = r.cfgr&^(0x3<<2) | (r.cfgr&0x3)<<2
	}
}

type reg struct {
	r    *RCC
	name string
	v    *uint32
}

func (g *reg) Get() uint32 {
	g.r.settle()
	return *g.v
}

func (g *reg) Set(v uint32) {
	switch g.name {
	case "CR":
		// Ready flags are read-only
		v = v&^(1<<17|1<<25) | *g.v&(1<<17|1<<25)
	case "CFGR":
		v = v&^(0x3<<2) | *g.v&(0x3<<2)
	}
	*g.v = v
	g.r.Ops = append(g.r.Ops, Op{Reg: g.name, Value: v})
}

var _ mmio.Register32 = (*reg)(nil)
