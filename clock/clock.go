// Package clock brings the STM32F407 system clock from the internal RC
// oscillator to the PLL, fed by the external crystal.
//
// Bring-up is one-way. A Sequencer runs at most once, and when it fails the
// chip is left wherever it stopped: the caller is expected to halt. Everything
// that depends on the bus frequency takes a Ready, which only a successful
// BringUp can produce.
package clock

import (
	"errors"
	"sync"

	"github.com/flavioheleno/hx8357d/mmio"
	"github.com/flavioheleno/hx8357d/wait"
	"periph.io/x/conn/v3/physic"
)

// Bring-up failures. All of them are fatal.
var (
	ErrOscillatorTimeout = errors.New("clock: external oscillator did not become ready")
	ErrPLLTimeout        = errors.New("clock: PLL did not lock")
	ErrSwitchTimeout     = errors.New("clock: system clock switch to PLL not confirmed")
)

// Registers are the registers touched during bring-up.
type Registers struct {
	CR      mmio.Register32 // RCC_CR
	PLLCFGR mmio.Register32 // RCC_PLLCFGR
	CFGR    mmio.Register32 // RCC_CFGR
	APB1ENR mmio.Register32 // RCC_APB1ENR
	PWRCR   mmio.Register32 // PWR_CR
	ACR     mmio.Register32 // FLASH_ACR
}

// Register bits.
const (
	crHSEON  = 1 << 16
	crHSERDY = 1 << 17
	crPLLON  = 1 << 24
	crPLLRDY = 1 << 25

	pllcfgrMPos   = 0
	pllcfgrNPos   = 6
	pllcfgrPPos   = 16
	pllcfgrSRCHSE = 1 << 22
	pllcfgrQPos   = 24

	cfgrSWMask   = 0x3
	cfgrSWHSI    = 0x0
	cfgrSWPLL    = 0x2
	cfgrSWSMask  = 0x3 << 2
	cfgrSWSPos   = 2
	cfgrHPREPos  = 4
	cfgrHPREMask = 0xF << cfgrHPREPos
	cfgrPPRE1Pos = 10
	cfgrPPRE1Msk = 0x7 << cfgrPPRE1Pos
	cfgrPPRE2Pos = 13
	cfgrPPRE2Msk = 0x7 << cfgrPPRE2Pos

	apb1enrPWREN = 1 << 28
	pwrcrVOS     = 1 << 14

	acrLatencyMask = 0x7
	acrPRFTEN      = 1 << 8
	acrICEN        = 1 << 9
	acrDCEN        = 1 << 10
)

// State is the progress of a Sequencer.
type State uint8

const (
	Uninitialized State = iota
	OscillatorStarting
	OscillatorReady
	PLLLocking
	PLLReady
	SwitchedToPLL
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case OscillatorStarting:
		return "OscillatorStarting"
	case OscillatorReady:
		return "OscillatorReady"
	case PLLLocking:
		return "PLLLocking"
	case PLLReady:
		return "PLLReady"
	case SwitchedToPLL:
		return "SwitchedToPLL"
	case Failed:
		return "Failed"
	}
	return "State(?)"
}

// Ready proves that the system clock runs from the PLL at a known frequency.
// The zero value is not a valid proof.
type Ready struct {
	plan *Plan
}

// Valid reports whether r was issued by a successful BringUp.
func (r Ready) Valid() bool {
	return r.plan != nil
}

// BusFrequency returns HCLK.
func (r Ready) BusFrequency() physic.Frequency {
	if r.plan == nil {
		return 0
	}
	return r.plan.Target / physic.Frequency(r.plan.AHBDiv)
}

// Plan returns the plan that was applied.
func (r Ready) Plan() Plan {
	if r.plan == nil {
		return Plan{}
	}
	return *r.plan
}

// Sequencer runs the clock bring-up.
type Sequencer struct {
	r    Registers
	plan Plan

	once  sync.Once
	state State
	err   error
	ready Ready
}

// New returns a Sequencer for plan. plan is validated before any register is
// touched.
func New(r Registers, plan Plan) (*Sequencer, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &Sequencer{r: r, plan: plan}, nil
}

// State returns the current progress.
func (s *Sequencer) State() State {
	return s.state
}

// Err returns the reason of a Failed state.
func (s *Sequencer) Err() error {
	return s.err
}

// BusFrequency returns HCLK, or 0 until BringUp succeeded.
func (s *Sequencer) BusFrequency() physic.Frequency {
	return s.ready.BusFrequency()
}

// BusFrequencyHz returns HCLK in Hz, or 0 until BringUp succeeded.
func (s *Sequencer) BusFrequencyHz() uint32 {
	return uint32(s.BusFrequency() / physic.Hertz)
}

// BringUp switches the system clock to the PLL.
//
// Only the first call does any work; later calls return the same result.
func (s *Sequencer) BringUp() (Ready, error) {
	s.once.Do(func() {
		if err := s.bringUp(); err != nil {
			s.state = Failed
			s.err = err
			return
		}
		s.ready = Ready{plan: &s.plan}
		s.state = SwitchedToPLL
	})
	return s.ready, s.err
}

func (s *Sequencer) bringUp() error {
	r := &s.r
	p := &s.plan

	// Start the crystal
	s.state = OscillatorStarting
	mmio.SetBits(r.CR, crHSEON)
	if err := s.poll(func() bool { return mmio.HasBits(r.CR, crHSERDY) }); err != nil {
		return ErrOscillatorTimeout
	}
	s.state = OscillatorReady

	// Regulator scale 1, required above 144MHz
	mmio.SetBits(r.APB1ENR, apb1enrPWREN)
	mmio.SetBits(r.PWRCR, pwrcrVOS)

	// Flash wait states must be in place before the clock goes up
	mmio.ReplaceBits(r.ACR, acrLatencyMask, p.FlashLatency)
	mmio.SetBits(r.ACR, acrPRFTEN|acrICEN|acrDCEN)

	// Bus prescalers, still running from the default clock
	hpre, _ := hpreBits(p.AHBDiv)
	ppre1, _ := ppreBits(p.APB1Div)
	ppre2, _ := ppreBits(p.APB2Div)
	mmio.ReplaceBits(r.CFGR, cfgrHPREMask|cfgrPPRE1Msk|cfgrPPRE2Msk,
		hpre<<cfgrHPREPos|ppre1<<cfgrPPRE1Pos|ppre2<<cfgrPPRE2Pos)

	// A PLL left running by an earlier configuration must be stopped before
	// PLLCFGR can be written. It cannot be stopped while it drives SYSCLK.
	if mmio.HasBits(r.CR, crPLLON) {
		if s.sysclkSource() == cfgrSWPLL {
			mmio.ReplaceBits(r.CFGR, cfgrSWMask, cfgrSWHSI)
			if err := s.poll(func() bool { return s.sysclkSource() == cfgrSWHSI }); err != nil {
				return ErrSwitchTimeout
			}
		}
		mmio.ClearBits(r.CR, crPLLON)
		if err := s.poll(func() bool { return !mmio.HasBits(r.CR, crPLLRDY) }); err != nil {
			return ErrPLLTimeout
		}
	}

	// Single write: every field of PLLCFGR at once
	r.PLLCFGR.Set(p.M<<pllcfgrMPos |
		p.N<<pllcfgrNPos |
		(p.P/2-1)<<pllcfgrPPos |
		pllcfgrSRCHSE |
		p.Q<<pllcfgrQPos)

	s.state = PLLLocking
	mmio.SetBits(r.CR, crPLLON)
	if err := s.poll(func() bool { return mmio.HasBits(r.CR, crPLLRDY) }); err != nil {
		return ErrPLLTimeout
	}
	s.state = PLLReady

	mmio.ReplaceBits(r.CFGR, cfgrSWMask, cfgrSWPLL)
	if err := s.poll(func() bool { return s.sysclkSource() == cfgrSWPLL }); err != nil {
		return ErrSwitchTimeout
	}
	return nil
}

// sysclkSource returns CFGR.SWS in the encoding of CFGR.SW.
func (s *Sequencer) sysclkSource() uint32 {
	return mmio.Field(s.r.CFGR, cfgrSWSMask, cfgrSWSPos)
}

func (s *Sequencer) poll(ready func() bool) error {
	return wait.Poll(s.plan.PollBudget, ready)
}
