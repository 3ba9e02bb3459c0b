// Package timer implements blocking microsecond delays on the STM32F4 basic
// timer TIM6.
//
// The timer counts at 1MHz in one-pulse mode. A delay arms it for at most
// 0xFFFF ticks and waits for the update flag, so longer delays are split into
// chunks.
package timer

import (
	"errors"

	"github.com/flavioheleno/hx8357d/clock"
	"github.com/flavioheleno/hx8357d/mmio"
	"github.com/flavioheleno/hx8357d/wait"
	"periph.io/x/conn/v3/physic"
)

// ErrStalled is returned when the update flag does not rise in time.
var ErrStalled = errors.New("timer: update event did not occur")

// Registers are the TIM6 registers used for delays.
type Registers struct {
	CR1 mmio.Register32
	SR  mmio.Register32
	EGR mmio.Register32
	CNT mmio.Register32
	PSC mmio.Register32
	ARR mmio.Register32
}

const (
	cr1CEN = 1 << 0
	cr1OPM = 1 << 3
	srUIF  = 1 << 0
	egrUG  = 1 << 0

	cfgrPPRE1Pos  = 10
	cfgrPPRE1Mask = 0x7 << cfgrPPRE1Pos

	// Tick is the counting frequency.
	Tick = physic.MegaHertz

	// MaxChunk is the longest single count, in ticks.
	MaxChunk = 0xFFFF
)

// Clock returns the TIM6 kernel clock for a plan: PCLK1, doubled when the
// APB1 prescaler divides.
func Clock(p clock.Plan) physic.Frequency {
	if p.APB1Div == 1 {
		return p.PCLK1()
	}
	return 2 * p.PCLK1()
}

// ClockFromCFGR derives the TIM6 kernel clock from HCLK and the RCC_CFGR
// value the chip is actually running with.
func ClockFromCFGR(hclk physic.Frequency, cfgr uint32) physic.Frequency {
	div := clock.APBDivider((cfgr & cfgrPPRE1Mask) >> cfgrPPRE1Pos)
	pclk1 := hclk / physic.Frequency(div)
	if div == 1 {
		return pclk1
	}
	return 2 * pclk1
}

// Prescaler returns the PSC value that brings clk down to Tick.
func Prescaler(clk physic.Frequency) uint32 {
	div := uint32(clk / Tick)
	if div == 0 {
		div = 1
	}
	return div - 1
}

// Delay blocks the caller on TIM6.
type Delay struct {
	r Registers

	// Iterations granted to the update flag poll of one chunk
	budget uint32
}

// New sets TIM6 up for one-pulse counting at Tick. The timer clock must be
// enabled.
func New(ready clock.Ready, r Registers) (*Delay, error) {
	if !ready.Valid() {
		return nil, errors.New("timer: clock is not running from the PLL")
	}
	plan := ready.Plan()
	clk := Clock(plan)

	r.PSC.Set(Prescaler(clk))
	mmio.SetBits(r.CR1, cr1OPM)
	r.ARR.Set(MaxChunk)
	r.CNT.Set(0)

	// Load PSC now rather than at the first overflow
	r.EGR.Set(egrUG)
	r.SR.Set(0)

	// One poll iteration is at least one CPU cycle, so this outlasts the
	// longest chunk.
	return &Delay{r: r, budget: MaxChunk * uint32(plan.HCLK()/Tick)}, nil
}

// Us blocks for us microseconds.
func (d *Delay) Us(us uint32) error {
	for us != 0 {
		chunk := min(us, MaxChunk)
		if err := d.chunk(chunk); err != nil {
			return err
		}
		us -= chunk
	}
	return nil
}

// Ms blocks for ms milliseconds.
func (d *Delay) Ms(ms uint32) error {
	total := uint64(ms) * 1000
	for total != 0 {
		chunk := min(total, MaxChunk)
		if err := d.chunk(uint32(chunk)); err != nil {
			return err
		}
		total -= chunk
	}
	return nil
}

// chunk counts ticks (1..MaxChunk) once.
func (d *Delay) chunk(ticks uint32) error {
	r := &d.r
	mmio.ClearBits(r.CR1, cr1CEN)
	r.SR.Set(0)
	r.CNT.Set(0)
	r.ARR.Set(ticks - 1)

	// UG reloads ARR and raises UIF; clear it before counting
	r.EGR.Set(egrUG)
	r.SR.Set(0)

	mmio.SetBits(r.CR1, cr1CEN)
	err := wait.Poll(d.budget, func() bool { return mmio.HasBits(r.SR, srUIF) })
	r.SR.Set(0)
	if err != nil {
		return ErrStalled
	}
	return nil
}
