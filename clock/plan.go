package clock

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// Plan is a complete description of the clock tree to bring up.
type Plan struct {
	// External crystal
	HSE physic.Frequency

	// Main PLL: VCO = HSE/M*N, SYSCLK = VCO/P, USB/SDIO = VCO/Q
	M, N, P, Q uint32

	// Expected SYSCLK; BringUp publishes this value as the bus frequency
	Target physic.Frequency

	// Flash wait states required at Target with VDD 2.7-3.6V
	FlashLatency uint32

	// Bus prescalers (AHB 1..512, APB 1..16)
	AHBDiv, APB1Div, APB2Div uint32

	// Iterations granted to each readiness poll
	PollBudget uint32
}

// F407HSE8 runs an STM32F407 at 168MHz from an 8MHz crystal.
var F407HSE8 = Plan{
	HSE:          8 * physic.MegaHertz,
	M:            8,
	N:            336,
	P:            2,
	Q:            7,
	Target:       168 * physic.MegaHertz,
	FlashLatency: 5,
	AHBDiv:       1,
	APB1Div:      4,
	APB2Div:      2,
	PollBudget:   0x4FFFFF,
}

// VCOIn returns the PLL input frequency.
func (p *Plan) VCOIn() physic.Frequency {
	return p.HSE / physic.Frequency(p.M)
}

// VCO returns the PLL VCO output frequency.
func (p *Plan) VCO() physic.Frequency {
	return p.VCOIn() * physic.Frequency(p.N)
}

// SysClk returns the frequency the PLL produces for the system clock.
func (p *Plan) SysClk() physic.Frequency {
	return p.VCO() / physic.Frequency(p.P)
}

// HCLK returns the AHB bus frequency.
func (p *Plan) HCLK() physic.Frequency {
	return p.SysClk() / physic.Frequency(p.AHBDiv)
}

// PCLK1 returns the APB1 bus frequency.
func (p *Plan) PCLK1() physic.Frequency {
	return p.HCLK() / physic.Frequency(p.APB1Div)
}

// PCLK2 returns the APB2 bus frequency.
func (p *Plan) PCLK2() physic.Frequency {
	return p.HCLK() / physic.Frequency(p.APB2Div)
}

// Validate checks every field against the limits of the part and verifies
// that the PLL really produces Target.
func (p *Plan) Validate() error {
	if p.HSE < 4*physic.MegaHertz || p.HSE > 26*physic.MegaHertz {
		return errors.New("clock: HSE must be between 4MHz and 26MHz")
	}
	if p.M < 2 || p.M > 63 {
		return errors.New("clock: PLLM must be between 2 and 63")
	}
	if p.N < 50 || p.N > 432 {
		return errors.New("clock: PLLN must be between 50 and 432")
	}
	if p.P < 2 || p.P > 8 || p.P%2 != 0 {
		return errors.New("clock: PLLP must be 2, 4, 6 or 8")
	}
	if p.Q < 2 || p.Q > 15 {
		return errors.New("clock: PLLQ must be between 2 and 15")
	}
	if in := p.VCOIn(); in < physic.MegaHertz || in > 2*physic.MegaHertz {
		return fmt.Errorf("clock: PLL input %s out of range 1MHz..2MHz", in)
	}
	if vco := p.VCO(); vco < 100*physic.MegaHertz || vco > 432*physic.MegaHertz {
		return fmt.Errorf("clock: VCO %s out of range 100MHz..432MHz", vco)
	}
	if got := p.SysClk(); got != p.Target {
		return fmt.Errorf("clock: PLL produces %s, plan targets %s", got, p.Target)
	}
	if p.Target > 168*physic.MegaHertz {
		return errors.New("clock: target exceeds 168MHz")
	}
	if p.FlashLatency > 7 {
		return errors.New("clock: flash latency must be between 0 and 7")
	}
	if p.FlashLatency < minLatency(p.HCLK()) {
		return fmt.Errorf("clock: %d wait states are too few for %s", p.FlashLatency, p.HCLK())
	}
	if _, err := hpreBits(p.AHBDiv); err != nil {
		return err
	}
	if _, err := ppreBits(p.APB1Div); err != nil {
		return err
	}
	if _, err := ppreBits(p.APB2Div); err != nil {
		return err
	}
	if p.PCLK1() > 42*physic.MegaHertz {
		return fmt.Errorf("clock: APB1 at %s exceeds 42MHz", p.PCLK1())
	}
	if p.PCLK2() > 84*physic.MegaHertz {
		return fmt.Errorf("clock: APB2 at %s exceeds 84MHz", p.PCLK2())
	}
	return nil
}

// minLatency returns the flash wait states required at hclk for a 2.7-3.6V
// supply (one wait state per 30MHz).
func minLatency(hclk physic.Frequency) uint32 {
	return uint32((hclk - 1) / (30 * physic.MegaHertz))
}

// hpreBits encodes an AHB divider into the CFGR.HPRE field value.
func hpreBits(div uint32) (uint32, error) {
	switch div {
	case 1:
		return 0x0, nil
	case 2:
		return 0x8, nil
	case 4:
		return 0x9, nil
	case 8:
		return 0xA, nil
	case 16:
		return 0xB, nil
	case 64:
		return 0xC, nil
	case 128:
		return 0xD, nil
	case 256:
		return 0xE, nil
	case 512:
		return 0xF, nil
	}
	return 0, fmt.Errorf("clock: invalid AHB divider %d", div)
}

// ppreBits encodes an APB divider into a CFGR.PPREx field value.
func ppreBits(div uint32) (uint32, error) {
	switch div {
	case 1:
		return 0x0, nil
	case 2:
		return 0x4, nil
	case 4:
		return 0x5, nil
	case 8:
		return 0x6, nil
	case 16:
		return 0x7, nil
	}
	return 0, fmt.Errorf("clock: invalid APB divider %d", div)
}

// APBDivider decodes a CFGR.PPREx field value into its divider.
func APBDivider(bits uint32) uint32 {
	if bits&0x4 == 0 {
		return 1
	}
	return 2 << (bits & 0x3)
}
