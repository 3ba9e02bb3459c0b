package clock_test

import (
	"errors"
	"testing"

	"github.com/flavioheleno/hx8357d/clock"
	"github.com/flavioheleno/hx8357d/clock/clocktest"
	"periph.io/x/conn/v3/physic"
)

// fastPlan keeps failing polls short.
func fastPlan() clock.Plan {
	p := clock.F407HSE8
	p.PollBudget = 16
	return p
}

func TestF407HSE8(t *testing.T) {
	p := clock.F407HSE8
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	tests := []struct {
		name string
		got  physic.Frequency
		want physic.Frequency
	}{
		{"VCO input", p.VCOIn(), physic.MegaHertz},
		{"VCO", p.VCO(), 336 * physic.MegaHertz},
		{"SYSCLK", p.SysClk(), 168 * physic.MegaHertz},
		{"HCLK", p.HCLK(), 168 * physic.MegaHertz},
		{"PCLK1", p.PCLK1(), 42 * physic.MegaHertz},
		{"PCLK2", p.PCLK2(), 84 * physic.MegaHertz},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *clock.Plan)
	}{
		{"PLLM too small", func(p *clock.Plan) { p.M = 1 }},
		{"odd PLLP", func(p *clock.Plan) { p.P = 3 }},
		{"PLLN too large", func(p *clock.Plan) { p.N = 500 }},
		{"PLLQ too small", func(p *clock.Plan) { p.Q = 1 }},
		{"target mismatch", func(p *clock.Plan) { p.N = 320 }},
		{"VCO input too high", func(p *clock.Plan) { p.M = 2; p.N = 84 }},
		{"too few wait states", func(p *clock.Plan) { p.FlashLatency = 4 }},
		{"bad AHB divider", func(p *clock.Plan) { p.AHBDiv = 32 }},
		{"bad APB divider", func(p *clock.Plan) { p.APB2Div = 3 }},
		{"APB1 too fast", func(p *clock.Plan) { p.APB1Div = 2 }},
		{"HSE out of range", func(p *clock.Plan) { p.HSE = 32 * physic.MegaHertz }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := clock.F407HSE8
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected error but didn't get one")
			}
			if _, err := clock.New(clocktest.New().Registers(), p); err == nil {
				t.Error("New() accepted an invalid plan")
			}
		})
	}
}

func TestAPBDivider(t *testing.T) {
	for bits, want := range map[uint32]uint32{0: 1, 3: 1, 4: 2, 5: 4, 6: 8, 7: 16} {
		if got := clock.APBDivider(bits); got != want {
			t.Errorf("APBDivider(%d) = %d, want %d", bits, got, want)
		}
	}
}

func TestBringUp(t *testing.T) {
	rcc := clocktest.New()
	s, err := clock.New(rcc.Registers(), clock.F407HSE8)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.BusFrequencyHz(); got != 0 {
		t.Errorf("BusFrequencyHz() before BringUp = %d, want 0", got)
	}

	ready, err := s.BringUp()
	if err != nil {
		t.Fatalf("BringUp() = %v", err)
	}
	if !ready.Valid() {
		t.Error("BringUp() returned an invalid Ready")
	}
	if got := s.State(); got != clock.SwitchedToPLL {
		t.Errorf("State() = %s, want SwitchedToPLL", got)
	}
	if got := s.BusFrequencyHz(); got != 168000000 {
		t.Errorf("BusFrequencyHz() = %d, want 168000000", got)
	}
	if got := ready.BusFrequency(); got != 168*physic.MegaHertz {
		t.Errorf("Ready.BusFrequency() = %s, want 168MHz", got)
	}

	regs := []struct {
		name string
		want uint32
	}{
		{"PLLCFGR", 0x07405408},
		{"CFGR", 0x0000940A},
		{"FLASH_ACR", 0x00000705},
		{"APB1ENR", 1 << 28},
		{"PWR_CR", 1 << 14},
		{"CR", 1<<16 | 1<<17 | 1<<24 | 1<<25},
	}
	for _, r := range regs {
		if got := rcc.Value(r.name); got != r.want {
			t.Errorf("%s = %#08x, want %#08x", r.name, got, r.want)
		}
	}
}

func TestBringUpOrder(t *testing.T) {
	rcc := clocktest.New()
	s, err := clock.New(rcc.Registers(), clock.F407HSE8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.BringUp(); err != nil {
		t.Fatal(err)
	}

	hseOn := rcc.Index("CR", func(v uint32) bool { return v&(1<<16) != 0 })
	vos := rcc.Index("PWR_CR", func(v uint32) bool { return v&(1<<14) != 0 })
	latency := rcc.Index("FLASH_ACR", func(v uint32) bool { return v&0x7 == 5 })
	prescalers := rcc.Index("CFGR", func(v uint32) bool { return v&0xFFF0 == 0x9400 })
	pllcfgr := rcc.Index("PLLCFGR", func(uint32) bool { return true })
	pllOn := rcc.Index("CR", func(v uint32) bool { return v&(1<<24) != 0 })
	switchPLL := rcc.Index("CFGR", func(v uint32) bool { return v&0x3 == 0x2 })

	order := []struct {
		name string
		idx  int
	}{
		{"HSEON", hseOn},
		{"VOS", vos},
		{"flash latency", latency},
		{"prescalers", prescalers},
		{"PLLCFGR", pllcfgr},
		{"PLLON", pllOn},
		{"SW=PLL", switchPLL},
	}
	for i, o := range order {
		if o.idx < 0 {
			t.Fatalf("%s was never written: %v", o.name, rcc.Ops)
		}
		if i > 0 && o.idx <= order[i-1].idx {
			t.Errorf("%s (op %d) not after %s (op %d)", o.name, o.idx, order[i-1].name, order[i-1].idx)
		}
	}

	writes := 0
	for _, op := range rcc.Ops {
		if op.Reg == "PLLCFGR" {
			writes++
		}
	}
	if writes != 1 {
		t.Errorf("PLLCFGR written %d times, want exactly 1", writes)
	}
}

func TestBringUpFailures(t *testing.T) {
	tests := []struct {
		name    string
		fault   func(r *clocktest.RCC)
		want    error
		pllcfgr bool
		onlyCR  bool // nothing past the oscillator start may be written
	}{
		{"oscillator", func(r *clocktest.RCC) { r.StuckHSE = true }, clock.ErrOscillatorTimeout, false, true},
		{"PLL lock", func(r *clocktest.RCC) { r.StuckPLL = true }, clock.ErrPLLTimeout, true, false},
		{"clock switch", func(r *clocktest.RCC) { r.StuckSwitch = true }, clock.ErrSwitchTimeout, true, false},
		{"PLL unlock", func(r *clocktest.RCC) {
			r.StuckUnlock = true
			r.RunFromPLL(0x07405408)
			r.StuckSwitch = false
		}, clock.ErrPLLTimeout, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rcc := clocktest.New()
			tt.fault(rcc)
			s, err := clock.New(rcc.Registers(), fastPlan())
			if err != nil {
				t.Fatal(err)
			}

			ready, err := s.BringUp()
			if !errors.Is(err, tt.want) {
				t.Fatalf("BringUp() = %v, want %v", err, tt.want)
			}
			if ready.Valid() {
				t.Error("failed BringUp() returned a valid Ready")
			}
			if got := s.State(); got != clock.Failed {
				t.Errorf("State() = %s, want Failed", got)
			}
			if !errors.Is(s.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", s.Err(), tt.want)
			}
			if got := s.BusFrequencyHz(); got != 0 {
				t.Errorf("BusFrequencyHz() = %d after failure, want 0", got)
			}
			wrote := rcc.Index("PLLCFGR", func(uint32) bool { return true }) >= 0
			if wrote != tt.pllcfgr {
				t.Errorf("PLLCFGR written = %v, want %v", wrote, tt.pllcfgr)
			}
			if got := rcc.Value("CFGR") & 0x3; got == 0x2 && tt.want != clock.ErrSwitchTimeout {
				t.Error("system clock switched to PLL after a failure")
			}
			if tt.onlyCR {
				if len(rcc.Ops) != 1 || rcc.Ops[0].Reg != "CR" || rcc.Ops[0].Value != 1<<16 {
					t.Errorf("writes = %v, want only CR=HSEON", rcc.Ops)
				}
			}
		})
	}
}

func TestBringUpWithRunningPLL(t *testing.T) {
	rcc := clocktest.New()
	rcc.RunFromPLL(0x04401008)
	s, err := clock.New(rcc.Registers(), clock.F407HSE8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.BringUp(); err != nil {
		t.Fatalf("BringUp() = %v", err)
	}

	toHSI := rcc.Index("CFGR", func(v uint32) bool { return v&0x3 == 0x0 })
	pllOff := rcc.Index("CR", func(v uint32) bool { return v&(1<<24) == 0 })
	pllcfgr := rcc.Index("PLLCFGR", func(uint32) bool { return true })
	if toHSI < 0 || pllOff < 0 || pllcfgr < 0 {
		t.Fatalf("missing writes: %v", rcc.Ops)
	}
	if !(toHSI < pllOff && pllOff < pllcfgr) {
		t.Errorf("order HSI=%d PLLOFF=%d PLLCFGR=%d, want increasing", toHSI, pllOff, pllcfgr)
	}
	if got := rcc.Value("PLLCFGR"); got != 0x07405408 {
		t.Errorf("PLLCFGR = %#08x, want 0x07405408", got)
	}
}

func TestBringUpOnce(t *testing.T) {
	rcc := clocktest.New()
	rcc.StuckHSE = true
	s, err := clock.New(rcc.Registers(), fastPlan())
	if err != nil {
		t.Fatal(err)
	}
	_, first := s.BringUp()
	ops := len(rcc.Ops)

	rcc.StuckHSE = false
	_, second := s.BringUp()
	if first != second {
		t.Errorf("second BringUp() = %v, want %v", second, first)
	}
	if len(rcc.Ops) != ops {
		t.Errorf("second BringUp() wrote %d registers, want none", len(rcc.Ops)-ops)
	}
}
