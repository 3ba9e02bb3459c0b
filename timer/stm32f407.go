//go:build tinygo && stm32f4

package timer

import "github.com/flavioheleno/hx8357d/mmio"

const (
	tim6Base    = 0x40001000
	rccAPB1RSTR = 0x40023820
	rccAPB1ENR  = 0x40023840
	apb1TIM6    = 1 << 4
)

// F407TIM6 enables and resets TIM6 and returns its registers.
func F407TIM6() Registers {
	mmio.SetBits(mmio.At32(rccAPB1ENR), apb1TIM6)
	rst := mmio.At32(rccAPB1RSTR)
	mmio.SetBits(rst, apb1TIM6)
	mmio.ClearBits(rst, apb1TIM6)
	return Registers{
		CR1: mmio.At32(tim6Base + 0x00),
		SR:  mmio.At32(tim6Base + 0x10),
		EGR: mmio.At32(tim6Base + 0x14),
		CNT: mmio.At32(tim6Base + 0x24),
		PSC: mmio.At32(tim6Base + 0x28),
		ARR: mmio.At32(tim6Base + 0x2C),
	}
}
