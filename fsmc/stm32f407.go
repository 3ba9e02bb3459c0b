//go:build tinygo && stm32f4

package fsmc

import "github.com/flavioheleno/hx8357d/mmio"

const (
	bank1Base  = 0xA0000000
	rccAHB3ENR = 0x40023838
	ahb3FSMCEN = 1 << 0
)

// F407Bank4 enables the controller clock and returns the registers of
// sub-bank NE4.
func F407Bank4() Bank {
	mmio.SetBits(mmio.At32(rccAHB3ENR), ahb3FSMCEN)
	return Bank{
		BCR:  mmio.At32(bank1Base + 0x18),
		BTR:  mmio.At32(bank1Base + 0x1C),
		BWTR: mmio.At32(bank1Base + 0x11C),
		Base: NE4Base,
	}
}

// Port16 returns the 16-bit location at addr inside a configured bank window.
func (c Configured) Port16(addr uintptr) mmio.Register16 {
	return mmio.At16(addr)
}
