//go:build tinygo && stm32f4

package pinmux

import "github.com/flavioheleno/hx8357d/mmio"

const (
	gpioBase   = 0x40020000
	gpioStride = 0x400
	rccAHB1ENR = 0x40023830
)

// F407Port returns the register block of port name ('A'..'I') and enables
// its clock.
func F407Port(name byte) *Port {
	i := uintptr(name - 'A')
	mmio.SetBits(mmio.At32(rccAHB1ENR), 1<<i)
	base := gpioBase + i*gpioStride
	return &Port{
		Name:    name,
		MODER:   mmio.At32(base + 0x00),
		OTYPER:  mmio.At32(base + 0x04),
		OSPEEDR: mmio.At32(base + 0x08),
		PUPDR:   mmio.At32(base + 0x0C),
		IDR:     mmio.At32(base + 0x10),
		ODR:     mmio.At32(base + 0x14),
		BSRR:    mmio.At32(base + 0x18),
		AFRL:    mmio.At32(base + 0x20),
		AFRH:    mmio.At32(base + 0x24),
	}
}
