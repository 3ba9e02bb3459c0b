//go:build tinygo && stm32f4

package clock

import "github.com/flavioheleno/hx8357d/mmio"

const (
	rccBase   = 0x40023800
	pwrBase   = 0x40007000
	flashBase = 0x40023C00
)

// F407Registers returns the RCC, PWR and FLASH registers of the STM32F407.
func F407Registers() Registers {
	return Registers{
		CR:      mmio.At32(rccBase + 0x00),
		PLLCFGR: mmio.At32(rccBase + 0x04),
		CFGR:    mmio.At32(rccBase + 0x08),
		APB1ENR: mmio.At32(rccBase + 0x40),
		PWRCR:   mmio.At32(pwrBase + 0x00),
		ACR:     mmio.At32(flashBase + 0x00),
	}
}
