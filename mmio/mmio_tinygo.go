//go:build tinygo && stm32f4

package mmio

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"
)

// At32 binds a Register32 to a peripheral address.
func At32(addr uintptr) Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// At16 binds a Register16 to a peripheral address.
func At16(addr uintptr) Register16 {
	return (*volatile.Register16)(unsafe.Pointer(addr))
}

// Barrier completes outstanding memory accesses and flushes the pipeline
// (DSB followed by ISB).
func Barrier() {
	arm.Asm("dsb 0xF")
	arm.Asm("isb 0xF")
}
