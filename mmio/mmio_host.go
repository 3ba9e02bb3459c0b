//go:build !(tinygo && stm32f4)

package mmio

// Barrier is a no-op on the host, where registers are ordinary memory.
func Barrier() {}
