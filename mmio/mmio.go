// Package mmio describes memory-mapped peripheral registers.
//
// Drivers in this module never dereference raw addresses themselves. They are
// handed Register32/Register16 values, which on the target are bound to the
// peripheral address space (see At32 and At16) and on the host are backed by
// plain memory (Word and Half) or by a simulator.
package mmio

// Register32 is a 32-bit peripheral register.
type Register32 interface {
	Get() uint32
	Set(v uint32)
}

// Register16 is a 16-bit peripheral register.
//
// On the FSMC each Set or Get is exactly one bus transaction.
type Register16 interface {
	Get() uint16
	Set(v uint16)
}

// SetBits sets mask in r with a read-modify-write.
func SetBits(r Register32, mask uint32) {
	r.Set(r.Get() | mask)
}

// ClearBits clears mask in r with a read-modify-write.
func ClearBits(r Register32, mask uint32) {
	r.Set(r.Get() &^ mask)
}

// HasBits reports whether every bit of mask is set in r.
func HasBits(r Register32, mask uint32) bool {
	return r.Get()&mask == mask
}

// Field returns the bits of r selected by mask, shifted down by pos.
func Field(r Register32, mask uint32, pos uint) uint32 {
	return (r.Get() & mask) >> pos
}

// ReplaceBits clears mask in r and sets value in one write.
func ReplaceBits(r Register32, mask, value uint32) {
	r.Set(r.Get()&^mask | value&mask)
}

// Word is a memory-backed Register32.
type Word uint32

// Get returns the stored value.
func (w *Word) Get() uint32 { return uint32(*w) }

// Set stores v.
func (w *Word) Set(v uint32) { *w = Word(v) }

// Half is a memory-backed Register16.
type Half uint16

// Get returns the stored value.
func (h *Half) Get() uint16 { return uint16(*h) }

// Set stores v.
func (h *Half) Set(v uint16) { *h = Half(v) }
