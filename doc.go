// Package hx8357d controls an HX8357D TFT display attached to the FSMC of an
// STM32F407.
//
// The HX8357D is a 320×480 RGB controller. It is driven over a 16-bit
// 8080-style parallel bus that the FSMC maps into memory, so every command and
// pixel is a single bus write. This driver implements the Displayer interface
// from tinygo.org/x/drivers.
//
// # Display Characteristics
//
// - 320×480 pixels, portrait
// - 16-bit RGB565 color (see package rgb565)
// - No frame buffer on the MCU side: pixels are written straight to the
// controller memory
// - Rectangle fills stream one bus word per pixel
//
// # Hardware Connection
//
// The panel sits on FSMC bank 1, sub-bank 4, with register select on A6:
//
//	Display Pin → MCU Pin
//	D0..D15     → PD14 PD15 PD0 PD1 PE7..PE15 PD8 PD9 PD10 (AF12)
//	RD          → PD4 (FSMC_NOE)
//	WR          → PD5 (FSMC_NWE)
//	RS          → PF12 (FSMC_A6)
//	CS          → PG12 (FSMC_NE4)
//	RST         → PD3, active low
//	BL          → PB15, active high
//
// Commands are written at 0x6C000000 and data at 0x6C000080.
//
// # Bring-up Order
//
// The bus timings assume a 168MHz HCLK, so the clock tree comes first and
// every layer takes proof that the previous one succeeded:
//
//	seq, _ := clock.New(clock.F407Registers(), clock.F407HSE8)
//	ready, err := seq.BringUp()
//	if err != nil {
//		// Fatal: halt
//	}
//
//	bus, _ := fsmc.Configure(ready, fsmc.F407Bank4(), fsmc.HX8357D168MHz, mmio.Barrier)
//	conn := lcdbus.New(bus, bus.Port16(bus.Base()), bus.Port16(bus.Addr(lcdbus.RSLine)), rst, bl, clk)
//	conn.BacklightOn()
//
//	dev, _ := hx8357d.New(conn, clk, nil)
//	dev.Clear(rgb565.Black)
//	dev.FillRect(0, 0, 80, 80, rgb565.Red)
//
// # Initialization
//
// New pulses the reset line (20ms low, 50ms settle), waits another 50ms and
// replays a fixed register script: extended commands, sleep out (120ms),
// RGB565 pixel format, power, timing and gamma, then display on (20ms).
// The script is fire-and-forget; nothing is read back from the controller.
//
// # Clipping
//
// Every drawing call clips the same way:
//
// - A zero width or height draws nothing
// - An origin outside the display draws nothing
// - An area running past the right or bottom edge is cut at the edge
//
// # Performance
//
// With the default write timing (32 HCLK cycles per access at 168MHz) a bus
// write takes about 190ns, so a full-screen Clear is roughly 30ms.
package hx8357d
