// Package frame implements the single-threaded frame driver: it steps the
// CPU and bus in lockstep for one fixed-size frame budget, injecting any
// interrupt the bus has latched before each instruction and skipping
// stepping while the core is halted.
package frame

import (
	"goba/internal/bus"
	"goba/internal/cpu"
	"goba/internal/io"
)

// CyclesPerFrame is the nominal GBA frame budget: 228 scanlines of 1232
// cycles each.
const CyclesPerFrame = 228 * 1232

// Driver owns one frame's worth of scheduling. It holds no state of its
// own — CPU, Bus and IORegs carry everything.
type Driver struct {
	CPU *cpu.CPU
	Bus *bus.Bus

	IORegs *io.IORegs
}

func NewDriver(c *cpu.CPU, b *bus.Bus, ioRegs *io.IORegs) *Driver {
	return &Driver{CPU: c, Bus: b, IORegs: ioRegs}
}

// RunFrame advances the system by one frame: CyclesPerFrame cycles,
// approximated as one cycle per instruction since this core does not model
// per-instruction timing. Each iteration: inject a pending interrupt (if
// any and if enabled), step the CPU unless halted, then tick the bus/PPU
// by the same notional cycle.
func (d *Driver) RunFrame() {
	for cycles := 0; cycles < CyclesPerFrame; cycles++ {
		if d.IORegs.PendingIRQ() {
			d.CPU.RaiseIRQ()
		}
		if !d.CPU.Halted() {
			d.CPU.Step()
		}
		d.Bus.Step(1)
	}
}
