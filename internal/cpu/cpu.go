// Package cpu implements an ARM7TDMI interpreter: ARM and Thumb instruction
// decoding and execution, the banked register file, the barrel shifter, and
// exception entry.
package cpu

import (
	"fmt"

	"goba/internal/psr"
	"goba/util/dbg"
)

// Bus is everything the CPU needs from the system bus. Defined here rather
// than imported from a shared interfaces package: there is exactly one
// concrete Bus implementation, so the extra indirection bought nothing but
// an import to keep in sync.
type Bus interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, v uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, v uint16)
	Read32(addr uint32) uint32
	Write32(addr uint32, v uint32)
}

// exception vector addresses, in address order.
const (
	vectorReset     = 0x00000000
	vectorUndefined = 0x00000004
	vectorSWI       = 0x00000008
	vectorPrefetch  = 0x0000000C
	vectorDataAbort = 0x00000010
	vectorIRQ       = 0x00000018
	vectorFIQ       = 0x0000001C
)

type exceptionKind int

const (
	excReset exceptionKind = iota
	excUndefined
	excSWI
	excIRQ
	excFIQ
)

// CPU is the ARM7TDMI interpreter core: register file, condition/ALU
// execution, and exception entry. It owns no memory of its own — all loads
// and stores go through Bus.
type CPU struct {
	regs *Registers
	bus  Bus

	halted bool
}

// NewCPU returns a CPU wired to bus, with zeroed registers (see
// NewRegisters). Call Reset to perform the architectural boot sequence.
func NewCPU(bus Bus) *CPU {
	return &CPU{regs: NewRegisters(), bus: bus}
}

func (c *CPU) Registers() *Registers { return c.regs }

// Halted reports whether the core is parked in low-power state (HALTCNT).
// The frame driver skips Step calls while this is true; only an enabled,
// pending interrupt un-halts it.
func (c *CPU) Halted() bool   { return c.halted }
func (c *CPU) SetHalted(h bool) { c.halted = h }

// Reset performs the Reset exception entry: PC to the reset vector,
// Supervisor mode, IRQ and FIQ disabled, Thumb cleared.
func (c *CPU) Reset() {
	c.regs = NewRegisters()
	c.enterException(excReset, 0)
	c.halted = false
}

// Step executes exactly one instruction (ARM or Thumb, depending on CPSR.T)
// at the current PC and advances PC by the instruction's length — unless
// the instruction itself redirected control flow (branch, BX, data
// processing into r15, exception entry), in which case PC already points
// at the flushed pipeline's target and is left untouched here.
func (c *CPU) Step() {
	pc := c.regs.ReadRaw(15)
	if c.regs.CPSR().T() {
		word := c.bus.Read16(pc)
		c.regs.Write(15, pc+2)
		c.stepThumb(word)
	} else {
		word := c.bus.Read32(pc)
		c.regs.Write(15, pc+4)
		c.stepARM(word)
	}
}

// flushARM redirects execution to target in ARM state; flushThumb does the
// same in Thumb state. Both clear the low alignment bits of target, per the
// architecture's requirement that a branch destination realigns the PC.
func (c *CPU) flushARM(target uint32) {
	c.regs.Write(15, target&^0x3)
}

func (c *CPU) flushThumb(target uint32) {
	c.regs.Write(15, target&^0x1)
}

// checkCondition evaluates the 4-bit condition field against CPSR. NV has
// no ARMv4T opcode assigned to it; per the architecture note carried into
// this core, an NV-coded instruction is treated as met rather than skipped.
func (c *CPU) checkCondition(cond Cond) bool {
	p := c.regs.CPSR()
	switch cond {
	case EQ:
		return p.Z()
	case NE:
		return !p.Z()
	case CS:
		return p.C()
	case CC:
		return !p.C()
	case MI:
		return p.N()
	case PL:
		return !p.N()
	case VS:
		return p.V()
	case VC:
		return !p.V()
	case HI:
		return p.C() && !p.Z()
	case LS:
		return !p.C() || p.Z()
	case GE:
		return p.N() == p.V()
	case LT:
		return p.N() != p.V()
	case GT:
		return !p.Z() && p.N() == p.V()
	case LE:
		return p.Z() || p.N() != p.V()
	case AL, NV:
		return true
	}
	return true
}

// setLogicalFlags sets N and Z from result and C from the shifter's carry-out;
// V is left untouched, per the architecture's logical-operation flag rules.
func (c *CPU) setLogicalFlags(result uint32, carryOut bool) {
	p := c.regs.CPSR()
	p.SetN(result&0x80000000 != 0)
	p.SetZ(result == 0)
	p.SetC(carryOut)
	c.regs.SetCPSR(p)
}

// setArithmeticFlags sets N, Z, C and V from an addition/subtraction result.
func (c *CPU) setArithmeticFlags(result uint32, carryOut, overflow bool) {
	p := c.regs.CPSR()
	p.SetN(result&0x80000000 != 0)
	p.SetZ(result == 0)
	p.SetC(carryOut)
	p.SetV(overflow)
	c.regs.SetCPSR(p)
}

func addCarryOut(a, b uint32) bool {
	return uint64(a)+uint64(b) > 0xFFFFFFFF
}

func addOverflow(a, b, result uint32) bool {
	return (a^result)&(b^result)&0x80000000 != 0
}

// subCarryOut follows the ARM convention: carry set means no borrow occurred.
func subCarryOut(a, b uint32) bool {
	return a >= b
}

func subOverflow(a, b, result uint32) bool {
	return (a^b)&(a^result)&0x80000000 != 0
}

// enterException performs the shared exception-entry sequence: save CPSR
// into the target mode's SPSR before switching to it, clear T, force F for
// Reset/FIQ, force I, compute LR, and set PC to the vector. For
// Undefined/SWI, rawPC must already be the return address (the caller
// knows the excepting instruction's size); for IRQ/FIQ, rawPC is the
// address of the not-yet-executed next instruction, and this function
// adds the architectural +4 itself.
func (c *CPU) enterException(kind exceptionKind, rawPC uint32) {
	old := c.regs.CPSR()

	var targetMode uint8
	var vector, lrOffset uint32
	var forceF bool

	switch kind {
	case excReset:
		targetMode, vector, lrOffset, forceF = psr.ModeSupervisor, vectorReset, 0, true
	case excUndefined:
		targetMode, vector, lrOffset = psr.ModeUndefined, vectorUndefined, rawPC
	case excSWI:
		targetMode, vector, lrOffset = psr.ModeSupervisor, vectorSWI, rawPC
	case excIRQ:
		targetMode, vector, lrOffset = psr.ModeIRQ, vectorIRQ, rawPC+4
	case excFIQ:
		targetMode, vector, lrOffset, forceF = psr.ModeFIQ, vectorFIQ, rawPC+4, true
	}

	if kind != excReset {
		c.regs.SetSPSRFor(targetMode, old)
	}

	c.regs.SwitchMode(targetMode, old.Mode())
	c.regs.Write(14, lrOffset)

	newCPSR := c.regs.CPSR()
	newCPSR.SetT(false)
	newCPSR.SetI(true)
	if forceF {
		newCPSR.SetF(true)
	}
	c.regs.SetCPSR(newCPSR)

	c.flushARM(vector)
}

// RaiseIRQ delivers a maskable interrupt, honoring CPSR.I and un-halting
// the core if it was parked in HALTCNT low-power state.
func (c *CPU) RaiseIRQ() {
	if c.regs.CPSR().I() {
		return
	}
	c.halted = false
	c.enterException(excIRQ, c.regs.ReadRaw(15))
}

// RaiseFIQ delivers a fast interrupt, honoring CPSR.F. The GBA's own
// interrupt controller never asserts FIQ (its one source line is tied
// off), but the architecture — and the exception-entry path shared with
// IRQ — supports it, so it's exposed the same way.
func (c *CPU) RaiseFIQ() {
	if c.regs.CPSR().F() {
		return
	}
	c.halted = false
	c.enterException(excFIQ, c.regs.ReadRaw(15))
}

// undefined enters the Undefined-instruction exception. PC (ReadRaw(15))
// already holds the return address at call time, since Step advances it
// past the excepting instruction before dispatch, in both ARM and Thumb
// state — the caller doesn't need to compute an offset.
func (c *CPU) undefined(instrAddr uint32) {
	dbg.Printf("undefined instruction at PC=%08X", instrAddr)
	c.enterException(excUndefined, c.regs.ReadRaw(15))
}

// softwareInterrupt enters the SWI exception. returnAddr must already be
// the address of the instruction following the SWI (instruction address +
// 4 in ARM state, + 2 in Thumb state) — the caller knows the excepting
// instruction's size, this function doesn't.
func (c *CPU) softwareInterrupt(comment uint32, returnAddr uint32) {
	dbg.Printf("SWI %06X", comment)
	c.enterException(excSWI, returnAddr)
}

func (c *CPU) String() string {
	return fmt.Sprintf("%s\nhalted=%t", c.regs.String(), c.halted)
}
