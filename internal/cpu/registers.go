package cpu

import (
	"fmt"

	"goba/internal/psr"
)

// bank slots, in the order the source's collapsed bank index uses.
const (
	bankUser = iota
	bankFIQ
	bankIRQ
	bankSupervisor
	bankAbort
	bankUndefined
	bankCount
)

func bankIndex(mode uint8) int {
	switch mode {
	case psr.ModeUser, psr.ModeSystem:
		return bankUser
	case psr.ModeFIQ:
		return bankFIQ
	case psr.ModeIRQ:
		return bankIRQ
	case psr.ModeSupervisor:
		return bankSupervisor
	case psr.ModeAbort:
		return bankAbort
	case psr.ModeUndefined:
		return bankUndefined
	default:
		panic(fmt.Sprintf("registers: unknown mode field %#x", mode))
	}
}

// Registers is the ARM7TDMI register file: one active array of r0..r15 plus
// shadow banks for r13/r14 (six slots) and r8..r12 (FIQ only). Mode changes
// swap the active array against the bank once, in SwitchMode — the hot
// read/write path never resolves a bank.
type Registers struct {
	r [16]uint32

	bankedR13 [bankCount]uint32
	bankedR14 [bankCount]uint32

	userR8_12 [5]uint32
	fiqR8_12  [5]uint32

	cpsr psr.PSR

	spsrFIQ, spsrIRQ, spsrSVC, spsrABT, spsrUND psr.PSR
}

// NewRegisters returns a zeroed register file in System mode, per the
// core's construction lifecycle (Reset performs the separate Reset
// exception sequence that boots into Supervisor mode).
func NewRegisters() *Registers {
	regs := &Registers{}
	regs.cpsr.SetMode(psr.ModeSystem)
	return regs
}

// Read returns register i. r15 reads as the architectural PC: current
// instruction address + 8 (ARM) or + 4 (Thumb). r[15] itself already holds
// the next sequential instruction's address by the time an instruction
// executes (Step advances it before dispatch), so only the remaining
// offset — 4 in ARM state, 2 in Thumb state — is added here.
func (r *Registers) Read(i uint8) uint32 {
	if i == 15 {
		if r.cpsr.T() {
			return r.r[15] + 2
		}
		return r.r[15] + 4
	}
	return r.r[i]
}

// ReadRaw returns the stored value of register i with no pipeline offset
// applied, even for r15. Used by the step loop and exception entry, which
// need the address of the current instruction, not the architectural PC
// view software sees.
func (r *Registers) ReadRaw(i uint8) uint32 { return r.r[i] }

// Write stores v into register i with no side effects on mode.
func (r *Registers) Write(i uint8, v uint32) { r.r[i] = v }

// CPSR returns the current program status register.
func (r *Registers) CPSR() psr.PSR { return r.cpsr }

// SetCPSR overwrites the current program status register wholesale (used
// by MSR and by CPSR-restore-from-SPSR on exception return). It does not
// perform a bank switch by itself — callers that change the mode field
// must also call SwitchMode.
func (r *Registers) SetCPSR(v psr.PSR) { r.cpsr = v }

// SwitchMode atomically relocates r13/r14 (and r8..r12 when FIQ is either
// endpoint) into the bank for newMode, and updates CPSR's mode field. If the
// collapsed bank index is unchanged (User/System alias) only the mode field
// changes.
func (r *Registers) SwitchMode(newMode, oldMode uint8) {
	r.cpsr.SetMode(newMode)

	newIdx, oldIdx := bankIndex(newMode), bankIndex(oldMode)
	if newIdx == oldIdx {
		return
	}

	r.bankedR13[oldIdx] = r.r[13]
	r.bankedR14[oldIdx] = r.r[14]
	r.r[13] = r.bankedR13[newIdx]
	r.r[14] = r.bankedR14[newIdx]

	switch {
	case newMode == psr.ModeFIQ && oldMode != psr.ModeFIQ:
		copy(r.userR8_12[:], r.r[8:13])
		copy(r.r[8:13], r.fiqR8_12[:])
	case oldMode == psr.ModeFIQ && newMode != psr.ModeFIQ:
		copy(r.fiqR8_12[:], r.r[8:13])
		copy(r.r[8:13], r.userR8_12[:])
	}
}

// SPSR returns the saved PSR for the current mode. User and System have no
// SPSR of their own; by contract this returns CPSR as a fallback — a
// correct program never reads SPSR from those modes.
func (r *Registers) SPSR() psr.PSR {
	switch r.cpsr.Mode() {
	case psr.ModeFIQ:
		return r.spsrFIQ
	case psr.ModeIRQ:
		return r.spsrIRQ
	case psr.ModeSupervisor:
		return r.spsrSVC
	case psr.ModeAbort:
		return r.spsrABT
	case psr.ModeUndefined:
		return r.spsrUND
	default: // User, System
		return r.cpsr
	}
}

// SetSPSR writes the saved PSR for the current mode, falling back to CPSR
// in User/System for the same reason SPSR does.
func (r *Registers) SetSPSR(v psr.PSR) {
	switch r.cpsr.Mode() {
	case psr.ModeFIQ:
		r.spsrFIQ = v
	case psr.ModeIRQ:
		r.spsrIRQ = v
	case psr.ModeSupervisor:
		r.spsrSVC = v
	case psr.ModeAbort:
		r.spsrABT = v
	case psr.ModeUndefined:
		r.spsrUND = v
	default:
		r.cpsr = v
	}
}

// SetSPSRFor writes an explicit mode's SPSR, used by exception entry to
// save CPSR into the *new* mode's SPSR before switching to it. User and
// System have no SPSR; for those modes it does nothing.
func (r *Registers) SetSPSRFor(mode uint8, v psr.PSR) {
	switch mode {
	case psr.ModeFIQ:
		r.spsrFIQ = v
	case psr.ModeIRQ:
		r.spsrIRQ = v
	case psr.ModeSupervisor:
		r.spsrSVC = v
	case psr.ModeAbort:
		r.spsrABT = v
	case psr.ModeUndefined:
		r.spsrUND = v
	}
}

// readUserBank/writeUserBank access r8..r14 in the User bank regardless of
// current mode, used by LDM/STM's S-bit "user bank transfer" variant (STM
// with S set, or LDM with S set and r15 absent from the register list).
func (r *Registers) readUserBank(i uint8) uint32 {
	idx := bankIndex(r.cpsr.Mode())
	switch {
	case i >= 8 && i <= 12:
		if idx == bankFIQ {
			return r.userR8_12[i-8]
		}
		return r.r[i]
	case i == 13:
		if idx == bankUser {
			return r.r[13]
		}
		return r.bankedR13[bankUser]
	case i == 14:
		if idx == bankUser {
			return r.r[14]
		}
		return r.bankedR14[bankUser]
	}
	return r.r[i]
}

func (r *Registers) writeUserBank(i uint8, v uint32) {
	idx := bankIndex(r.cpsr.Mode())
	switch {
	case i >= 8 && i <= 12:
		if idx == bankFIQ {
			r.userR8_12[i-8] = v
		} else {
			r.r[i] = v
		}
	case i == 13:
		if idx == bankUser {
			r.r[13] = v
		} else {
			r.bankedR13[bankUser] = v
		}
	case i == 14:
		if idx == bankUser {
			r.r[14] = v
		} else {
			r.bankedR14[bankUser] = v
		}
	}
}

func (r *Registers) String() string {
	return fmt.Sprintf(
		"R0 =%08X R1 =%08X R2 =%08X R3 =%08X\n"+
			"R4 =%08X R5 =%08X R6 =%08X R7 =%08X\n"+
			"R8 =%08X R9 =%08X R10=%08X R11=%08X\n"+
			"R12=%08X SP =%08X LR =%08X PC =%08X\n"+
			"CPSR=%08X (%s %s N:%t Z:%t C:%t V:%t I:%t F:%t)",
		r.r[0], r.r[1], r.r[2], r.r[3],
		r.r[4], r.r[5], r.r[6], r.r[7],
		r.r[8], r.r[9], r.r[10], r.r[11],
		r.r[12], r.r[13], r.r[14], r.Read(15),
		r.cpsr.Value(), psr.ModeName(r.cpsr.Mode()), thumbLabel(r.cpsr.T()),
		r.cpsr.N(), r.cpsr.Z(), r.cpsr.C(), r.cpsr.V(), r.cpsr.I(), r.cpsr.F(),
	)
}

func thumbLabel(t bool) string {
	if t {
		return "THUMB"
	}
	return "ARM"
}
