package cpu

import "goba/internal/psr"

// stepARM decodes and executes a single ARM-state instruction word. PC has
// already been advanced past it by Step, so the instruction's own address
// (instrAddr) is PC-4; it gives the SWI return address and the address
// logged for an undefined instruction.
func (c *CPU) stepARM(word uint32) {
	cond := Cond((word >> 28) & 0xF)
	if !c.checkCondition(cond) {
		return
	}

	instrAddr := c.regs.ReadRaw(15) - 4

	switch inst := decodeARM(word).(type) {
	case dataProcessing:
		c.execDataProcessing(inst)
	case branch:
		c.execBranch(inst)
	case branchExchange:
		c.execBranchExchange(inst)
	case psrTransferMRS:
		c.execMRS(inst)
	case psrTransferMSR:
		c.execMSR(inst)
	case multiply:
		c.execMultiply(inst)
	case multiplyLong:
		c.execMultiplyLong(inst)
	case singleTransfer:
		c.execSingleTransfer(inst)
	case halfwordTransfer:
		c.execHalfwordTransfer(inst)
	case blockTransfer:
		c.execBlockTransfer(inst)
	case swap:
		c.execSwap(inst)
	case softwareInterrupt:
		c.softwareInterrupt(inst.comment, instrAddr+4)
	case undefinedInstruction:
		c.undefined(instrAddr)
	}
}

// operand2 computes the data-processing second operand and its shifter
// carry-out. carryIn is CPSR.C: it is passed through unchanged by an
// immediate with a zero rotation, by LSL #0 and by any shift whose register
// amount is 0, and it is the bit RRX rotates in. An immediate with a nonzero
// rotation carries out bit 31 of the rotated value.
func (c *CPU) operand2(inst dataProcessing) (uint32, bool) {
	carryIn := c.regs.CPSR().C()
	if inst.imm {
		v := rotateRight(uint32(inst.imm8), uint32(inst.rotate)*2)
		if inst.rotate != 0 {
			return v, v&0x80000000 != 0
		}
		return v, carryIn
	}

	rm := c.regs.Read(inst.rm)
	var amount uint32
	if inst.regShift {
		amount = c.regs.Read(inst.rs) & 0xFF
		// A register-specified shift reads Rm and Rn (if any) with the
		// pipeline's extra +4 due to the additional internal cycle.
		if inst.rm == 15 {
			rm += 4
		}
	} else {
		amount = uint32(inst.shiftImm)
	}
	return shift(inst.shiftType, rm, amount, inst.regShift, carryIn)
}

func (c *CPU) execDataProcessing(inst dataProcessing) {
	op2, shifterCarry := c.operand2(inst)
	rn := c.regs.Read(inst.rn)
	// A register-specified shift reads Rn, like Rm, with the pipeline's
	// extra +4 due to the additional internal cycle.
	if inst.regShift && inst.rn == 15 {
		rn += 4
	}

	var result uint32
	var writesRd = true
	var logical = true

	switch inst.op {
	case opAND:
		result = rn & op2
	case opEOR:
		result = rn ^ op2
	case opSUB:
		result = rn - op2
		logical = false
	case opRSB:
		result = op2 - rn
		logical = false
	case opADD:
		result = rn + op2
		logical = false
	case opADC:
		carry := uint32(0)
		if c.regs.CPSR().C() {
			carry = 1
		}
		result = rn + op2 + carry
		logical = false
	case opSBC:
		carry := uint32(0)
		if c.regs.CPSR().C() {
			carry = 1
		}
		result = rn - op2 + carry - 1
		logical = false
	case opRSC:
		carry := uint32(0)
		if c.regs.CPSR().C() {
			carry = 1
		}
		result = op2 - rn + carry - 1
		logical = false
	case opTST:
		result = rn & op2
		writesRd = false
	case opTEQ:
		result = rn ^ op2
		writesRd = false
	case opCMP:
		result = rn - op2
		logical = false
		writesRd = false
	case opCMN:
		result = rn + op2
		logical = false
		writesRd = false
	case opORR:
		result = rn | op2
	case opMOV:
		result = op2
	case opBIC:
		result = rn &^ op2
	case opMVN:
		result = ^op2
	}

	if writesRd {
		c.regs.Write(inst.rd, result)
		if inst.rd == 15 {
			if inst.s {
				// Returning from an exception handler: restore CPSR from
				// the current mode's SPSR and perform the matching bank
				// switch, then flush on the new mode's instruction set.
				spsr := c.regs.SPSR()
				old := c.regs.CPSR()
				c.regs.SwitchMode(spsr.Mode(), old.Mode())
				c.regs.SetCPSR(spsr)
				if spsr.T() {
					c.flushThumb(result)
				} else {
					c.flushARM(result)
				}
				return
			}
			c.flushARM(result)
			return
		}
	}

	if inst.s {
		if logical {
			c.setLogicalFlags(result, shifterCarry)
		} else {
			switch inst.op {
			case opSUB, opCMP:
				c.setArithmeticFlags(result, subCarryOut(rn, op2), subOverflow(rn, op2, result))
			case opRSB:
				c.setArithmeticFlags(result, subCarryOut(op2, rn), subOverflow(op2, rn, result))
			case opADD, opCMN:
				c.setArithmeticFlags(result, addCarryOut(rn, op2), addOverflow(rn, op2, result))
			case opADC:
				carryIn := uint64(0)
				if c.regs.CPSR().C() {
					carryIn = 1
				}
				c.setArithmeticFlags(result, uint64(rn)+uint64(op2)+carryIn > 0xFFFFFFFF, addOverflow(rn, op2, result))
			case opSBC:
				borrowIn := uint64(1)
				if c.regs.CPSR().C() {
					borrowIn = 0
				}
				c.setArithmeticFlags(result, uint64(rn) >= uint64(op2)+borrowIn, subOverflow(rn, op2, result))
			case opRSC:
				borrowIn := uint64(1)
				if c.regs.CPSR().C() {
					borrowIn = 0
				}
				c.setArithmeticFlags(result, uint64(op2) >= uint64(rn)+borrowIn, subOverflow(op2, rn, result))
			}
		}
	}
}

func (c *CPU) execBranch(inst branch) {
	pc := c.regs.ReadRaw(15)
	if inst.link {
		// LR gets the address of the instruction after the branch: PC
		// already holds that (it was advanced by 4 in Step before decode).
		c.regs.Write(14, pc)
	}
	// Read(15) already applies the ARM +8 pipeline offset relative to this
	// instruction's own address, so the architectural target
	// PC_fetch+8+offset is just Read(15)+offset.
	target := uint32(int32(c.regs.Read(15)) + inst.offset)
	c.flushARM(target)
}

func (c *CPU) execBranchExchange(inst branchExchange) {
	target := c.regs.Read(inst.rm)
	thumb := target&1 != 0
	p := c.regs.CPSR()
	p.SetT(thumb)
	c.regs.SetCPSR(p)
	if thumb {
		c.flushThumb(target)
	} else {
		c.flushARM(target)
	}
}

func (c *CPU) execMRS(inst psrTransferMRS) {
	var v uint32
	if inst.spsr {
		v = c.regs.SPSR().Value()
	} else {
		v = c.regs.CPSR().Value()
	}
	c.regs.Write(inst.rd, v)
}

func (c *CPU) execMSR(inst psrTransferMSR) {
	var v uint32
	if inst.imm {
		v = rotateRight(uint32(inst.imm8), uint32(inst.rotate)*2)
	} else {
		v = c.regs.Read(inst.rm)
	}

	privileged := psr.Privileged(c.regs.CPSR().Mode())

	var target, mask uint32
	if inst.spsr {
		target = c.regs.SPSR().Value()
	} else {
		target = c.regs.CPSR().Value()
	}

	if inst.fieldMask&0x8 != 0 {
		mask |= 0xFF000000 // flags (f)
	}
	if privileged {
		if inst.fieldMask&0x1 != 0 {
			mask |= 0x000000FF // control (c): mode, I, F, T
		}
		if inst.fieldMask&0x2 != 0 {
			mask |= 0x0000FF00 // extension (x) — unused on ARMv4T, kept for mask fidelity
		}
		if inst.fieldMask&0x4 != 0 {
			mask |= 0x00FF0000 // status (s) — unused on ARMv4T, kept for mask fidelity
		}
	}

	result := (target &^ mask) | (v & mask)

	if inst.spsr {
		var sp psr.PSR
		sp.SetValue(result)
		c.regs.SetSPSR(sp)
		return
	}

	old := c.regs.CPSR()
	var newP psr.PSR
	newP.SetValue(result)
	// Changing T via MSR to CPSR is undefined per the architecture; refuse
	// it silently by keeping the instruction set the core was already in.
	newP.SetT(old.T())
	if !privileged {
		// User mode MSR to CPSR may only ever touch the flag byte; the
		// mask computation above already enforces that, but the mode
		// field must be left exactly as it was.
		newP.SetMode(old.Mode())
	}
	newMode := newP.Mode()
	if newMode != old.Mode() {
		c.regs.SwitchMode(newMode, old.Mode())
		newP = c.regs.CPSR()
		newP.SetValue(result)
		newP.SetMode(newMode)
		newP.SetT(old.T())
	}
	c.regs.SetCPSR(newP)
}

func (c *CPU) execMultiply(inst multiply) {
	rm := c.regs.Read(inst.rm)
	rs := c.regs.Read(inst.rs)
	result := rm * rs
	if inst.accumulate {
		result += c.regs.Read(inst.rn)
	}
	c.regs.Write(inst.rd, result)
	if inst.s {
		p := c.regs.CPSR()
		p.SetN(result&0x80000000 != 0)
		p.SetZ(result == 0)
		c.regs.SetCPSR(p)
	}
}

func (c *CPU) execMultiplyLong(inst multiplyLong) {
	var hi, lo uint32
	if inst.signed {
		product := int64(int32(c.regs.Read(inst.rm))) * int64(int32(c.regs.Read(inst.rs)))
		if inst.accumulate {
			acc := int64(c.regs.Read(inst.rdHi))<<32 | int64(c.regs.Read(inst.rdLo))
			product += acc
		}
		hi, lo = uint32(product>>32), uint32(product)
	} else {
		product := uint64(c.regs.Read(inst.rm)) * uint64(c.regs.Read(inst.rs))
		if inst.accumulate {
			acc := uint64(c.regs.Read(inst.rdHi))<<32 | uint64(c.regs.Read(inst.rdLo))
			product += acc
		}
		hi, lo = uint32(product>>32), uint32(product)
	}
	c.regs.Write(inst.rdHi, hi)
	c.regs.Write(inst.rdLo, lo)
	if inst.s {
		p := c.regs.CPSR()
		p.SetN(hi&0x80000000 != 0)
		p.SetZ(hi == 0 && lo == 0)
		c.regs.SetCPSR(p)
	}
}

func (c *CPU) singleTransferOffset(inst singleTransfer) uint32 {
	if !inst.regOffset {
		return uint32(inst.offsetImm)
	}
	v, _ := shift(inst.shiftType, c.regs.Read(inst.rm), uint32(inst.shiftImm), false, c.regs.CPSR().C())
	return v
}

func (c *CPU) execSingleTransfer(inst singleTransfer) {
	offset := c.singleTransferOffset(inst)
	base := c.regs.Read(inst.rn)

	addr := base
	if inst.pre {
		if inst.up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	if inst.load {
		var value uint32
		if inst.byteXfer {
			value = uint32(c.bus.Read8(addr))
		} else {
			value = c.bus.Read32(addr &^ 0x3)
			value = rotateRight(value, (addr&0x3)*8)
		}
		c.regs.Write(inst.rd, value)
	} else {
		value := c.regs.Read(inst.rd)
		if inst.rd == 15 {
			value += 4 // STR of PC stores PC+12 total; Read(15) already gives +8
		}
		if inst.byteXfer {
			c.bus.Write8(addr, uint8(value))
		} else {
			c.bus.Write32(addr&^0x3, value)
		}
	}

	if !inst.pre {
		if inst.up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}
	if (!inst.pre || inst.writeback) && !(inst.load && inst.rd == inst.rn) {
		c.regs.Write(inst.rn, addr)
	}
}

func (c *CPU) execHalfwordTransfer(inst halfwordTransfer) {
	var offset uint32
	if inst.imm {
		offset = uint32(inst.offsetImm)
	} else {
		offset = c.regs.Read(inst.rm)
	}
	base := c.regs.Read(inst.rn)

	addr := base
	if inst.pre {
		if inst.up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}

	if inst.load {
		var value uint32
		switch {
		case inst.half && !inst.signed:
			raw := c.bus.Read16(addr &^ 0x1)
			value = uint32(rotateRight(uint32(raw), (addr&0x1)*8) & 0xFFFF)
		case inst.half && inst.signed:
			if addr&0x1 != 0 {
				// Unaligned LDRSH degrades to a signed byte load of the
				// addressed byte.
				value = uint32(int32(int8(c.bus.Read8(addr))))
			} else {
				value = uint32(int32(int16(c.bus.Read16(addr))))
			}
		case inst.signed && !inst.half:
			value = uint32(int32(int8(c.bus.Read8(addr))))
		}
		c.regs.Write(inst.rd, value)
	} else {
		value := c.regs.Read(inst.rd)
		c.bus.Write16(addr&^0x1, uint16(value))
	}

	if !inst.pre {
		if inst.up {
			addr = base + offset
		} else {
			addr = base - offset
		}
	}
	if !inst.pre || inst.writeback {
		c.regs.Write(inst.rn, addr)
	}
}

func (c *CPU) execBlockTransfer(inst blockTransfer) {
	base := c.regs.Read(inst.rn)
	list := inst.list

	count := 0
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) != 0 {
			count++
		}
	}

	// An empty register list transfers r15 only, and still advances the
	// base by the full 16-register stride (64 bytes) — a documented
	// hardware quirk rather than a zero-length no-op.
	emptyList := count == 0

	size := uint32(count) * 4
	if emptyList {
		size = 0x40
	}

	var lowAddr uint32
	if inst.up {
		lowAddr = base
	} else {
		lowAddr = base - size
	}

	addr := lowAddr
	if inst.pre == inst.up {
		addr += 4
	}

	userBankTransfer := inst.s && !(inst.load && list&0x8000 != 0)
	restoreCPSR := inst.s && inst.load && list&0x8000 != 0

	readReg := func(i uint8) uint32 {
		if userBankTransfer && i >= 8 && i <= 14 {
			return c.regs.readUserBank(i)
		}
		return c.regs.Read(i)
	}
	writeReg := func(i uint8, v uint32) {
		if userBankTransfer && i >= 8 && i <= 14 {
			c.regs.writeUserBank(i, v)
			return
		}
		c.regs.Write(i, v)
	}

	firstReg := -1
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) != 0 {
			firstReg = i
			break
		}
	}
	var newBase uint32
	if inst.up {
		newBase = base + size
	} else {
		newBase = base - size
	}

	baseWritten := false
	if emptyList {
		if inst.load {
			writeReg(15, c.bus.Read32(addr&^0x3))
			c.flushARM(c.regs.Read(15))
		} else {
			c.bus.Write32(addr&^0x3, c.regs.Read(15)+4)
		}
	} else {
		for i := 0; i < 16; i++ {
			if list&(1<<uint(i)) == 0 {
				continue
			}
			reg := uint8(i)
			a := addr &^ 0x3
			if inst.load {
				v := c.bus.Read32(a)
				writeReg(reg, v)
				if reg == 15 {
					if restoreCPSR {
						spsr := c.regs.SPSR()
						old := c.regs.CPSR()
						c.regs.SwitchMode(spsr.Mode(), old.Mode())
						c.regs.SetCPSR(spsr)
						if spsr.T() {
							c.flushThumb(v)
						} else {
							c.flushARM(v)
						}
					} else {
						c.flushARM(v)
					}
				}
				if reg == inst.rn {
					baseWritten = true
				}
			} else {
				var v uint32
				switch {
				case reg == 15:
					v = readReg(reg) + 4
				case inst.writeback && reg == inst.rn && i != firstReg:
					// The base, stored anywhere but first, reflects the
					// fully written-back value rather than its pre-transfer
					// value.
					v = newBase
				default:
					v = readReg(reg)
				}
				c.bus.Write32(a, v)
			}
			addr += 4
		}
	}

	if inst.writeback && !(inst.load && baseWritten) {
		c.regs.Write(inst.rn, newBase)
	}
}

func (c *CPU) execSwap(inst swap) {
	addr := c.regs.Read(inst.rn)
	if inst.byteXfer {
		old := c.bus.Read8(addr)
		c.bus.Write8(addr, uint8(c.regs.Read(inst.rm)))
		c.regs.Write(inst.rd, uint32(old))
		return
	}
	old := c.bus.Read32(addr &^ 0x3)
	old = rotateRight(old, (addr&0x3)*8)
	c.bus.Write32(addr&^0x3, c.regs.Read(inst.rm))
	c.regs.Write(inst.rd, old)
}
