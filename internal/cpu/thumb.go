package cpu

// stepThumb decodes and executes a single Thumb-state instruction halfword.
// Thumb instructions carry no condition field (except the conditional
// branch encoding, which tests the 4-bit field itself); all others always
// execute.
func (c *CPU) stepThumb(word uint16) {
	switch {
	case word&0xF800 == 0x1800:
		c.thumbAddSubRegister(word)
	case word&0xE000 == 0x0000:
		c.thumbMoveShifted(word)
	case word&0xE000 == 0x2000:
		c.thumbALUImmediate(word)
	case word&0xFC00 == 0x4000:
		c.thumbALURegister(word)
	case word&0xFF80 == 0x4700:
		c.thumbBranchExchange(word)
	case word&0xFC00 == 0x4400:
		c.thumbHiRegisterOps(word)
	case word&0xF800 == 0x4800:
		c.thumbLoadPCRelative(word)
	case word&0xF200 == 0x5000:
		c.thumbLoadStoreRegisterOffset(word)
	case word&0xF200 == 0x5200:
		c.thumbLoadStoreSignExtended(word)
	case word&0xE000 == 0x6000:
		c.thumbLoadStoreImmediateOffset(word)
	case word&0xF000 == 0x8000:
		c.thumbLoadStoreHalfword(word)
	case word&0xF000 == 0x9000:
		c.thumbLoadStoreSPRelative(word)
	case word&0xF000 == 0xA000:
		c.thumbLoadAddress(word)
	case word&0xFF00 == 0xB000:
		c.thumbAddOffsetToSP(word)
	case word&0xF600 == 0xB400:
		c.thumbPushPop(word)
	case word&0xF000 == 0xC000:
		c.thumbBlockTransfer(word)
	case word&0xFF00 == 0xDF00:
		c.softwareInterrupt(uint32(word&0xFF), c.regs.ReadRaw(15))
	case word&0xF000 == 0xD000:
		c.thumbConditionalBranch(word)
	case word&0xF800 == 0xE000:
		c.thumbUnconditionalBranch(word)
	case word&0xF000 == 0xF000:
		c.thumbBranchLink(word)
	default:
		c.undefined(c.regs.ReadRaw(15) - 2)
	}
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func (c *CPU) thumbAddSubRegister(word uint16) {
	isSub := word&0x0200 != 0
	imm := word&0x0400 != 0
	rn := c.regs.Read(uint8((word & 0x0038) >> 3))
	rd := uint8(word & 0x0007)

	var operand uint32
	if imm {
		operand = uint32((word & 0x01C0) >> 6)
	} else {
		operand = c.regs.Read(uint8((word & 0x01C0) >> 6))
	}

	var result uint32
	var carry, overflow bool
	if isSub {
		result = rn - operand
		carry = subCarryOut(rn, operand)
		overflow = subOverflow(rn, operand, result)
	} else {
		result = rn + operand
		carry = addCarryOut(rn, operand)
		overflow = addOverflow(rn, operand, result)
	}
	c.regs.Write(rd, result)
	c.setArithmeticFlags(result, carry, overflow)
}

func (c *CPU) thumbMoveShifted(word uint16) {
	kind := ShiftType((word & 0x1800) >> 11)
	offset := uint32((word & 0x07C0) >> 6)
	rd := uint8(word & 0x0007)
	rm := c.regs.Read(uint8((word & 0x0038) >> 3))

	result, carryOut := shift(kind, rm, offset, false, c.regs.CPSR().C())
	c.regs.Write(rd, result)
	c.setLogicalFlags(result, carryOut)
}

func (c *CPU) thumbALUImmediate(word uint16) {
	rd := uint8((word & 0x0700) >> 8)
	rdVal := c.regs.Read(rd)
	operand := uint32(word & 0x00FF)

	switch (word & 0x1800) >> 11 {
	case 0x0: // MOV
		c.regs.Write(rd, operand)
		c.setLogicalFlags(operand, c.regs.CPSR().C())
	case 0x1: // CMP
		result := rdVal - operand
		c.setArithmeticFlags(result, subCarryOut(rdVal, operand), subOverflow(rdVal, operand, result))
	case 0x2: // ADD
		result := rdVal + operand
		c.regs.Write(rd, result)
		c.setArithmeticFlags(result, addCarryOut(rdVal, operand), addOverflow(rdVal, operand, result))
	case 0x3: // SUB
		result := rdVal - operand
		c.regs.Write(rd, result)
		c.setArithmeticFlags(result, subCarryOut(rdVal, operand), subOverflow(rdVal, operand, result))
	}
}

func (c *CPU) thumbALURegister(word uint16) {
	rm := c.regs.Read(uint8((word & 0x0038) >> 3))
	rd := uint8(word & 0x0007)
	rdVal := c.regs.Read(rd)
	op := (word & 0x03C0) >> 6

	writeResult := func(v uint32) {
		c.regs.Write(rd, v)
		c.setLogicalFlags(v, c.regs.CPSR().C())
	}

	switch op {
	case 0x0: // AND
		writeResult(rdVal & rm)
	case 0x1: // EOR
		writeResult(rdVal ^ rm)
	case 0x2: // LSL
		result, carry := shift(LSL, rdVal, rm&0xFF, true, c.regs.CPSR().C())
		c.regs.Write(rd, result)
		c.setLogicalFlags(result, carry)
	case 0x3: // LSR
		result, carry := shift(LSR, rdVal, rm&0xFF, true, c.regs.CPSR().C())
		c.regs.Write(rd, result)
		c.setLogicalFlags(result, carry)
	case 0x4: // ASR
		result, carry := shift(ASR, rdVal, rm&0xFF, true, c.regs.CPSR().C())
		c.regs.Write(rd, result)
		c.setLogicalFlags(result, carry)
	case 0x5: // ADC
		carryIn := uint32(0)
		if c.regs.CPSR().C() {
			carryIn = 1
		}
		result := rdVal + rm + carryIn
		c.regs.Write(rd, result)
		c.setArithmeticFlags(result, addCarryOut(rdVal, rm)||addCarryOut(rdVal+rm, carryIn), addOverflow(rdVal, rm, result))
	case 0x6: // SBC
		borrowIn := uint32(0)
		if !c.regs.CPSR().C() {
			borrowIn = 1
		}
		result := rdVal - rm - borrowIn
		c.regs.Write(rd, result)
		c.setArithmeticFlags(result, rdVal >= rm+borrowIn, subOverflow(rdVal, rm, result))
	case 0x7: // ROR
		result, carry := shift(ROR, rdVal, rm&0xFF, true, c.regs.CPSR().C())
		c.regs.Write(rd, result)
		c.setLogicalFlags(result, carry)
	case 0x8: // TST
		c.setLogicalFlags(rdVal&rm, c.regs.CPSR().C())
	case 0x9: // NEG
		result := uint32(0) - rm
		c.regs.Write(rd, result)
		c.setArithmeticFlags(result, subCarryOut(0, rm), subOverflow(0, rm, result))
	case 0xA: // CMP
		result := rdVal - rm
		c.setArithmeticFlags(result, subCarryOut(rdVal, rm), subOverflow(rdVal, rm, result))
	case 0xB: // CMN
		result := rdVal + rm
		c.setArithmeticFlags(result, addCarryOut(rdVal, rm), addOverflow(rdVal, rm, result))
	case 0xC: // ORR
		writeResult(rdVal | rm)
	case 0xD: // MUL
		result := rdVal * rm
		c.regs.Write(rd, result)
		p := c.regs.CPSR()
		p.SetN(result&0x80000000 != 0)
		p.SetZ(result == 0)
		p.SetC(false)
		c.regs.SetCPSR(p)
	case 0xE: // BIC
		writeResult(rdVal &^ rm)
	case 0xF: // MVN
		writeResult(^rm)
	}
}

func (c *CPU) thumbBranchExchange(word uint16) {
	rm := c.regs.Read(uint8((word & 0x0078) >> 3))
	thumb := rm&1 != 0
	p := c.regs.CPSR()
	p.SetT(thumb)
	c.regs.SetCPSR(p)
	if thumb {
		c.flushThumb(rm)
	} else {
		c.flushARM(rm)
	}
}

func (c *CPU) thumbHiRegisterOps(word uint16) {
	rm := c.regs.Read(uint8((word & 0x0078) >> 3))
	rd := uint8((word & 0x0007) | ((word & 0x0080) >> 4))
	rdVal := c.regs.Read(rd)

	switch (word & 0x0300) >> 8 {
	case 0x0: // ADD
		result := rdVal + rm
		c.regs.Write(rd, result)
		if rd == 15 {
			c.flushThumb(result)
		}
	case 0x1: // CMP
		result := rdVal - rm
		c.setArithmeticFlags(result, subCarryOut(rdVal, rm), subOverflow(rdVal, rm, result))
	case 0x2: // MOV
		c.regs.Write(rd, rm)
		if rd == 15 {
			c.flushThumb(rm)
		}
	}
}

func (c *CPU) thumbLoadPCRelative(word uint16) {
	rd := uint8((word & 0x0700) >> 8)
	operand := uint32(word & 0x00FF)
	addr := (c.regs.Read(15) &^ 0x3) + operand*4
	c.regs.Write(rd, c.bus.Read32(addr))
}

func (c *CPU) thumbLoadStoreRegisterOffset(word uint16) {
	load := word&0x0800 != 0
	byteXfer := word&0x0400 != 0
	rm := c.regs.Read(uint8((word & 0x01C0) >> 6))
	rn := c.regs.Read(uint8((word & 0x0038) >> 3))
	rd := uint8(word & 0x0007)
	addr := rn + rm

	if load {
		if byteXfer {
			c.regs.Write(rd, uint32(c.bus.Read8(addr)))
		} else {
			v := c.bus.Read32(addr &^ 0x3)
			c.regs.Write(rd, rotateRight(v, (addr&0x3)*8))
		}
		return
	}
	rdVal := c.regs.Read(rd)
	if byteXfer {
		c.bus.Write8(addr, uint8(rdVal))
	} else {
		c.bus.Write32(addr&^0x3, rdVal)
	}
}

func (c *CPU) thumbLoadStoreSignExtended(word uint16) {
	rm := c.regs.Read(uint8((word & 0x01C0) >> 6))
	rn := c.regs.Read(uint8((word & 0x0038) >> 3))
	rd := uint8(word & 0x0007)
	addr := rn + rm

	switch (word & 0x0C00) >> 10 {
	case 0x0: // STRH
		c.bus.Write16(addr&^0x1, uint16(c.regs.Read(rd)))
	case 0x1: // LDRSB
		c.regs.Write(rd, uint32(int32(int8(c.bus.Read8(addr)))))
	case 0x2: // LDRH
		if addr&1 == 0 {
			c.regs.Write(rd, uint32(c.bus.Read16(addr)))
		} else {
			c.regs.Write(rd, rotateRight(uint32(c.bus.Read16(addr&^0x1)), 8))
		}
	case 0x3: // LDRSH
		if addr&1 == 0 {
			c.regs.Write(rd, uint32(int32(int16(c.bus.Read16(addr)))))
		} else {
			c.regs.Write(rd, uint32(int32(int8(c.bus.Read8(addr)))))
		}
	}
}

func (c *CPU) thumbLoadStoreImmediateOffset(word uint16) {
	byteXfer := word&0x1000 != 0
	load := word&0x0800 != 0
	offset := uint32((word & 0x07C0) >> 6)
	rn := c.regs.Read(uint8((word & 0x0038) >> 3))
	rd := uint8(word & 0x0007)

	var addr uint32
	if byteXfer {
		addr = rn + offset
	} else {
		addr = rn + offset*4
	}

	if load {
		if byteXfer {
			c.regs.Write(rd, uint32(c.bus.Read8(addr)))
		} else {
			v := c.bus.Read32(addr &^ 0x3)
			c.regs.Write(rd, rotateRight(v, (addr&0x3)*8))
		}
		return
	}
	rdVal := c.regs.Read(rd)
	if byteXfer {
		c.bus.Write8(addr, uint8(rdVal))
	} else {
		c.bus.Write32(addr&^0x3, rdVal)
	}
}

func (c *CPU) thumbLoadStoreHalfword(word uint16) {
	load := word&0x0800 != 0
	offset := uint32((word & 0x07C0) >> 6)
	rn := c.regs.Read(uint8((word & 0x0038) >> 3))
	rd := uint8(word & 0x0007)
	addr := rn + offset*2

	if load {
		if addr&1 == 0 {
			c.regs.Write(rd, uint32(c.bus.Read16(addr)))
		} else {
			c.regs.Write(rd, rotateRight(uint32(c.bus.Read16(addr&^0x1)), 8))
		}
		return
	}
	c.bus.Write16(addr&^0x1, uint16(c.regs.Read(rd)))
}

func (c *CPU) thumbLoadStoreSPRelative(word uint16) {
	load := word&0x0800 != 0
	offset := uint32(word & 0x00FF)
	rd := uint8((word & 0x0700) >> 8)
	addr := c.regs.Read(13) + offset*4

	if load {
		v := c.bus.Read32(addr &^ 0x3)
		c.regs.Write(rd, rotateRight(v, (addr&0x3)*8))
		return
	}
	c.bus.Write32(addr&^0x3, c.regs.Read(rd))
}

func (c *CPU) thumbLoadAddress(word uint16) {
	sp := word&0x0800 != 0
	rd := uint8((word & 0x0700) >> 8)
	operand := uint32(word&0x00FF) * 4

	var value uint32
	if sp {
		value = c.regs.Read(13) + operand
	} else {
		value = (c.regs.Read(15) &^ 0x3) + operand
	}
	c.regs.Write(rd, value)
}

func (c *CPU) thumbAddOffsetToSP(word uint16) {
	isSub := word&0x0080 != 0
	operand := uint32(word&0x007F) << 2
	sp := c.regs.Read(13)
	if isSub {
		c.regs.Write(13, sp-operand)
	} else {
		c.regs.Write(13, sp+operand)
	}
}

func (c *CPU) thumbPushPop(word uint16) {
	pop := word&0x0800 != 0
	includeExtra := word&0x0100 != 0
	list := word & 0x00FF

	count := 0
	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			count++
		}
	}
	if includeExtra {
		count++
	}

	sp := c.regs.Read(13)
	if pop {
		addr := sp
		for i := uint8(0); i < 8; i++ {
			if list&(1<<uint(i)) != 0 {
				c.regs.Write(i, c.bus.Read32(addr&^0x3))
				addr += 4
			}
		}
		if includeExtra {
			v := c.bus.Read32(addr&^0x3) &^ 0x1
			c.regs.Write(13, sp+4*uint32(count))
			c.flushThumb(v)
			return
		}
		c.regs.Write(13, sp+4*uint32(count))
		return
	}

	start := sp - 4*uint32(count)
	addr := start
	for i := uint8(0); i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			c.bus.Write32(addr&^0x3, c.regs.Read(i))
			addr += 4
		}
	}
	if includeExtra {
		c.bus.Write32(addr&^0x3, c.regs.Read(14))
	}
	c.regs.Write(13, start)
}

func (c *CPU) thumbBlockTransfer(word uint16) {
	load := word&0x0800 != 0
	rn := uint8((word & 0x0700) >> 8)
	rnVal := c.regs.Read(rn)
	list := word & 0x00FF

	if list == 0 {
		// Empty list: transfers r15 only, base still advances by 0x40.
		addr := rnVal &^ 0x3
		c.regs.Write(rn, rnVal+0x40)
		if load {
			c.flushThumb(c.bus.Read32(addr))
		} else {
			c.bus.Write32(addr, c.regs.Read(15)+2)
		}
		return
	}

	count := 0
	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			count++
		}
	}

	storeRn := list&(1<<uint(rn)) != 0
	if !(load && storeRn) {
		c.regs.Write(rn, rnVal+4*uint32(count))
	}

	addr := rnVal
	first := true
	for i := uint8(0); i < 8; i++ {
		if list&(1<<uint(i)) == 0 {
			continue
		}
		if load {
			c.regs.Write(i, c.bus.Read32(addr))
		} else {
			v := rnVal
			if !(first && i == rn) {
				v = c.regs.Read(i)
			}
			c.bus.Write32(addr, v)
		}
		addr += 4
		first = false
	}
}

func (c *CPU) thumbConditionalBranch(word uint16) {
	cond := Cond((word & 0x0F00) >> 8)
	if !c.checkCondition(cond) {
		return
	}
	offset := int32(int8(word&0xFF)) << 1
	c.flushThumb(uint32(int32(c.regs.Read(15)) + offset))
}

func (c *CPU) thumbUnconditionalBranch(word uint16) {
	offset := signExtend(uint32(word&0x07FF), 11) << 1
	c.flushThumb(uint32(int32(c.regs.Read(15)) + offset))
}

func (c *CPU) thumbBranchLink(word uint16) {
	high := word&0x0800 != 0
	pc := int32(c.regs.Read(15))

	if !high {
		offset := signExtend(uint32(word&0x07FF), 11)
		c.regs.Write(14, uint32(pc+(offset<<12)))
		return
	}
	offset := uint32(word & 0x07FF)
	lr := c.regs.Read(14)
	target := lr + (offset << 1)
	nextInstr := uint32(pc-2) | 0x1
	c.regs.Write(14, nextInstr)
	c.flushThumb(target)
}
