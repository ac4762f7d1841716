package cpu

// decodeARM classifies a 32-bit ARM word into one of the instruction
// structs declared in arm_instructions.go. Dispatch is a prioritized
// sequence of mask/value tests — BX, branch, undefined, swap and the
// multiply family are checked before the general data-processing
// fallback, since they alias bit patterns that would otherwise also
// match it.
func decodeARM(word uint32) interface{} {
	cond := Cond((word >> 28) & 0xF)

	// Branch and Exchange: cond 0001 0010 1111 1111 1111 0001 Rm
	if word&0x0FFFFFF0 == 0x012FFF10 {
		return branchExchange{cond: cond, rm: uint8(word & 0xF)}
	}

	// Branch / Branch-with-Link: cond 101L offset24
	if word&0x0E000000 == 0x0A000000 {
		off := word & 0x00FFFFFF
		var signed int32
		if off&0x00800000 != 0 {
			signed = int32(off | 0xFF000000)
		} else {
			signed = int32(off)
		}
		return branch{cond: cond, link: word&0x01000000 != 0, offset: signed << 2}
	}

	// Undefined instruction: cond 011x xxxx xxxx xxxx xxxx xxx1 xxxx
	if word&0x0E000010 == 0x06000010 {
		return undefinedInstruction{cond: cond}
	}

	// Single data swap: cond 0001 0B00 Rn Rd 0000 1001 Rm
	if word&0x0FB00FF0 == 0x01000090 {
		return swap{
			cond:     cond,
			byteXfer: word&0x00400000 != 0,
			rn:       uint8((word >> 16) & 0xF),
			rd:       uint8((word >> 12) & 0xF),
			rm:       uint8(word & 0xF),
		}
	}

	// Multiply / multiply-accumulate: cond 0000 00AS Rd Rn Rs 1001 Rm
	if word&0x0FC000F0 == 0x00000090 {
		return multiply{
			cond:       cond,
			accumulate: word&0x00200000 != 0,
			s:          word&0x00100000 != 0,
			rd:         uint8((word >> 16) & 0xF),
			rn:         uint8((word >> 12) & 0xF),
			rs:         uint8((word >> 8) & 0xF),
			rm:         uint8(word & 0xF),
		}
	}

	// Multiply long: cond 0000 1UAS RdHi RdLo Rs 1001 Rm
	if word&0x0F8000F0 == 0x00800090 {
		return multiplyLong{
			cond:       cond,
			signed:     word&0x00400000 != 0,
			accumulate: word&0x00200000 != 0,
			s:          word&0x00100000 != 0,
			rdHi:       uint8((word >> 16) & 0xF),
			rdLo:       uint8((word >> 12) & 0xF),
			rs:         uint8((word >> 8) & 0xF),
			rm:         uint8(word & 0xF),
		}
	}

	// Halfword/signed transfer: cond 000P UIWL Rn Rd ---- 1SH1 ----
	// (bit 22 selects register vs. immediate offset; SH != 00 selects this
	// group over single data swap / multiply, which share the 0x90 low bits).
	if word&0x0E000090 == 0x00000090 && word&0x60 != 0 {
		imm := word&0x00400000 != 0
		ht := halfwordTransfer{
			cond:      cond,
			pre:       word&0x01000000 != 0,
			up:        word&0x00800000 != 0,
			writeback: word&0x00200000 != 0,
			load:      word&0x00100000 != 0,
			imm:       imm,
			signed:    word&0x40 != 0,
			half:      word&0x20 != 0,
			rn:        uint8((word >> 16) & 0xF),
			rd:        uint8((word >> 12) & 0xF),
		}
		if imm {
			ht.offsetImm = uint8((word>>4)&0xF0) | uint8(word&0xF)
		} else {
			ht.rm = uint8(word & 0xF)
		}
		return ht
	}

	// MRS: cond 00010 R00 1111 Rd 0000 0000 0000
	if word&0x0FBF0FFF == 0x010F0000 {
		return psrTransferMRS{cond: cond, spsr: word&0x00400000 != 0, rd: uint8((word >> 12) & 0xF)}
	}
	// MSR register: cond 00010 R10 fsxc 1111 0000 0000 Rm
	if word&0x0FB0FFF0 == 0x0120F000 {
		return psrTransferMSR{
			cond:      cond,
			spsr:      word&0x00400000 != 0,
			fieldMask: uint8((word >> 16) & 0xF),
			rm:        uint8(word & 0xF),
		}
	}
	// MSR immediate: cond 00110 R10 fsxc 1111 rotate imm8
	if word&0x0FB0F000 == 0x0320F000 {
		return psrTransferMSR{
			cond:      cond,
			spsr:      word&0x00400000 != 0,
			fieldMask: uint8((word >> 16) & 0xF),
			imm:       true,
			rotate:    uint8((word >> 8) & 0xF),
			imm8:      uint8(word & 0xFF),
		}
	}

	// Block data transfer: cond 100P USWL Rn register_list
	if word&0x0E000000 == 0x08000000 {
		return blockTransfer{
			cond:      cond,
			pre:       word&0x01000000 != 0,
			up:        word&0x00800000 != 0,
			s:         word&0x00400000 != 0,
			writeback: word&0x00200000 != 0,
			load:      word&0x00100000 != 0,
			rn:        uint8((word >> 16) & 0xF),
			list:      uint16(word & 0xFFFF),
		}
	}

	// Single data transfer: cond 01IP UBWL Rn Rd offset12
	if word&0x0C000000 == 0x04000000 {
		st := singleTransfer{
			cond:      cond,
			regOffset: word&0x02000000 != 0,
			pre:       word&0x01000000 != 0,
			up:        word&0x00800000 != 0,
			byteXfer:  word&0x00400000 != 0,
			writeback: word&0x00200000 != 0,
			load:      word&0x00100000 != 0,
			rn:        uint8((word >> 16) & 0xF),
			rd:        uint8((word >> 12) & 0xF),
		}
		// Post-indexed (no pre-index) with the W bit set selects forced
		// User-mode translation instead of normal writeback.
		st.forceUser = st.writeback && !st.pre
		if st.regOffset {
			st.shiftType = ShiftType((word >> 5) & 0x3)
			st.shiftImm = uint8((word >> 7) & 0x1F)
			st.rm = uint8(word & 0xF)
		} else {
			st.offsetImm = uint16(word & 0xFFF)
		}
		return st
	}

	// Software interrupt: cond 1111 comment24
	if word&0x0F000000 == 0x0F000000 {
		return softwareInterrupt{cond: cond, comment: word & 0x00FFFFFF}
	}

	// Data processing fallback: cond 00I opcode S Rn Rd operand2
	if word&0x0C000000 == 0x00000000 {
		dp := dataProcessing{
			cond: cond,
			imm:  word&0x02000000 != 0,
			op:   aluOp((word >> 21) & 0xF),
			s:    word&0x00100000 != 0,
			rn:   uint8((word >> 16) & 0xF),
			rd:   uint8((word >> 12) & 0xF),
		}
		if dp.imm {
			dp.rotate = uint8((word >> 8) & 0xF)
			dp.imm8 = uint8(word & 0xFF)
		} else {
			dp.shiftType = ShiftType((word >> 5) & 0x3)
			dp.regShift = word&0x10 != 0
			dp.rm = uint8(word & 0xF)
			if dp.regShift {
				dp.rs = uint8((word >> 8) & 0xF)
			} else {
				dp.shiftImm = uint8((word >> 7) & 0x1F)
			}
		}
		return dp
	}

	return undefinedInstruction{cond: cond}
}
