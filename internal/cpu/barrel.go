package cpu

// ShiftType is the 2-bit shift-kind field shared by data-processing operand
// 2 and load/store register-offset addressing.
type ShiftType uint8

const (
	LSL ShiftType = 0
	LSR ShiftType = 1
	ASR ShiftType = 2
	ROR ShiftType = 3
)

// shift applies the barrel shifter. amount is the full requested shift
// amount (already resolved from either an immediate or a register's low
// byte); byRegister distinguishes the immediate-#0 encodings (LSR/ASR/ROR
// #0 mean #32/#32/RRX) from the by-register #0 encodings (which are a
// pass-through). It returns the shifted value and the resulting carry-out.
func shift(kind ShiftType, value, amount uint32, byRegister, carryIn bool) (uint32, bool) {
	switch kind {
	case LSL:
		return shiftLSL(value, amount, carryIn)
	case LSR:
		return shiftLSR(value, amount, byRegister, carryIn)
	case ASR:
		return shiftASR(value, amount, byRegister, carryIn)
	case ROR:
		return shiftROR(value, amount, byRegister, carryIn)
	}
	return value, carryIn
}

func shiftLSL(value, amount uint32, carryIn bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carryIn
	case amount < 32:
		carryOut := (value>>(32-amount))&1 != 0
		return value << amount, carryOut
	case amount == 32:
		return 0, value&1 != 0
	default: // > 32
		return 0, false
	}
}

func shiftLSR(value, amount uint32, byRegister, carryIn bool) (uint32, bool) {
	if amount == 0 {
		if byRegister {
			return value, carryIn
		}
		// LSR #0 is encoded as LSR #32.
		amount = 32
	}
	switch {
	case amount < 32:
		carryOut := (value>>(amount-1))&1 != 0
		return value >> amount, carryOut
	case amount == 32:
		return 0, value&0x80000000 != 0
	default:
		return 0, false
	}
}

func shiftASR(value, amount uint32, byRegister, carryIn bool) (uint32, bool) {
	if amount == 0 {
		if byRegister {
			return value, carryIn
		}
		amount = 32
	}
	signed := int32(value)
	if amount >= 32 {
		if value&0x80000000 != 0 {
			return 0xFFFFFFFF, true
		}
		return 0, false
	}
	carryOut := (value>>(amount-1))&1 != 0
	return uint32(signed >> amount), carryOut
}

// rotateRight is a plain bitwise rotate with no carry tracking, used for the
// data-processing immediate operand's fixed 2x rotation and for the
// unaligned-memory-access rotate quirks (LDR word, LDRH).
func rotateRight(v, amount uint32) uint32 {
	amount %= 32
	if amount == 0 {
		return v
	}
	return (v >> amount) | (v << (32 - amount))
}

func shiftROR(value, amount uint32, byRegister, carryIn bool) (uint32, bool) {
	if amount == 0 {
		if byRegister {
			return value, carryIn
		}
		// ROR #0 means RRX: one-bit rotate right through the carry flag.
		result := value >> 1
		if carryIn {
			result |= 0x80000000
		}
		return result, value&1 != 0
	}
	amount &= 0x1F
	if amount == 0 {
		// Register-specified rotate whose low 5 bits are zero (but the full
		// amount was nonzero, e.g. 32): pass through, carry = bit 31.
		return value, value&0x80000000 != 0
	}
	result := (value >> amount) | (value << (32 - amount))
	carryOut := (value>>(amount-1))&1 != 0
	return result, carryOut
}
