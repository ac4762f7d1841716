package cpu

import "testing"

func TestShiftLSLZeroPassesCarryThrough(t *testing.T) {
	for _, carryIn := range []bool{true, false} {
		v, c := shiftLSL(0x12345678, 0, carryIn)
		if v != 0x12345678 || c != carryIn {
			t.Errorf("LSL(x,0) = (%#x,%t), want (%#x,%t)", v, c, 0x12345678, carryIn)
		}
	}
}

func TestShiftRORBy32IsIdentityWithSignCarry(t *testing.T) {
	cases := []uint32{0x00000001, 0x80000000, 0xFFFFFFFF, 0x00000000}
	for _, x := range cases {
		v, c := shiftROR(x, 32, true, false)
		wantCarry := x&0x80000000 != 0
		if v != x || c != wantCarry {
			t.Errorf("ROR(%#x,32) = (%#x,%t), want (%#x,%t)", x, v, c, x, wantCarry)
		}
	}
}

func TestShiftASRSaturatesBeyond32(t *testing.T) {
	v, c := shiftASR(0x80000000, 40, true, false)
	if v != 0xFFFFFFFF || !c {
		t.Errorf("ASR negative saturate = (%#x,%t), want (0xFFFFFFFF,true)", v, c)
	}
	v, c = shiftASR(0x7FFFFFFF, 40, true, true)
	if v != 0 || c {
		t.Errorf("ASR positive saturate = (%#x,%t), want (0,false)", v, c)
	}
}

func TestShiftRRXCarryChain(t *testing.T) {
	// rrx(x, c) = concat(c, x) rotated right one bit: the vacated top bit is
	// the incoming carry, and the outgoing carry is x's bit 0.
	v, c := shiftROR(0x00000001, 0, false, true)
	if v != 0x80000000 || !c {
		t.Errorf("RRX(1, C=1) = (%#x,%t), want (0x80000000,true)", v, c)
	}
	v, c = shiftROR(0x80000000, 0, false, false)
	if v != 0x40000000 || c {
		t.Errorf("RRX(0x80000000, C=0) = (%#x,%t), want (0x40000000,false)", v, c)
	}
}

func TestRotateRightIsPlainRotateNoCarry(t *testing.T) {
	if v := rotateRight(0x00000001, 4); v != 0x10000000 {
		t.Errorf("rotateRight(1,4) = %#x, want 0x10000000", v)
	}
	if v := rotateRight(0x12345678, 0); v != 0x12345678 {
		t.Errorf("rotateRight(x,0) must be identity, got %#x", v)
	}
	if v := rotateRight(0xDDCCBBAA, 8); v != 0xAADDCCBB {
		t.Errorf("rotateRight(0xDDCCBBAA,8) = %#x, want 0xAADDCCBB", v)
	}
}

func TestShiftLSRImmediateZeroMeansShiftBy32(t *testing.T) {
	v, c := shiftLSR(0x80000000, 0, false, false)
	if v != 0 || !c {
		t.Errorf("LSR #0 (encoded as #32) = (%#x,%t), want (0,true)", v, c)
	}
}

func TestShiftLSRByRegisterZeroIsPassThrough(t *testing.T) {
	v, c := shiftLSR(0x80000000, 0, true, true)
	if v != 0x80000000 || !c {
		t.Errorf("LSR by register amount 0 must pass through unchanged, got (%#x,%t)", v, c)
	}
}
