package io

import "testing"

func TestIFWriteOneToClear(t *testing.T) {
	r := NewIORegs(nil)
	r.RequestIRQ(IRQVBlank | IRQHBlank | IRQTimer0)

	r.Write8(IFAddr, uint8(IRQHBlank))

	got := uint16(r.Read8(IFAddr)) | uint16(r.Read8(IFAddr+1))<<8
	want := uint16(IRQVBlank | IRQTimer0)
	if got != want {
		t.Errorf("IF after write-one-to-clear = %#x, want %#x", got, want)
	}
}

func TestPendingIRQRequiresIMEAndIEAndIF(t *testing.T) {
	r := NewIORegs(nil)
	r.RequestIRQ(IRQVBlank)
	if r.PendingIRQ() {
		t.Error("must not be pending before IE/IME are set")
	}
	r.Write8(IEAddr, uint8(IRQVBlank))
	if r.PendingIRQ() {
		t.Error("must not be pending before IME is set")
	}
	r.Write8(IMEAddr, 1)
	if !r.PendingIRQ() {
		t.Error("must be pending once IE, IF and IME all agree")
	}
}

func TestHaltCntTriggersCallback(t *testing.T) {
	called := false
	r := NewIORegs(func() { called = true })
	r.Write8(HaltCntAddr, 0)
	if !called {
		t.Error("writing HALTCNT must invoke onHalt")
	}
}

func TestKeyInputDefaultsAllReleased(t *testing.T) {
	r := NewIORegs(nil)
	got := uint16(r.Read8(KeyInputAddr)) | uint16(r.Read8(KeyInputAddr+1))<<8
	if got != 0x03FF {
		t.Errorf("KEYINPUT reset value = %#x, want 0x03FF (all released)", got)
	}
}

func TestSetKeysMasksPressedBits(t *testing.T) {
	r := NewIORegs(nil)
	r.SetKeys(^uint16(KeyA | KeyStart)) // press A and Start (active-low)
	got := uint16(r.Read8(KeyInputAddr)) | uint16(r.Read8(KeyInputAddr+1))<<8
	if got&KeyA != 0 || got&KeyStart != 0 {
		t.Errorf("KEYINPUT = %#x, A and Start should read as pressed (0)", got)
	}
	if got&KeyB == 0 {
		t.Error("B should still read as released")
	}
}

func TestIMEMirroredAcrossFourBytesIgnoresUpperThree(t *testing.T) {
	r := NewIORegs(nil)
	r.Write8(IMEAddr, 1)
	r.Write8(IMEAddr+1, 0xFF)
	r.Write8(IMEAddr+2, 0xFF)
	r.Write8(IMEAddr+3, 0xFF)
	if r.Read8(IMEAddr) != 1 {
		t.Error("IME low byte should still read 1")
	}
	r.RequestIRQ(IRQVBlank)
	r.Write8(IEAddr, uint8(IRQVBlank))
	if !r.PendingIRQ() {
		t.Error("writes to IME's upper mirror bytes must not disable IME")
	}
}

func TestSoundBiasLowHalfwordRoundTrips(t *testing.T) {
	r := NewIORegs(nil)
	r.Write16(SoundBiasAddr, 0xABCD)
	if got := r.Read16(SoundBiasAddr); got != 0xABCD {
		t.Errorf("Read16(SoundBiasAddr) = %#x, want 0xABCD", got)
	}
}
