package ppu

import "testing"

func TestPaletteVRAMOAMRoundTrip(t *testing.T) {
	p := NewPPU()
	p.WritePaletteRAM8(0x10, 0x5A)
	if got := p.ReadPaletteRAM8(0x10); got != 0x5A {
		t.Errorf("palette round trip = %#x, want 0x5A", got)
	}
	p.WriteVRAM8(0x1000, 0x42)
	if got := p.ReadVRAM8(0x1000); got != 0x42 {
		t.Errorf("VRAM round trip = %#x, want 0x42", got)
	}
	p.WriteOAM8(0x20, 0x99)
	if got := p.ReadOAM8(0x20); got != 0x99 {
		t.Errorf("OAM round trip = %#x, want 0x99", got)
	}
}

func TestDISPSTATStatusBitsAreReadOnly(t *testing.T) {
	p := NewPPU()
	p.WriteIORegister8(0x0004, 0xFF) // attempt to set every bit, including status
	got := p.ReadIORegister8(0x0004)
	if got&0x07 != 0 {
		t.Errorf("DISPSTAT status bits must ignore writes, got low byte %#x", got)
	}
	if got&0x38 != 0x38 {
		t.Error("DISPSTAT's three IRQ-enable bits must be writable")
	}
}

func TestVBlankEdgeFiresOnceAndOnlyWhenEnabled(t *testing.T) {
	p := NewPPU()
	p.WriteIORegister8(0x0004, dispstatVBlankIRQ)

	var sawVBlank bool
	for line := 0; line < scanlinesPerFrame+1; line++ {
		_, vblank, _ := p.Step(cyclesPerScanline)
		if vblank {
			if sawVBlank {
				t.Fatal("V-Blank edge fired more than once per frame")
			}
			sawVBlank = true
		}
	}
	if !sawVBlank {
		t.Error("expected exactly one V-Blank edge per frame")
	}
}

func TestVBlankEdgeSuppressedWhenDisabled(t *testing.T) {
	p := NewPPU()
	for line := 0; line < scanlinesPerFrame+1; line++ {
		_, vblank, _ := p.Step(cyclesPerScanline)
		if vblank {
			t.Fatal("V-Blank edge must not fire when its IRQ-enable bit is clear")
		}
	}
}

func TestFrameReadyTogglesAtVBlankBoundary(t *testing.T) {
	p := NewPPU()
	for line := 0; line < ScreenHeight; line++ {
		p.Step(cyclesPerScanline)
	}
	if !p.IsFrameReady() {
		t.Fatal("frame should be ready once scanline ScreenHeight is reached")
	}
	p.ResetFrameReady()
	if p.IsFrameReady() {
		t.Error("ResetFrameReady must clear the flag")
	}
}

func TestIsPPUIORegisterBoundary(t *testing.T) {
	p := NewPPU()
	if !p.IsPPUIORegister(0x0000) || !p.IsPPUIORegister(0x005F) {
		t.Error("DISPCNT..0x5F must be claimed by the PPU")
	}
	if p.IsPPUIORegister(0x0060) {
		t.Error("offset 0x60 belongs to the generic I/O block, not the PPU")
	}
}
