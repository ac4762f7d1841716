// Package ppu implements the bus-facing surface of the picture processing
// unit: its own Palette RAM/VRAM/OAM buffers, the DISPCNT/DISPSTAT/VCOUNT
// registers, and a minimal per-scanline timing model that produces the
// H-Blank/V-Blank/V-Counter-match edges the interrupt controller and frame
// driver need. Full rasterization beyond a Mode 3 bitmap demo is outside
// this core's scope; the contract other components see (bus addresses,
// IRQ edges, frame-ready signal) is what's modeled faithfully.
package ppu

import (
	"image"
	"image/color"
)

const (
	ScreenWidth  = 240
	ScreenHeight = 160

	cyclesPerScanline = 1232
	scanlinesPerFrame = 228

	paletteSize = 0x400
	vramSize    = 0x18000
	oamSize     = 0x400
)

// DISPSTAT bits.
const (
	dispstatVBlank       = 1 << 0
	dispstatHBlank       = 1 << 1
	dispstatVCounter     = 1 << 2
	dispstatVBlankIRQ    = 1 << 3
	dispstatHBlankIRQ    = 1 << 4
	dispstatVCounterIRQ  = 1 << 5
)

type PPU struct {
	Frame *image.RGBA

	palette [paletteSize]byte
	vram    [vramSize]byte
	oam     [oamSize]byte

	dispcnt  uint16
	dispstat uint16
	vcount   uint16

	cycleInLine   int
	frameReady    bool
	vblankEdge    bool
	vcounterEdge  bool
}

func NewPPU() *PPU {
	return &PPU{Frame: image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight))}
}

// IsPPUIORegister reports whether a generic-I/O-block-relative offset
// belongs to the PPU's own registers (0x000-0x05F covers DISPCNT through
// the BG/window/mosaic/blend block; only DISPCNT, DISPSTAT and VCOUNT are
// modeled here).
func (p *PPU) IsPPUIORegister(offset uint32) bool {
	return offset <= 0x005F
}

func (p *PPU) ReadIORegister8(offset uint32) uint8 {
	switch offset {
	case 0x0000:
		return uint8(p.dispcnt)
	case 0x0001:
		return uint8(p.dispcnt >> 8)
	case 0x0004:
		return uint8(p.dispstat)
	case 0x0005:
		return uint8(p.dispstat >> 8)
	case 0x0006:
		return uint8(p.vcount)
	case 0x0007:
		return uint8(p.vcount >> 8)
	}
	return 0
}

func (p *PPU) WriteIORegister8(offset uint32, v uint8) {
	switch offset {
	case 0x0000:
		p.dispcnt = p.dispcnt&0xFF00 | uint16(v)
	case 0x0001:
		p.dispcnt = p.dispcnt&0x00FF | uint16(v)<<8
	case 0x0004:
		// Only the three IRQ-enable bits (3..5) are writable; the status
		// bits (0..2) are hardware-driven and read-only.
		p.dispstat = p.dispstat&0xFFC7 | uint16(v)&0x0038
	case 0x0005:
		p.dispstat = p.dispstat&0x00FF | uint16(v)<<8
	}
}

func (p *PPU) ReadPaletteRAM8(offset uint32) uint8  { return p.palette[offset%paletteSize] }
func (p *PPU) WritePaletteRAM8(offset uint32, v uint8) { p.palette[offset%paletteSize] = v }

func (p *PPU) ReadVRAM8(offset uint32) uint8  { return p.vram[offset%vramSize] }
func (p *PPU) WriteVRAM8(offset uint32, v uint8) { p.vram[offset%vramSize] = v }

func (p *PPU) ReadOAM8(offset uint32) uint8  { return p.oam[offset%oamSize] }
func (p *PPU) WriteOAM8(offset uint32, v uint8) { p.oam[offset%oamSize] = v }

// Step advances the PPU by cycles and reports which edges occurred whose
// DISPSTAT IRQ-enable bit is set, so Bus.Step can latch them into IF. Each
// scanline is a fixed cyclesPerScanline budget split into a visible portion
// and an H-Blank tail; VCount wraps at scanlinesPerFrame, with lines 160..227
// being V-Blank.
func (p *PPU) Step(cycles int) (hblank, vblank, vcounterMatch bool) {
	wasHBlank := p.dispstat&dispstatHBlank != 0
	p.cycleInLine += cycles
	for p.cycleInLine >= cyclesPerScanline {
		p.cycleInLine -= cyclesPerScanline
		p.advanceLine()
	}

	nowHBlank := p.cycleInLine >= cyclesPerScanline-272
	if nowHBlank && !wasHBlank && p.dispstat&dispstatHBlankIRQ != 0 {
		hblank = true
	}
	if nowHBlank {
		p.dispstat |= dispstatHBlank
	} else {
		p.dispstat &^= dispstatHBlank
	}

	vb, vc := p.vblankEdge, p.vcounterEdge
	p.vblankEdge, p.vcounterEdge = false, false
	if p.dispstat&dispstatVBlankIRQ == 0 {
		vb = false
	}
	if p.dispstat&dispstatVCounterIRQ == 0 {
		vc = false
	}
	return hblank, vb, vc
}

func (p *PPU) advanceLine() {
	p.vcount++
	if p.vcount >= scanlinesPerFrame {
		p.vcount = 0
	}

	if p.vcount < ScreenHeight {
		p.renderScanline()
	}

	wasVBlank := p.dispstat&dispstatVBlank != 0
	nowVBlank := p.vcount >= ScreenHeight
	p.vblankEdge = nowVBlank && !wasVBlank
	if nowVBlank {
		p.dispstat |= dispstatVBlank
	} else {
		p.dispstat &^= dispstatVBlank
	}
	if p.vcount == 0 {
		p.frameReady = false
	}
	if p.vcount == ScreenHeight {
		p.frameReady = true
	}

	matchLine := uint16(p.dispstat>>8) // VCOUNT-match setting lives in DISPSTAT's upper byte on real hardware
	p.vcounterEdge = p.vcount == matchLine
	if p.vcounterEdge {
		p.dispstat |= dispstatVCounter
	} else {
		p.dispstat &^= dispstatVCounter
	}
}

func (p *PPU) renderScanline() {
	mode := p.dispcnt & 0x7
	if mode == 3 {
		p.renderMode3()
		return
	}
	for x := 0; x < ScreenWidth; x++ {
		p.Frame.SetRGBA(x, int(p.vcount), color.RGBA{A: 255})
	}
}

func (p *PPU) renderMode3() {
	for x := 0; x < ScreenWidth; x++ {
		offset := uint32(p.vcount)*ScreenWidth*2 + uint32(x*2)
		px := uint16(p.vram[offset]) | uint16(p.vram[offset+1])<<8

		r := uint8(px&0x1F) * 8
		g := uint8((px>>5)&0x1F) * 8
		b := uint8((px>>10)&0x1F) * 8
		p.Frame.SetRGBA(x, int(p.vcount), color.RGBA{r, g, b, 255})
	}
}

func (p *PPU) IsFrameReady() bool    { return p.frameReady }
func (p *PPU) ResetFrameReady()      { p.frameReady = false }
func (p *PPU) VCount() uint16        { return p.vcount }
