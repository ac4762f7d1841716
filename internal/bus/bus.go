// Package bus implements the GBA system bus: region dispatch over BIOS,
// work RAM, the I/O register block, the PPU's memory-mapped surface, and
// the cartridge, including each region's address mirroring and the
// open-bus behavior of reads that land outside any mapped device.
package bus

import (
	"goba/internal/cartridge"
	"goba/internal/io"
	"goba/internal/memory"
	"goba/internal/ppu"
	"goba/util/dbg"
)

// Address ranges of the GBA memory map. Each mirrored region is expressed
// as a start/mirror-end pair; Read8/Write8 fold an address down to its
// local offset with a modulo against the region's real size.
const (
	BIOSStart = 0x00000000
	BIOSEnd   = 0x00003FFF

	EWRAMStart     = 0x02000000
	EWRAMMirrorEnd = 0x02FFFFFF

	IWRAMStart     = 0x03000000
	IWRAMMirrorEnd = 0x03FFFFFF

	IOStart     = 0x04000000
	IOMirrorEnd = 0x04FFFFFF

	PalRAMStart     = 0x05000000
	PalRAMMirrorEnd = 0x05FFFFFF

	VRAMStart     = 0x06000000
	VRAMMirrorEnd = 0x06FFFFFF

	OAMStart     = 0x07000000
	OAMMirrorEnd = 0x07FFFFFF

	ROMWS0Start, ROMWS0End = 0x08000000, 0x09FFFFFF
	ROMWS1Start, ROMWS1End = 0x0A000000, 0x0BFFFFFF
	ROMWS2Start, ROMWS2End = 0x0C000000, 0x0DFFFFFF

	SRAMStart = 0x0E000000
	SRAMEnd   = 0x0E00FFFF
)

// Bus wires the CPU to every memory-mapped component.
type Bus struct {
	BIOS  *memory.BIOS
	EWRAM *memory.EWRAM
	IWRAM *memory.IWRAM

	IORegs *io.IORegs

	PPU       *ppu.PPU
	Cartridge *cartridge.Cartridge

	cycles uint64
}

func NewBus(bios *memory.BIOS, ewram *memory.EWRAM, iwram *memory.IWRAM, p *ppu.PPU, cart *cartridge.Cartridge, ioRegs *io.IORegs) *Bus {
	return &Bus{BIOS: bios, EWRAM: ewram, IWRAM: iwram, PPU: p, Cartridge: cart, IORegs: ioRegs}
}

func (b *Bus) Read8(addr uint32) uint8 {
	switch {
	case addr >= BIOSStart && addr <= BIOSEnd:
		return b.BIOS.Read8(addr - BIOSStart)

	case addr >= EWRAMStart && addr <= EWRAMMirrorEnd:
		return b.EWRAM.Read8((addr - EWRAMStart) % memory.EWRAM_SIZE)

	case addr >= IWRAMStart && addr <= IWRAMMirrorEnd:
		return b.IWRAM.Read8((addr - IWRAMStart) % memory.IWRAM_SIZE)

	case addr >= IOStart && addr <= IOMirrorEnd:
		offset := (addr - IOStart) % io.Size
		if b.PPU.IsPPUIORegister(offset) {
			return b.PPU.ReadIORegister8(offset)
		}
		return b.IORegs.Read8(offset)

	case addr >= PalRAMStart && addr <= PalRAMMirrorEnd:
		return b.PPU.ReadPaletteRAM8((addr - PalRAMStart) % 0x400)

	case addr >= VRAMStart && addr <= VRAMMirrorEnd:
		return b.PPU.ReadVRAM8(vramMirror(addr - VRAMStart))

	case addr >= OAMStart && addr <= OAMMirrorEnd:
		return b.PPU.ReadOAM8((addr - OAMStart) % 0x400)

	case addr >= ROMWS0Start && addr <= ROMWS0End:
		return b.Cartridge.ReadROM8(addr - ROMWS0Start)
	case addr >= ROMWS1Start && addr <= ROMWS1End:
		return b.Cartridge.ReadROM8(addr - ROMWS1Start)
	case addr >= ROMWS2Start && addr <= ROMWS2End:
		return b.Cartridge.ReadROM8(addr - ROMWS2Start)

	case addr >= SRAMStart && addr <= SRAMEnd:
		return b.Cartridge.ReadSRAM8(addr - SRAMStart)

	default:
		dbg.Printf("bus: open-bus read at %08X", addr)
		return uint8((addr / 2) & 0xFF)
	}
}

func (b *Bus) Write8(addr uint32, v uint8) {
	switch {
	case addr >= BIOSStart && addr <= BIOSEnd:
		b.BIOS.Write8(addr-BIOSStart, v)

	case addr >= EWRAMStart && addr <= EWRAMMirrorEnd:
		b.EWRAM.Write8((addr-EWRAMStart)%memory.EWRAM_SIZE, v)

	case addr >= IWRAMStart && addr <= IWRAMMirrorEnd:
		b.IWRAM.Write8((addr-IWRAMStart)%memory.IWRAM_SIZE, v)

	case addr >= IOStart && addr <= IOMirrorEnd:
		offset := (addr - IOStart) % io.Size
		if b.PPU.IsPPUIORegister(offset) {
			b.PPU.WriteIORegister8(offset, v)
			return
		}
		b.IORegs.Write8(offset, v)

	case addr >= PalRAMStart && addr <= PalRAMMirrorEnd:
		b.PPU.WritePaletteRAM8((addr-PalRAMStart)%0x400, v)

	case addr >= VRAMStart && addr <= VRAMMirrorEnd:
		b.PPU.WriteVRAM8(vramMirror(addr-VRAMStart), v)

	case addr >= OAMStart && addr <= OAMMirrorEnd:
		b.PPU.WriteOAM8((addr-OAMStart)%0x400, v)

	case addr >= ROMWS0Start && addr <= ROMWS0End:
		b.Cartridge.WriteROM8(addr-ROMWS0Start, v)
	case addr >= ROMWS1Start && addr <= ROMWS1End:
		b.Cartridge.WriteROM8(addr-ROMWS1Start, v)
	case addr >= ROMWS2Start && addr <= ROMWS2End:
		b.Cartridge.WriteROM8(addr-ROMWS2Start, v)

	case addr >= SRAMStart && addr <= SRAMEnd:
		b.Cartridge.WriteSRAM8(addr-SRAMStart, v)

	default:
		dbg.Printf("bus: write %02X to unmapped address %08X", v, addr)
	}
}

// vramMirror folds VRAM's 96KiB region into its actual 128KiB address
// window: the top 32KiB (object tile data's mirror area) repeats the
// preceding 32KiB rather than wrapping at the true 96KiB size.
func vramMirror(offset uint32) uint32 {
	offset %= 0x20000
	if offset >= 0x18000 {
		offset -= 0x8000
	}
	return offset
}

func (b *Bus) Read16(addr uint32) uint16 {
	return uint16(b.Read8(addr)) | uint16(b.Read8(addr+1))<<8
}

func (b *Bus) Write16(addr uint32, v uint16) {
	b.Write8(addr, uint8(v))
	b.Write8(addr+1, uint8(v>>8))
}

// Read32 reads the little-endian word containing addr. A misaligned addr
// returns that aligned word rotated right by (addr&3)*8 bits.
func (b *Bus) Read32(addr uint32) uint32 {
	aligned := addr &^ 0x3
	v := uint32(b.Read16(aligned)) | uint32(b.Read16(aligned+2))<<16
	rot := (addr & 0x3) * 8
	if rot == 0 {
		return v
	}
	return v>>rot | v<<(32-rot)
}

func (b *Bus) Write32(addr uint32, v uint32) {
	b.Write16(addr, uint16(v))
	b.Write16(addr+2, uint16(v>>16))
}

// Step advances the PPU by cycles and latches any resulting V-Blank,
// H-Blank or V-Counter-match interrupt into IF, if that source is enabled
// in DISPSTAT. The frame driver calls this once per iteration of its cycle
// loop, including iterations in which the halted CPU does not step.
func (b *Bus) Step(cycles int) {
	b.cycles += uint64(cycles)
	hblank, vblank, vcounter := b.PPU.Step(cycles)
	if hblank {
		b.IORegs.RequestIRQ(io.IRQHBlank)
	}
	if vblank {
		b.IORegs.RequestIRQ(io.IRQVBlank)
	}
	if vcounter {
		b.IORegs.RequestIRQ(io.IRQVCounter)
	}
}

func (b *Bus) Cycles() uint64 { return b.cycles }
