package memory

// BIOS is the GBA's 16KiB internal boot ROM. Its contents come from the
// host (loaded from a file, same as the cartridge image) rather than being
// embedded in the binary, since redistributing the real BIOS image is not
// this module's concern.
type BIOS struct {
	data []byte
}

// NewBIOS wraps data as the BIOS region, zero-padding or truncating to
// BIOS_SIZE so out-of-range reads never need a bounds check.
func NewBIOS(data []byte) *BIOS {
	fixed := make([]byte, BIOS_SIZE)
	copy(fixed, data)
	return &BIOS{data: fixed}
}

func (b *BIOS) Read8(addr uint32) uint8 { return b.data[addr] }

// Write8 is a no-op: the BIOS is read-only hardware, and real software
// occasionally probes it with a write it expects to be silently dropped.
func (b *BIOS) Write8(addr uint32, v uint8) {}
