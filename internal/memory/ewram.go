package memory

// EWRAM is the GBA's 256KiB external work RAM.
type EWRAM struct {
	data [EWRAM_SIZE]byte
}

func NewEWRAM() *EWRAM {
	return &EWRAM{}
}

func (e *EWRAM) Read8(addr uint32) uint8        { return e.data[addr] }
func (e *EWRAM) Write8(addr uint32, v uint8)    { e.data[addr] = v }
