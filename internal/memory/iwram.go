package memory

// IWRAM is the GBA's 32KiB on-chip work RAM.
type IWRAM struct {
	data [IWRAM_SIZE]byte
}

func NewIWRAM() *IWRAM {
	return &IWRAM{}
}

func (i *IWRAM) Read8(addr uint32) uint8     { return i.data[addr] }
func (i *IWRAM) Write8(addr uint32, v uint8) { i.data[addr] = v }
