package cpu

import (
	"testing"

	"goba/internal/psr"
)

func TestReadR15AppliesPipelineOffset(t *testing.T) {
	r := NewRegisters()
	r.Write(15, 0x08000000)

	if got := r.Read(15); got != 0x08000004 {
		t.Errorf("ARM-state Read(15) = %#x, want %#x", got, 0x08000004)
	}

	cpsr := r.CPSR()
	cpsr.SetT(true)
	r.SetCPSR(cpsr)
	if got := r.Read(15); got != 0x08000002 {
		t.Errorf("Thumb-state Read(15) = %#x, want %#x", got, 0x08000002)
	}
}

func TestReadRawIgnoresPipelineOffset(t *testing.T) {
	r := NewRegisters()
	r.Write(15, 0x08000000)
	if got := r.ReadRaw(15); got != 0x08000000 {
		t.Errorf("ReadRaw(15) = %#x, want %#x", got, 0x08000000)
	}
}

func TestModeSwitchRoundTripIsIdentity(t *testing.T) {
	r := NewRegisters()
	r.Write(13, 0x03007F00)
	r.Write(14, 0x12345678)
	before13, before14 := r.Read(13), r.Read(14)

	r.SwitchMode(psr.ModeSupervisor, psr.ModeUser)
	r.Write(13, 0xDEADBEEF) // svc's own r13, must not leak back to User
	r.SwitchMode(psr.ModeUser, psr.ModeSupervisor)

	if r.Read(13) != before13 || r.Read(14) != before14 {
		t.Errorf("User r13/r14 after A->B->A = (%#x,%#x), want (%#x,%#x)",
			r.Read(13), r.Read(14), before13, before14)
	}
}

func TestUserSystemShareOneBank(t *testing.T) {
	r := NewRegisters()
	r.Write(13, 0x03007F00)
	r.SwitchMode(psr.ModeSystem, psr.ModeUser)
	if r.Read(13) != 0x03007F00 {
		t.Error("System mode must alias User's r13/r14 bank")
	}
}

func TestFIQBanksR8ToR12(t *testing.T) {
	r := NewRegisters()
	for i := uint8(8); i <= 12; i++ {
		r.Write(i, uint32(i-7)) // r8..r12 = 1..5
	}
	r.SwitchMode(psr.ModeFIQ, psr.ModeUser)
	for i := uint8(8); i <= 12; i++ {
		r.Write(i, 0) // FIQ's own shadow, perturbed by the handler
	}
	r.SwitchMode(psr.ModeUser, psr.ModeFIQ)
	for i := uint8(8); i <= 12; i++ {
		if want := uint32(i - 7); r.Read(i) != want {
			t.Errorf("r%d after FIQ round trip = %#x, want %#x", i, r.Read(i), want)
		}
	}
}

func TestSPSRPerMode(t *testing.T) {
	r := NewRegisters()
	var svc, irq psr.PSR
	svc.SetValue(0x111)
	irq.SetValue(0x222)
	r.SetSPSRFor(psr.ModeSupervisor, svc)
	r.SetSPSRFor(psr.ModeIRQ, irq)

	r.SwitchMode(psr.ModeSupervisor, psr.ModeUser)
	if r.SPSR().Value() != 0x111 {
		t.Errorf("SPSR in SVC = %#x, want 0x111", r.SPSR().Value())
	}
	r.SwitchMode(psr.ModeIRQ, psr.ModeSupervisor)
	if r.SPSR().Value() != 0x222 {
		t.Errorf("SPSR in IRQ = %#x, want 0x222", r.SPSR().Value())
	}
}

func TestReadWriteUserBankFromFIQMode(t *testing.T) {
	r := NewRegisters()
	r.Write(13, 0x03007F00) // User r13, before entering FIQ
	r.SwitchMode(psr.ModeFIQ, psr.ModeUser)
	// FIQ mode now has its own (zeroed) r13; readUserBank must still reach
	// the User bank's stored value rather than the active FIQ r13.
	if got := r.readUserBank(13); got != 0x03007F00 {
		t.Errorf("readUserBank(13) from FIQ = %#x, want %#x", got, 0x03007F00)
	}
	r.writeUserBank(13, 0xCAFEBABE)
	r.SwitchMode(psr.ModeUser, psr.ModeFIQ)
	if r.Read(13) != 0xCAFEBABE {
		t.Errorf("User r13 after writeUserBank from FIQ = %#x, want 0xCAFEBABE", r.Read(13))
	}
}
