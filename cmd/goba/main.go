// Command goba runs a GBA ROM against the ARM7TDMI core for a fixed
// number of frames and dumps the last rendered frame to a PNG, as a
// headless smoke test of the CPU/bus/PPU wiring.
package main

import (
	"flag"
	"image/png"
	"log"
	"os"
	"time"

	"goba/internal/bus"
	"goba/internal/cartridge"
	"goba/internal/cpu"
	"goba/internal/frame"
	"goba/internal/io"
	"goba/internal/memory"
	"goba/internal/ppu"
	"goba/util/dbg"
)

func main() {
	romPath := flag.String("rom", "", "path to the GBA ROM image")
	biosPath := flag.String("bios", "", "path to the GBA BIOS image (16KiB); zeroed if omitted")
	frameCount := flag.Int("frames", 60, "number of frames to run before dumping output")
	outPath := flag.String("out", "frame.png", "PNG path for the final frame")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("goba: -rom is required")
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("goba: reading ROM: %v", err)
	}

	var biosData []byte
	if *biosPath != "" {
		biosData, err = os.ReadFile(*biosPath)
		if err != nil {
			log.Fatalf("goba: reading BIOS: %v", err)
		}
	}

	bi := memory.NewBIOS(biosData)
	ewram := memory.NewEWRAM()
	iwram := memory.NewIWRAM()
	gpu := ppu.NewPPU()
	cart := cartridge.NewCartridge(romData)

	var c *cpu.CPU
	regs := io.NewIORegs(func() {
		if c != nil {
			c.SetHalted(true)
		}
	})

	b := bus.NewBus(bi, ewram, iwram, gpu, cart, regs)
	c = cpu.NewCPU(b)
	c.Reset()

	driver := frame.NewDriver(c, b, regs)

	start := time.Now()
	for i := 0; i < *frameCount; i++ {
		driver.RunFrame()
	}
	dbg.Printf("ran %d frames in %s", *frameCount, time.Since(start))

	if err := saveFrame(gpu, *outPath); err != nil {
		log.Fatalf("goba: saving frame: %v", err)
	}
	log.Printf("wrote %s", *outPath)
}

func saveFrame(p *ppu.PPU, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, p.Frame)
}
