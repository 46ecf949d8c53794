package main

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/sarchlab/ramarbiter/config"
	"github.com/sarchlab/ramarbiter/core"
	"github.com/tebeka/atexit"
)

//go:embed writeburst.yaml
var scenario []byte

func main() {
	cfg, err := config.Parse(scenario)
	if err != nil {
		panic(err)
	}

	platform := config.PlatformBuilder{}.
		WithConfig(cfg).
		Build("WriteBurst")

	platform.Run()

	word := uint64(cfg.Arbiter.WordBytes)

	for port, pc := range cfg.Ports {
		words := make([]uint64, 0)
		for addr := pc.AddrFirst; addr <= pc.AddrLast; addr += word {
			words = append(words, platform.Memory.ReadWord(addr))
		}

		fmt.Printf("port %d %#x..%#x: %v\n", port, pc.AddrFirst, pc.AddrLast, words)
	}

	core.PrintStats(os.Stdout, platform.Arbiter)

	atexit.Exit(0)
}
