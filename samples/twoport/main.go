package main

import (
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/ramarbiter/config"
	"github.com/sarchlab/ramarbiter/core"
	"github.com/sarchlab/ramarbiter/ram"
	"github.com/sarchlab/ramarbiter/trace"
	"github.com/sarchlab/ramarbiter/verify"
	"github.com/tebeka/atexit"
)

func main() {
	monitor := monitoring.NewMonitor()

	engine := sim.NewSerialEngine()
	rec := trace.NewMemoryRecorder()

	cfg := config.Default()
	cfg.Memory.StallPattern = "1111111011"

	platform := config.PlatformBuilder{}.
		WithConfig(cfg).
		WithEngine(engine).
		WithMonitor(monitor).
		WithHook(trace.NewHook(rec)).
		Build("TwoPort")

	monitor.StartServer()

	platform.Run()

	for port := range cfg.Ports {
		cpls := platform.Driver.Completions(ram.PortID(port))
		data := make([]uint64, len(cpls))

		for i, cpl := range cpls {
			data[i] = cpl.Data
		}

		fmt.Printf("port %d: %#x\n", port, data)
	}

	core.PrintStats(os.Stdout, platform.Arbiter)
	verify.NewReport(rec.Events(), platform.Arbiter.Params()).
		WriteReport(os.Stdout)

	atexit.Exit(0)
}
