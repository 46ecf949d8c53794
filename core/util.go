package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	// LevelTrace is the log level of the per-cycle arbiter events.
	LevelTrace slog.Level = slog.LevelInfo + 1
)

// Trace logs a per-cycle event at LevelTrace.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// StatsTable renders the per-port statistics of an arbiter.
func StatsTable(a *Arbiter) table.Writer {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s @ cycle %d", a.Name(), a.Cycle()))

	t.AppendHeader(table.Row{
		"Port", "Submitted", "Ignored", "ReqOvf",
		"Dispatched", "Bursts", "Flush", "EOF",
		"BusCpl", "CplOvf", "AckOvf", "Delivered",
	})

	var total PortStats

	for i, s := range a.Stats() {
		total.Add(s)
		t.AppendRow(statsRow(fmt.Sprintf("%d", i), s))
	}

	t.AppendFooter(statsRow("Total", total))

	return t
}

func statsRow(label string, s PortStats) table.Row {
	return table.Row{
		label, s.Submitted, s.Ignored, s.ReqOverflows,
		s.Dispatched, s.Bursts, s.FlushBursts, s.EOFs,
		s.BusCompletions, s.CplOverflows, s.AckOverflows, s.Delivered,
	}
}

// PrintStats writes the statistics table of an arbiter to w.
func PrintStats(w io.Writer, a *Arbiter) {
	fmt.Fprintln(w, StatsTable(a).Render())
}

// LogState logs the queue and store occupancy of every port.
func LogState(a *Arbiter) {
	for _, q := range a.queues {
		slog.Debug("ArbiterState",
			"Arbiter", a.Name(),
			"Cycle", a.cycle,
			"Port", q.id,
			"Active", q.active,
			"FlushTrigger", q.flushTrigger,
			"Flushing", q.flushing,
			"Level", q.level(),
			"CplOccupancy", a.store.occupancy(q.id),
			"Packer", a.packer.state,
		)
	}
}
