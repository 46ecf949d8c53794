package core

// PortStats counts what happened at one port since the arbiter was built.
type PortStats struct {
	Submitted      uint64
	Ignored        uint64
	ReqOverflows   uint64
	Dispatched     uint64
	Bursts         uint64
	FlushBursts    uint64
	EOFs           uint64
	BusCompletions uint64
	CplOverflows   uint64
	AckOverflows   uint64
	Delivered      uint64
}

// Add accumulates the counters of another PortStats.
func (s *PortStats) Add(o PortStats) {
	s.Submitted += o.Submitted
	s.Ignored += o.Ignored
	s.ReqOverflows += o.ReqOverflows
	s.Dispatched += o.Dispatched
	s.Bursts += o.Bursts
	s.FlushBursts += o.FlushBursts
	s.EOFs += o.EOFs
	s.BusCompletions += o.BusCompletions
	s.CplOverflows += o.CplOverflows
	s.AckOverflows += o.AckOverflows
	s.Delivered += o.Delivered
}
