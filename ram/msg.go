package ram

import "github.com/sarchlab/akita/v4/sim"

// BusReq is one word sent to the bus. SOB and EOB mark the first and the last
// word of a burst.
type BusReq struct {
	ID    string
	Addr  uint64
	Data  uint64
	Write bool
	SOB   bool
	EOB   bool
}

// BusCpl is one completion returned by the bus. ReqID echoes the ID of the
// request when the bus keeps it; a bus is free to leave it empty.
type BusCpl struct {
	ReqID string
	Data  uint64
}

// BusReqBuilder is a factory for BusReq.
type BusReqBuilder struct {
	id       string
	addr     uint64
	data     uint64
	write    bool
	sob, eob bool
}

// WithID sets the ID of the request. If not set, a new ID is generated.
func (b BusReqBuilder) WithID(id string) BusReqBuilder {
	b.id = id
	return b
}

// WithAddress sets the address of the request.
func (b BusReqBuilder) WithAddress(addr uint64) BusReqBuilder {
	b.addr = addr
	return b
}

// WithData sets the data to write.
func (b BusReqBuilder) WithData(data uint64) BusReqBuilder {
	b.data = data
	return b
}

// AsWrite marks the request as a write.
func (b BusReqBuilder) AsWrite() BusReqBuilder {
	b.write = true
	return b
}

// WithBurstMarkers sets the start-of-burst and end-of-burst markers.
func (b BusReqBuilder) WithBurstMarkers(sob, eob bool) BusReqBuilder {
	b.sob = sob
	b.eob = eob
	return b
}

// Build creates a BusReq.
func (b BusReqBuilder) Build() BusReq {
	id := b.id
	if id == "" {
		id = sim.GetIDGenerator().Generate()
	}

	return BusReq{
		ID:    id,
		Addr:  b.addr,
		Data:  b.data,
		Write: b.write,
		SOB:   b.sob,
		EOB:   b.eob,
	}
}
