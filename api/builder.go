package api

import "github.com/sarchlab/akita/v4/sim"

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	engine   sim.Engine
	frameGap int
}

// WithEngine sets the engine.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithFrameGap sets the least number of cycles the frame of a port stays low
// between two frames.
func (b DriverBuilder) WithFrameGap(cycles int) DriverBuilder {
	b.frameGap = cycles
	return b
}

// Build create a driver.
func (b DriverBuilder) Build(name string) Driver {
	d := &driverImpl{
		name:     name,
		engine:   b.engine,
		frameGap: b.frameGap,
	}

	return d
}
