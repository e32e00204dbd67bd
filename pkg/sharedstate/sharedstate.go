// Package sharedstate holds the scalar cells that the tracking loops use to talk to each
// other.  Every cell is atomic on its own; there is no locking across cells and the
// latest write always wins.
package sharedstate

import (
	"math"
	"sync/atomic"
)

// Int is an atomic integer cell, used for frame coordinates.
type Int struct {
	v atomic.Int64
}

func (c *Int) Load() int {
	return int(c.v.Load())
}

func (c *Int) Store(v int) {
	c.v.Store(int64(v))
}

// Float is an atomic float64 cell.  The value is kept as its IEEE-754 bits.
type Float struct {
	bits atomic.Uint64
}

func (c *Float) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}

func (c *Float) Store(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// Gains are the three PID gain cells for one axis.  Each field is atomic on its own, a
// reader may see a mix of old and new fields while a tuner is mid-update.
type Gains struct {
	P, I, D Float
}

func (g *Gains) Load() (p, i, d float64) {
	return g.P.Load(), g.I.Load(), g.D.Load()
}

func (g *Gains) Store(p, i, d float64) {
	g.P.Store(p)
	g.I.Store(i)
	g.D.Store(d)
}

type State struct {
	// Written by the perception loop.
	TargetX, TargetY Int
	CenterX, CenterY Int

	// Written by the pan and tilt controllers respectively.
	PanOutput, TiltOutput Float

	// Written once at start up, then only by the gain tuner.
	PanGains, TiltGains Gains
}

// GainValues is a plain copy of one axis' gains, used to seed the cells.
type GainValues struct {
	P, I, D float64
}

// Init puts every cell into its neutral state.  It must run before any loop is started.
func (s *State) Init(pan, tilt GainValues) {
	s.TargetX.Store(0)
	s.TargetY.Store(0)
	s.CenterX.Store(0)
	s.CenterY.Store(0)
	s.PanOutput.Store(0)
	s.TiltOutput.Store(0)
	s.PanGains.Store(pan.P, pan.I, pan.D)
	s.TiltGains.Store(tilt.P, tilt.I, tilt.D)
}

// AxisCells is the view of State that one axis controller works on.
type AxisCells struct {
	Target *Int
	Center *Int
	Gains  *Gains
	Output *Float
}

func (s *State) Pan() AxisCells {
	return AxisCells{
		Target: &s.TargetX,
		Center: &s.CenterX,
		Gains:  &s.PanGains,
		Output: &s.PanOutput,
	}
}

func (s *State) Tilt() AxisCells {
	return AxisCells{
		Target: &s.TargetY,
		Center: &s.CenterY,
		Gains:  &s.TiltGains,
		Output: &s.TiltOutput,
	}
}
