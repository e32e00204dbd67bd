// Package tunable exposes the PID gains to a joystick so they can be adjusted while the
// tracker runs.
package tunable

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/sharedstate"
)

// Tunable is one named gain cell and the amount a single press moves it by.
type Tunable struct {
	Name string
	Cell *sharedstate.Float
	Step float64
}

// Add moves the value by steps increments.  Gains never go negative.
func (t *Tunable) Add(steps int) float64 {
	newV := t.Cell.Load() + float64(steps)*t.Step
	if newV < 0 {
		newV = 0
	}
	t.Cell.Store(newV)
	fmt.Printf("Tunable %s = %.4f\n", t.Name, newV)
	return newV
}

func (t *Tunable) Get() float64 {
	return t.Cell.Load()
}

type Tunables struct {
	All      []*Tunable
	selected int
}

func (t *Tunables) Create(name string, cell *sharedstate.Float, step float64) *Tunable {
	newTunable := &Tunable{
		Name: name,
		Cell: cell,
		Step: step,
	}
	t.All = append(t.All, newTunable)
	return newTunable
}

// ForGains builds the six pan/tilt P, I and D tunables, pan P selected.
func ForGains(state *sharedstate.State, step float64) *Tunables {
	t := &Tunables{}
	for _, axis := range []struct {
		name  string
		gains *sharedstate.Gains
	}{
		{"pan", &state.PanGains},
		{"tilt", &state.TiltGains},
	} {
		t.Create(axis.name+"-p", &axis.gains.P, step)
		t.Create(axis.name+"-i", &axis.gains.I, step)
		t.Create(axis.name+"-d", &axis.gains.D, step/10)
	}
	return t
}

func (t *Tunables) SelectNext() {
	t.selected++
	if t.selected >= len(t.All) {
		t.selected = 0
	}
	fmt.Println("Tunable", t.Current().Name, "selected, value:", t.Current().Get())
}

func (t *Tunables) SelectPrev() {
	t.selected--
	if t.selected < 0 {
		t.selected = len(t.All) - 1
	}
	fmt.Println("Tunable", t.Current().Name, "selected, value:", t.Current().Get())
}

func (t *Tunables) Current() *Tunable {
	return t.All[t.selected]
}
