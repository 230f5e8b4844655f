package core

import "time"

// Transition describes one state change of a module.
type Transition struct {
	Module   string
	From     State
	To       State
	Duration time.Duration // time spent in the step that ended in To
	Err      error
}

// Observer receives every module transition. Implementations must be safe
// for concurrent use; transitions of independent modules may be reported in
// parallel.
type Observer interface {
	Observe(Transition)
}

type ObserverFunc func(Transition)

func (f ObserverFunc) Observe(t Transition) { f(t) }

type observers []Observer

func (o observers) Observe(t Transition) {
	for _, obs := range o {
		obs.Observe(t)
	}
}
