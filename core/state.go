package core

import "sync"

type State uint8

const (
	StateConstructed State = iota
	StateInitializing
	StateInitialized
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "Constructed"
	case StateInitializing:
		return "Initializing"
	case StateInitialized:
		return "Initialized"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Ready reports whether a module in this state has completed Initialize and
// has not been torn down.
func (s State) Ready() bool {
	switch s {
	case StateInitialized, StateStarting, StateRunning:
		return true
	}
	return false
}

// MarshalText lets states render as names in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type stateLock struct {
	mu    sync.RWMutex
	state State
	err   error
}

// swap moves to next if the current state is one of from and returns the
// state that was replaced.
func (l *stateLock) swap(next State, from ...State) (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range from {
		if l.state == f {
			prev := l.state
			l.state = next
			return prev, true
		}
	}
	return l.state, false
}

func (l *stateLock) set(state State, err error) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.state
	l.state = state
	l.err = err
	return prev
}

func (l *stateLock) get() (State, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.err
}
