package core

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrAlreadyStarted     = errors.New("already started")
	ErrSealed             = errors.New("module center is sealed")
	ErrInvalidModule      = errors.New("invalid module")
	ErrDuplicateModule    = errors.New("duplicate module")
	ErrMissingDependency  = errors.New("missing dependency")
	ErrDependencyCycle    = errors.New("dependency cycle")
	ErrModuleNotFound     = errors.New("module not found")
	ErrWrongType          = errors.New("wrong type")
)

// Phase names the lifecycle step during which a LifecycleError occurred.
type Phase string

const (
	PhaseInitialize Phase = "initialize"
	PhaseStart      Phase = "start"
	PhaseStop       Phase = "stop"
)

// LifecycleError reports a failure of a single module.
type LifecycleError struct {
	Module string
	Phase  Phase
	Err    error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("module %s: %s: %v", e.Module, e.Phase, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}
