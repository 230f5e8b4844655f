package core

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Module is a stateful unit of capability whose lifecycle is driven by a
// ModuleCenter. A module is always held behind a pointer: its address is its
// identity for as long as the center references it.
type Module interface {
	Name() string
	// DependsOn declares hard dependencies by module name.
	DependsOn() []string
	// Initialize is called exactly once, after every dependency has been
	// initialized. It may block; the center applies no timeout unless one is
	// configured with WithInitTimeout. A module whose Initialize fails must
	// release what it acquired before returning: Stop is not called on it.
	Initialize(ctx context.Context, c Center) error
}

// Starter is implemented by modules that run long-lived work (servers,
// consumers) after the whole module graph is initialized.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by modules that hold resources. Stop releases
// whatever Initialize and Start acquired and is called on every exit path,
// including rollback after a failed Initialize of another module.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Center is the read-only view of a ModuleCenter handed to modules during
// Initialize. All methods are safe for concurrent use.
type Center interface {
	// Module returns the registered module with the given name.
	Module(name string) (Module, bool)
	// State reports the lifecycle state of the named module.
	State(name string) (State, bool)
	// Value returns a shared value seeded with Provide or Put.
	Value(key any) (any, bool)
	Logger() *zap.Logger
}

// Base can be embedded by modules. A module embedding Base can be owned by a
// single ModuleCenter only, so it is never initialized twice even across
// centers. Base must not be copied; go vet reports copies.
type Base struct {
	_     noCopy
	owned atomic.Bool
}

func (*Base) DependsOn() []string { return nil }

func (b *Base) claim() bool { return b.owned.CompareAndSwap(false, true) }

func (b *Base) release() { b.owned.Store(false) }

type claimer interface {
	claim() bool
	release()
}

// noCopy is picked up by the copylocks check of go vet.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
