package core

import (
	"fmt"
	"reflect"
	"sync"
)

// values holds the shared objects seeded into a ModuleCenter before
// initialization. Modules only ever read from it.
type values struct {
	mu  sync.RWMutex
	reg map[any]any
}

func newValues() *values {
	return &values{reg: make(map[any]any)}
}

func (v *values) set(key, val any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reg[key] = val
}

func (v *values) get(key any) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.reg[key]
	return val, ok
}

// TypeKey is the key under which Put stores a value of type T.
type TypeKey[T any] struct{}

// Put seeds v into the center under its type.
func Put[T any](mc *ModuleCenter, v T) error {
	return mc.Provide(TypeKey[T]{}, v)
}

// Find returns the value of type T seeded with Put.
func Find[T any](c Center) (T, bool) {
	var zero T
	raw, ok := c.Value(TypeKey[T]{})
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// Get is Find for values a module cannot work without.
func Get[T any](c Center) (T, error) {
	v, ok := Find[T](c)
	if !ok {
		return v, fmt.Errorf("core: missing value of type %v", reflect.TypeFor[T]())
	}
	return v, nil
}

// Lookup returns the named module as T. The module must already be
// initialized, which holds for every declared dependency of the caller.
func Lookup[T any](c Center, name string) (T, error) {
	var zero T
	m, ok := c.Module(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	if st, _ := c.State(name); !st.Ready() {
		return zero, fmt.Errorf("module %s is %s: %w", name, st, ErrNotInitialized)
	}
	v, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf("%w: module %s is %T, want %v", ErrWrongType, name, m, reflect.TypeFor[T]())
	}
	return v, nil
}
