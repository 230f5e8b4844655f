package core

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/skekre98/zamt/worker"
)

// ModuleCenter registers modules, initializes each of them exactly once in
// dependency order, and tears them down in reverse order. Modules see it
// through the read-only Center interface.
//
// A ModuleCenter is single-use: once Initialize has been called no module or
// value can be added.
type ModuleCenter struct {
	opts   Options
	logger *zap.Logger
	obs    observers
	vals   *values

	mu      sync.RWMutex // guards entries, order and sealed
	entries map[string]*entry
	order   []*entry
	sealed  bool

	// lifecycle serializes Initialize, Start and Stop.
	lifecycle   sync.Mutex
	initialized bool
	started     bool
	stopped     bool
}

type entry struct {
	mod   Module
	name  string
	deps  []string
	state stateLock
}

// New creates an empty ModuleCenter.
func New(opts ...Option) *ModuleCenter {
	o := Options{StopTimeout: DefaultStopTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	mc := &ModuleCenter{
		opts:    o,
		logger:  o.Logger.Named("modules"),
		obs:     observers(o.Observers),
		vals:    newValues(),
		entries: make(map[string]*entry),
	}
	mc.vals.set(TypeKey[Inspector]{}, Inspector(mc))
	return mc
}

// Register adds modules to the center. Either all of mods are registered or
// none is.
func (mc *ModuleCenter) Register(mods ...Module) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.sealed {
		return ErrSealed
	}

	staged := make(map[string]*entry, len(mods))
	for _, m := range mods {
		e, err := mc.validate(m, staged)
		if err != nil {
			return err
		}
		staged[e.name] = e
	}

	var claimed []claimer
	for _, e := range staged {
		c, ok := e.mod.(claimer)
		if !ok {
			continue
		}
		if !c.claim() {
			for _, prev := range claimed {
				prev.release()
			}
			return fmt.Errorf("%w: %s is owned by another module center", ErrDuplicateModule, e.name)
		}
		claimed = append(claimed, c)
	}

	for name, e := range staged {
		mc.entries[name] = e
		mc.logger.Debug("module registered", zap.String("module", name), zap.Strings("dependsOn", e.deps))
	}
	return nil
}

func (mc *ModuleCenter) validate(m Module, staged map[string]*entry) (*entry, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil module", ErrInvalidModule)
	}
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("%w: %T must be a non-nil pointer", ErrInvalidModule, m)
	}
	name := m.Name()
	if name == "" {
		return nil, fmt.Errorf("%w: %T has an empty name", ErrInvalidModule, m)
	}
	for _, set := range []map[string]*entry{mc.entries, staged} {
		if _, ok := set[name]; ok {
			return nil, fmt.Errorf("%w: name %s", ErrDuplicateModule, name)
		}
		for _, e := range set {
			if e.mod == m {
				return nil, fmt.Errorf("%w: %T already registered as %s", ErrDuplicateModule, m, e.name)
			}
		}
	}
	return &entry{
		mod:  m,
		name: name,
		deps: append([]string(nil), m.DependsOn()...),
	}, nil
}

// Provide seeds a shared value modules can read during Initialize.
func (mc *ModuleCenter) Provide(key, value any) error {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if mc.sealed {
		return ErrSealed
	}
	mc.vals.set(key, value)
	return nil
}

// Initialize validates the dependency graph and initializes every registered
// module once. If a module fails, no further module is initialized and the
// ones already initialized are stopped in reverse order.
func (mc *ModuleCenter) Initialize(ctx context.Context) error {
	mc.lifecycle.Lock()
	defer mc.lifecycle.Unlock()

	mc.mu.Lock()
	if mc.sealed {
		mc.mu.Unlock()
		return ErrAlreadyInitialized
	}
	order, err := topoSort(mc.entries)
	if err != nil {
		mc.mu.Unlock()
		return err
	}
	mc.order = order
	mc.sealed = true
	mc.mu.Unlock()

	mc.logger.Info("initializing modules",
		zap.Int("count", len(order)),
		zap.Int("parallelism", mc.opts.Parallelism),
	)

	start := time.Now()
	if mc.opts.Parallelism > 1 {
		err = mc.initParallel(ctx, order)
	} else {
		err = mc.initSequential(ctx, order)
	}
	if err != nil {
		mc.logger.Error("module initialization failed, rolling back", zap.Error(err))
		if rbErr := mc.rollback(ctx, nil); rbErr != nil {
			err = multierr.Append(err, rbErr)
		}
		return err
	}

	mc.initialized = true
	mc.logger.Info("modules initialized", zap.Duration("took", time.Since(start)))
	return nil
}

func (mc *ModuleCenter) initSequential(ctx context.Context, order []*entry) error {
	for _, e := range order {
		if err := mc.initOne(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (mc *ModuleCenter) initParallel(ctx context.Context, order []*entry) error {
	pool, err := worker.New("module-init", mc.opts.Parallelism, mc.logger)
	if err != nil {
		return err
	}
	defer pool.Release(mc.opts.StopTimeout)

	for _, level := range levels(order) {
		tasks := make([]worker.Task, len(level))
		for i, e := range level {
			e := e
			tasks[i] = func(ctx context.Context) error { return mc.initOne(ctx, e) }
		}
		if err := pool.Run(ctx, tasks...); err != nil {
			return err
		}
	}
	return nil
}

func (mc *ModuleCenter) initOne(ctx context.Context, e *entry) (err error) {
	if err := ctx.Err(); err != nil {
		return &LifecycleError{Module: e.name, Phase: PhaseInitialize, Err: err}
	}
	if prev, ok := e.state.swap(StateInitializing, StateConstructed); !ok {
		return &LifecycleError{
			Module: e.name,
			Phase:  PhaseInitialize,
			Err:    fmt.Errorf("module is %s: %w", prev, ErrAlreadyInitialized),
		}
	}
	mc.report(e.name, StateConstructed, StateInitializing, 0, nil)

	ictx := ctx
	if mc.opts.InitTimeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, mc.opts.InitTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = mc.fail(e, StateInitializing, PhaseInitialize, time.Since(start), fmt.Errorf("panic: %v", r))
		}
	}()

	if ierr := e.mod.Initialize(ictx, mc); ierr != nil {
		return mc.fail(e, StateInitializing, PhaseInitialize, time.Since(start), ierr)
	}

	took := time.Since(start)
	e.state.set(StateInitialized, nil)
	mc.report(e.name, StateInitializing, StateInitialized, took, nil)
	mc.logger.Info("module initialized", zap.String("module", e.name), zap.Duration("took", took))
	return nil
}

func (mc *ModuleCenter) fail(e *entry, from State, phase Phase, took time.Duration, err error) error {
	e.state.set(StateFailed, err)
	mc.report(e.name, from, StateFailed, took, err)
	mc.logger.Error("module failed",
		zap.String("module", e.name),
		zap.String("phase", string(phase)),
		zap.Duration("took", took),
		zap.Error(err),
	)
	return &LifecycleError{Module: e.name, Phase: phase, Err: err}
}

// Start runs Start on every module implementing Starter, in dependency
// order. Modules without Starter move straight to Running. If a module fails
// to start, every module, the failed one included, is stopped in reverse
// order.
func (mc *ModuleCenter) Start(ctx context.Context) error {
	mc.lifecycle.Lock()
	defer mc.lifecycle.Unlock()

	if !mc.initialized || mc.stopped {
		return ErrNotInitialized
	}
	if mc.started {
		return ErrAlreadyStarted
	}
	mc.started = true

	for _, e := range mc.order {
		if err := mc.startOne(ctx, e); err != nil {
			if rbErr := mc.rollback(ctx, e); rbErr != nil {
				err = multierr.Append(err, rbErr)
			}
			return err
		}
	}
	mc.logger.Info("modules running", zap.Int("count", len(mc.order)))
	return nil
}

func (mc *ModuleCenter) startOne(ctx context.Context, e *entry) error {
	if _, ok := e.state.swap(StateStarting, StateInitialized); !ok {
		return nil
	}
	mc.report(e.name, StateInitialized, StateStarting, 0, nil)

	start := time.Now()
	if s, ok := e.mod.(Starter); ok {
		if err := s.Start(ctx); err != nil {
			return mc.fail(e, StateStarting, PhaseStart, time.Since(start), err)
		}
	}
	e.state.set(StateRunning, nil)
	mc.report(e.name, StateStarting, StateRunning, time.Since(start), nil)
	return nil
}

// Stop tears down every initialized module in reverse dependency order. A
// failing module does not prevent the others from stopping; all failures are
// returned combined. Calling Stop again is a no-op.
func (mc *ModuleCenter) Stop(ctx context.Context) error {
	mc.lifecycle.Lock()
	defer mc.lifecycle.Unlock()

	if mc.stopped {
		return nil
	}
	mc.stopped = true

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, mc.opts.StopTimeout)
		defer cancel()
	}

	mc.logger.Info("stopping modules", zap.Int("count", len(mc.order)))
	return mc.stopAll(ctx, nil)
}

// rollback stops everything after a failed Initialize or Start. failed is
// the module whose Start failed: it keeps its Failed state but still gets
// Stop, since its Initialize succeeded.
func (mc *ModuleCenter) rollback(ctx context.Context, failed *entry) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mc.opts.StopTimeout)
	defer cancel()
	return mc.stopAll(ctx, failed)
}

func (mc *ModuleCenter) stopAll(ctx context.Context, failed *entry) error {
	var errs error
	for i := len(mc.order) - 1; i >= 0; i-- {
		e := mc.order[i]
		if e == failed {
			errs = multierr.Append(errs, mc.release(ctx, e))
			continue
		}
		errs = multierr.Append(errs, mc.stopOne(ctx, e))
	}
	return errs
}

func (mc *ModuleCenter) release(ctx context.Context, e *entry) error {
	s, ok := e.mod.(Stopper)
	if !ok {
		return nil
	}
	if err := s.Stop(ctx); err != nil {
		mc.logger.Error("release after failed start", zap.String("module", e.name), zap.Error(err))
		return &LifecycleError{Module: e.name, Phase: PhaseStop, Err: err}
	}
	return nil
}

func (mc *ModuleCenter) stopOne(ctx context.Context, e *entry) error {
	prev, ok := e.state.swap(StateStopping, StateInitialized, StateStarting, StateRunning)
	if !ok {
		return nil
	}
	mc.report(e.name, prev, StateStopping, 0, nil)

	start := time.Now()
	if s, ok := e.mod.(Stopper); ok {
		if err := s.Stop(ctx); err != nil {
			return mc.fail(e, StateStopping, PhaseStop, time.Since(start), err)
		}
	}
	took := time.Since(start)
	e.state.set(StateStopped, nil)
	mc.report(e.name, StateStopping, StateStopped, took, nil)
	mc.logger.Info("module stopped", zap.String("module", e.name), zap.Duration("took", took))
	return nil
}

func (mc *ModuleCenter) report(name string, from, to State, took time.Duration, err error) {
	mc.logger.Debug("state transition",
		zap.String("module", name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	mc.obs.Observe(Transition{Module: name, From: from, To: to, Duration: took, Err: err})
}

func (mc *ModuleCenter) Module(name string) (Module, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	e, ok := mc.entries[name]
	if !ok {
		return nil, false
	}
	return e.mod, true
}

func (mc *ModuleCenter) State(name string) (State, bool) {
	mc.mu.RLock()
	e, ok := mc.entries[name]
	mc.mu.RUnlock()
	if !ok {
		return StateConstructed, false
	}
	st, _ := e.state.get()
	return st, true
}

func (mc *ModuleCenter) Value(key any) (any, bool) {
	return mc.vals.get(key)
}

func (mc *ModuleCenter) Logger() *zap.Logger {
	return mc.logger
}

// Order returns module names in initialization order. It is empty until
// Initialize has validated the dependency graph.
func (mc *ModuleCenter) Order() []string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	names := make([]string, len(mc.order))
	for i, e := range mc.order {
		names[i] = e.name
	}
	return names
}

// Inspector reports on every module of a center. Each center seeds itself
// under this type, so modules can read it with Get[Inspector].
type Inspector interface {
	Order() []string
	Statuses() []Status
}

// Status is a point-in-time snapshot of one module.
type Status struct {
	Name      string   `json:"name"`
	State     State    `json:"state"`
	DependsOn []string `json:"dependsOn,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Statuses returns a snapshot of every module, in initialization order once
// known and by name before that.
func (mc *ModuleCenter) Statuses() []Status {
	mc.mu.RLock()
	list := mc.order
	if list == nil {
		list = make([]*entry, 0, len(mc.entries))
		for _, e := range mc.entries {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })
	}
	mc.mu.RUnlock()

	out := make([]Status, len(list))
	for i, e := range list {
		st, err := e.state.get()
		out[i] = Status{Name: e.name, State: st, DependsOn: e.deps}
		if err != nil {
			out[i].Error = err.Error()
		}
	}
	return out
}
