package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Manager loads configuration from an ordered list of sources, validates it
// and notifies subscribers of changes.
//
// Later sources override earlier ones, so [defaults, file, env, cli] lets CLI
// flags win over everything else. An update is all-or-nothing: when loading,
// binding or validation fails the current configuration is left untouched.
// All methods are safe for concurrent use.
type Manager struct {
	sources []ConfigSource
	config  any
	binder  *Binder
	logger  *zap.Logger

	reloadMu sync.Mutex // serializes Reload

	mu   sync.RWMutex
	subs []chan Event

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Options struct {
	// AutoReload starts a watcher per source and reloads on every change.
	// Call Close to stop the watchers.
	AutoReload bool
	Logger     *zap.Logger
}

// NewManager loads cfg, a pointer to a struct with `config` and `validate`
// tags, from sources.
//
//	var cfg config.Root
//	mgr, err := config.NewManager(&cfg, config.Options{AutoReload: true},
//	    source.Static("defaults", config.Defaults()),
//	    &source.FileSource{BasePath: "configs"},
//	    &source.EnvSource{},
//	    &source.CLISource{},
//	)
func NewManager(cfg any, opts Options, sources ...ConfigSource) (*Manager, error) {
	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("config: target must be a non-nil pointer to a struct, got %T", cfg)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &Manager{
		sources: sources,
		config:  cfg,
		binder:  NewBinder(),
		logger:  opts.Logger.Named("config"),
	}

	if err := m.Reload(context.Background()); err != nil {
		return nil, err
	}

	if opts.AutoReload {
		m.startWatchers()
	}
	return m, nil
}

// Reload loads every source, merges, binds and validates the result, then
// swaps it in. Subscribers are notified only when a value actually changed.
func (m *Manager) Reload(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	merged := map[string]any{}
	for _, src := range m.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		vals, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", src.Name(), err)
		}
		Merge(merged, vals)
	}

	typ := reflect.TypeOf(m.config).Elem()
	newCfg := reflect.New(typ)
	if err := m.binder.Bind(merged, newCfg.Interface()); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	m.mu.Lock()
	oldCfg := reflect.New(typ)
	oldCfg.Elem().Set(reflect.ValueOf(m.config).Elem())
	reflect.ValueOf(m.config).Elem().Set(newCfg.Elem())
	m.mu.Unlock()

	if !reflect.DeepEqual(oldCfg.Interface(), newCfg.Interface()) {
		evt := diffEvent(oldCfg.Interface(), newCfg.Interface())
		m.logger.Info("configuration changed", zap.Strings("keys", evt.ChangedKeys))
		m.notify(evt)
	}
	return nil
}

// Current returns a copy of the configuration as a pointer of the type passed
// to NewManager. Use it instead of reading that struct while AutoReload may
// be writing to it.
func (m *Manager) Current() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := reflect.New(reflect.TypeOf(m.config).Elem())
	cp.Elem().Set(reflect.ValueOf(m.config).Elem())
	return cp.Interface()
}

// Subscribe registers ch for change events. Sends never block: when ch is
// full the event is dropped, so use a buffered channel. The Manager never
// closes ch.
func (m *Manager) Subscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ch)
}

func (m *Manager) notify(evt Event) {
	m.mu.RLock()
	subs := append([]chan Event(nil), m.subs...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			m.logger.Warn("subscriber channel full, dropping config event")
		}
	}
}

// Close stops the watchers started by AutoReload and waits for them.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// startWatchers arms every source's watcher before returning. A source
// signals once when armed; the reload that follows picks up changes made
// between the initial load and that point.
func (m *Manager) startWatchers() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	for _, src := range m.sources {
		ch := make(chan Event, 1)
		stopped := make(chan error, 1)

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			stopped <- src.Watch(ctx, ch)
		}()

		select {
		case <-ch:
		case err := <-stopped:
			m.watchStopped(src, err)
			continue
		}
		m.reload(ctx, src)

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case err := <-stopped:
					m.watchStopped(src, err)
					return
				case <-ch:
					m.reload(ctx, src)
				}
			}
		}()
	}
}

func (m *Manager) reload(ctx context.Context, src ConfigSource) {
	if err := m.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("config reload failed, keeping previous configuration",
			zap.String("source", src.Name()),
			zap.Error(err),
		)
	}
}

func (m *Manager) watchStopped(src ConfigSource, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn("config watch stopped", zap.String("source", src.Name()), zap.Error(err))
	}
}
