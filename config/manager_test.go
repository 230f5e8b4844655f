package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/skekre98/zamt/config"
	"github.com/skekre98/zamt/config/source"
)

// mutableSource lets a test change the data between reloads.
type mutableSource struct {
	data map[string]any
	err  error
}

func (s *mutableSource) Name() string { return "mutable" }

func (s *mutableSource) Load(ctx context.Context) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]any{}
	config.Merge(out, s.data)
	return out, nil
}

func (s *mutableSource) Watch(ctx context.Context, ch chan<- config.Event) error { return nil }

func TestNewManager_RejectsNonPointer(t *testing.T) {
	var cfg config.Root
	_, err := config.NewManager(cfg, config.Options{})
	assert.Error(t, err)

	var n int
	_, err = config.NewManager(&n, config.Options{})
	assert.Error(t, err)
}

func TestManager_LayersOverride(t *testing.T) {
	t.Setenv("ZAMT_SERVER_ADDR", ":7000")

	var cfg config.Root
	_, err := config.NewManager(&cfg, config.Options{Logger: zaptest.NewLogger(t)},
		source.Static("defaults", config.Defaults()),
		&source.EnvSource{},
		&source.CLISource{Args: []string{"--logging.level=debug", "--modules.parallelism", "4"}},
	)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Modules.Parallelism)
	assert.Equal(t, "zamt", cfg.App.Name)
}

func TestManager_EnvOverridesCamelCaseKeys(t *testing.T) {
	t.Setenv("ZAMT_MODULES_STOPTIMEOUT", "30s")
	t.Setenv("ZAMT_ACTUATOR_BASEPATH", "/ops")
	t.Setenv("ZAMT_SERVER_READTIMEOUT", "1s")

	var cfg config.Root
	_, err := config.NewManager(&cfg, config.Options{},
		source.Static("defaults", config.Defaults()),
		&source.EnvSource{},
	)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Modules.StopTimeout)
	assert.Equal(t, "/ops", cfg.Actuator.BasePath)
	assert.Equal(t, time.Second, cfg.Server.ReadTimeout)
}

func TestManager_InvalidInitialConfig(t *testing.T) {
	var cfg config.Root
	_, err := config.NewManager(&cfg, config.Options{},
		source.Static("defaults", config.Defaults()),
		source.Static("bad", map[string]any{"logging": map[string]any{"level": "loud"}}),
	)
	var bindErr *config.BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, config.StageValidate, bindErr.Stage)
}

func TestManager_ReloadNotifiesChanges(t *testing.T) {
	src := &mutableSource{data: config.Defaults()}
	var cfg config.Root
	mgr, err := config.NewManager(&cfg, config.Options{Logger: zaptest.NewLogger(t)}, src)
	require.NoError(t, err)

	events := make(chan config.Event, 1)
	mgr.Subscribe(events)

	// nothing changed: no event
	require.NoError(t, mgr.Reload(context.Background()))
	select {
	case evt := <-events:
		t.Fatalf("unexpected event %v", evt.ChangedKeys)
	default:
	}

	src.data["logging"] = map[string]any{"level": "warn", "format": "console"}
	require.NoError(t, mgr.Reload(context.Background()))

	select {
	case evt := <-events:
		assert.Equal(t, []string{"logging"}, evt.ChangedKeys)
		assert.True(t, evt.Changed("logging"))
		assert.Equal(t, "info", evt.OldConfig.(*config.Root).Logging.Level)
		assert.Equal(t, "warn", evt.NewConfig.(*config.Root).Logging.Level)
	default:
		t.Fatal("expected a change event")
	}
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "warn", mgr.Current().(*config.Root).Logging.Level)
}

func TestManager_FailedReloadKeepsConfig(t *testing.T) {
	src := &mutableSource{data: config.Defaults()}
	var cfg config.Root
	mgr, err := config.NewManager(&cfg, config.Options{}, src)
	require.NoError(t, err)

	src.data["server"] = map[string]any{"addr": ""}
	err = mgr.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	src.err = errors.New("unreachable")
	err = mgr.Reload(context.Background())
	assert.ErrorContains(t, err, "mutable")
	assert.Equal(t, ":8080", mgr.Current().(*config.Root).Server.Addr)
}

func TestManager_CurrentIsACopy(t *testing.T) {
	var cfg config.Root
	mgr, err := config.NewManager(&cfg, config.Options{}, source.Static("defaults", config.Defaults()))
	require.NoError(t, err)

	cp := mgr.Current().(*config.Root)
	cp.Server.Addr = ":1"
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestManager_AutoReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644))

	var cfg config.Root
	mgr, err := config.NewManager(&cfg, config.Options{AutoReload: true, Logger: zaptest.NewLogger(t)},
		source.Static("defaults", config.Defaults()),
		&source.FileSource{BasePath: dir},
	)
	require.NoError(t, err)
	defer mgr.Close()

	events := make(chan config.Event, 4)
	mgr.Subscribe(events)

	// no delay: watchers are armed once NewManager returns
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case evt := <-events:
			if evt.Changed("logging") && evt.NewConfig.(*config.Root).Logging.Level == "error" {
				return
			}
		case <-deadline:
			t.Fatalf("no reload observed, level = %s", mgr.Current().(*config.Root).Logging.Level)
		}
	}
}
