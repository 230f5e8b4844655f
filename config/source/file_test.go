package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/zamt/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "application.yaml", `
server:
  addr: ":8080"
  readTimeout: 5s
logging:
  level: info
`)
	writeFile(t, dir, "application.prod.yml", `
server:
  addr: ":80"
`)

	t.Run("base only", func(t *testing.T) {
		got, err := (&FileSource{BasePath: dir}).Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ":8080", got["server"].(map[string]any)["addr"])
	})

	t.Run("profile overlay", func(t *testing.T) {
		got, err := (&FileSource{BasePath: dir, Profile: "prod"}).Load(context.Background())
		require.NoError(t, err)
		server := got["server"].(map[string]any)
		assert.Equal(t, ":80", server["addr"])
		assert.Equal(t, "5s", server["readTimeout"])
		assert.Equal(t, "info", got["logging"].(map[string]any)["level"])
	})

	t.Run("missing profile is fine", func(t *testing.T) {
		_, err := (&FileSource{BasePath: dir, Profile: "staging"}).Load(context.Background())
		assert.NoError(t, err)
	})
}

func TestFileSource_LoadErrors(t *testing.T) {
	t.Run("missing base", func(t *testing.T) {
		_, err := (&FileSource{BasePath: t.TempDir()}).Load(context.Background())
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("bad yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "application.yaml", "server: [unclosed")
		_, err := (&FileSource{BasePath: dir}).Load(context.Background())
		assert.ErrorContains(t, err, "parse")
	})

	t.Run("bad profile yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "application.yaml", "app:\n  name: x\n")
		writeFile(t, dir, "application.dev.yaml", "app: [unclosed")
		_, err := (&FileSource{BasePath: dir, Profile: "dev"}).Load(context.Background())
		assert.Error(t, err)
	})
}

func TestFileSource_Watch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "application.yaml", "app:\n  name: a\n")

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan config.Event, 1)
	done := make(chan error, 1)
	go func() { done <- (&FileSource{BasePath: dir}).Watch(ctx, ch) }()

	wait := func(what string) {
		t.Helper()
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("no %s event", what)
		}
	}

	// the first signal means the watcher is armed
	wait("armed")

	writeFile(t, dir, "notes.txt", "hello")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: b\n"), 0o644))
	wait("change")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestFileSource_WatchMissingDir(t *testing.T) {
	ch := make(chan config.Event, 1)
	err := (&FileSource{BasePath: filepath.Join(t.TempDir(), "missing")}).Watch(context.Background(), ch)
	assert.Error(t, err)
	assert.Empty(t, ch)
}

func TestFileSource_Relevant(t *testing.T) {
	f := &FileSource{BasePath: "/cfg", Profile: "prod"}
	assert.True(t, f.relevant(fsEvent("/cfg/application.yaml")))
	assert.True(t, f.relevant(fsEvent("/cfg/application.prod.yml")))
	assert.False(t, f.relevant(fsEvent("/cfg/application.dev.yaml")))
	assert.False(t, f.relevant(fsEvent("/cfg/other.yaml")))
}

func fsEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}
