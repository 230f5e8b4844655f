package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/skekre98/zamt/config"
)

// FileSource loads application.yaml (or .yml) from BasePath and, when
// Profile is set, deep-merges application.<profile>.yaml over it. A missing
// base file is an error; a missing profile file is not.
type FileSource struct {
	BasePath string
	Profile  string
}

func (f *FileSource) Name() string { return "file" }

func (f *FileSource) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := findYAMLFile(f.dir(), "application")
	if base == "" {
		return nil, fmt.Errorf("no application.yaml in %s: %w", f.dir(), os.ErrNotExist)
	}
	data, err := readYAML(base)
	if err != nil {
		return nil, err
	}

	if f.Profile != "" {
		if path := findYAMLFile(f.dir(), "application."+f.Profile); path != "" {
			overlay, err := readYAML(path)
			if err != nil {
				return nil, err
			}
			config.Merge(data, overlay)
		}
	}
	return data, nil
}

// Watch watches BasePath and signals ch once armed, then whenever the base
// or profile file is written, created, renamed or removed. Watching the directory rather than
// the files keeps working across editors that save by renaming.
func (f *FileSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(f.dir()); err != nil {
		return fmt.Errorf("watch %s: %w", f.dir(), err)
	}

	// armed
	select {
	case ch <- config.Event{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !f.relevant(ev) {
				continue
			}
			select {
			case ch <- config.Event{}:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", f.dir(), err)
		}
	}
}

func (f *FileSource) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	names := []string{"application"}
	if f.Profile != "" {
		names = append(names, "application."+f.Profile)
	}
	base := filepath.Base(ev.Name)
	for _, n := range names {
		if base == n+".yaml" || base == n+".yml" {
			return true
		}
	}
	return false
}

func (f *FileSource) dir() string {
	if f.BasePath == "" {
		return "."
	}
	return f.BasePath
}

func findYAMLFile(dir, basename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, basename+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readYAML(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}
