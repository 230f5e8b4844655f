package config

import "context"

// ConfigSource is one layer of configuration data.
//
// Load returns the layer as a string-keyed map, possibly nested, and must
// return a copy the caller may modify. It must be safe for concurrent use and
// should return ctx.Err() once ctx is cancelled.
//
// Watch blocks until ctx is cancelled. It sends on ch once as soon as it is
// watching, then whenever the underlying data may have changed. Sources that
// cannot change return nil right away without sending. The channel is owned
// by the caller and must not be closed.
type ConfigSource interface {
	Load(ctx context.Context) (map[string]any, error)
	Watch(ctx context.Context, ch chan<- Event) error
	// Name identifies the source in errors and logs, e.g. "file", "env".
	Name() string
}

// Event describes a configuration change.
type Event struct {
	// ChangedKeys lists the top-level keys whose values differ between
	// OldConfig and NewConfig, by their config tag (e.g. "logging").
	ChangedKeys []string

	OldConfig any
	NewConfig any
}

// Changed reports whether key is among the changed keys.
func (e Event) Changed(key string) bool {
	for _, k := range e.ChangedKeys {
		if k == key {
			return true
		}
	}
	return false
}
