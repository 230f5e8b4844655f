package source

import (
	"context"
	"os"
	"strings"

	"github.com/skekre98/zamt/config"
)

const DefaultEnvPrefix = "ZAMT_"

// EnvSource loads prefixed environment variables. The prefix is stripped,
// the rest is lowercased and split on underscores into a nested path:
//
//	ZAMT_SERVER_ADDR=:9090     -> {server: {addr: ":9090"}}
//	ZAMT_LOGGING_LEVEL=debug   -> {logging: {level: "debug"}}
//
// Keys are matched to `config` tags case-insensitively, so
// ZAMT_MODULES_STOPTIMEOUT fills Modules.StopTimeout.
type EnvSource struct {
	// Prefix defaults to DefaultEnvPrefix.
	Prefix string
}

func (e *EnvSource) Name() string { return "env" }

func (e *EnvSource) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return loadEnvVars(os.Environ(), prefix), nil
}

// Watch is a no-op: the environment of a running process does not change.
func (e *EnvSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}

func loadEnvVars(environ []string, prefix string) map[string]any {
	result := make(map[string]any)
	for _, kv := range environ {
		key, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(key, prefix) {
			continue
		}
		key = strings.ToLower(strings.TrimPrefix(key, prefix))
		if key == "" {
			continue
		}
		setNestedValue(result, strings.Split(key, "_"), value)
	}
	return result
}
