package source

import (
	"context"

	"github.com/skekre98/zamt/config"
)

// StaticSource serves a fixed map, typically config.Defaults().
type StaticSource struct {
	label string
	data  map[string]any
}

func Static(label string, data map[string]any) *StaticSource {
	return &StaticSource{label: label, data: data}
}

func (s *StaticSource) Name() string { return s.label }

func (s *StaticSource) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(s.data))
	config.Merge(out, s.data)
	return out, nil
}

func (s *StaticSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}
