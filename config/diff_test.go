package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffEvent(t *testing.T) {
	type server struct {
		Addr string
	}
	type cfg struct {
		Name   string   `config:"name"`
		Server server   `config:"server,omitempty"`
		Tags   []string `config:"tags"`
		Plain  int
		hidden int
	}

	tests := []struct {
		name string
		old  any
		new  any
		want []string
	}{
		{name: "nil old", old: nil, new: &cfg{}, want: nil},
		{name: "identical", old: &cfg{Name: "a"}, new: &cfg{Name: "a"}, want: nil},
		{
			name: "tag names are reported",
			old:  &cfg{Name: "a", Server: server{Addr: ":80"}},
			new:  &cfg{Name: "b", Server: server{Addr: ":81"}},
			want: []string{"name", "server"},
		},
		{name: "untagged field uses go name", old: cfg{Plain: 1}, new: &cfg{Plain: 2}, want: []string{"Plain"}},
		{name: "slices compared deeply", old: &cfg{Tags: []string{"x"}}, new: &cfg{Tags: []string{"x"}}, want: nil},
		{name: "unexported fields ignored", old: &cfg{hidden: 1}, new: &cfg{hidden: 2}, want: nil},
		{name: "different types", old: &cfg{}, new: &server{}, want: nil},
		{name: "non struct", old: 1, new: 2, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := diffEvent(tt.old, tt.new)
			assert.Equal(t, tt.want, evt.ChangedKeys)
			assert.Equal(t, tt.old, evt.OldConfig)
			assert.Equal(t, tt.new, evt.NewConfig)
		})
	}
}

func TestEvent_Changed(t *testing.T) {
	evt := Event{ChangedKeys: []string{"logging", "server"}}
	assert.True(t, evt.Changed("logging"))
	assert.False(t, evt.Changed("modules"))
}
