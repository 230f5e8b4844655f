package config

import "time"

type AppInfo struct {
	Name    string `config:"name" validate:"required"`
	Version string `config:"version" validate:"required"`
}

type LoggingConfig struct {
	Level  string `config:"level" validate:"oneof=debug info warn error"`
	Format string `config:"format" validate:"oneof=json console"`
}

// ModulesConfig drives the module center.
type ModulesConfig struct {
	// Parallelism above 1 initializes independent modules concurrently.
	Parallelism int           `config:"parallelism" validate:"min=0,max=256"`
	InitTimeout time.Duration `config:"initTimeout" validate:"min=0"`
	StopTimeout time.Duration `config:"stopTimeout" validate:"min=0"`
	// Disabled lists stock modules that are not registered.
	Disabled []string `config:"disabled"`
}

type MetricsConfig struct {
	Enabled bool   `config:"enabled"`
	Path    string `config:"path" validate:"omitempty,startswith=/"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `config:"metrics"`
}

type ActuatorConfig struct {
	BasePath string `config:"basePath" validate:"omitempty,startswith=/"`
}

type ServerConfig struct {
	Addr         string        `config:"addr" validate:"required"`
	ReadTimeout  time.Duration `config:"readTimeout"`
	WriteTimeout time.Duration `config:"writeTimeout"`
	IdleTimeout  time.Duration `config:"idleTimeout"`
}

type Root struct {
	App           AppInfo             `config:"app"`
	Logging       LoggingConfig       `config:"logging"`
	Modules       ModulesConfig       `config:"modules"`
	Server        ServerConfig        `config:"server"`
	Observability ObservabilityConfig `config:"observability"`
	Actuator      ActuatorConfig      `config:"actuator"`
}

// Disabled reports whether the named module is switched off.
func (r Root) Disabled(module string) bool {
	for _, d := range r.Modules.Disabled {
		if d == module {
			return true
		}
	}
	return false
}

// Defaults is the lowest configuration layer. Every call returns a fresh map.
func Defaults() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"name":    "zamt",
			"version": "dev",
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "json",
		},
		"modules": map[string]any{
			"parallelism": 1,
			"stopTimeout": "15s",
		},
		"server": map[string]any{
			"addr":         ":8080",
			"readTimeout":  "5s",
			"writeTimeout": "10s",
			"idleTimeout":  "60s",
		},
		"observability": map[string]any{
			"metrics": map[string]any{
				"enabled": true,
				"path":    "/metrics",
			},
		},
		"actuator": map[string]any{
			"basePath": "/actuator",
		},
	}
}
