package core

import (
	"time"

	"go.uber.org/zap"
)

const DefaultStopTimeout = 15 * time.Second

type Options struct {
	Logger    *zap.Logger
	Observers []Observer
	// Parallelism bounds how many modules of one dependency level are
	// initialized at the same time. Values below 2 initialize sequentially.
	Parallelism int
	// InitTimeout bounds each Initialize call. Zero means no deadline.
	InitTimeout time.Duration
	StopTimeout time.Duration
}

type Option func(*Options)

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithObserver(obs ...Observer) Option {
	return func(o *Options) { o.Observers = append(o.Observers, obs...) }
}

func WithParallelism(n int) Option {
	return func(o *Options) { o.Parallelism = n }
}

func WithInitTimeout(d time.Duration) Option {
	return func(o *Options) { o.InitTimeout = d }
}

func WithStopTimeout(d time.Duration) Option {
	return func(o *Options) { o.StopTimeout = d }
}
