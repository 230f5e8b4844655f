package web

type Options struct {
	// Routes are registered on the engine during Initialize.
	Routes []func(r Router)
	// Middlewares run after the stock request ID, recovery and access log.
	Middlewares []Handler
}

type Option func(*Options)

func WithRoutes(f func(r Router)) Option {
	return func(o *Options) { o.Routes = append(o.Routes, f) }
}

func WithMiddlewares(m ...Handler) Option {
	return func(o *Options) { o.Middlewares = append(o.Middlewares, m...) }
}
