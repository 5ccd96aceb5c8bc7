package cache

import (
	"time"

	"github.com/jonwraymond/cherish/observe"
)

// Option configures a wrapper.
type Option func(*config)

type config struct {
	policy     Policy
	store      Store
	keyer      Keyer
	name       string
	runtime    *Runtime
	logger     observe.Logger
	middleware *observe.Middleware
	now        func() time.Time
}

func newConfig(opts []Option) *config {
	cfg := &config{policy: DefaultPolicy()}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	cfg.policy = cfg.policy.withDefaults()
	if cfg.runtime == nil {
		cfg.runtime = DefaultRuntime()
	}
	if cfg.store == nil {
		cfg.store = cfg.runtime.store
	}
	if cfg.keyer == nil {
		cfg.keyer = NewDefaultKeyer()
	}
	if cfg.logger == nil {
		cfg.logger = observe.LoggerFromEnv()
	}
	if cfg.middleware == nil {
		cfg.middleware = observe.NewMiddleware(observe.NewNoopTracer(), observe.NewNoopMetrics(), cfg.logger)
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return cfg
}

// WithTTL sets how long results stay fresh. Non-positive values keep
// DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.policy = Policy{TTL: ttl}
	}
}

// WithTTLSeconds is the shorthand form of WithTTL.
func WithTTLSeconds(seconds float64) Option {
	return func(c *config) {
		c.policy = PolicyFromSeconds(seconds)
	}
}

// WithStore persists results in s instead of the runtime's memory store.
func WithStore(s Store) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithStoreFuncs persists results through a get/set pair. Both halves are
// required; if either is nil the default store is used.
func WithStoreFuncs(get GetFunc, set SetFunc) Option {
	return func(c *config) {
		if get == nil || set == nil {
			c.store = nil
			return
		}
		c.store = StoreFuncs{GetFunc: get, SetFunc: set}
	}
}

// WithKeyer replaces the DefaultKeyer.
func WithKeyer(k Keyer) Option {
	return func(c *config) {
		c.keyer = k
	}
}

// WithName overrides the derived function identity.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithRuntime binds the wrapper to rt instead of DefaultRuntime.
func WithRuntime(rt *Runtime) Option {
	return func(c *config) {
		c.runtime = rt
	}
}

// WithLogger sets the logger for diagnostic trace lines. The default is
// observe.LoggerFromEnv.
func WithLogger(l observe.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMiddleware instruments refreshes with tracing, metrics and logging.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *config) {
		c.middleware = mw
	}
}

// WithClock replaces time.Now for freshness decisions.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}
