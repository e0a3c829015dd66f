package record

// Options configures how a cursor and the entities it produces resolve names.
type Options struct {
	// DefaultPolicy applies to lookups that do not pass WithPolicy or WithSubIndex.
	DefaultPolicy AmbiguousPolicy
}

// DefaultOptions resolves duplicated names to their first occurrence.
func DefaultOptions() Options {
	return Options{DefaultPolicy: PolicyFirst}
}

// ResolveOption overrides name resolution for a single lookup.
type ResolveOption func(*resolveConfig)

type resolveConfig struct {
	policy AmbiguousPolicy
	sub    int
	bySub  bool
}

// WithPolicy resolves the lookup under p.
func WithPolicy(p AmbiguousPolicy) ResolveOption {
	return func(c *resolveConfig) {
		c.policy = p
		c.bySub = false
	}
}

// WithSubIndex resolves the sub-th (0-based) column carrying the name.
func WithSubIndex(sub int) ResolveOption {
	return func(c *resolveConfig) {
		c.sub = sub
		c.bySub = true
	}
}

func resolve(x *NameIndex, def AmbiguousPolicy, name string, opts []ResolveOption) (int, error) {
	cfg := resolveConfig{policy: def}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bySub {
		return x.ResolveAt(name, cfg.sub)
	}
	return x.Resolve(name, cfg.policy)
}
