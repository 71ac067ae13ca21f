package pool

import "log/slog"

// PoolBuilderOption is a functional option for configuring a Pool.
type PoolBuilderOption func(*pool)

// WithLogger sets the logger used for rebuild and rejection messages.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - PoolBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) PoolBuilderOption {
	return func(p *pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLabel sets the prefix of every buffer and texture label the pool allocates.
func WithLabel(label string) PoolBuilderOption {
	return func(p *pool) {
		p.label = label
	}
}
