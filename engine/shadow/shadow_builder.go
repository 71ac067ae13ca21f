package shadow

import "log/slog"

// ManagerBuilderOption is a function that configures a shadow map manager.
type ManagerBuilderOption func(*manager)

// WithLogger sets the logger for map (re)creation messages.
func WithLogger(logger *slog.Logger) ManagerBuilderOption {
	return func(m *manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLabel sets the backend label of the depth texture and framebuffer.
func WithLabel(label string) ManagerBuilderOption {
	return func(m *manager) {
		m.label = label
	}
}
