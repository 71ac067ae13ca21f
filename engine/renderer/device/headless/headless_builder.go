package headless

import "log/slog"

// BackendBuilderOption is a functional option for configuring a headless Backend.
type BackendBuilderOption func(*backend)

// WithSurfaceSize sets the initial virtual swapchain size in pixels.
func WithSurfaceSize(width, height int) BackendBuilderOption {
	return func(b *backend) {
		b.width = width
		b.height = height
	}
}

// WithWireframeSupport makes CreatePipeline accept line polygon mode.
func WithWireframeSupport(enabled bool) BackendBuilderOption {
	return func(b *backend) {
		b.supportsWireframe = enabled
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) BackendBuilderOption {
	return func(b *backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}
