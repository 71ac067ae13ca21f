package wgpudevice

import "log/slog"

// PresentMode selects how the swapchain paces presentation.
type PresentMode int

const (
	// PresentModeVSync waits for vertical blank (FIFO).
	PresentModeVSync PresentMode = iota
	// PresentModeUncapped presents immediately and may tear.
	PresentModeUncapped
)

// BackendBuilderOption is a functional option for configuring a WebGPU Backend.
type BackendBuilderOption func(*backend)

// WithPresentMode sets the swapchain present mode.
//
// Parameters:
//   - mode: VSync or Uncapped
//
// Returns:
//   - BackendBuilderOption: a function that applies the present mode option to a backend
func WithPresentMode(mode PresentMode) BackendBuilderOption {
	return func(b *backend) {
		b.presentMode = mode
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

// WithMaxBindGroups raises the device's bind group limit above the WebGPU default of 4.
func WithMaxBindGroups(n uint32) BackendBuilderOption {
	return func(b *backend) {
		if n > 0 {
			b.maxBindGroups = n
		}
	}
}
