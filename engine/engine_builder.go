package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithWindow sets the window the engine polls and renders into.
//
// Parameters:
//   - w: an opened Window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithBackend uses an existing graphics backend instead of creating a WebGPU one for the window.
// The engine does not release a backend passed this way.
func WithBackend(b device.Backend) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
	}
}

// WithSettings sets the initial settings. They are validated by NewEngine.
func WithSettings(s config.Settings) EngineBuilderOption {
	return func(e *engine) {
		e.settings = s
	}
}

// WithSettingsFile names a settings file that Run watches for edits. The file is not read here;
// load it with config.Load and pass the result to WithSettings.
//
// Parameters:
//   - path: the YAML settings file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSettingsFile(path string) EngineBuilderOption {
	return func(e *engine) {
		e.settingsPath = path
	}
}

// WithScene sets the scene to render. Without it an empty scene named "main" is created.
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithCamera sets the viewing camera. Its field of view and clip planes are overridden by the camera settings.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithRendererOptions appends options applied after the ones derived from settings, such as
// renderer.WithSkybox.
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithLogger sets the structured logger shared by the engine and everything it creates.
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTickRate sets the scene update rate in ticks per second. Values <= 0 keep the default of 60.
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60
		}
		e.tickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithRenderFrameLimit caps the render loop in frames per second. 0 leaves it uncapped.
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
