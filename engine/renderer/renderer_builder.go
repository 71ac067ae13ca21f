package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/pool"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger sets the structured logger. The pool and shadow map created by the renderer share it.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPool uses an existing pool instead of creating one. The renderer does not release it.
//
// Parameters:
//   - p: the Scene Resource Pool the renderer reconciles and draws from
//
// Returns:
//   - RendererBuilderOption: a function that applies the pool option to a renderer
func WithPool(p pool.Pool) RendererBuilderOption {
	return func(r *renderer) {
		r.pool = p
	}
}

// WithDrawableSource sets where each frame's drawables come from, typically a scene.Scene.
// Without a source every frame is empty.
func WithDrawableSource(source DrawableSource) RendererBuilderOption {
	return func(r *renderer) {
		r.source = source
	}
}

// WithSkybox sets the six cube faces uploaded at Load. All faces must be square and the same size.
//
// Parameters:
//   - faces: the faces in +X, -X, +Y, -Y, +Z, -Z order
//
// Returns:
//   - RendererBuilderOption: a function that applies the skybox option to a renderer
func WithSkybox(faces SkyboxFaces) RendererBuilderOption {
	return func(r *renderer) {
		r.skyboxFaces = &faces
	}
}

// WithLight sets the initial directional light.
func WithLight(l light.DirectionalLight) RendererBuilderOption {
	return func(r *renderer) {
		r.light = l
	}
}

// WithShadowSettings sets the initial shadow settings. They are validated by Load.
func WithShadowSettings(s light.ShadowSettings) RendererBuilderOption {
	return func(r *renderer) {
		r.shadowSettings = s
	}
}

// WithResolveSettings sets the exposure and skybox terms of the final composite.
func WithResolveSettings(s config.ResolveSettings) RendererBuilderOption {
	return func(r *renderer) {
		r.resolve = s
	}
}

// WithDebugMode sets the initial debug visualization.
func WithDebugMode(mode DebugMode) RendererBuilderOption {
	return func(r *renderer) {
		if mode < debugModeCount {
			r.debugMode = mode
		}
	}
}

// WithWireframe requests the wireframe G-Buffer pipeline. Load turns it off with a warning when
// the backend cannot rasterize lines.
func WithWireframe(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.wireframe = enabled
	}
}
