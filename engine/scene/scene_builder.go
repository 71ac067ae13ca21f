package scene

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithCullingDisabled disables frustum culling in Drawables.
//
// Parameters:
//   - disabled: true to emit every enabled object regardless of the frustum
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}

// WithSink registers a mutation sink before any object is added.
func WithSink(sink MutationSink) SceneBuilderOption {
	return func(s *scene) {
		s.sinks = append(s.sinks, sink)
	}
}
