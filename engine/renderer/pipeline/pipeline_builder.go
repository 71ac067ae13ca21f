package pipeline

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithComputeShader sets the compute shader and its workgroup size.
//
// Parameters:
//   - s: the compute shader to use for this pipeline
//   - x, y, z: the @workgroup_size declared by the shader
//
// Returns:
//   - PipelineBuilderOption: a function that sets the compute shader for this pipeline
func WithComputeShader(s shader.Shader, x, y, z uint32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeShader = s
		p.workgroupSize = [3]uint32{x, y, z}
	}
}

// WithVertexLayout appends a vertex buffer layout; slots are assigned in call order.
func WithVertexLayout(layout VertexLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayouts = append(p.vertexLayouts, layout)
	}
}

// WithBindGroupLayout appends a bind group layout; group numbers are assigned in call order.
//
// Parameters:
//   - bindings: the bindings of the group
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithBindGroupLayout(bindings ...BindingLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.bindGroupLayouts = append(p.bindGroupLayouts, BindGroupLayout(bindings))
	}
}

// WithColorTargets sets the color attachment formats.
func WithColorTargets(formats ...common.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorTargets = formats
	}
}

// WithDepthFormat sets the depth attachment format. TextureFormatUndefined disables depth entirely.
func WithDepthFormat(format common.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writes are enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthCompare sets the depth comparison function used when depth testing is enabled.
func WithDepthCompare(compare common.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = compare
	}
}

// WithDepthBias sets the constant and slope-scaled depth bias. Shadow pipelines use this
// to push occluder depth away from the light and reduce acne.
//
// Parameters:
//   - constant: constant depth bias in depth units
//   - slopeScale: bias multiplied by the polygon's depth slope
//
// Returns:
//   - PipelineBuilderOption: option function to apply
func WithDepthBias(constant int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = constant
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithCullMode sets the face culling mode.
//
// Parameters:
//   - mode: the cull mode to use
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the front face winding order.
//
// Parameters:
//   - face: the front face winding order
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(face FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = face
	}
}

// WithPolygonMode sets filled or wireframe rasterization.
func WithPolygonMode(mode PolygonMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.polygonMode = mode
	}
}

// WithBlendMode sets the color blend mode for all color targets.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend mode for this pipeline
func WithBlendMode(mode BlendMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendMode = mode
	}
}
