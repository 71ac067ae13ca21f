package pipeline

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/pkg/errors"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and (optionally) fragment shader entry points.
	PipelineTypeRender
)

// CullMode selects which triangle faces are discarded.
type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

// FrontFace selects the winding order of front-facing triangles.
type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// PolygonMode selects filled or wireframe rasterization.
type PolygonMode int

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
)

// BlendMode selects the color blend equation of every color target.
type BlendMode int

const (
	// BlendModeNone writes the fragment color unchanged.
	BlendModeNone BlendMode = iota
	// BlendModeAlpha is standard src-alpha / one-minus-src-alpha blending.
	BlendModeAlpha
	// BlendModeAdditive adds the fragment color to the target.
	BlendModeAdditive
)

// VertexFormat is the format of a single vertex attribute.
type VertexFormat int

const (
	VertexFormatFloat32x2 VertexFormat = iota
	VertexFormatFloat32x3
	VertexFormatFloat32x4
	VertexFormatUint32
)

// VertexAttribute describes one attribute inside a vertex buffer.
type VertexAttribute struct {
	Location uint32
	Offset   uint64
	Format   VertexFormat
}

// VertexLayout describes one per-vertex buffer slot.
type VertexLayout struct {
	Stride     uint64
	Attributes []VertexAttribute
}

// BindingKind is the resource type of a single binding slot.
type BindingKind int

const (
	BindingUniformBuffer BindingKind = iota
	BindingStorageBuffer
	BindingTexture2D
	BindingTexture2DUint
	BindingTexture2DArray
	BindingTextureDepth2D
	BindingSampler
	BindingComparisonSampler
	BindingStorageTexture2DArray
)

// IsTexture reports whether the kind binds a texture view.
func (k BindingKind) IsTexture() bool {
	switch k {
	case BindingTexture2D, BindingTexture2DUint, BindingTexture2DArray, BindingTextureDepth2D, BindingStorageTexture2DArray:
		return true
	}
	return false
}

// IsSampler reports whether the kind binds a sampler.
func (k BindingKind) IsSampler() bool {
	return k == BindingSampler || k == BindingComparisonSampler
}

// IsBuffer reports whether the kind binds a buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingUniformBuffer || k == BindingStorageBuffer
}

// ShaderStage is a bit set of stages a binding is visible to.
type ShaderStage uint32

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment
	StageCompute
)

// BindingLayout declares a single binding slot inside a bind group.
type BindingLayout struct {
	Binding    uint32
	Kind       BindingKind
	Visibility ShaderStage
	// Format is the texel format of storage texture bindings.
	Format common.TextureFormat
}

// BindGroupLayout is the ordered list of bindings of one bind group.
type BindGroupLayout []BindingLayout

// pipeline is the implementation of the Pipeline interface.
// It holds the declarative state a backend needs to create a native pipeline object.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	vertexShader, fragmentShader, computeShader shader.Shader

	vertexLayouts    []VertexLayout
	bindGroupLayouts []BindGroupLayout
	colorTargets     []common.TextureFormat
	depthFormat      common.TextureFormat

	// The following properties are only used by render pipelines.

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthCompare        common.CompareFunction
	depthBias           int32
	depthBiasSlopeScale float32
	cullMode            CullMode
	frontFace           FrontFace
	polygonMode         PolygonMode
	blendMode           BlendMode

	workgroupSize [3]uint32

	// native is the backend's pipeline object, set once by the backend at creation.
	native any
}

// Pipeline is a declarative GPU pipeline-state object built once at load time. It carries
// everything a backend needs: shader pair, vertex layout, bind group layouts, target formats,
// culling, winding, fill mode, depth state and blending.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex, fragment, or compute)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// VertexLayouts returns the per-slot vertex buffer layouts.
	VertexLayouts() []VertexLayout

	// BindGroupLayouts returns the bind group layouts indexed by group number.
	BindGroupLayouts() []BindGroupLayout

	// ColorTargets returns the formats of the color attachments this pipeline renders into.
	ColorTargets() []common.TextureFormat

	// DepthFormat returns the depth attachment format, or TextureFormatUndefined when the pipeline has no depth.
	DepthFormat() common.TextureFormat

	DepthTestEnabled() bool
	DepthWriteEnabled() bool
	DepthCompare() common.CompareFunction
	DepthBias() int32
	DepthBiasSlopeScale() float32
	CullMode() CullMode
	FrontFace() FrontFace
	PolygonMode() PolygonMode
	BlendMode() BlendMode

	// WorkgroupSize returns the compute workgroup size used to derive dispatch counts.
	WorkgroupSize() [3]uint32

	// Native returns the backend pipeline object, or nil before the backend created it.
	// The caller is responsible for type asserting the returned value.
	//
	// Returns:
	//   - any: the underlying pipeline object
	Native() any

	// SetNative stores the backend pipeline object.
	//
	// Parameters:
	//   - p: the backend pipeline object
	SetNative(p any)

	// Validate checks that the declared state is complete for the pipeline type.
	//
	// Returns:
	//   - error: ErrInvalidPipeline describing the first problem found
	Validate() error
}

// ErrInvalidPipeline is returned by Validate for incomplete pipeline state.
var ErrInvalidPipeline = errors.New("invalid pipeline")

var _ Pipeline = &pipeline{}

// NewPipeline creates a new Pipeline with the given key and type and applies the builder options.
// Defaults: depth test and write enabled with CompareLess, no culling, CCW front faces,
// filled polygons and no blending.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: render or compute
//   - opts: builder options
//
// Returns:
//   - Pipeline: the configured pipeline (not yet created on a backend)
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      common.CompareLess,
		cullMode:          CullModeNone,
		frontFace:         FrontFaceCCW,
		polygonMode:       PolygonModeFill,
		blendMode:         BlendModeNone,
		workgroupSize:     [3]uint32{1, 1, 1},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) VertexLayouts() []VertexLayout {
	return p.vertexLayouts
}

func (p *pipeline) BindGroupLayouts() []BindGroupLayout {
	return p.bindGroupLayouts
}

func (p *pipeline) ColorTargets() []common.TextureFormat {
	return p.colorTargets
}

func (p *pipeline) DepthFormat() common.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() common.CompareFunction {
	return p.depthCompare
}

func (p *pipeline) DepthBias() int32 {
	return p.depthBias
}

func (p *pipeline) DepthBiasSlopeScale() float32 {
	return p.depthBiasSlopeScale
}

func (p *pipeline) CullMode() CullMode {
	return p.cullMode
}

func (p *pipeline) FrontFace() FrontFace {
	return p.frontFace
}

func (p *pipeline) PolygonMode() PolygonMode {
	return p.polygonMode
}

func (p *pipeline) BlendMode() BlendMode {
	return p.blendMode
}

func (p *pipeline) WorkgroupSize() [3]uint32 {
	return p.workgroupSize
}

func (p *pipeline) Native() any {
	return p.native
}

func (p *pipeline) SetNative(native any) {
	p.native = native
}

func (p *pipeline) Validate() error {
	switch p.pipelineType {
	case PipelineTypeCompute:
		if p.computeShader == nil {
			return errors.Wrapf(ErrInvalidPipeline, "%s: compute shader is required", p.pipelineKey)
		}
	case PipelineTypeRender:
		if p.vertexShader == nil {
			return errors.Wrapf(ErrInvalidPipeline, "%s: vertex shader is required", p.pipelineKey)
		}
		if len(p.colorTargets) > 0 && p.fragmentShader == nil {
			return errors.Wrapf(ErrInvalidPipeline, "%s: color targets require a fragment shader", p.pipelineKey)
		}
		if len(p.colorTargets) == 0 && p.depthFormat == common.TextureFormatUndefined {
			return errors.Wrapf(ErrInvalidPipeline, "%s: no color or depth target", p.pipelineKey)
		}
		if p.depthFormat != common.TextureFormatUndefined && !p.depthFormat.IsDepth() {
			return errors.Wrapf(ErrInvalidPipeline, "%s: %s is not a depth format", p.pipelineKey, p.depthFormat)
		}
	default:
		return errors.Wrapf(ErrInvalidPipeline, "%s: unknown pipeline type %d", p.pipelineKey, p.pipelineType)
	}

	for g, layout := range p.bindGroupLayouts {
		seen := make(map[uint32]bool, len(layout))
		for _, b := range layout {
			if seen[b.Binding] {
				return errors.Wrapf(ErrInvalidPipeline, "%s: group %d binding %d declared twice", p.pipelineKey, g, b.Binding)
			}
			seen[b.Binding] = true
			if b.Visibility == 0 {
				return errors.Wrapf(ErrInvalidPipeline, "%s: group %d binding %d has no visibility", p.pipelineKey, g, b.Binding)
			}
		}
	}
	return nil
}
