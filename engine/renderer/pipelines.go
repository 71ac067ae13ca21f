package renderer

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/pool"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/pkg/errors"
)

// Pipeline keys of the built-in passes.
const (
	PipelineGBuffer          = "gbuffer"
	PipelineGBufferWireframe = "gbuffer_wireframe"
	PipelineShadow           = "shadow"
	PipelineLighting         = "lighting"
	PipelineResolve          = "resolve"
	PipelineDebugColor       = "debug_color"
	PipelineDebugDepth       = "debug_depth"
	PipelineSkyboxConvolve   = "skybox_convolve"
)

// G-Buffer attachment formats, in color target order.
var gbufferFormats = []common.TextureFormat{
	common.TextureFormatRGBA8Unorm,
	common.TextureFormatRGBA16Float,
	common.TextureFormatR32Uint,
}

// lightFormat is the HDR light accumulation format.
const lightFormat = common.TextureFormatRGBA16Float

const convolveWorkgroup = 8

func loadShader(name, entry string, t shader.ShaderType) (shader.Shader, error) {
	s, err := shader.Load(name, entry, t)
	if err != nil {
		return nil, errors.Wrapf(err, "load shader %s", name)
	}
	return s, nil
}

// fullscreenShaders returns the shared full-screen triangle vertex stage and the named fragment stage.
func fullscreenShaders(name string) ([]pipeline.PipelineBuilderOption, error) {
	vs, err := loadShader(name, "vs_fullscreen", shader.ShaderTypeVertex)
	if err != nil {
		return nil, err
	}
	fs, err := loadShader(name, "fs_main", shader.ShaderTypeFragment)
	if err != nil {
		return nil, err
	}
	return []pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithCullMode(pipeline.CullModeNone),
	}, nil
}

func gbufferPipeline(key string, mode pipeline.PolygonMode) (pipeline.Pipeline, error) {
	vs, err := loadShader("gbuffer", "vs_main", shader.ShaderTypeVertex)
	if err != nil {
		return nil, err
	}
	fs, err := loadShader("gbuffer", "fs_main", shader.ShaderTypeFragment)
	if err != nil {
		return nil, err
	}
	materialGroup := []pipeline.BindingLayout{
		{Binding: 0, Kind: pipeline.BindingStorageBuffer, Visibility: pipeline.StageFragment},
		{Binding: 1, Kind: pipeline.BindingSampler, Visibility: pipeline.StageFragment},
	}
	for k := 0; k < pool.MaxTextureArrays; k++ {
		materialGroup = append(materialGroup, pipeline.BindingLayout{
			Binding:    uint32(2 + k),
			Kind:       pipeline.BindingTexture2DArray,
			Visibility: pipeline.StageFragment,
		})
	}
	cull := pipeline.CullModeBack
	if mode == pipeline.PolygonModeLine {
		cull = pipeline.CullModeNone
	}
	return pipeline.NewPipeline(key, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithVertexLayout(mesh.VertexLayout()),
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingUniformBuffer, Visibility: pipeline.StageVertex | pipeline.StageFragment},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingStorageBuffer, Visibility: pipeline.StageVertex},
		),
		pipeline.WithBindGroupLayout(materialGroup...),
		pipeline.WithColorTargets(gbufferFormats...),
		pipeline.WithDepthFormat(common.TextureFormatDepth32Float),
		pipeline.WithDepthCompare(common.CompareLess),
		pipeline.WithCullMode(cull),
		pipeline.WithFrontFace(pipeline.FrontFaceCCW),
		pipeline.WithPolygonMode(mode),
	), nil
}

// shadowPipeline reads only the position attribute of the pooled vertex layout and culls
// front faces to push acne onto back faces.
func shadowPipeline() (pipeline.Pipeline, error) {
	vs, err := loadShader("shadow", "vs_main", shader.ShaderTypeVertex)
	if err != nil {
		return nil, err
	}
	layout := mesh.VertexLayout()
	layout.Attributes = layout.Attributes[:1]
	return pipeline.NewPipeline(PipelineShadow, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithVertexLayout(layout),
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingUniformBuffer, Visibility: pipeline.StageVertex},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingStorageBuffer, Visibility: pipeline.StageVertex},
		),
		pipeline.WithDepthFormat(common.TextureFormatDepth32Float),
		pipeline.WithDepthCompare(common.CompareLess),
		pipeline.WithDepthBias(2, 2.0),
		pipeline.WithCullMode(pipeline.CullModeFront),
	), nil
}

func lightingPipeline() (pipeline.Pipeline, error) {
	opts, err := fullscreenShaders("lighting")
	if err != nil {
		return nil, err
	}
	fragment := pipeline.StageFragment
	opts = append(opts,
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingUniformBuffer, Visibility: fragment},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingUniformBuffer, Visibility: fragment},
			pipeline.BindingLayout{Binding: 2, Kind: pipeline.BindingUniformBuffer, Visibility: fragment},
		),
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingTexture2D, Visibility: fragment},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingTexture2D, Visibility: fragment},
			pipeline.BindingLayout{Binding: 2, Kind: pipeline.BindingTexture2DUint, Visibility: fragment},
			pipeline.BindingLayout{Binding: 3, Kind: pipeline.BindingTextureDepth2D, Visibility: fragment},
			pipeline.BindingLayout{Binding: 4, Kind: pipeline.BindingTextureDepth2D, Visibility: fragment},
			pipeline.BindingLayout{Binding: 5, Kind: pipeline.BindingComparisonSampler, Visibility: fragment},
			pipeline.BindingLayout{Binding: 6, Kind: pipeline.BindingStorageBuffer, Visibility: fragment},
		),
		pipeline.WithColorTargets(lightFormat),
	)
	return pipeline.NewPipeline(PipelineLighting, pipeline.PipelineTypeRender, opts...), nil
}

func resolvePipeline() (pipeline.Pipeline, error) {
	opts, err := fullscreenShaders("resolve")
	if err != nil {
		return nil, err
	}
	fragment := pipeline.StageFragment
	opts = append(opts,
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingUniformBuffer, Visibility: fragment},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingUniformBuffer, Visibility: fragment},
		),
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingTexture2D, Visibility: fragment},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingTexture2D, Visibility: fragment},
			pipeline.BindingLayout{Binding: 2, Kind: pipeline.BindingTexture2D, Visibility: fragment},
			pipeline.BindingLayout{Binding: 3, Kind: pipeline.BindingTextureDepth2D, Visibility: fragment},
			pipeline.BindingLayout{Binding: 4, Kind: pipeline.BindingTexture2DArray, Visibility: fragment},
			pipeline.BindingLayout{Binding: 5, Kind: pipeline.BindingTexture2DArray, Visibility: fragment},
			pipeline.BindingLayout{Binding: 6, Kind: pipeline.BindingSampler, Visibility: fragment},
		),
		pipeline.WithColorTargets(common.TextureFormatSurface),
	)
	return pipeline.NewPipeline(PipelineResolve, pipeline.PipelineTypeRender, opts...), nil
}

func debugColorPipeline() (pipeline.Pipeline, error) {
	opts, err := fullscreenShaders("debug_color")
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingTexture2D, Visibility: pipeline.StageFragment},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingSampler, Visibility: pipeline.StageFragment},
			pipeline.BindingLayout{Binding: 2, Kind: pipeline.BindingUniformBuffer, Visibility: pipeline.StageFragment},
		),
		pipeline.WithColorTargets(common.TextureFormatSurface),
	)
	return pipeline.NewPipeline(PipelineDebugColor, pipeline.PipelineTypeRender, opts...), nil
}

func debugDepthPipeline() (pipeline.Pipeline, error) {
	opts, err := fullscreenShaders("debug_depth")
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingTextureDepth2D, Visibility: pipeline.StageFragment},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingUniformBuffer, Visibility: pipeline.StageFragment},
		),
		pipeline.WithColorTargets(common.TextureFormatSurface),
	)
	return pipeline.NewPipeline(PipelineDebugDepth, pipeline.PipelineTypeRender, opts...), nil
}

func convolvePipeline() (pipeline.Pipeline, error) {
	cs, err := loadShader("skybox_convolve", "cs_main", shader.ShaderTypeCompute)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(PipelineSkyboxConvolve, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(cs, convolveWorkgroup, convolveWorkgroup, 1),
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingTexture2DArray, Visibility: pipeline.StageCompute},
			pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingSampler, Visibility: pipeline.StageCompute},
			pipeline.BindingLayout{Binding: 2, Kind: pipeline.BindingStorageTexture2DArray, Visibility: pipeline.StageCompute, Format: common.TextureFormatRGBA16Float},
			pipeline.BindingLayout{Binding: 3, Kind: pipeline.BindingUniformBuffer, Visibility: pipeline.StageCompute},
		),
	), nil
}

// registerPipelines creates the native objects of each pipeline and caches them by key.
// Keys already in the cache are skipped.
func (r *renderer) registerPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.CreatePipeline(p); err != nil {
			return errors.Wrapf(err, "create pipeline %q", key)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

// buildPipelines creates every pass pipeline. The wireframe variant is optional: a backend
// without line rasterization leaves it nil.
func (r *renderer) buildPipelines() error {
	builders := []func() (pipeline.Pipeline, error){
		func() (pipeline.Pipeline, error) { return gbufferPipeline(PipelineGBuffer, pipeline.PolygonModeFill) },
		shadowPipeline,
		lightingPipeline,
		resolvePipeline,
		debugColorPipeline,
		debugDepthPipeline,
		convolvePipeline,
	}
	for _, build := range builders {
		p, err := build()
		if err != nil {
			return err
		}
		if err := r.registerPipelines(p); err != nil {
			return err
		}
	}

	r.res.gbuffer = r.pipelineCache[PipelineGBuffer]
	r.res.shadow = r.pipelineCache[PipelineShadow]
	r.res.lighting = r.pipelineCache[PipelineLighting]
	r.res.resolve = r.pipelineCache[PipelineResolve]
	r.res.debugColor = r.pipelineCache[PipelineDebugColor]
	r.res.debugDepth = r.pipelineCache[PipelineDebugDepth]
	r.res.convolve = r.pipelineCache[PipelineSkyboxConvolve]

	wire, err := gbufferPipeline(PipelineGBufferWireframe, pipeline.PolygonModeLine)
	if err != nil {
		return err
	}
	switch err := r.registerPipelines(wire); {
	case err == nil:
		r.res.gbufferWireframe = r.pipelineCache[PipelineGBufferWireframe]
	case errors.Is(err, device.ErrUnsupported):
		r.logger.Warn("wireframe rendering unsupported by backend, disabling", "error", err)
		r.wireframe = false
	default:
		return err
	}
	return nil
}
