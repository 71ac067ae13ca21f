package wgpudevice

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// textureFormat maps a backend-neutral format to its WebGPU enum. Surface resolves to the
// configured swapchain format.
func textureFormat(f common.TextureFormat, surface wgpu.TextureFormat) (wgpu.TextureFormat, error) {
	switch f {
	case common.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case common.TextureFormatRGBA8UnormSrgb:
		return wgpu.TextureFormatRGBA8UnormSrgb, nil
	case common.TextureFormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float, nil
	case common.TextureFormatR32Uint:
		return wgpu.TextureFormatR32Uint, nil
	case common.TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float, nil
	case common.TextureFormatSurface:
		return surface, nil
	}
	return wgpu.TextureFormatUndefined, errors.Errorf("texture format %s has no WebGPU equivalent", f)
}

func bufferUsage(u device.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&device.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&device.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&device.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&device.BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&device.BufferUsageIndirect != 0 {
		out |= wgpu.BufferUsageIndirect
	}
	if u&device.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func textureUsage(u device.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&device.TextureUsageSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&device.TextureUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&device.TextureUsageStorage != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if u&device.TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func compareFunction(c common.CompareFunction) wgpu.CompareFunction {
	switch c {
	case common.CompareNever:
		return wgpu.CompareFunctionNever
	case common.CompareLess:
		return wgpu.CompareFunctionLess
	case common.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case common.CompareEqual:
		return wgpu.CompareFunctionEqual
	case common.CompareGreater:
		return wgpu.CompareFunctionGreater
	case common.CompareAlways:
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionUndefined
}

func addressMode(m common.AddressMode) wgpu.AddressMode {
	if m == common.AddressRepeat {
		return wgpu.AddressModeRepeat
	}
	return wgpu.AddressModeClampToEdge
}

func filterMode(m common.FilterMode) wgpu.FilterMode {
	if m == common.FilterLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

func cullMode(m pipeline.CullMode) wgpu.CullMode {
	switch m {
	case pipeline.CullModeFront:
		return wgpu.CullModeFront
	case pipeline.CullModeBack:
		return wgpu.CullModeBack
	}
	return wgpu.CullModeNone
}

func frontFace(f pipeline.FrontFace) wgpu.FrontFace {
	if f == pipeline.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func vertexFormat(f pipeline.VertexFormat) wgpu.VertexFormat {
	switch f {
	case pipeline.VertexFormatFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case pipeline.VertexFormatFloat32x4:
		return wgpu.VertexFormatFloat32x4
	case pipeline.VertexFormatUint32:
		return wgpu.VertexFormatUint32
	}
	return wgpu.VertexFormatFloat32x3
}

func shaderStage(s pipeline.ShaderStage) wgpu.ShaderStage {
	var out wgpu.ShaderStage
	if s&pipeline.StageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if s&pipeline.StageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	if s&pipeline.StageCompute != 0 {
		out |= wgpu.ShaderStageCompute
	}
	return out
}

// blendState returns nil for BlendModeNone, which writes the fragment color unchanged.
func blendState(m pipeline.BlendMode) *wgpu.BlendState {
	switch m {
	case pipeline.BlendModeAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	case pipeline.BlendModeAdditive:
		add := wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOne,
			Operation: wgpu.BlendOperationAdd,
		}
		return &wgpu.BlendState{Color: add, Alpha: add}
	}
	return nil
}

// layoutEntry translates one declared binding into a WebGPU bind group layout entry.
//
// Parameters:
//   - l: the declared binding
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the native entry
//   - error: if a storage texture format cannot be mapped
func layoutEntry(l pipeline.BindingLayout) (wgpu.BindGroupLayoutEntry, error) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    l.Binding,
		Visibility: shaderStage(l.Visibility),
	}
	switch l.Kind {
	case pipeline.BindingUniformBuffer:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
	case pipeline.BindingStorageBuffer:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}
	case pipeline.BindingTexture2D:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case pipeline.BindingTexture2DUint:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeUint,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case pipeline.BindingTexture2DArray:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2DArray,
		}
	case pipeline.BindingTextureDepth2D:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeDepth,
			ViewDimension: wgpu.TextureViewDimension2D,
		}
	case pipeline.BindingSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
	case pipeline.BindingComparisonSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison}
	case pipeline.BindingStorageTexture2DArray:
		format, err := textureFormat(l.Format, wgpu.TextureFormatUndefined)
		if err != nil {
			return entry, err
		}
		entry.StorageTexture = wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccessWriteOnly,
			Format:        format,
			ViewDimension: wgpu.TextureViewDimension2DArray,
		}
	default:
		return entry, errors.Errorf("binding %d: unknown kind %d", l.Binding, l.Kind)
	}
	return entry, nil
}
