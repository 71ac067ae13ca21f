package wgpudevice

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormatResolvesSurface(t *testing.T) {
	got, err := textureFormat(common.TextureFormatSurface, wgpu.TextureFormatBGRA8UnormSrgb)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, got)

	got, err = textureFormat(common.TextureFormatR32Uint, wgpu.TextureFormatUndefined)
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatR32Uint, got)

	_, err = textureFormat(common.TextureFormatUndefined, wgpu.TextureFormatUndefined)
	assert.Error(t, err)
}

func TestUsageBits(t *testing.T) {
	u := bufferUsage(device.BufferUsageStorage | device.BufferUsageIndirect)
	assert.NotZero(t, u&wgpu.BufferUsageStorage)
	assert.NotZero(t, u&wgpu.BufferUsageIndirect)
	assert.Zero(t, u&wgpu.BufferUsageVertex)

	tu := textureUsage(device.TextureUsageStorage | device.TextureUsageSampled)
	assert.NotZero(t, tu&wgpu.TextureUsageStorageBinding)
	assert.NotZero(t, tu&wgpu.TextureUsageTextureBinding)
	assert.Zero(t, tu&wgpu.TextureUsageRenderAttachment)
}

func TestLayoutEntryKinds(t *testing.T) {
	depth, err := layoutEntry(pipeline.BindingLayout{Binding: 3, Kind: pipeline.BindingTextureDepth2D, Visibility: pipeline.StageFragment})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), depth.Binding)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, depth.Texture.SampleType)
	assert.Equal(t, wgpu.ShaderStageFragment, depth.Visibility)

	arr, err := layoutEntry(pipeline.BindingLayout{Binding: 2, Kind: pipeline.BindingTexture2DArray, Visibility: pipeline.StageFragment})
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureViewDimension2DArray, arr.Texture.ViewDimension)

	storage, err := layoutEntry(pipeline.BindingLayout{
		Binding:    2,
		Kind:       pipeline.BindingStorageTexture2DArray,
		Visibility: pipeline.StageCompute,
		Format:     common.TextureFormatRGBA16Float,
	})
	require.NoError(t, err)
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, storage.StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, storage.StorageTexture.Access)

	cmp, err := layoutEntry(pipeline.BindingLayout{Binding: 5, Kind: pipeline.BindingComparisonSampler, Visibility: pipeline.StageFragment})
	require.NoError(t, err)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, cmp.Sampler.Type)

	buf, err := layoutEntry(pipeline.BindingLayout{Binding: 1, Kind: pipeline.BindingStorageBuffer, Visibility: pipeline.StageVertex | pipeline.StageFragment})
	require.NoError(t, err)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, buf.Buffer.Type)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, buf.Visibility)
}

func TestBlendStateNoneIsNil(t *testing.T) {
	assert.Nil(t, blendState(pipeline.BlendModeNone))
	add := blendState(pipeline.BlendModeAdditive)
	require.NotNil(t, add)
	assert.Equal(t, wgpu.BlendFactorOne, add.Color.DstFactor)
}

func TestPaddedRoundsToFourBytes(t *testing.T) {
	assert.Len(t, padded([]byte{1, 2, 3, 4, 5}), 8)
	in := []byte{1, 2, 3, 4}
	assert.Equal(t, in, padded(in))
}

func TestCompareFunction(t *testing.T) {
	assert.Equal(t, wgpu.CompareFunctionLessEqual, compareFunction(common.CompareLessEqual))
	assert.Equal(t, wgpu.CompareFunctionUndefined, compareFunction(common.CompareUndefined))
}
