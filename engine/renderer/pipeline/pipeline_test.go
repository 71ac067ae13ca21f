package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShader(t shader.ShaderType) shader.Shader {
	return shader.NewShader("test", "", "main", t)
}

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("gbuffer", PipelineTypeRender)

	assert.Equal(t, "gbuffer", p.PipelineKey())
	assert.True(t, p.DepthTestEnabled())
	assert.True(t, p.DepthWriteEnabled())
	assert.Equal(t, common.CompareLess, p.DepthCompare())
	assert.Equal(t, CullModeNone, p.CullMode())
	assert.Equal(t, FrontFaceCCW, p.FrontFace())
	assert.Equal(t, PolygonModeFill, p.PolygonMode())
	assert.Equal(t, BlendModeNone, p.BlendMode())
	assert.Nil(t, p.Native())
}

func TestBuilderOptions(t *testing.T) {
	vs := testShader(shader.ShaderTypeVertex)
	p := NewPipeline("shadow", PipelineTypeRender,
		WithVertexShader(vs),
		WithDepthFormat(common.TextureFormatDepth32Float),
		WithDepthBias(2, 1.5),
		WithCullMode(CullModeFront),
		WithFrontFace(FrontFaceCW),
		WithPolygonMode(PolygonModeLine),
		WithBlendMode(BlendModeAdditive),
		WithBindGroupLayout(
			BindingLayout{Binding: 0, Kind: BindingUniformBuffer, Visibility: StageVertex},
			BindingLayout{Binding: 1, Kind: BindingStorageBuffer, Visibility: StageVertex},
		),
	)

	assert.Same(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Nil(t, p.Shader(shader.ShaderTypeFragment))
	assert.Equal(t, int32(2), p.DepthBias())
	assert.Equal(t, float32(1.5), p.DepthBiasSlopeScale())
	assert.Equal(t, CullModeFront, p.CullMode())
	assert.Equal(t, FrontFaceCW, p.FrontFace())
	assert.Equal(t, PolygonModeLine, p.PolygonMode())
	assert.Equal(t, BlendModeAdditive, p.BlendMode())
	require.Len(t, p.BindGroupLayouts(), 1)
	assert.Len(t, p.BindGroupLayouts()[0], 2)
	assert.NoError(t, p.Validate())
}

func TestValidate(t *testing.T) {
	vs := testShader(shader.ShaderTypeVertex)
	fs := testShader(shader.ShaderTypeFragment)

	cases := []struct {
		name string
		p    Pipeline
		ok   bool
	}{
		{"render without vertex shader", NewPipeline("a", PipelineTypeRender, WithColorTargets(common.TextureFormatRGBA8Unorm)), false},
		{"color target without fragment", NewPipeline("b", PipelineTypeRender, WithVertexShader(vs), WithColorTargets(common.TextureFormatRGBA8Unorm)), false},
		{"no targets", NewPipeline("c", PipelineTypeRender, WithVertexShader(vs), WithFragmentShader(fs)), false},
		{"color depth format", NewPipeline("d", PipelineTypeRender, WithVertexShader(vs), WithDepthFormat(common.TextureFormatRGBA8Unorm)), false},
		{"duplicate binding", NewPipeline("e", PipelineTypeRender, WithVertexShader(vs), WithFragmentShader(fs),
			WithColorTargets(common.TextureFormatSurface),
			WithBindGroupLayout(
				BindingLayout{Binding: 0, Kind: BindingSampler, Visibility: StageFragment},
				BindingLayout{Binding: 0, Kind: BindingTexture2D, Visibility: StageFragment},
			)), false},
		{"compute without shader", NewPipeline("f", PipelineTypeCompute), false},
		{"fullscreen", NewPipeline("g", PipelineTypeRender, WithVertexShader(vs), WithFragmentShader(fs), WithColorTargets(common.TextureFormatSurface)), true},
		{"compute", NewPipeline("h", PipelineTypeCompute, WithComputeShader(testShader(shader.ShaderTypeCompute), 8, 8, 1)), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidPipeline), "got %v", err)
		})
	}
}

func TestBindingKindClassification(t *testing.T) {
	assert.True(t, BindingTextureDepth2D.IsTexture())
	assert.True(t, BindingStorageTexture2DArray.IsTexture())
	assert.True(t, BindingComparisonSampler.IsSampler())
	assert.True(t, BindingStorageBuffer.IsBuffer())
	assert.False(t, BindingSampler.IsTexture())
}
