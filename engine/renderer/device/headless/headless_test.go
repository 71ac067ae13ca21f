package headless

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geometryPipeline(t *testing.T, b Backend) pipeline.Pipeline {
	t.Helper()
	p := pipeline.NewPipeline("geo", pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(shader.NewShader("geo", "", "vs_main", shader.ShaderTypeVertex)),
		pipeline.WithFragmentShader(shader.NewShader("geo", "", "fs_main", shader.ShaderTypeFragment)),
		pipeline.WithColorTargets(common.TextureFormatRGBA8Unorm),
		pipeline.WithDepthFormat(common.TextureFormatDepth32Float),
		pipeline.WithBindGroupLayout(
			pipeline.BindingLayout{Binding: 0, Kind: pipeline.BindingUniformBuffer, Visibility: pipeline.StageVertex},
		),
	)
	require.NoError(t, b.CreatePipeline(p))
	return p
}

func TestBufferLifecycle(t *testing.T) {
	b := NewBackend()

	buf, err := b.CreateBuffer(device.BufferDescriptor{Label: "vb", Size: 8, Usage: device.BufferUsageVertex})
	require.NoError(t, err)
	assert.Equal(t, 1, b.LiveBuffers())

	require.NoError(t, b.WriteBuffer(buf, 4, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4}, b.Contents(buf))
	assert.Error(t, b.WriteBuffer(buf, 6, []byte{1, 2, 3}))

	buf.Release()
	buf.Release()
	assert.Equal(t, 0, b.LiveBuffers())
	assert.Equal(t, 1, b.BufferAllocations())
}

func TestAllocationFailureInjection(t *testing.T) {
	b := NewBackend()
	b.FailAllocations(func(label string) bool { return strings.HasPrefix(label, "pool") })

	_, err := b.CreateBuffer(device.BufferDescriptor{Label: "pool vertices", Size: 4})
	assert.True(t, errors.Is(err, device.ErrOutOfMemory))

	_, err = b.CreateTexture(device.TextureDescriptor{Label: "pool textures", Width: 1, Height: 1, Format: common.TextureFormatRGBA8Unorm})
	assert.True(t, errors.Is(err, device.ErrOutOfMemory))

	_, err = b.CreateBuffer(device.BufferDescriptor{Label: "instances", Size: 4})
	assert.NoError(t, err)

	b.FailAllocations(nil)
	_, err = b.CreateBuffer(device.BufferDescriptor{Label: "pool vertices", Size: 4})
	assert.NoError(t, err)
}

func TestTextureLayers(t *testing.T) {
	b := NewBackend()
	tex, err := b.CreateTexture(device.TextureDescriptor{Label: "arr", Width: 2, Height: 2, Layers: 3, Format: common.TextureFormatRGBA8Unorm})
	require.NoError(t, err)

	pixels := make([]byte, 16)
	pixels[0] = 9
	require.NoError(t, b.WriteTextureLayer(tex, 2, pixels))
	assert.Equal(t, pixels, b.Layer(tex, 2))
	assert.Nil(t, b.Layer(tex, 0))
	assert.Error(t, b.WriteTextureLayer(tex, 3, pixels))
	assert.Error(t, b.WriteTextureLayer(tex, 0, pixels[:4]))
}

func TestFramebufferRejectsMismatchedSizes(t *testing.T) {
	b := NewBackend()
	a, _ := b.CreateTexture(device.TextureDescriptor{Label: "a", Width: 4, Height: 4, Format: common.TextureFormatRGBA8Unorm})
	c, _ := b.CreateTexture(device.TextureDescriptor{Label: "c", Width: 8, Height: 4, Format: common.TextureFormatRGBA8Unorm})

	_, err := b.CreateFramebuffer(device.FramebufferDescriptor{Label: "fb", Color: []device.Texture{a, c}})
	assert.Error(t, err)

	_, err = b.CreateFramebuffer(device.FramebufferDescriptor{Label: "fb", Color: []device.Texture{a}, Depth: c})
	assert.Error(t, err, "color texture used as depth")
}

func TestRecordsPassAndValidatesState(t *testing.T) {
	b := NewBackend()
	p := geometryPipeline(t, b)

	color, _ := b.CreateTexture(device.TextureDescriptor{Label: "color", Width: 4, Height: 4, Format: common.TextureFormatRGBA8Unorm})
	depth, _ := b.CreateTexture(device.TextureDescriptor{Label: "depth", Width: 4, Height: 4, Format: common.TextureFormatDepth32Float})
	fb, err := b.CreateFramebuffer(device.FramebufferDescriptor{Label: "gbuffer", Color: []device.Texture{color}, Depth: depth})
	require.NoError(t, err)

	vb, _ := b.CreateBuffer(device.BufferDescriptor{Label: "vb", Size: 64, Usage: device.BufferUsageVertex})
	ib, _ := b.CreateBuffer(device.BufferDescriptor{Label: "ib", Size: 12, Usage: device.BufferUsageIndex})
	ub, _ := b.CreateBuffer(device.BufferDescriptor{Label: "camera", Size: 16, Usage: device.BufferUsageUniform})
	indirect, _ := b.CreateBuffer(device.BufferDescriptor{Label: "indirect", Size: 2 * device.IndirectRecordSize, Usage: device.BufferUsageIndirect})

	assert.True(t, errors.Is(b.BeginRenderToFramebuffer(device.RenderPassDescriptor{Framebuffer: fb}), device.ErrNoActiveFrame))

	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderToFramebuffer(device.RenderPassDescriptor{Framebuffer: fb, ClearColor: true, ClearDepth: true}))
	assert.Error(t, b.MultiDrawIndirect(indirect, 1), "nothing bound yet")
	require.NoError(t, b.BindPipeline(p))
	require.NoError(t, b.BindVertexBuffer(vb))
	require.NoError(t, b.BindIndexBuffer(ib))
	assert.Error(t, b.BindGroup(device.BindGroup{Group: 1}), "undeclared group")
	require.NoError(t, b.BindGroup(device.BindGroup{Group: 0, Entries: []device.BindEntry{{Binding: 0, Buffer: ub}}}))
	assert.Error(t, b.MultiDrawIndirect(indirect, 3), "buffer too small for 3 records")
	require.NoError(t, b.MultiDrawIndirect(indirect, 2))
	require.NoError(t, b.EndRenderPass())
	require.NoError(t, b.EndFrame())
	require.NoError(t, b.Present())

	kinds := make([]CommandKind, 0)
	for _, c := range b.Commands() {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []CommandKind{
		CommandBeginFrame, CommandBeginRenderPass, CommandBindPipeline, CommandBindVertexBuffer,
		CommandBindIndexBuffer, CommandBindGroup, CommandMultiDrawIndirect, CommandEndRenderPass,
		CommandEndFrame, CommandPresent,
	}, kinds)
	assert.Equal(t, []string{"camera"}, b.Commands()[5].Entries)
}

func TestBindPipelineChecksTargets(t *testing.T) {
	b := NewBackend()
	p := geometryPipeline(t, b)

	require.NoError(t, b.BeginFrame())
	require.NoError(t, b.BeginRenderToFramebuffer(device.RenderPassDescriptor{}))
	assert.Error(t, b.BindPipeline(p), "geometry pipeline cannot render to the swapchain")
}

func TestWireframeSupport(t *testing.T) {
	wire := func() pipeline.Pipeline {
		return pipeline.NewPipeline("wire", pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(shader.NewShader("w", "", "vs", shader.ShaderTypeVertex)),
			pipeline.WithDepthFormat(common.TextureFormatDepth32Float),
			pipeline.WithPolygonMode(pipeline.PolygonModeLine),
		)
	}

	err := NewBackend().CreatePipeline(wire())
	assert.True(t, errors.Is(err, device.ErrUnsupported))

	assert.NoError(t, NewBackend(WithWireframeSupport(true)).CreatePipeline(wire()))
}

func TestResize(t *testing.T) {
	b := NewBackend(WithSurfaceSize(640, 480))
	w, h := b.SurfaceSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	require.NoError(t, b.Resize(800, 600))
	w, h = b.SurfaceSize()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	assert.Error(t, b.Resize(0, 600))
}
