// Package device defines the graphics backend contract consumed by the renderer, the scene
// resource pool and the shadow map manager. Backends hand out opaque handles; every handle
// is released through its own Release method.
package device

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/pkg/errors"
)

var (
	// ErrUnsupported is returned when a backend cannot express the requested state
	// (for example wireframe rasterization on plain WebGPU).
	ErrUnsupported = errors.New("unsupported by backend")

	// ErrOutOfMemory is returned when a buffer or texture allocation fails.
	ErrOutOfMemory = errors.New("device out of memory")

	// ErrNoActivePass is returned when a draw or bind is issued outside a render pass.
	ErrNoActivePass = errors.New("no active render pass")

	// ErrNoActiveFrame is returned when a pass is begun outside BeginFrame/EndFrame.
	ErrNoActiveFrame = errors.New("no active frame")
)

// BufferUsage is a bit set describing how a buffer is bound.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageIndirect
	BufferUsageCopyDst
)

// TextureUsage is a bit set describing how a texture is bound.
type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageRenderAttachment
	TextureUsageStorage
	TextureUsageCopyDst
)

// IndirectRecordSize is the byte size of one indexed indirect draw record
// (index count, instance count, first index, base vertex, base instance).
const IndirectRecordSize = 20

// Buffer is a GPU buffer handle.
type Buffer interface {
	Label() string
	Size() uint64
	Usage() BufferUsage
	Release()
}

// Texture is a GPU texture handle. Layered textures are 2D arrays.
type Texture interface {
	Label() string
	Width() uint32
	Height() uint32
	Layers() uint32
	Format() common.TextureFormat
	Release()
}

// Sampler is a GPU sampler handle.
type Sampler interface {
	Label() string
	Release()
}

// Framebuffer groups the color attachments and optional depth attachment of a render pass.
type Framebuffer interface {
	Label() string
	Width() uint32
	Height() uint32
	ColorAttachments() []Texture
	DepthAttachment() Texture
	Release()
}

// BufferDescriptor describes a buffer to create. When Contents is set the buffer is
// created with those bytes and Size may be zero.
type BufferDescriptor struct {
	Label    string
	Size     uint64
	Usage    BufferUsage
	Contents []byte
}

// TextureDescriptor describes a 2D texture or 2D texture array to create.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	// Layers is the array layer count; 0 is treated as 1.
	Layers uint32
	Format common.TextureFormat
	Usage  TextureUsage
}

// FramebufferDescriptor describes the attachments of a framebuffer. All attachments must
// share the same size.
type FramebufferDescriptor struct {
	Label string
	Color []Texture
	Depth Texture
}

// RenderPassDescriptor describes a render pass. A nil Framebuffer targets the swapchain image.
type RenderPassDescriptor struct {
	Label       string
	Framebuffer Framebuffer
	// ClearColor clears every color attachment to ClearValue when true; otherwise contents are loaded.
	ClearColor bool
	ClearValue [4]float64
	// ClearDepth clears the depth attachment to DepthClearValue when true.
	ClearDepth      bool
	DepthClearValue float32
}

// BindEntry is a single resource bound to a binding slot. Exactly one of Buffer, Texture
// or Sampler is set, matching the pipeline's BindingLayout kind.
type BindEntry struct {
	Binding uint32
	Buffer  Buffer
	Texture Texture
	Sampler Sampler
}

// BindGroup is a group index plus its entries.
type BindGroup struct {
	Group   uint32
	Entries []BindEntry
}

// Backend is the graphics backend contract. All methods are called from the render goroutine.
//
// A frame is bracketed by BeginFrame and EndFrame. Inside a frame, any number of render passes
// are recorded with BeginRenderToFramebuffer / EndRenderPass, and compute work with Dispatch.
// Present shows the swapchain image after EndFrame.
type Backend interface {
	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the buffer handle
	//   - error: ErrOutOfMemory wrapped with context when allocation fails
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// WriteBuffer copies data into buf starting at offset.
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateTexture allocates a 2D texture or texture array.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// WriteTextureLayer uploads tightly packed pixels into one array layer of tex.
	//
	// Parameters:
	//   - tex: destination texture
	//   - layer: destination array layer
	//   - pixels: width*height*bytesPerPixel bytes
	//
	// Returns:
	//   - error: if the layer is out of range or the pixel count does not match
	WriteTextureLayer(tex Texture, layer uint32, pixels []byte) error

	// CreateSampler creates a sampler; a Compare function other than CompareUndefined yields a comparison sampler.
	CreateSampler(settings common.SamplerSettings) (Sampler, error)

	// CreateFramebuffer groups existing textures into a render target.
	CreateFramebuffer(desc FramebufferDescriptor) (Framebuffer, error)

	// CreatePipeline compiles a render or compute pipeline and stores the native object on p.
	//
	// Returns:
	//   - error: pipeline.ErrInvalidPipeline, ErrUnsupported or a backend compilation error
	CreatePipeline(p pipeline.Pipeline) error

	// Resize reconfigures the swapchain to the new size in pixels.
	Resize(width, height int) error

	// BeginFrame acquires the next swapchain image and starts command recording.
	BeginFrame() error

	// BeginRenderToFramebuffer begins a render pass described by desc.
	BeginRenderToFramebuffer(desc RenderPassDescriptor) error

	// BindPipeline binds a render pipeline in the active pass.
	BindPipeline(p pipeline.Pipeline) error

	// BindVertexBuffer binds buf to vertex slot 0.
	BindVertexBuffer(buf Buffer) error

	// BindIndexBuffer binds buf as a uint32 index buffer.
	BindIndexBuffer(buf Buffer) error

	// BindGroup binds resources to one group of the bound pipeline.
	BindGroup(group BindGroup) error

	// MultiDrawIndirect issues count indexed indirect draws read consecutively from buf,
	// IndirectRecordSize bytes apart, starting at offset 0.
	MultiDrawIndirect(buf Buffer, count uint32) error

	// Draw issues a non-indexed draw (full-screen triangles).
	Draw(vertexCount, instanceCount uint32) error

	// EndRenderPass ends the active render pass.
	EndRenderPass() error

	// Dispatch runs a compute pipeline with the given bind groups and workgroup counts.
	// It must not be called inside a render pass. Outside a frame the work is submitted immediately.
	Dispatch(p pipeline.Pipeline, groups []BindGroup, x, y, z uint32) error

	// EndFrame finishes recording and submits the frame's commands.
	EndFrame() error

	// Present shows the swapchain image acquired by BeginFrame.
	Present() error

	// SurfaceSize returns the current swapchain size in pixels.
	SurfaceSize() (width, height int)

	// Release destroys the device and every backend-global object.
	Release()
}
