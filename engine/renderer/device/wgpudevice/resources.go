package wgpudevice

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

type gpuBuffer struct {
	native *wgpu.Buffer
	label  string
	size   uint64
	usage  device.BufferUsage
	// mirror holds the contents of indirect buffers for devices that draw them one record at a time.
	mirror []byte
}

func (b *gpuBuffer) Label() string             { return b.label }
func (b *gpuBuffer) Size() uint64              { return b.size }
func (b *gpuBuffer) Usage() device.BufferUsage { return b.usage }

func (b *gpuBuffer) Release() {
	if b.native == nil {
		return
	}
	b.native.Release()
	b.native = nil
}

// gpuTexture keeps the views the renderer needs: a 2D view of layer 0 for attachments and
// 2D bindings, and a 2D array view over every layer for array and storage bindings.
type gpuTexture struct {
	native    *wgpu.Texture
	view2D    *wgpu.TextureView
	viewArray *wgpu.TextureView
	desc      device.TextureDescriptor
}

func (t *gpuTexture) Label() string                { return t.desc.Label }
func (t *gpuTexture) Width() uint32                { return t.desc.Width }
func (t *gpuTexture) Height() uint32               { return t.desc.Height }
func (t *gpuTexture) Layers() uint32               { return t.desc.Layers }
func (t *gpuTexture) Format() common.TextureFormat { return t.desc.Format }

func (t *gpuTexture) Release() {
	if t.view2D != nil {
		t.view2D.Release()
		t.view2D = nil
	}
	if t.viewArray != nil {
		t.viewArray.Release()
		t.viewArray = nil
	}
	if t.native != nil {
		t.native.Release()
		t.native = nil
	}
}

type gpuSampler struct {
	native *wgpu.Sampler
	label  string
}

func (s *gpuSampler) Label() string { return s.label }

func (s *gpuSampler) Release() {
	if s.native == nil {
		return
	}
	s.native.Release()
	s.native = nil
}

// gpuFramebuffer borrows its attachments; releasing it does not release the textures.
type gpuFramebuffer struct {
	label string
	color []device.Texture
	depth device.Texture
	w, h  uint32
}

func (f *gpuFramebuffer) Label() string                      { return f.label }
func (f *gpuFramebuffer) Width() uint32                      { return f.w }
func (f *gpuFramebuffer) Height() uint32                     { return f.h }
func (f *gpuFramebuffer) ColorAttachments() []device.Texture { return f.color }
func (f *gpuFramebuffer) DepthAttachment() device.Texture    { return f.depth }
func (f *gpuFramebuffer) Release()                           {}

// nativePipeline is what CreatePipeline stores on pipeline.Pipeline.SetNative.
type nativePipeline struct {
	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
	layouts []*wgpu.BindGroupLayout
}

func (p *nativePipeline) release() {
	if p.render != nil {
		p.render.Release()
	}
	if p.compute != nil {
		p.compute.Release()
	}
	for _, l := range p.layouts {
		l.Release()
	}
}
