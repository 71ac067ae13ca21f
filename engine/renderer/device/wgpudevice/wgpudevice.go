// Package wgpudevice implements device.Backend on WebGPU through cogentcore/webgpu.
//
// Every frame is recorded into a single command encoder: render passes and compute dispatches
// are encoded in call order and submitted together by EndFrame. Bind groups are created on
// demand and released once the frame has been submitted.
package wgpudevice

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

type backend struct {
	mu     *sync.Mutex
	logger *slog.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   PresentMode
	maxBindGroups uint32
	width, height int

	// indirectFirstInstance is set when the device honours FirstInstance in indirect records.
	indirectFirstInstance bool

	// frame state, valid between BeginFrame and Present
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	frameGroups  []*wgpu.BindGroup
	submitted    bool

	pass  *wgpu.RenderPassEncoder
	bound pipeline.Pipeline

	pipelines []*nativePipeline
}

var _ device.Backend = &backend{}

// NewBackend creates a WebGPU device for the given surface and configures the swapchain.
// The calling goroutine is locked to its OS thread, as the native surface requires.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, usually from window.Window.SurfaceDescriptor
//   - width, height: the initial swapchain size in pixels
//   - options: builder options
//
// Returns:
//   - device.Backend: the backend
//   - error: if no adapter or device could be obtained
func NewBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...BackendBuilderOption) (device.Backend, error) {
	if surfaceDescriptor == nil {
		return nil, errors.New("wgpu backend: nil surface descriptor")
	}
	runtime.LockOSThread()

	b := &backend{
		mu:            &sync.Mutex{},
		logger:        slog.Default(),
		presentMode:   PresentModeVSync,
		maxBindGroups: 4,
	}
	for _, opt := range options {
		opt(b)
	}
	b.logger = b.logger.With("component", "wgpu")

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "request adapter")
	}
	b.adapter = adapter

	limits := wgpu.DefaultLimits()
	if b.maxBindGroups > limits.MaxBindGroups {
		limits.MaxBindGroups = b.maxBindGroups
	}
	features, firstInstance := indirectFeatures(adapter.EnumerateFeatures())
	b.indirectFirstInstance = firstInstance
	if !firstInstance {
		b.logger.Warn("adapter lacks indirect-first-instance, drawing indirect records directly")
	}
	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            "Deferred Device",
		RequiredFeatures: features,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.Release()
		return nil, errors.Wrap(err, "request device")
	}
	b.device = dev
	b.queue = dev.GetQueue()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		b.Release()
		return nil, errors.New("surface reports no formats")
	}
	b.surfaceFormat = capabilities.Formats[0]
	b.alphaMode = capabilities.AlphaModes[0]

	if err := b.Resize(width, height); err != nil {
		b.Release()
		return nil, err
	}
	b.logger.Info("device ready", "surface_format", fmt.Sprint(b.surfaceFormat), "width", width, "height", height)
	return b, nil
}

func (b *backend) CreateBuffer(desc device.BufferDescriptor) (device.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := desc.Size
	if uint64(len(desc.Contents)) > size {
		size = uint64(len(desc.Contents))
	}
	if size == 0 {
		return nil, errors.Errorf("create buffer %q: zero size", desc.Label)
	}
	// WebGPU requires buffer sizes in multiples of 4 when written through the queue.
	size = (size + 3) &^ 3

	native, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: bufferUsage(desc.Usage) | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, errors.Wrapf(device.ErrOutOfMemory, "create buffer %q (%d bytes): %v", desc.Label, size, err)
	}
	gb := &gpuBuffer{native: native, label: desc.Label, size: size, usage: desc.Usage}
	if desc.Usage&device.BufferUsageIndirect != 0 && !b.indirectFirstInstance {
		gb.mirror = make([]byte, size)
	}
	if len(desc.Contents) > 0 {
		b.queue.WriteBuffer(native, 0, padded(desc.Contents))
		gb.mirrorWrite(0, desc.Contents)
	}
	return gb, nil
}

// padded rounds data up to a multiple of 4 bytes.
func padded(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, (len(data)+3)&^3)
	copy(out, data)
	return out
}

func (b *backend) WriteBuffer(buf device.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	gb, ok := buf.(*gpuBuffer)
	if !ok || gb.native == nil {
		return errors.New("write buffer: invalid or released buffer")
	}
	if len(data) == 0 {
		return nil
	}
	data = padded(data)
	if offset+uint64(len(data)) > gb.size {
		return errors.Errorf("write buffer %q: %d bytes at %d exceeds size %d", gb.label, len(data), offset, gb.size)
	}
	b.queue.WriteBuffer(gb.native, offset, data)
	gb.mirrorWrite(offset, data)
	return nil
}

func (b *backend) CreateTexture(desc device.TextureDescriptor) (device.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return nil, errors.Errorf("create texture %q: zero size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Layers == 0 {
		desc.Layers = 1
	}
	format, err := textureFormat(desc.Format, b.surfaceFormat)
	if err != nil {
		return nil, errors.Wrapf(err, "create texture %q", desc.Label)
	}

	native, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     textureUsage(desc.Usage),
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: desc.Layers,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, errors.Wrapf(device.ErrOutOfMemory, "create texture %q: %v", desc.Label, err)
	}

	t := &gpuTexture{native: native, desc: desc}
	t.view2D, err = native.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label + " view",
		Format:          format,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		t.Release()
		return nil, errors.Wrapf(err, "create texture %q view", desc.Label)
	}
	t.viewArray, err = native.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label + " array view",
		Format:          format,
		Dimension:       wgpu.TextureViewDimension2DArray,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: desc.Layers,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		t.Release()
		return nil, errors.Wrapf(err, "create texture %q array view", desc.Label)
	}
	return t, nil
}

func (b *backend) WriteTextureLayer(tex device.Texture, layer uint32, pixels []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	gt, ok := tex.(*gpuTexture)
	if !ok || gt.native == nil {
		return errors.New("write texture: invalid or released texture")
	}
	if layer >= gt.desc.Layers {
		return errors.Errorf("write texture %q: layer %d out of range (%d layers)", gt.desc.Label, layer, gt.desc.Layers)
	}
	bpp := gt.desc.Format.BytesPerPixel()
	if want := int(gt.desc.Width * gt.desc.Height * bpp); len(pixels) != want {
		return errors.Errorf("write texture %q: got %d bytes, want %d", gt.desc.Label, len(pixels), want)
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  gt.native,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{Z: layer},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  gt.desc.Width * bpp,
			RowsPerImage: gt.desc.Height,
		},
		&wgpu.Extent3D{
			Width:              gt.desc.Width,
			Height:             gt.desc.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *backend) CreateSampler(settings common.SamplerSettings) (device.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mode := addressMode(settings.AddressMode)
	native, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         settings.Label,
		AddressModeU:  mode,
		AddressModeV:  mode,
		AddressModeW:  mode,
		MagFilter:     filterMode(settings.MagFilter),
		MinFilter:     filterMode(settings.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		Compare:       compareFunction(settings.Compare),
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create sampler %q", settings.Label)
	}
	return &gpuSampler{native: native, label: settings.Label}, nil
}

func (b *backend) CreateFramebuffer(desc device.FramebufferDescriptor) (device.Framebuffer, error) {
	if len(desc.Color) == 0 && desc.Depth == nil {
		return nil, errors.Errorf("create framebuffer %q: no attachments", desc.Label)
	}
	var w, h uint32
	check := func(t device.Texture) error {
		if _, ok := t.(*gpuTexture); !ok {
			return errors.Errorf("create framebuffer %q: attachment %q is not a WebGPU texture", desc.Label, t.Label())
		}
		if w == 0 {
			w, h = t.Width(), t.Height()
		}
		if t.Width() != w || t.Height() != h {
			return errors.Errorf("create framebuffer %q: attachment %q is %dx%d, want %dx%d", desc.Label, t.Label(), t.Width(), t.Height(), w, h)
		}
		return nil
	}
	for _, c := range desc.Color {
		if err := check(c); err != nil {
			return nil, err
		}
	}
	if desc.Depth != nil {
		if !desc.Depth.Format().IsDepth() {
			return nil, errors.Errorf("create framebuffer %q: %q is not a depth texture", desc.Label, desc.Depth.Label())
		}
		if err := check(desc.Depth); err != nil {
			return nil, err
		}
	}
	return &gpuFramebuffer{label: desc.Label, color: desc.Color, depth: desc.Depth, w: w, h: h}, nil
}

func (b *backend) CreatePipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	// Line rasterization is a native-only extension that this binding does not expose.
	if p.PolygonMode() == pipeline.PolygonModeLine {
		return errors.Wrapf(device.ErrUnsupported, "%s: line polygon mode", p.PipelineKey())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	layouts, pipelineLayout, err := b.createLayouts(p)
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	native := &nativePipeline{layouts: layouts}
	if p.Type() == pipeline.PipelineTypeCompute {
		native.compute, err = b.createComputePipeline(p, pipelineLayout)
	} else {
		native.render, err = b.createRenderPipeline(p, pipelineLayout)
	}
	if err != nil {
		native.release()
		return errors.Wrapf(err, "create pipeline %q", p.PipelineKey())
	}
	b.pipelines = append(b.pipelines, native)
	p.SetNative(native)
	return nil
}

func (b *backend) createLayouts(p pipeline.Pipeline) ([]*wgpu.BindGroupLayout, *wgpu.PipelineLayout, error) {
	declared := p.BindGroupLayouts()
	layouts := make([]*wgpu.BindGroupLayout, 0, len(declared))
	release := func() {
		for _, l := range layouts {
			l.Release()
		}
	}
	for g, group := range declared {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(group))
		for _, binding := range group {
			entry, err := layoutEntry(binding)
			if err != nil {
				release()
				return nil, nil, errors.Wrapf(err, "%s group %d", p.PipelineKey(), g)
			}
			entries = append(entries, entry)
		}
		layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.PipelineKey(), g),
			Entries: entries,
		})
		if err != nil {
			release()
			return nil, nil, errors.Wrapf(err, "%s: bind group layout %d", p.PipelineKey(), g)
		}
		layouts = append(layouts, layout)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		release()
		return nil, nil, errors.Wrapf(err, "%s: pipeline layout", p.PipelineKey())
	}
	return layouts, pipelineLayout, nil
}

func (b *backend) shaderModule(s shader.Shader) (*wgpu.ShaderModule, error) {
	return b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
}

func (b *backend) createComputePipeline(p pipeline.Pipeline, layout *wgpu.PipelineLayout) (*wgpu.ComputePipeline, error) {
	cs := p.Shader(shader.ShaderTypeCompute)
	module, err := b.shaderModule(cs)
	if err != nil {
		return nil, err
	}
	defer module.Release()

	return b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " compute pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: cs.EntryPoint(),
		},
	})
}

func (b *backend) createRenderPipeline(p pipeline.Pipeline, layout *wgpu.PipelineLayout) (*wgpu.RenderPipeline, error) {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	vs, err := b.shaderModule(vertexShader)
	if err != nil {
		return nil, err
	}
	defer vs.Release()

	vertexLayouts := make([]wgpu.VertexBufferLayout, 0, len(p.VertexLayouts()))
	for _, vl := range p.VertexLayouts() {
		attrs := make([]wgpu.VertexAttribute, 0, len(vl.Attributes))
		for _, a := range vl.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		vertexLayouts = append(vertexLayouts, wgpu.VertexBufferLayout{
			ArrayStride: vl.Stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " render pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexLayouts,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: frontFace(p.FrontFace()),
			CullMode:  cullMode(p.CullMode()),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}

	if fragmentShader := p.Shader(shader.ShaderTypeFragment); fragmentShader != nil {
		fs, err := b.shaderModule(fragmentShader)
		if err != nil {
			return nil, err
		}
		defer fs.Release()

		targets := make([]wgpu.ColorTargetState, 0, len(p.ColorTargets()))
		for _, f := range p.ColorTargets() {
			format, err := textureFormat(f, b.surfaceFormat)
			if err != nil {
				return nil, err
			}
			state := wgpu.ColorTargetState{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}
			// Integer targets cannot blend.
			if f != common.TextureFormatR32Uint {
				state.Blend = blendState(p.BlendMode())
			}
			targets = append(targets, state)
		}
		desc.Fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    targets,
		}
	}

	if p.DepthFormat() != common.TextureFormatUndefined {
		format, err := textureFormat(p.DepthFormat(), b.surfaceFormat)
		if err != nil {
			return nil, err
		}
		compare := compareFunction(p.DepthCompare())
		if !p.DepthTestEnabled() {
			compare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              format,
			DepthWriteEnabled:   p.DepthWriteEnabled(),
			DepthCompare:        compare,
			DepthBias:           p.DepthBias(),
			DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	return b.device.CreateRenderPipeline(desc)
}

func (b *backend) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("resize: invalid size %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	present := wgpu.PresentModeFifo
	if b.presentMode == PresentModeUncapped {
		present = wgpu.PresentModeImmediate
	}
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: present,
		AlphaMode:   b.alphaMode,
	})
	b.width, b.height = width, height
	return nil
}

func (b *backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return errors.Wrap(err, "acquire swapchain image")
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return errors.Wrap(err, "swapchain view")
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return errors.Wrap(err, "command encoder")
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.submitted = false
	return nil
}

func (b *backend) BeginRenderToFramebuffer(desc device.RenderPassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errors.Wrap(device.ErrNoActiveFrame, "begin render pass")
	}
	if b.pass != nil {
		return errors.New("begin render pass: previous pass not ended")
	}

	colorLoad := wgpu.LoadOpLoad
	if desc.ClearColor {
		colorLoad = wgpu.LoadOpClear
	}
	clear := wgpu.Color{R: desc.ClearValue[0], G: desc.ClearValue[1], B: desc.ClearValue[2], A: desc.ClearValue[3]}

	pass := &wgpu.RenderPassDescriptor{Label: desc.Label}
	if desc.Framebuffer == nil {
		pass.ColorAttachments = []wgpu.RenderPassColorAttachment{{
			View:       b.frameView,
			LoadOp:     colorLoad,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clear,
		}}
	} else {
		for _, c := range desc.Framebuffer.ColorAttachments() {
			pass.ColorAttachments = append(pass.ColorAttachments, wgpu.RenderPassColorAttachment{
				View:       c.(*gpuTexture).view2D,
				LoadOp:     colorLoad,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: clear,
			})
		}
		if d := desc.Framebuffer.DepthAttachment(); d != nil {
			depthLoad := wgpu.LoadOpLoad
			if desc.ClearDepth {
				depthLoad = wgpu.LoadOpClear
			}
			pass.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
				View:            d.(*gpuTexture).view2D,
				DepthLoadOp:     depthLoad,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: desc.DepthClearValue,
			}
		}
	}

	b.pass = b.frameEncoder.BeginRenderPass(pass)
	b.bound = nil
	return nil
}

func (b *backend) BindPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "bind pipeline")
	}
	native, ok := p.Native().(*nativePipeline)
	if !ok || native.render == nil {
		return errors.Errorf("bind pipeline %q: not a created render pipeline", p.PipelineKey())
	}
	b.pass.SetPipeline(native.render)
	b.bound = p
	return nil
}

func (b *backend) BindVertexBuffer(buf device.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "bind vertex buffer")
	}
	gb, ok := buf.(*gpuBuffer)
	if !ok || gb.native == nil || gb.usage&device.BufferUsageVertex == 0 {
		return errors.New("bind vertex buffer: buffer lacks vertex usage")
	}
	b.pass.SetVertexBuffer(0, gb.native, 0, wgpu.WholeSize)
	return nil
}

func (b *backend) BindIndexBuffer(buf device.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "bind index buffer")
	}
	gb, ok := buf.(*gpuBuffer)
	if !ok || gb.native == nil || gb.usage&device.BufferUsageIndex == 0 {
		return errors.New("bind index buffer: buffer lacks index usage")
	}
	b.pass.SetIndexBuffer(gb.native, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	return nil
}

func (b *backend) BindGroup(group device.BindGroup) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "bind group")
	}
	if b.bound == nil {
		return errors.New("bind group: no pipeline bound")
	}
	bg, err := b.createBindGroup(b.bound, group)
	if err != nil {
		return err
	}
	b.pass.SetBindGroup(group.Group, bg, nil)
	return nil
}

// createBindGroup builds a native bind group for one group of p. The group is owned by the
// current frame, or by the caller when no frame is active.
func (b *backend) createBindGroup(p pipeline.Pipeline, group device.BindGroup) (*wgpu.BindGroup, error) {
	native := p.Native().(*nativePipeline)
	declared := p.BindGroupLayouts()
	if int(group.Group) >= len(declared) {
		return nil, errors.Errorf("bind group %d: pipeline %q declares %d groups", group.Group, p.PipelineKey(), len(declared))
	}

	kinds := make(map[uint32]pipeline.BindingKind, len(declared[group.Group]))
	for _, l := range declared[group.Group] {
		kinds[l.Binding] = l.Kind
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(group.Entries))
	for _, e := range group.Entries {
		kind, ok := kinds[e.Binding]
		if !ok {
			return nil, errors.Errorf("bind group %d of %q: binding %d not declared", group.Group, p.PipelineKey(), e.Binding)
		}
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case kind.IsBuffer():
			gb, ok := e.Buffer.(*gpuBuffer)
			if !ok || gb.native == nil {
				return nil, errors.Errorf("bind group %d of %q: binding %d needs a buffer", group.Group, p.PipelineKey(), e.Binding)
			}
			entry.Buffer = gb.native
			entry.Size = wgpu.WholeSize
		case kind.IsTexture():
			gt, ok := e.Texture.(*gpuTexture)
			if !ok || gt.native == nil {
				return nil, errors.Errorf("bind group %d of %q: binding %d needs a texture", group.Group, p.PipelineKey(), e.Binding)
			}
			entry.TextureView = gt.view2D
			if kind == pipeline.BindingTexture2DArray || kind == pipeline.BindingStorageTexture2DArray {
				entry.TextureView = gt.viewArray
			}
		case kind.IsSampler():
			gs, ok := e.Sampler.(*gpuSampler)
			if !ok || gs.native == nil {
				return nil, errors.Errorf("bind group %d of %q: binding %d needs a sampler", group.Group, p.PipelineKey(), e.Binding)
			}
			entry.Sampler = gs.native
		}
		entries = append(entries, entry)
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s group %d", p.PipelineKey(), group.Group),
		Layout:  native.layouts[group.Group],
		Entries: entries,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "bind group %d of %q", group.Group, p.PipelineKey())
	}
	if b.frameEncoder != nil {
		b.frameGroups = append(b.frameGroups, bg)
	}
	return bg, nil
}

// MultiDrawIndirect expands into one DrawIndexedIndirect per record. Core WebGPU has no
// multi-draw. Without indirect-first-instance the records are read from the buffer's CPU copy
// and issued as direct draws, which accept a non-zero first instance.
func (b *backend) MultiDrawIndirect(buf device.Buffer, count uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "multi draw indirect")
	}
	if b.bound == nil {
		return errors.New("multi draw indirect: no pipeline bound")
	}
	gb, ok := buf.(*gpuBuffer)
	if !ok || gb.native == nil || gb.usage&device.BufferUsageIndirect == 0 {
		return errors.New("multi draw indirect: buffer lacks indirect usage")
	}
	if need := uint64(count) * device.IndirectRecordSize; need > gb.size {
		return errors.Errorf("multi draw indirect: %d records need %d bytes, buffer %q has %d", count, need, gb.label, gb.size)
	}
	if !b.indirectFirstInstance {
		for i := uint32(0); i < count; i++ {
			rec, _ := decodeIndirect(gb.mirror, i)
			if rec.IndexCount == 0 || rec.InstanceCount == 0 {
				continue
			}
			b.pass.DrawIndexed(rec.IndexCount, rec.InstanceCount, rec.FirstIndex, rec.BaseVertex, rec.FirstInstance)
		}
		return nil
	}
	for i := uint32(0); i < count; i++ {
		b.pass.DrawIndexedIndirect(gb.native, uint64(i)*device.IndirectRecordSize)
	}
	return nil
}

func (b *backend) Draw(vertexCount, instanceCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "draw")
	}
	if b.bound == nil {
		return errors.New("draw: no pipeline bound")
	}
	b.pass.Draw(vertexCount, instanceCount, 0, 0)
	return nil
}

func (b *backend) EndRenderPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "end render pass")
	}
	b.pass.End()
	b.pass.Release()
	b.pass = nil
	b.bound = nil
	return nil
}

func (b *backend) Dispatch(p pipeline.Pipeline, groups []device.BindGroup, x, y, z uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass != nil {
		return errors.New("dispatch: inside a render pass")
	}
	native, ok := p.Native().(*nativePipeline)
	if !ok || native.compute == nil {
		return errors.Errorf("dispatch %q: not a created compute pipeline", p.PipelineKey())
	}

	encoder := b.frameEncoder
	immediate := encoder == nil
	var owned []*wgpu.BindGroup
	if immediate {
		var err error
		if encoder, err = b.device.CreateCommandEncoder(nil); err != nil {
			return errors.Wrapf(err, "dispatch %q", p.PipelineKey())
		}
		defer encoder.Release()
		defer func() {
			for _, bg := range owned {
				bg.Release()
			}
		}()
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(native.compute)
	for _, g := range groups {
		bg, err := b.createBindGroup(p, g)
		if err != nil {
			pass.End()
			pass.Release()
			return err
		}
		if immediate {
			owned = append(owned, bg)
		}
		pass.SetBindGroup(g.Group, bg, nil)
	}
	pass.DispatchWorkgroups(x, y, z)
	pass.End()
	pass.Release()

	if immediate {
		commandBuffer, err := encoder.Finish(nil)
		if err != nil {
			return errors.Wrapf(err, "dispatch %q", p.PipelineKey())
		}
		defer commandBuffer.Release()
		b.queue.Submit(commandBuffer)
	}
	return nil
}

func (b *backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errors.Wrap(device.ErrNoActiveFrame, "end frame")
	}
	if b.pass != nil {
		// Abandoned pass from a failed frame; close it so the encoder can finish.
		b.pass.End()
		b.pass.Release()
		b.pass = nil
		b.bound = nil
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrameGroups()
		return errors.Wrap(err, "finish frame")
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.releaseFrameGroups()
	b.submitted = true
	return nil
}

func (b *backend) releaseFrameGroups() {
	for _, bg := range b.frameGroups {
		bg.Release()
	}
	b.frameGroups = b.frameGroups[:0]
}

func (b *backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return nil
	}
	if b.submitted {
		b.surface.Present()
	}
	b.frameView.Release()
	b.frameSurface.Release()
	b.frameView = nil
	b.frameSurface = nil
	b.submitted = false
	return nil
}

func (b *backend) SurfaceSize() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	b.releaseFrameGroups()
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	for _, p := range b.pipelines {
		p.release()
	}
	b.pipelines = nil
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
