// Package headless provides an in-memory device.Backend that records every command instead
// of talking to a GPU. It validates pass/binding state the way a real backend would, keeps
// buffer and texture contents for inspection, and can be told to fail allocations.
package headless

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/pkg/errors"
)

// CommandKind identifies a recorded command.
type CommandKind string

const (
	CommandBeginFrame        CommandKind = "BeginFrame"
	CommandBeginRenderPass   CommandKind = "BeginRenderPass"
	CommandBindPipeline      CommandKind = "BindPipeline"
	CommandBindVertexBuffer  CommandKind = "BindVertexBuffer"
	CommandBindIndexBuffer   CommandKind = "BindIndexBuffer"
	CommandBindGroup         CommandKind = "BindGroup"
	CommandMultiDrawIndirect CommandKind = "MultiDrawIndirect"
	CommandDraw              CommandKind = "Draw"
	CommandEndRenderPass     CommandKind = "EndRenderPass"
	CommandDispatch          CommandKind = "Dispatch"
	CommandEndFrame          CommandKind = "EndFrame"
	CommandPresent           CommandKind = "Present"
)

// Command is a single recorded backend call.
type Command struct {
	Kind CommandKind
	// Target is the framebuffer label for render passes ("swapchain" for the surface),
	// the pipeline key for binds and dispatches, or the buffer label for buffer binds and draws.
	Target string
	// Count is the draw count, vertex count or group index depending on Kind.
	Count uint32
	// Entries holds the bound resource labels of a BindGroup command, in binding order.
	Entries []string
}

// SwapchainLabel is the Target recorded for render passes without a framebuffer.
const SwapchainLabel = "swapchain"

// Backend is a device.Backend with inspection hooks for tests.
type Backend interface {
	device.Backend

	// Commands returns a copy of every command recorded since the last ResetCommands.
	Commands() []Command

	// ResetCommands clears the recorded command list.
	ResetCommands()

	// Contents returns a copy of a buffer's current bytes.
	Contents(buf device.Buffer) []byte

	// Layer returns a copy of one texture layer's pixels, or nil if the layer was never written.
	Layer(tex device.Texture, layer uint32) []byte

	// LiveBuffers returns the number of created and not yet released buffers.
	LiveBuffers() int

	// LiveTextures returns the number of created and not yet released textures.
	LiveTextures() int

	// BufferAllocations returns the total number of successful CreateBuffer calls.
	BufferAllocations() int

	// FailAllocations makes every following buffer or texture allocation whose label
	// matches fail with device.ErrOutOfMemory. A nil match disables injection.
	FailAllocations(match func(label string) bool)
}

type headlessBuffer struct {
	b        *backend
	label    string
	usage    device.BufferUsage
	data     []byte
	released bool
}

type headlessTexture struct {
	b        *backend
	desc     device.TextureDescriptor
	layers   [][]byte
	released bool
}

type headlessSampler struct {
	label    string
	settings common.SamplerSettings
}

type headlessFramebuffer struct {
	label string
	color []device.Texture
	depth device.Texture
	w, h  uint32
}

type headlessPipeline struct {
	key string
}

type backend struct {
	mu     *sync.Mutex
	logger *slog.Logger

	width, height     int
	supportsWireframe bool

	commands []Command
	failing  func(label string) bool

	liveBuffers, liveTextures int
	bufferAllocations         int

	frameActive bool
	pass        *device.RenderPassDescriptor
	bound       pipeline.Pipeline
	vertexBound bool
	indexBound  bool
}

var _ Backend = &backend{}

// NewBackend creates a headless backend with a 1280x720 virtual surface.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Backend: the recording backend
func NewBackend(options ...BackendBuilderOption) Backend {
	b := &backend{
		mu:     &sync.Mutex{},
		logger: slog.Default(),
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(b)
	}
	b.logger = b.logger.With("component", "headless")
	return b
}

func (b *backend) record(c Command) {
	b.commands = append(b.commands, c)
}

func (b *backend) allocationFails(label string) bool {
	return b.failing != nil && b.failing(label)
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
	if b.allocationFails(desc.Label) {
		return nil, errors.Wrapf(device.ErrOutOfMemory, "create buffer %q (%d bytes)", desc.Label, size)
	}

	buf := &headlessBuffer{b: b, label: desc.Label, usage: desc.Usage, data: make([]byte, size)}
	copy(buf.data, desc.Contents)
	b.liveBuffers++
	b.bufferAllocations++
	return buf, nil
}

func (b *backend) WriteBuffer(buf device.Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	hb, ok := buf.(*headlessBuffer)
	if !ok || hb.released {
		return errors.New("write buffer: invalid or released buffer")
	}
	if offset+uint64(len(data)) > uint64(len(hb.data)) {
		return errors.Errorf("write buffer %q: %d bytes at %d exceeds size %d", hb.label, len(data), offset, len(hb.data))
	}
	copy(hb.data[offset:], data)
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
	if b.allocationFails(desc.Label) {
		return nil, errors.Wrapf(device.ErrOutOfMemory, "create texture %q", desc.Label)
	}
	b.liveTextures++
	return &headlessTexture{b: b, desc: desc, layers: make([][]byte, desc.Layers)}, nil
}

func (b *backend) WriteTextureLayer(tex device.Texture, layer uint32, pixels []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ht, ok := tex.(*headlessTexture)
	if !ok || ht.released {
		return errors.New("write texture: invalid or released texture")
	}
	if layer >= ht.desc.Layers {
		return errors.Errorf("write texture %q: layer %d out of range (%d layers)", ht.desc.Label, layer, ht.desc.Layers)
	}
	want := int(ht.desc.Width * ht.desc.Height * ht.desc.Format.BytesPerPixel())
	if len(pixels) != want {
		return errors.Errorf("write texture %q: got %d bytes, want %d", ht.desc.Label, len(pixels), want)
	}
	ht.layers[layer] = append([]byte(nil), pixels...)
	return nil
}

func (b *backend) CreateSampler(settings common.SamplerSettings) (device.Sampler, error) {
	return &headlessSampler{label: settings.Label, settings: settings}, nil
}

func (b *backend) CreateFramebuffer(desc device.FramebufferDescriptor) (device.Framebuffer, error) {
	if len(desc.Color) == 0 && desc.Depth == nil {
		return nil, errors.Errorf("create framebuffer %q: no attachments", desc.Label)
	}
	var w, h uint32
	check := func(t device.Texture) error {
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
	return &headlessFramebuffer{label: desc.Label, color: desc.Color, depth: desc.Depth, w: w, h: h}, nil
}

func (b *backend) CreatePipeline(p pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.PolygonMode() == pipeline.PolygonModeLine && !b.supportsWireframe {
		return errors.Wrapf(device.ErrUnsupported, "%s: line polygon mode", p.PipelineKey())
	}
	p.SetNative(&headlessPipeline{key: p.PipelineKey()})
	return nil
}

func (b *backend) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("resize: invalid size %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
	return nil
}

func (b *backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frameActive {
		return errors.New("previous frame surface not yet presented")
	}
	b.frameActive = true
	b.record(Command{Kind: CommandBeginFrame})
	return nil
}

func (b *backend) BeginRenderToFramebuffer(desc device.RenderPassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.frameActive {
		return errors.Wrap(device.ErrNoActiveFrame, "begin render pass")
	}
	if b.pass != nil {
		return errors.New("begin render pass: previous pass not ended")
	}
	target := SwapchainLabel
	if desc.Framebuffer != nil {
		target = desc.Framebuffer.Label()
	}
	b.pass = &desc
	b.bound = nil
	b.vertexBound, b.indexBound = false, false
	b.record(Command{Kind: CommandBeginRenderPass, Target: target})
	return nil
}

func (b *backend) BindPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "bind pipeline")
	}
	if p.Native() == nil {
		return errors.Errorf("bind pipeline %q: not created", p.PipelineKey())
	}
	if p.Type() != pipeline.PipelineTypeRender {
		return errors.Errorf("bind pipeline %q: not a render pipeline", p.PipelineKey())
	}
	if err := matchTargets(p, b.pass.Framebuffer); err != nil {
		return err
	}
	b.bound = p
	b.record(Command{Kind: CommandBindPipeline, Target: p.PipelineKey()})
	return nil
}

// matchTargets checks the pipeline's declared attachments against the pass target.
func matchTargets(p pipeline.Pipeline, fb device.Framebuffer) error {
	targets := p.ColorTargets()
	if fb == nil {
		if len(targets) != 1 || targets[0] != common.TextureFormatSurface {
			return errors.Errorf("bind pipeline %q: swapchain pass needs a single surface target", p.PipelineKey())
		}
		return nil
	}
	colors := fb.ColorAttachments()
	if len(colors) != len(targets) {
		return errors.Errorf("bind pipeline %q: %d color targets, framebuffer %q has %d", p.PipelineKey(), len(targets), fb.Label(), len(colors))
	}
	for i, c := range colors {
		if c.Format() != targets[i] {
			return errors.Errorf("bind pipeline %q: target %d is %s, attachment is %s", p.PipelineKey(), i, targets[i], c.Format())
		}
	}
	hasDepth := fb.DepthAttachment() != nil
	if hasDepth != (p.DepthFormat() != common.TextureFormatUndefined) {
		return errors.Errorf("bind pipeline %q: depth attachment mismatch with framebuffer %q", p.PipelineKey(), fb.Label())
	}
	return nil
}

func (b *backend) BindVertexBuffer(buf device.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "bind vertex buffer")
	}
	if buf == nil || buf.Usage()&device.BufferUsageVertex == 0 {
		return errors.New("bind vertex buffer: buffer lacks vertex usage")
	}
	b.vertexBound = true
	b.record(Command{Kind: CommandBindVertexBuffer, Target: buf.Label()})
	return nil
}

func (b *backend) BindIndexBuffer(buf device.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "bind index buffer")
	}
	if buf == nil || buf.Usage()&device.BufferUsageIndex == 0 {
		return errors.New("bind index buffer: buffer lacks index usage")
	}
	b.indexBound = true
	b.record(Command{Kind: CommandBindIndexBuffer, Target: buf.Label()})
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
	labels, err := checkGroup(b.bound, group)
	if err != nil {
		return err
	}
	b.record(Command{Kind: CommandBindGroup, Target: b.bound.PipelineKey(), Count: group.Group, Entries: labels})
	return nil
}

// checkGroup validates a bind group against the pipeline's declared layout and returns the bound labels.
func checkGroup(p pipeline.Pipeline, group device.BindGroup) ([]string, error) {
	layouts := p.BindGroupLayouts()
	if int(group.Group) >= len(layouts) {
		return nil, errors.Errorf("bind group %d: pipeline %q declares %d groups", group.Group, p.PipelineKey(), len(layouts))
	}
	layout := layouts[group.Group]
	if len(group.Entries) != len(layout) {
		return nil, errors.Errorf("bind group %d of %q: %d entries, layout has %d", group.Group, p.PipelineKey(), len(group.Entries), len(layout))
	}

	byBinding := make(map[uint32]device.BindEntry, len(group.Entries))
	for _, e := range group.Entries {
		byBinding[e.Binding] = e
	}
	labels := make([]string, 0, len(layout))
	for _, l := range layout {
		e, ok := byBinding[l.Binding]
		if !ok {
			return nil, errors.Errorf("bind group %d of %q: binding %d missing", group.Group, p.PipelineKey(), l.Binding)
		}
		switch {
		case l.Kind.IsBuffer():
			if e.Buffer == nil {
				return nil, errors.Errorf("bind group %d of %q: binding %d needs a buffer", group.Group, p.PipelineKey(), l.Binding)
			}
			labels = append(labels, e.Buffer.Label())
		case l.Kind.IsTexture():
			if e.Texture == nil {
				return nil, errors.Errorf("bind group %d of %q: binding %d needs a texture", group.Group, p.PipelineKey(), l.Binding)
			}
			if err := checkTextureKind(l.Kind, e.Texture); err != nil {
				return nil, errors.Wrapf(err, "bind group %d of %q binding %d", group.Group, p.PipelineKey(), l.Binding)
			}
			labels = append(labels, e.Texture.Label())
		case l.Kind.IsSampler():
			if e.Sampler == nil {
				return nil, errors.Errorf("bind group %d of %q: binding %d needs a sampler", group.Group, p.PipelineKey(), l.Binding)
			}
			labels = append(labels, e.Sampler.Label())
		}
	}
	return labels, nil
}

func checkTextureKind(kind pipeline.BindingKind, tex device.Texture) error {
	switch kind {
	case pipeline.BindingTextureDepth2D:
		if !tex.Format().IsDepth() {
			return errors.Errorf("%q is not a depth texture", tex.Label())
		}
	case pipeline.BindingTexture2DUint:
		if tex.Format() != common.TextureFormatR32Uint {
			return errors.Errorf("%q is not an unsigned integer texture", tex.Label())
		}
	case pipeline.BindingTexture2D:
		if tex.Format().IsDepth() || tex.Format() == common.TextureFormatR32Uint || tex.Layers() != 1 {
			return errors.Errorf("%q is not a single-layer float texture", tex.Label())
		}
	}
	return nil
}

func (b *backend) MultiDrawIndirect(buf device.Buffer, count uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "multi draw indirect")
	}
	if b.bound == nil || !b.vertexBound || !b.indexBound {
		return errors.New("multi draw indirect: pipeline, vertex and index buffers must be bound")
	}
	if buf == nil || buf.Usage()&device.BufferUsageIndirect == 0 {
		return errors.New("multi draw indirect: buffer lacks indirect usage")
	}
	if need := uint64(count) * device.IndirectRecordSize; need > buf.Size() {
		return errors.Errorf("multi draw indirect: %d records need %d bytes, buffer %q has %d", count, need, buf.Label(), buf.Size())
	}
	b.record(Command{Kind: CommandMultiDrawIndirect, Target: buf.Label(), Count: count})
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
	b.record(Command{Kind: CommandDraw, Target: b.bound.PipelineKey(), Count: vertexCount * instanceCount})
	return nil
}

func (b *backend) EndRenderPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass == nil {
		return errors.Wrap(device.ErrNoActivePass, "end render pass")
	}
	b.pass = nil
	b.bound = nil
	b.record(Command{Kind: CommandEndRenderPass})
	return nil
}

func (b *backend) Dispatch(p pipeline.Pipeline, groups []device.BindGroup, x, y, z uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pass != nil {
		return errors.New("dispatch: inside a render pass")
	}
	if p.Type() != pipeline.PipelineTypeCompute || p.Native() == nil {
		return errors.Errorf("dispatch %q: not a created compute pipeline", p.PipelineKey())
	}
	for _, g := range groups {
		if _, err := checkGroup(p, g); err != nil {
			return err
		}
	}
	b.record(Command{Kind: CommandDispatch, Target: p.PipelineKey(), Count: x * y * z})
	return nil
}

func (b *backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.frameActive {
		return errors.Wrap(device.ErrNoActiveFrame, "end frame")
	}
	if b.pass != nil {
		return errors.New("end frame: render pass still open")
	}
	b.record(Command{Kind: CommandEndFrame})
	return nil
}

func (b *backend) Present() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.frameActive {
		return nil
	}
	b.frameActive = false
	b.record(Command{Kind: CommandPresent})
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
	if b.liveBuffers > 0 || b.liveTextures > 0 {
		b.logger.Debug("released with live resources", "buffers", b.liveBuffers, "textures", b.liveTextures)
	}
}

func (b *backend) Commands() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Command(nil), b.commands...)
}

func (b *backend) ResetCommands() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = nil
}

func (b *backend) Contents(buf device.Buffer) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	hb, ok := buf.(*headlessBuffer)
	if !ok {
		return nil
	}
	return append([]byte(nil), hb.data...)
}

func (b *backend) Layer(tex device.Texture, layer uint32) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	ht, ok := tex.(*headlessTexture)
	if !ok || layer >= uint32(len(ht.layers)) || ht.layers[layer] == nil {
		return nil
	}
	return append([]byte(nil), ht.layers[layer]...)
}

func (b *backend) LiveBuffers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.liveBuffers
}

func (b *backend) LiveTextures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.liveTextures
}

func (b *backend) BufferAllocations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bufferAllocations
}

func (b *backend) FailAllocations(match func(label string) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing = match
}

func (buf *headlessBuffer) Label() string { return buf.label }
func (buf *headlessBuffer) Size() uint64 { return uint64(len(buf.data)) }
func (buf *headlessBuffer) Usage() device.BufferUsage { return buf.usage }

func (buf *headlessBuffer) Release() {
	buf.b.mu.Lock()
	defer buf.b.mu.Unlock()
	if buf.released {
		return
	}
	buf.released = true
	buf.b.liveBuffers--
}

func (t *headlessTexture) Label() string { return t.desc.Label }
func (t *headlessTexture) Width() uint32 { return t.desc.Width }
func (t *headlessTexture) Height() uint32 { return t.desc.Height }
func (t *headlessTexture) Layers() uint32 { return t.desc.Layers }
func (t *headlessTexture) Format() common.TextureFormat { return t.desc.Format }

func (t *headlessTexture) Release() {
	t.b.mu.Lock()
	defer t.b.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	t.b.liveTextures--
}

func (s *headlessSampler) Label() string { return s.label }
func (s *headlessSampler) Release() {}

func (f *headlessFramebuffer) Label() string { return f.label }
func (f *headlessFramebuffer) Width() uint32 { return f.w }
func (f *headlessFramebuffer) Height() uint32 { return f.h }
func (f *headlessFramebuffer) ColorAttachments() []device.Texture { return f.color }
func (f *headlessFramebuffer) DepthAttachment() device.Texture { return f.depth }
func (f *headlessFramebuffer) Release() {}

func (p *headlessPipeline) String() string {
	return fmt.Sprintf("headless pipeline %s", p.key)
}
