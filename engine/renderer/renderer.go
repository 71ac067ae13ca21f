package renderer

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/pool"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/shadow"
	"github.com/pkg/errors"
)

// ErrNotLoaded is returned by RenderFrame and Resize before a successful Load.
var ErrNotLoaded = errors.New("renderer not loaded")

// FrameStats describes the most recent frame.
type FrameStats = profiler.FrameStats

// DrawableSource supplies the drawables of a frame. A non-nil frustum may be used to cull.
// scene.Scene satisfies it.
type DrawableSource interface {
	Drawables(dst []scene.Drawable, frustum *common.Frustum) []scene.Drawable
}

// resources are the GPU objects created by Load.
type resources struct {
	gbuffer          pipeline.Pipeline
	gbufferWireframe pipeline.Pipeline
	shadow           pipeline.Pipeline
	lighting         pipeline.Pipeline
	resolve          pipeline.Pipeline
	debugColor       pipeline.Pipeline
	debugDepth       pipeline.Pipeline
	convolve         pipeline.Pipeline

	targets *targets

	cameraBuf   device.Buffer
	lightBuf    device.Buffer
	shadowBuf   device.Buffer
	resolveBuf  device.Buffer
	debugParams device.Buffer

	// instances and indirect always hold instanceCap records.
	instances   device.Buffer
	indirect    device.Buffer
	instanceCap int

	materialSampler device.Sampler
	skyboxSampler   device.Sampler
	debugSampler    device.Sampler

	// fallbacks stand in for pool resources before the first successful rebuild.
	fallbackMaterials device.Buffer
	fallbackTextures  device.Texture

	skybox          device.Texture
	skyboxConvolved device.Texture
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *slog.Logger

	backend   device.Backend
	pool      pool.Pool
	ownsPool  bool
	shadowMap shadow.Manager
	source    DrawableSource

	pipelineCache map[string]pipeline.Pipeline
	res           resources
	loaded        bool

	state atomic.Int32
	stats FrameStats

	light          light.DirectionalLight
	shadowSettings light.ShadowSettings
	resolve        config.ResolveSettings
	debugMode      DebugMode
	wireframe      bool
	skyboxFaces    *SkyboxFaces

	frame          frameData
	drawables      []scene.Drawable
	scratch        []byte
	lastSkipped    int
	warnedLightDir bool
}

// Renderer records the deferred frame: G-Buffer, directional shadow, lighting and resolve passes,
// all geometry submitted as one indirect multi-draw per pass against the pool's snapshot.
//
// Settings setters are safe to call from any goroutine; they take effect at the next frame boundary.
type Renderer interface {
	// Load creates pipelines, render targets, uniform buffers, the shadow map and the skybox.
	//
	// Returns:
	//   - error: the wrapped load-time failure; the renderer stays unloaded
	Load() error

	// Loaded reports whether Load has succeeded.
	Loaded() bool

	// RenderFrame reconciles the pool, gathers the source's drawables and records every pass
	// of one frame.
	//
	// Parameters:
	//   - cam: the viewing camera
	//
	// Returns:
	//   - error: ErrNotLoaded, or a backend failure that aborted the frame
	RenderFrame(cam camera.Camera) error

	// Resize reconfigures the swapchain and recreates every size-dependent target.
	// A zero width or height is ignored.
	Resize(width, height int) error

	SetDebugMode(mode DebugMode)
	DebugMode() DebugMode

	// SetWireframe selects the line-rasterized G-Buffer pipeline. It has no effect when the
	// backend does not support wireframe.
	SetWireframe(enabled bool)
	Wireframe() bool

	// SetShadowSettings validates s and applies it from the next frame on; a changed
	// resolution recreates the shadow map.
	SetShadowSettings(s light.ShadowSettings) error
	ShadowSettings() light.ShadowSettings

	SetLight(l light.DirectionalLight)
	Light() light.DirectionalLight

	// ApplySettings applies the light, shadow, resolve and debug sections of s.
	ApplySettings(s config.Settings) error

	// Pipeline returns the cached pipeline for key, or nil.
	Pipeline(key string) pipeline.Pipeline

	// Pipelines returns a copy of the pipeline cache.
	Pipelines() map[string]pipeline.Pipeline

	Pool() pool.Pool
	ShadowMap() shadow.Manager

	// State returns the stage of the frame being recorded, FrameStateIdle between frames.
	State() FrameState

	// Stats returns the statistics of the last completed frame.
	Stats() FrameStats

	// Release destroys every resource created by Load, plus the pool when the renderer created it.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates an unloaded Renderer on the given backend.
//
// Parameters:
//   - backend: the graphics backend every resource is created on
//   - options: builder options
//
// Returns:
//   - Renderer: the renderer; call Load before RenderFrame
func NewRenderer(backend device.Backend, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:             &sync.Mutex{},
		logger:         slog.Default(),
		backend:        backend,
		pipelineCache:  make(map[string]pipeline.Pipeline),
		light:          light.NewDirectionalLight(),
		shadowSettings: light.DefaultShadowSettings(),
		resolve:        config.Default().Resolve,
	}
	for _, opt := range options {
		opt(r)
	}
	base := r.logger
	r.logger = base.With("component", "renderer")
	if r.pool == nil {
		r.pool = pool.NewPool(backend, pool.WithLogger(base))
		r.ownsPool = true
	}
	r.shadowMap = shadow.NewManager(backend, shadow.WithLogger(base))
	return r
}

func (r *renderer) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	if err := r.loadLocked(); err != nil {
		r.releaseResources()
		r.logger.Error("renderer load failed", "error", err)
		return errors.Wrap(err, "load renderer")
	}
	r.loaded = true
	r.logger.Info("renderer loaded",
		"width", r.res.targets.width,
		"height", r.res.targets.height,
		"shadow_resolution", r.shadowMap.Width(),
		"wireframe_supported", r.res.gbufferWireframe != nil,
	)
	return nil
}

func (r *renderer) loadLocked() error {
	if err := r.shadowSettings.Validate(); err != nil {
		return err
	}
	if err := r.buildPipelines(); err != nil {
		return err
	}

	var err error
	if r.res.materialSampler, err = r.backend.CreateSampler(common.SamplerSettings{
		Label:       "material sampler",
		AddressMode: common.AddressRepeat,
		MagFilter:   common.FilterLinear,
		MinFilter:   common.FilterLinear,
	}); err != nil {
		return errors.Wrap(err, "create material sampler")
	}
	if r.res.skyboxSampler, err = r.backend.CreateSampler(common.SamplerSettings{
		Label:       "skybox sampler",
		AddressMode: common.AddressClampToEdge,
		MagFilter:   common.FilterLinear,
		MinFilter:   common.FilterLinear,
	}); err != nil {
		return errors.Wrap(err, "create skybox sampler")
	}
	if r.res.debugSampler, err = r.backend.CreateSampler(common.SamplerSettings{
		Label:       "debug sampler",
		AddressMode: common.AddressClampToEdge,
		MagFilter:   common.FilterNearest,
		MinFilter:   common.FilterNearest,
	}); err != nil {
		return errors.Wrap(err, "create debug sampler")
	}

	uniforms := []struct {
		dst   *device.Buffer
		label string
		size  uint64
	}{
		{&r.res.cameraBuf, "camera", uint64((&camera.GPUCamera{}).Size())},
		{&r.res.lightBuf, "light", uint64((&light.GPUDirectionalLight{}).Size())},
		{&r.res.shadowBuf, "shadow", uint64((&light.GPUShadowData{}).Size())},
		{&r.res.resolveBuf, "resolve params", 16},
		{&r.res.debugParams, "debug params", 16},
	}
	for _, u := range uniforms {
		if *u.dst, err = r.backend.CreateBuffer(device.BufferDescriptor{
			Label: u.label,
			Size:  u.size,
			Usage: device.BufferUsageUniform | device.BufferUsageCopyDst,
		}); err != nil {
			return errors.Wrapf(err, "create %s uniform", u.label)
		}
	}

	if err := r.ensureInstanceCapacity(initialInstanceCapacity); err != nil {
		return err
	}

	if r.res.fallbackMaterials, err = r.backend.CreateBuffer(device.BufferDescriptor{
		Label:    "fallback materials",
		Usage:    device.BufferUsageStorage | device.BufferUsageCopyDst,
		Contents: (&material.GPUMaterial{BaseColor: [4]float32{1, 1, 1, 1}}).Marshal(),
	}); err != nil {
		return errors.Wrap(err, "create fallback material buffer")
	}
	if r.res.fallbackTextures, err = r.backend.CreateTexture(device.TextureDescriptor{
		Label:  "fallback textures",
		Width:  1,
		Height: 1,
		Layers: 1,
		Format: common.TextureFormatRGBA8Unorm,
		Usage:  device.TextureUsageSampled | device.TextureUsageCopyDst,
	}); err != nil {
		return errors.Wrap(err, "create fallback texture array")
	}
	if err := r.backend.WriteTextureLayer(r.res.fallbackTextures, 0, []byte{255, 255, 255, 255}); err != nil {
		return errors.Wrap(err, "upload fallback texture")
	}

	w, h := r.backend.SurfaceSize()
	if r.res.targets, err = createTargets(r.backend, w, h); err != nil {
		return err
	}

	res := r.shadowSettings.Resolution
	if err := r.shadowMap.CreateShadowMap(res, res); err != nil {
		return errors.Wrap(err, "create shadow map")
	}

	return r.loadSkybox()
}

func (r *renderer) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return ErrNotLoaded
	}
	if r.res.targets != nil && r.res.targets.width == width && r.res.targets.height == height {
		return nil
	}
	if err := r.backend.Resize(width, height); err != nil {
		return errors.Wrapf(err, "resize swapchain to %dx%d", width, height)
	}
	next, err := createTargets(r.backend, width, height)
	if err != nil {
		return err
	}
	r.res.targets.release()
	r.res.targets = next
	r.logger.Debug("render targets resized", "width", width, "height", height)
	return nil
}

func (r *renderer) SetDebugMode(mode DebugMode) {
	if mode >= debugModeCount {
		mode = DebugModeDefault
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugMode = mode
}

func (r *renderer) DebugMode() DebugMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.debugMode
}

func (r *renderer) SetWireframe(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enabled && r.loaded && r.res.gbufferWireframe == nil {
		r.logger.Warn("wireframe requested but unsupported by backend")
		return
	}
	r.wireframe = enabled
}

func (r *renderer) Wireframe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wireframe
}

func (r *renderer) SetShadowSettings(s light.ShadowSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shadowSettings = s
	return nil
}

func (r *renderer) ShadowSettings() light.ShadowSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shadowSettings
}

func (r *renderer) SetLight(l light.DirectionalLight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.light = l
	r.warnedLightDir = false
}

func (r *renderer) Light() light.DirectionalLight {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.light
}

func (r *renderer) ApplySettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	mode, err := ParseDebugMode(s.Debug.Mode)
	if err != nil {
		return err
	}
	if err := s.Shadow.Validate(); err != nil {
		return err
	}
	r.SetLight(s.DirectionalLight())
	r.mu.Lock()
	r.shadowSettings = s.Shadow
	r.resolve = s.Resolve
	r.debugMode = mode
	r.mu.Unlock()
	r.SetWireframe(s.Debug.Wireframe)
	return nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) Pool() pool.Pool {
	return r.pool
}

func (r *renderer) ShadowMap() shadow.Manager {
	return r.shadowMap
}

func (r *renderer) State() FrameState {
	return FrameState(r.state.Load())
}

func (r *renderer) setState(s FrameState) {
	r.state.Store(int32(s))
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseResources()
	r.shadowMap.Release()
	if r.ownsPool {
		r.pool.Release()
	}
	r.loaded = false
}

func (r *renderer) releaseResources() {
	r.res.targets.release()
	for _, b := range []device.Buffer{
		r.res.cameraBuf, r.res.lightBuf, r.res.shadowBuf, r.res.resolveBuf, r.res.debugParams,
		r.res.instances, r.res.indirect, r.res.fallbackMaterials,
	} {
		if b != nil {
			b.Release()
		}
	}
	for _, t := range []device.Texture{r.res.fallbackTextures, r.res.skybox, r.res.skyboxConvolved} {
		if t != nil {
			t.Release()
		}
	}
	for _, s := range []device.Sampler{r.res.materialSampler, r.res.skyboxSampler, r.res.debugSampler} {
		if s != nil {
			s.Release()
		}
	}
	r.res = resources{}
	r.pipelineCache = make(map[string]pipeline.Pipeline)
}
