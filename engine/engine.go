// Package engine ties the window, the WebGPU backend, the scene and the deferred renderer into
// one loop. Window events, settings reloads and rendering all happen on the goroutine that calls
// Run; object animation ticks on its own goroutine at a fixed rate.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/device/wgpudevice"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Input scaling for the orbit controller.
const (
	orbitRadiansPerPixel = 0.005
	zoomPerScrollStep    = 1
	panPerKeyPress       = 0.25
)

type engine struct {
	logger *slog.Logger
	// base is the caller's logger without the component attribute, shared with subcomponents.
	base *slog.Logger

	window      window.Window
	backend     device.Backend
	ownsBackend bool
	renderer    renderer.Renderer
	scene       scene.Scene
	camera      camera.Camera
	profiler    *profiler.Profiler

	settings     config.Settings
	settingsPath string
	// pending holds settings delivered by the watcher until the next frame boundary.
	pending atomic.Pointer[config.Settings]

	rendererOptions []renderer.RendererBuilderOption

	tickRate         time.Duration
	renderFrameLimit time.Duration
	tickCallback     func(dt float32)

	quitChannel chan struct{}
	quitOnce    sync.Once
	wg          sync.WaitGroup
}

// Engine is the viewer runtime: it owns the renderer and drives it once per window frame.
type Engine interface {
	// Window returns the window, or nil for a headless engine.
	Window() window.Window

	Renderer() renderer.Renderer
	Scene() scene.Scene
	Camera() camera.Camera

	// Settings returns the settings currently in effect.
	Settings() config.Settings

	// QueueSettings hands new settings to the render loop; they are applied at the next frame
	// boundary. Invalid settings are logged and dropped there.
	QueueSettings(s config.Settings)

	// SetTickCallback registers a function called at the tick rate after the scene is updated.
	SetTickCallback(callback func(dt float32))

	// Run renders until the window closes, ctx is cancelled or Quit is called.
	// With a settings file configured, the file is watched for the duration of Run.
	//
	// Returns:
	//   - error: a settings watcher setup error, a recovered render panic, or nil on a normal exit
	Run(ctx context.Context) error

	// Quit stops Run. Safe to call more than once.
	Quit()

	// Release frees the renderer, the backend when the engine created it, and the window.
	Release()
}

var _ Engine = &engine{}

// NewEngine builds the runtime and loads the renderer. Without WithBackend a WebGPU backend is
// created for the window's surface, so either a window or a backend is required.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: if settings are invalid, no backend can be made or the renderer fails to load
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		logger:      slog.Default(),
		settings:    config.Default(),
		tickRate:    time.Second / 60,
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	base := e.logger
	e.base = base
	e.logger = e.logger.With("component", "engine")

	if err := e.settings.Validate(); err != nil {
		return nil, err
	}
	mode, err := renderer.ParseDebugMode(e.settings.Debug.Mode)
	if err != nil {
		return nil, errors.Wrap(config.ErrInvalidSettings, err.Error())
	}

	if e.backend == nil {
		if e.window == nil {
			return nil, errors.New("engine needs a window or a backend")
		}
		width, height := e.window.Size()
		b, err := wgpudevice.NewBackend(e.window.SurfaceDescriptor(), width, height,
			wgpudevice.WithLogger(base),
			wgpudevice.WithMaxBindGroups(4),
		)
		if err != nil {
			return nil, errors.Wrap(err, "create graphics backend")
		}
		e.backend = b
		e.ownsBackend = true
	}

	if e.scene == nil {
		e.scene = scene.NewScene("main")
	}

	width, height := e.backend.SurfaceSize()
	if e.camera == nil {
		e.camera = camera.NewCamera(
			camera.WithController(camera.NewController()),
			camera.WithAspect(float32(width)/float32(height)),
		)
	}
	e.applyCameraSettings(e.settings.Camera)

	opts := append([]renderer.RendererBuilderOption{
		renderer.WithLogger(base),
		renderer.WithDrawableSource(e.scene),
		renderer.WithLight(e.settings.DirectionalLight()),
		renderer.WithShadowSettings(e.settings.Shadow),
		renderer.WithResolveSettings(e.settings.Resolve),
		renderer.WithDebugMode(mode),
		renderer.WithWireframe(e.settings.Debug.Wireframe),
	}, e.rendererOptions...)
	e.renderer = renderer.NewRenderer(e.backend, opts...)
	e.scene.Subscribe(e.renderer.Pool())

	if err := e.renderer.Load(); err != nil {
		e.renderer.Release()
		if e.ownsBackend {
			e.backend.Release()
		}
		return nil, err
	}

	e.profiler = profiler.NewProfiler(
		profiler.WithLogger(base),
		profiler.WithInterval(e.settings.Profiler.LogInterval),
	)

	if e.window != nil {
		e.bindInput()
	}
	return e, nil
}

func (e *engine) Window() window.Window       { return e.window }
func (e *engine) Renderer() renderer.Renderer { return e.renderer }
func (e *engine) Scene() scene.Scene          { return e.scene }
func (e *engine) Camera() camera.Camera       { return e.camera }
func (e *engine) Settings() config.Settings   { return e.settings }

func (e *engine) QueueSettings(s config.Settings) {
	e.pending.Store(&s)
}

func (e *engine) SetTickCallback(callback func(dt float32)) {
	e.tickCallback = callback
}

// bindInput wires window events to the renderer and the camera controller. Callbacks run inside
// PollEvents on the render goroutine, between frames.
func (e *engine) bindInput() {
	e.window.SetResizeCallback(e.resize)

	e.window.SetScrollCallback(func(delta float32) {
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.Zoom(delta * zoomPerScrollStep)
		}
	})

	e.window.SetDragCallback(func(dx, dy float32) {
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.Orbit(-dx*orbitRadiansPerPixel, dy*orbitRadiansPerPixel)
		}
	})

	e.window.SetKeyDownCallback(e.keyDown)
}

func (e *engine) keyDown(key uint32) {
	for i, k := range common.DebugModeKeys {
		if key == k {
			e.renderer.SetDebugMode(renderer.DebugMode(i))
			e.logger.Info("debug mode", "mode", renderer.DebugMode(i).String())
			return
		}
	}

	ctrl := e.camera.Controller()
	switch key {
	case common.KeyF:
		e.renderer.SetWireframe(!e.renderer.Wireframe())
	case common.KeyC:
		e.scene.SetCullingDisabled(!e.scene.CullingDisabled())
	case common.KeyR:
		if e.settingsPath != "" {
			s, err := config.Load(e.settingsPath)
			if err != nil {
				e.logger.Warn("settings reload failed", "path", e.settingsPath, "error", err)
				return
			}
			e.QueueSettings(s)
		}
	case common.KeyW, common.KeyS, common.KeyA, common.KeyD, common.KeyQ, common.KeyE:
		if ctrl == nil {
			return
		}
		right, up, forward := panAxes(key)
		ctrl.Pan(right*panPerKeyPress, up*panPerKeyPress, forward*panPerKeyPress)
	}
}

func panAxes(key uint32) (right, up, forward float32) {
	switch key {
	case common.KeyW:
		forward = 1
	case common.KeyS:
		forward = -1
	case common.KeyD:
		right = 1
	case common.KeyA:
		right = -1
	case common.KeyE:
		up = 1
	case common.KeyQ:
		up = -1
	}
	return right, up, forward
}

// resize forwards a framebuffer size change. Minimized windows report 0x0 and are ignored.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := e.renderer.Resize(width, height); err != nil {
		e.logger.Warn("resize failed", "width", width, "height", height, "error", err)
		return
	}
	e.camera.SetAspect(float32(width) / float32(height))
}

func (e *engine) applyCameraSettings(s config.CameraSettings) {
	e.camera.SetFov(mgl32.DegToRad(s.FovDegrees))
	e.camera.SetClipPlanes(s.Near, s.Far)
}

// applyPending installs settings queued since the last frame.
func (e *engine) applyPending() {
	s := e.pending.Swap(nil)
	if s == nil {
		return
	}
	if err := e.renderer.ApplySettings(*s); err != nil {
		e.logger.Warn("settings rejected", "error", err)
		return
	}
	e.applyCameraSettings(s.Camera)
	e.profiler.SetInterval(s.Profiler.LogInterval)
	e.settings = *s
	e.logger.Info("settings applied", "debug_mode", s.Debug.Mode, "shadow_resolution", s.Shadow.Resolution)
}

// frame runs one frame boundary: pending settings, camera update, render, stats.
func (e *engine) frame() error {
	e.applyPending()
	e.camera.Update()
	err := e.renderer.RenderFrame(e.camera)
	e.profiler.Tick(e.renderer.Stats())
	return err
}

func (e *engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	if e.settingsPath != "" {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			watchErr <- config.Watch(ctx, e.settingsPath, e.base, e.QueueSettings)
		}()
	}

	e.wg.Add(1)
	go e.handleTick(ctx)

	err := e.handleRender(ctx, watchErr)
	cancel()
	e.wg.Wait()
	return err
}

// handleTick advances scene animation at the fixed tick rate until ctx is done or Quit is called.
func (e *engine) handleTick(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.quitChannel:
			return
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			e.scene.Update(dt)
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		}
	}
}

// handleRender is the frame loop. A panic inside a frame is logged, ends the loop and is returned as an error.
func (e *engine) handleRender(ctx context.Context, watchErr <-chan error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render loop recovered from panic", "panic", fmt.Sprint(r))
			e.Quit()
			err = errors.Errorf("render loop panic: %v", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		case werr := <-watchErr:
			if werr != nil {
				return errors.Wrap(werr, "watch settings")
			}
		default:
		}

		start := time.Now()
		if e.window != nil && !e.window.PollEvents() {
			return nil
		}
		if ferr := e.frame(); ferr != nil {
			if errors.Is(ferr, renderer.ErrNotLoaded) {
				return ferr
			}
			e.logger.Warn("frame failed", "error", ferr)
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Release() {
	e.Quit()
	e.renderer.Release()
	if e.ownsBackend {
		e.backend.Release()
	}
	if e.window != nil {
		if err := e.window.Close(); err != nil {
			e.logger.Warn("close window", "error", err)
		}
	}
}
