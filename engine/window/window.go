// Package window owns the GLFW window the viewer renders into. It hands the WebGPU backend a
// surface descriptor and forwards resize and input events as plain callbacks.
package window

import (
	"log/slog"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// Window is a platform window with input callbacks.
type Window interface {
	// SetResizeCallback sets the function called with the new framebuffer size in pixels.
	// Minimizing reports 0x0; consumers are expected to ignore non-positive sizes.
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse wheel events (positive = away from the user).
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key presses and repeats.
	//
	// Parameters:
	//   - callback: function receiving a common.Key* code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetDragCallback sets the callback for cursor movement while the orbit button is held.
	//
	// Parameters:
	//   - callback: function receiving the cursor delta in pixels since the previous event
	SetDragCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns the platform surface descriptor for the WebGPU backend,
	// or nil once the window is closed.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// PollEvents processes pending window events and dispatches callbacks on the calling goroutine.
	//
	// Returns:
	//   - bool: false once the window was asked to close
	PollEvents() bool

	// Close destroys the window. Safe to call more than once.
	Close() error

	// Size returns the framebuffer size in pixels.
	Size() (width, height int)
}

type engineWindow struct {
	logger *slog.Logger

	title               string
	width, height       int
	minWidth, minHeight int
	orbitButton         MouseButton
	closeOnEscape       bool

	internal *glfwWindow

	// drag state, updated from GLFW callbacks
	dragging     bool
	lastX, lastY float64

	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(keyCode uint32)
	onDrag    func(dx, dy float32)
}

// MouseButton selects which button drives SetDragCallback.
type MouseButton int

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

var _ Window = &engineWindow{}

// NewWindow opens a window. The calling goroutine is locked to its OS thread; GLFW requires
// every later call on the window to come from that same thread.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: if GLFW could not be initialized or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		logger:        slog.Default(),
		title:         "oxy-deferred",
		width:         1280,
		height:        720,
		minWidth:      320,
		minHeight:     240,
		orbitButton:   MouseButtonMiddle,
		closeOnEscape: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.width <= 0 || w.height <= 0 {
		return nil, errors.Errorf("window size %dx%d", w.width, w.height)
	}
	w.logger = w.logger.With("component", "window")

	runtime.LockOSThread()
	if err := openPlatformWindow(w); err != nil {
		return nil, errors.Wrap(err, "open window")
	}
	w.logger.Debug("window opened", "title", w.title, "width", w.width, "height", w.height)
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunning(w)
}

func (w *engineWindow) PollEvents() bool {
	return platformPollEvents(w)
}

func (w *engineWindow) Close() error {
	return platformClose(w)
}

func (w *engineWindow) Size() (int, int) {
	return w.width, w.height
}

// cursorMoved turns absolute cursor positions into drag deltas while the orbit button is held.
func (w *engineWindow) cursorMoved(x, y float64) {
	dx, dy := x-w.lastX, y-w.lastY
	w.lastX, w.lastY = x, y
	if w.dragging && w.onDrag != nil {
		w.onDrag(float32(dx), float32(dy))
	}
}

func (w *engineWindow) buttonChanged(button MouseButton, pressed bool, x, y float64) {
	if button != w.orbitButton {
		return
	}
	w.dragging = pressed
	w.lastX, w.lastY = x, y
}

func (w *engineWindow) resized(width, height int) {
	if width == w.width && height == w.height {
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
