package window

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

type glfwWindow struct {
	window  *glfw.Window
	running bool
}

// openPlatformWindow creates the GLFW window without a client API context and wires its callbacks.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func openPlatformWindow(w *engineWindow) error {
	if err := glfw.Init(); err != nil {
		return errors.Wrap(err, "initialize GLFW")
	}

	// WebGPU owns presentation; no OpenGL context.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return errors.Wrap(err, "create GLFW window")
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, glfw.DontCare, glfw.DontCare)

	gw := &glfwWindow{window: win, running: true}
	w.internal = gw

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		if w.closeOnEscape && uint32(key) == common.KeyEsc {
			gw.running = false
			win.SetShouldClose(true)
			return
		}
		if w.onKeyDown != nil {
			w.onKeyDown(uint32(key))
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		x, y := win.GetCursorPos()
		w.buttonChanged(mouseButton(button), action == glfw.Press, x, y)
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.cursorMoved(x, y)
	})

	// Framebuffer size, not window size: they differ on high-DPI displays and the swapchain
	// is configured in pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})

	w.width, w.height = win.GetFramebufferSize()
	return nil
}

func mouseButton(b glfw.MouseButton) MouseButton {
	switch b {
	case glfw.MouseButtonRight:
		return MouseButtonRight
	case glfw.MouseButtonMiddle:
		return MouseButtonMiddle
	}
	return MouseButtonLeft
}

// platformSurfaceDescriptor uses the wgpuglfw bridge, which covers Windows, X11, Wayland and macOS.
func platformSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.internal == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.internal.window)
}

func platformIsRunning(w *engineWindow) bool {
	if w.internal == nil {
		return false
	}
	return w.internal.running && !w.internal.window.ShouldClose()
}

func platformPollEvents(w *engineWindow) bool {
	if w.internal == nil {
		return false
	}
	glfw.PollEvents()
	return platformIsRunning(w)
}

func platformClose(w *engineWindow) error {
	if w.internal == nil {
		return nil
	}
	w.internal.running = false
	w.internal.window.Destroy()
	w.internal = nil
	glfw.Terminate()
	return nil
}
