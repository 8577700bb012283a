package window

import (
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-bounds/common"
	"github.com/Carmen-Shannon/oxy-bounds/engine/input"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// wheelPixelsPerStep converts one GLFW scroll step into DOM wheel pixels.
const wheelPixelsPerStep = 100

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	running atomic.Bool

	// last cursor position, for deriving per-event movement
	hasCursor bool
	cursorX   float64
	cursorY   float64

	pointerLocked bool
}

// newPlatformWindow creates the GLFW window with input callbacks and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{
		parent: w,
		window: win,
	}
	gw.running.Store(true)
	w.internalWindow = gw

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetKeyCallback
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		w.emit(input.Event{
			Type:      input.EventKeyDown,
			KeyCode:   uint32(key),
			Modifiers: translateModifiers(mods),
		})
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetScrollCallback
	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		// GLFW reports scroll up as positive; DOM wheel deltas are positive scrolling down.
		w.emit(input.Event{
			Type:   input.EventWheel,
			DeltaY: float32(-yoff * wheelPixelsPerStep),
		})
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetMouseButtonCallback
	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		b, ok := translateButton(button)
		if !ok {
			return
		}
		xpos, ypos := win.GetCursorPos()
		ev := input.Event{
			Button:    b,
			OffsetX:   int32(xpos),
			OffsetY:   int32(ypos),
			Modifiers: translateModifiers(mods),
		}
		switch action {
		case glfw.Press:
			ev.Type = input.EventPointerDown
			w.emit(ev)
			// browsers follow a secondary press with a context menu request
			if b == common.MouseButtonSecondary {
				w.emit(input.Event{Type: input.EventContextMenu, OffsetX: ev.OffsetX, OffsetY: ev.OffsetY})
			}
		case glfw.Release:
			ev.Type = input.EventPointerUp
			w.emit(ev)
		}
	})

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetCursorPosCallback
	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		var dx, dy float64
		if gw.hasCursor {
			dx, dy = xpos-gw.cursorX, ypos-gw.cursorY
		}
		gw.hasCursor = true
		gw.cursorX, gw.cursorY = xpos, ypos

		w.emit(input.Event{
			Type:      input.EventPointerMove,
			OffsetX:   int32(xpos),
			OffsetY:   int32(ypos),
			MovementX: int32(math.Round(dx)),
			MovementY: int32(math.Round(dy)),
			Modifiers: currentModifiers(win),
		})
	})

	// Use framebuffer size callback for pixel-accurate resize events.
	// On high-DPI displays (e.g., macOS Retina), framebuffer size differs from window size.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = width
		w.height = height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})

	// Update stored dimensions to reflect actual framebuffer size (may differ from requested on high-DPI).
	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return nil
}

// translateButton maps GLFW button numbering (left, right, middle) onto DOM numbering
// (primary 0, auxiliary 1, secondary 2).
func translateButton(button glfw.MouseButton) (input.Button, bool) {
	switch button {
	case glfw.MouseButtonLeft:
		return common.MouseButtonPrimary, true
	case glfw.MouseButtonMiddle:
		return common.MouseButtonAuxiliary, true
	case glfw.MouseButtonRight:
		return common.MouseButtonSecondary, true
	default:
		return 0, false
	}
}

func translateModifiers(mods glfw.ModifierKey) input.Modifiers {
	return input.Modifiers{
		Ctrl:  mods&glfw.ModControl != 0,
		Shift: mods&glfw.ModShift != 0,
		Alt:   mods&glfw.ModAlt != 0,
		Meta:  mods&glfw.ModSuper != 0,
	}
}

// currentModifiers polls modifier key state; GLFW cursor callbacks do not carry it.
func currentModifiers(win *glfw.Window) input.Modifiers {
	held := func(keys ...glfw.Key) bool {
		for _, k := range keys {
			if win.GetKey(k) == glfw.Press {
				return true
			}
		}
		return false
	}
	return input.Modifiers{
		Ctrl:  held(glfw.KeyLeftControl, glfw.KeyRightControl),
		Shift: held(glfw.KeyLeftShift, glfw.KeyRightShift),
		Alt:   held(glfw.KeyLeftAlt, glfw.KeyRightAlt),
		Meta:  held(glfw.KeyLeftSuper, glfw.KeyRightSuper),
	}
}

// platformSetPointerLock hides and captures the cursor, or restores it. Main thread only.
//
// Reference: https://www.glfw.org/docs/latest/input_guide.html#cursor_mode
func platformSetPointerLock(w *engineWindow, locked bool) {
	if w.internalWindow == nil {
		return
	}
	gw := w.internalWindow.(*glfwWindow)
	if gw.pointerLocked == locked {
		return
	}
	gw.pointerLocked = locked

	if locked {
		gw.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		if glfw.RawMouseMotionSupported() {
			gw.window.SetInputMode(glfw.RawMouseMotion, glfw.True)
		}
	} else {
		if glfw.RawMouseMotionSupported() {
			gw.window.SetInputMode(glfw.RawMouseMotion, glfw.False)
		}
		gw.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
	// the cursor jumps when its mode changes; the next move must not report that jump
	gw.hasCursor = false
}

// platformWake interrupts a blocking event wait so posted tasks run promptly.
func platformWake() {
	glfw.PostEmptyEvent()
}

func platformRequestClose(w *engineWindow) {
	if w.internalWindow == nil {
		return
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.running.Store(false)
	gw.window.SetShouldClose(true)
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
// Uses the wgpuglfw bridge package which has per-platform implementations (Windows, X11, Wayland, macOS).
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.internalWindow == nil {
		return nil
	}
	gw := w.internalWindow.(*glfwWindow)
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// platformIsRunningCheck returns whether the GLFW window is still active.
// Returns false if the internal window is nil or the running flag is cleared.
// ShouldClose is only consulted on the main thread by platformProcessMessages.
//
// Parameters:
//   - w: the engineWindow to check
//
// Returns:
//   - bool: true if the window is still running
func platformIsRunningCheck(w *engineWindow) bool {
	if w.internalWindow == nil {
		return false
	}
	gw := w.internalWindow.(*glfwWindow)
	return gw.running.Load()
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
// Returns an error if the internal window has not been initialized.
//
// Parameters:
//   - w: the engineWindow to close
//
// Returns:
//   - error: error if the window is not initialized
func platformCloseWindow(w *engineWindow) error {
	if w.internalWindow == nil {
		return fmt.Errorf("window is not initialized")
	}
	gw := w.internalWindow.(*glfwWindow)
	gw.running.Store(false)
	gw.window.SetShouldClose(true)
	gw.window.Destroy()
	w.internalWindow = nil
	glfw.Terminate()
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	gw := w.internalWindow.(*glfwWindow)
	if gw.window.ShouldClose() {
		gw.running.Store(false)
	}
	return gw.running.Load()
}
