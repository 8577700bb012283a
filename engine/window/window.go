package window

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-bounds/engine/input"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrWindowClosed is returned by operations that need a live window after it has been closed.
var ErrWindowClosed = errors.New("window is closed")

// Window provides platform windowing, the WebGPU surface descriptor and input event delivery.
// All methods except Post, RequestPointerLock, ExitPointerLock and RequestClose must be called
// from the main thread that created the window.
type Window interface {
	input.PointerLocker

	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetEventCallback sets the function receiving every pointer, wheel and key event.
	// The callback runs on the main thread and must not block.
	//
	// Parameters:
	//   - callback: function receiving the translated event (or nil to disable)
	SetEventCallback(callback func(ev input.Event))

	// Post schedules task to run on the main thread during the next message loop iteration.
	// Safe to call from any goroutine.
	//
	// Parameters:
	//   - task: the function to run
	//
	// Returns:
	//   - bool: false if the task queue is full and the task was dropped
	Post(task func()) bool

	// RequestClose asks the message loop to stop. Safe to call from any goroutine.
	RequestClose()

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Runs posted tasks and calls the update callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// maxWidth is the maximum allowed window width during resize.
	maxWidth int

	// maxHeight is the maximum allowed window height during resize.
	maxHeight int

	// minWidth is the minimum allowed window width during resize.
	minWidth int

	// minHeight is the minimum allowed window height during resize.
	minHeight int

	// width is the current framebuffer width in pixels.
	width int

	// height is the current framebuffer height in pixels.
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// tasks holds work posted from other goroutines for the main thread.
	tasks chan func()

	// pointerLock is the latest lock state requested from any goroutine. pointerLocked is the
	// state the main thread last applied.
	pointerLock   atomic.Bool
	pointerLocked bool

	// closeRequested is set by RequestClose and applied by the message loop.
	closeRequested atomic.Bool

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the framebuffer is resized.
	onResize func(width, height int)

	// onEvent receives translated input events.
	onEvent func(ev input.Event)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured, visible window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		title:     "oxy-bounds",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
		tasks:     make(chan func(), 64),
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetEventCallback(callback func(ev input.Event)) {
	w.onEvent = callback
}

func (w *engineWindow) Post(task func()) bool {
	select {
	case w.tasks <- task:
		platformWake()
		return true
	default:
		return false
	}
}

func (w *engineWindow) RequestClose() {
	w.closeRequested.Store(true)
}

// RequestPointerLock captures the pointer on the main thread. Like a browser pointer lock
// request, the capture happens asynchronously; the returned error only reports a dead window.
func (w *engineWindow) RequestPointerLock() error {
	if !w.IsRunning() {
		return ErrWindowClosed
	}
	w.pointerLock.Store(true)
	return nil
}

// ExitPointerLock releases the pointer on the next message loop iteration. A later
// RequestPointerLock wins over an unlock that has not been applied yet.
func (w *engineWindow) ExitPointerLock() {
	w.pointerLock.Store(false)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		w.runTasks()
		w.applyRequests()

		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// runTasks runs every task posted so far without blocking.
func (w *engineWindow) runTasks() {
	for {
		select {
		case task := <-w.tasks:
			task()
		default:
			return
		}
	}
}

// applyRequests applies the latest pointer lock and close requests on the main thread.
func (w *engineWindow) applyRequests() {
	w.syncPointerLock(func(locked bool) {
		platformSetPointerLock(w, locked)
	})
	if w.closeRequested.Load() {
		platformRequestClose(w)
	}
}

// syncPointerLock calls apply when the requested lock state differs from the applied one.
func (w *engineWindow) syncPointerLock(apply func(locked bool)) {
	if want := w.pointerLock.Load(); want != w.pointerLocked {
		w.pointerLocked = want
		apply(want)
	}
}

// emit forwards ev to the event callback, if any.
func (w *engineWindow) emit(ev input.Event) {
	if w.onEvent != nil {
		w.onEvent(ev)
	}
}
