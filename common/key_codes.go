package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyB   = 66  // B key (ASCII): log sphere bounds
	KeyC   = 67  // C key (ASCII): log occluder circles
	KeyL   = 76  // L key (ASCII): log long axes
	KeyP   = 80  // P key (ASCII): toggle profiler
	KeyR   = 82  // R key (ASCII): reload scene config
	KeyEsc = 256 // Escape key (GLFW)
)

// Mouse button identities, numbered the way DOM pointer events number them.
// GLFW numbers left/right/middle as 0/1/2, so the window layer translates.
const (
	MouseButtonPrimary   = 0 // left
	MouseButtonAuxiliary = 1 // middle
	MouseButtonSecondary = 2 // right
)
