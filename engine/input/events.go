// Package input defines the pointer and keyboard events the window layer delivers to the
// camera controller, and the MovementTracker that turns pointer-move events into an
// accumulated 2D displacement.
package input

// EventType identifies the kind of an Event.
type EventType int

const (
	// EventPointerDown is a pointer button press over the viewer.
	EventPointerDown EventType = iota
	// EventPointerUp is a pointer button release anywhere.
	EventPointerUp
	// EventPointerMove is a pointer movement, carrying both the absolute offset and the raw delta.
	EventPointerMove
	// EventWheel is a scroll wheel step.
	EventWheel
	// EventContextMenu is a request to open the platform context menu.
	EventContextMenu
	// EventKeyDown is a key press.
	EventKeyDown
)

func (t EventType) String() string {
	switch t {
	case EventPointerDown:
		return "pointer-down"
	case EventPointerUp:
		return "pointer-up"
	case EventPointerMove:
		return "pointer-move"
	case EventWheel:
		return "wheel"
	case EventContextMenu:
		return "context-menu"
	case EventKeyDown:
		return "key-down"
	default:
		return "unknown"
	}
}

// Button identifies a pointer button using DOM numbering (see common.MouseButton*).
type Button int

// Modifiers is a snapshot of the modifier keys held when an event fired.
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

// Event is a single input event. Only the fields relevant to Type are set.
type Event struct {
	Type EventType

	// Button is set for pointer-down and pointer-up.
	Button Button

	// OffsetX, OffsetY are the pointer position relative to the viewer's top-left corner.
	OffsetX, OffsetY int32
	// MovementX, MovementY are the raw pointer delta since the previous move event.
	MovementX, MovementY int32

	// DeltaY is the vertical wheel delta in DOM pixel units (positive scrolls down).
	DeltaY float32

	// KeyCode is set for key-down (see common.Key*).
	KeyCode uint32

	Modifiers Modifiers
}

// PointerMove is the payload of a pointer-move event delivered to move subscribers.
type PointerMove struct {
	OffsetX, OffsetY     int32
	MovementX, MovementY int32
	Modifiers            Modifiers
}

// Move extracts the pointer-move payload from e.
//
// Returns:
//   - PointerMove: the payload
func (e Event) Move() PointerMove {
	return PointerMove{
		OffsetX:   e.OffsetX,
		OffsetY:   e.OffsetY,
		MovementX: e.MovementX,
		MovementY: e.MovementY,
		Modifiers: e.Modifiers,
	}
}
