package input

// MoveSource delivers pointer-move events to subscribers until the returned cancel function is called.
type MoveSource interface {
	// SubscribeMoves registers handler for every subsequent pointer-move event.
	//
	// Parameters:
	//   - handler: called once per move event, in order
	//
	// Returns:
	//   - func(): cancels the subscription; safe to call more than once
	SubscribeMoves(handler func(PointerMove)) (cancel func())
}

// PointerLocker grants exclusive, unbounded pointer input to the viewer.
type PointerLocker interface {
	// RequestPointerLock asks the host to capture the pointer.
	//
	// Returns:
	//   - error: an error if the host refused the lock
	RequestPointerLock() error

	// ExitPointerLock releases a lock previously granted by RequestPointerLock.
	ExitPointerLock()
}

// Dispatcher fans pointer-move events out to subscribers. It is not safe for concurrent use:
// the owner delivers events and manages subscriptions from a single goroutine.
type Dispatcher struct {
	nextID   int
	handlers map[int]func(PointerMove)
	order    []int
}

var _ MoveSource = &Dispatcher{}

// NewDispatcher creates an empty Dispatcher.
//
// Returns:
//   - *Dispatcher: the dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[int]func(PointerMove))}
}

func (d *Dispatcher) SubscribeMoves(handler func(PointerMove)) func() {
	id := d.nextID
	d.nextID++
	d.handlers[id] = handler
	d.order = append(d.order, id)

	return func() {
		if _, ok := d.handlers[id]; !ok {
			return
		}
		delete(d.handlers, id)
		for i, o := range d.order {
			if o == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
}

// Dispatch delivers m to every current subscriber in subscription order.
//
// Parameters:
//   - m: the move payload
func (d *Dispatcher) Dispatch(m PointerMove) {
	for _, id := range append([]int(nil), d.order...) {
		if h, ok := d.handlers[id]; ok {
			h(m)
		}
	}
}

// Subscribers returns the number of active subscriptions.
//
// Returns:
//   - int: the subscription count
func (d *Dispatcher) Subscribers() int {
	return len(d.handlers)
}
