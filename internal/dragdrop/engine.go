package dragdrop

import (
	"sync"
	"time"
)

// scrollTickRate is the fixed tick rate of the auto-scroll loop.
const scrollTickRate = 60 // Hz

// maxScrollStep is the per-tick scroll distance at full intensity.
const maxScrollStep = 12.0 // px

// Queue is the mutable track order the engine operates on. The
// session's queue satisfies it.
type Queue interface {
	BeginDrag(index int)
	EndDrag()
	MoveTrack(from, to int)
}

// View abstracts the rendered list the drag happens over: row
// geometry, the scroll position and the visual drop marker.
type View interface {
	Items() []Item
	ScrollTop() float64
	Viewport() (top, bottom float64)
	ScrollBy(delta float64)
	// SetDropMarker positions the drop-above/below indicator; -1
	// clears it.
	SetDropMarker(index int)
	// RemoveDragVisuals removes the floating clone and any markers.
	// Runs on every drag end regardless of outcome.
	RemoveDragVisuals()
}

// Engine drives one pointer-drag session over the queue list: it
// resolves the live insertion point, keeps the drop marker in place
// and auto-scrolls near the edges on a fixed 60Hz ticker.
type Engine struct {
	mu sync.Mutex

	queue Queue
	view  View

	active    bool
	from      int
	intensity float64

	stopScroll chan struct{}
}

func NewEngine(queue Queue, view View) *Engine {
	return &Engine{queue: queue, view: view}
}

// Active reports whether a drag session is in flight.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Start begins a drag from the given row: the session records the drag
// origin and the auto-scroll ticker spins up.
func (e *Engine) Start(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active {
		return
	}
	e.active = true
	e.from = index
	e.intensity = 0
	e.queue.BeginDrag(index)

	stop := make(chan struct{})
	e.stopScroll = stop
	go e.scrollLoop(stop)
}

// Update recomputes the insertion point and the scroll intensity for
// the current pointer position. Called on every dragover event.
func (e *Engine) Update(pointerY float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active {
		return
	}

	ins := InsertionIndex(e.view.Items(), pointerY, e.view.ScrollTop())
	e.view.SetDropMarker(ins)

	top, bottom := e.view.Viewport()
	e.intensity = ScrollIntensity(pointerY, top, bottom)
}

// Drop resolves the final target from the same insertion-point
// computation and mutates the queue if the target differs from the
// origin. Cleanup still happens through End.
func (e *Engine) Drop(pointerY float64) {
	e.mu.Lock()

	if !e.active {
		e.mu.Unlock()
		return
	}

	ins := InsertionIndex(e.view.Items(), pointerY, e.view.ScrollTop())
	target := TargetIndex(e.from, ins)
	from := e.from
	e.mu.Unlock()

	if target != from {
		e.queue.MoveTrack(from, target)
	}

	e.End()
}

// End unconditionally resets the drag session: transient fields,
// floating clone, drop markers and the scroll ticker. Safe to call
// even when Drop never ran (drag released outside a valid target).
func (e *Engine) End() {
	e.mu.Lock()

	if e.stopScroll != nil {
		close(e.stopScroll)
		e.stopScroll = nil
	}
	wasActive := e.active
	e.active = false
	e.from = -1
	e.intensity = 0
	e.mu.Unlock()

	e.view.SetDropMarker(-1)
	e.view.RemoveDragVisuals()
	if wasActive {
		e.queue.EndDrag()
	}
}

func (e *Engine) scrollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / scrollTickRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			intensity := e.intensity
			active := e.active
			e.mu.Unlock()

			if active && intensity != 0 {
				e.view.ScrollBy(intensity * maxScrollStep)
			}
		}
	}
}
