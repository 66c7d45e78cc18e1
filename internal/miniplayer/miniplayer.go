package miniplayer

import (
	"sync"
	"time"

	"github.com/247pages/Ofplay/internal/model"
)

const (
	// intersectionThreshold is the visibility ratio under which the
	// primary player counts as out of view.
	intersectionThreshold = 0.2
	// edgeFraction is how close (as a fraction of the primary player's
	// own height) its top/bottom may sit to the viewport edges while
	// still counting as visible.
	edgeFraction = 0.3

	defaultDebounce = 50 * time.Millisecond
)

// Surface is the compact secondary player the controller shows and
// hides. Show/Hide must tolerate redundant calls; the controller only
// invokes them on actual transitions anyway.
type Surface interface {
	Show()
	Hide()
	// Refresh repaints the mini-player content: thumbnail, marquee
	// title, transport buttons.
	Refresh(t model.Track)
}

// Tracker is the progress tracker the mini-player drives while shown.
type Tracker interface {
	Start()
	Stop()
}

// Controller converges the mini-player visibility from two independent
// signals: the intersection observer on the primary player and a
// debounced scroll listener recomputing visibility from bounding-box
// geometry. Whichever fires last, the resulting boolean is the same.
type Controller struct {
	mu sync.Mutex

	surface Surface
	tracker Tracker

	queueLen func() int
	current  func() (model.Track, bool)

	playerInView bool
	visible      bool

	debounce      *time.Timer
	debounceEvery time.Duration
}

func New(surface Surface, tracker Tracker, queueLen func() int, current func() (model.Track, bool)) *Controller {
	return &Controller{
		surface:       surface,
		tracker:       tracker,
		queueLen:      queueLen,
		current:       current,
		playerInView:  true,
		debounceEvery: defaultDebounce,
	}
}

// SetDebounce overrides the scroll debounce interval (tests).
func (c *Controller) SetDebounce(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.debounceEvery = d
	}
}

// ObserveIntersection feeds the intersection-observer signal: the
// primary player's visible ratio within the viewport.
func (c *Controller) ObserveIntersection(ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.playerInView = ratio >= intersectionThreshold
	c.recompute()
}

// ObserveScroll feeds the scroll-listener signal: the primary player's
// bounding box and the viewport, debounced. The primary counts as
// visible while its top and bottom lie within 30% of its own height of
// the viewport edges.
func (c *Controller) ObserveScroll(playerTop, playerBottom, viewportTop, viewportBottom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	height := playerBottom - playerTop
	if height <= 0 {
		return
	}
	margin := height * edgeFraction
	inView := playerBottom-margin > viewportTop && playerTop+margin < viewportBottom

	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.debounceEvery, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.playerInView = inView
		c.recompute()
	})
}

// RefreshContent repaints the mini-player for the current track when
// it is showing. Safe to call on every track change.
func (c *Controller) RefreshContent() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.visible {
		return
	}
	if t, ok := c.current(); ok {
		c.surface.Refresh(t)
	}
}

// Visible reports whether the mini-player is currently shown.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// recompute converges to the one correct boolean: shown only when the
// primary player is out of view and there is something to control.
// Idempotent whichever signal fired last.
func (c *Controller) recompute() {
	want := !c.playerInView && c.queueLen() > 0
	if want == c.visible {
		return
	}
	c.visible = want

	if want {
		c.surface.Show()
		if t, ok := c.current(); ok {
			c.surface.Refresh(t)
		}
		c.tracker.Start()
	} else {
		c.surface.Hide()
		c.tracker.Stop()
	}
}
