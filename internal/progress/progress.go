package progress

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	defaultFineInterval   = 200 * time.Millisecond
	defaultCoarseInterval = 5 * time.Second

	// noiseThreshold suppresses renders for sub-perceptible movement.
	noiseThreshold = 0.1 // seconds
	// driftTolerance is how far (in percentage points) the rendered
	// progress may drift from the player before a forced resync.
	driftTolerance = 2.0
)

// Source reads position and duration from the player widget.
type Source interface {
	CurrentTime() (float64, error)
	Duration() (float64, error)
}

// Update is one rendered progress frame.
type Update struct {
	Fraction float64 `json:"fraction"` // 0..1 bar fill
	Elapsed  string  `json:"elapsed"`  // "1:01"
	Total    string  `json:"total"`    // "2:05"
	Resync   bool    `json:"resync"`   // forced visual resync
}

// Renderer consumes progress frames: bar fill, thumb position and the
// time text. Mirroring into the mini-player happens behind the same
// interface.
type Renderer interface {
	RenderProgress(u Update)
}

// Tracker runs the two recurring progress timers. The fine timer
// (~200ms) polls the player and repaints; the coarse timer (~5s)
// cross-checks the rendered percentage against the player and forces a
// resync when the two update paths drift apart under buffering jitter.
// At most one instance of each timer is alive at a time; Start always
// tears down prior instances first.
type Tracker struct {
	mu sync.Mutex

	src    Source
	render Renderer

	// suppressed reports whether writes should be skipped (a manual
	// seek gesture is in flight).
	suppressed func() bool
	// playing gates the coarse drift check.
	playing func() bool

	fineEvery   time.Duration
	coarseEvery time.Duration

	stopFine   chan struct{}
	stopCoarse chan struct{}

	lastTime float64 // last observed player time
	lastPct  float64 // last rendered percentage (0..100)
}

// Option tweaks Tracker timing, mostly for tests.
type Option func(*Tracker)

func WithIntervals(fine, coarse time.Duration) Option {
	return func(t *Tracker) {
		if fine > 0 {
			t.fineEvery = fine
		}
		if coarse > 0 {
			t.coarseEvery = coarse
		}
	}
}

func New(src Source, render Renderer, suppressed, playing func() bool, opts ...Option) *Tracker {
	t := &Tracker{
		src:         src,
		render:      render,
		suppressed:  suppressed,
		playing:     playing,
		fineEvery:   defaultFineInterval,
		coarseEvery: defaultCoarseInterval,
		lastTime:    -1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches both timers, stopping any prior instances first.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	fine := make(chan struct{})
	coarse := make(chan struct{})
	t.stopFine = fine
	t.stopCoarse = coarse

	go t.loop(t.fineEvery, fine, t.tickFine)
	go t.loop(t.coarseEvery, coarse, t.tickCoarse)
}

// Stop tears both timers down.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	if t.stopFine != nil {
		close(t.stopFine)
		t.stopFine = nil
	}
	if t.stopCoarse != nil {
		close(t.stopCoarse)
		t.stopCoarse = nil
	}
}

// Reset clears the observed position so the next fine tick repaints
// from scratch. Called when a new track loads.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastTime = -1
	t.lastPct = 0
}

func (t *Tracker) loop(every time.Duration, stop <-chan struct{}, tick func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tick()
		}
	}
}

// tickFine is one poll of the fine timer. Player read failures are
// transient and swallowed.
func (t *Tracker) tickFine() {
	if t.suppressed != nil && t.suppressed() {
		return
	}

	cur, err := t.src.CurrentTime()
	if err != nil {
		return
	}
	dur, err := t.src.Duration()
	if err != nil || dur <= 0 {
		return
	}

	t.mu.Lock()
	if t.lastTime >= 0 && math.Abs(cur-t.lastTime) < noiseThreshold {
		t.mu.Unlock()
		return
	}
	t.lastTime = cur
	frac := clampFraction(cur / dur)
	t.lastPct = frac * 100
	render := t.render
	t.mu.Unlock()

	if render != nil {
		render.RenderProgress(Update{
			Fraction: frac,
			Elapsed:  FormatClock(cur),
			Total:    FormatClock(dur),
		})
	}
}

// tickCoarse compares the last rendered percentage against a freshly
// computed one and forces a resync past the drift tolerance.
func (t *Tracker) tickCoarse() {
	if t.playing != nil && !t.playing() {
		return
	}

	cur, err := t.src.CurrentTime()
	if err != nil {
		return
	}
	dur, err := t.src.Duration()
	if err != nil || dur <= 0 {
		return
	}

	expected := clampFraction(cur/dur) * 100

	t.mu.Lock()
	drifted := math.Abs(expected-t.lastPct) > driftTolerance
	if drifted {
		t.lastTime = cur
		t.lastPct = expected
	}
	render := t.render
	t.mu.Unlock()

	if drifted && render != nil {
		render.RenderProgress(Update{
			Fraction: expected / 100,
			Elapsed:  FormatClock(cur),
			Total:    FormatClock(dur),
			Resync:   true,
		})
	}
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// FormatClock renders seconds as "M:SS", or "H:MM:SS" past the hour.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}

	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
