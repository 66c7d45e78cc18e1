package recovery

import (
	"log"
	"sync"
	"time"
)

// Phase of the initialization watchdog.
type Phase int

const (
	Idle Phase = iota
	Armed
	Resolved
	KickstartAttempted
	Reloaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Resolved:
		return "resolved"
	case KickstartAttempted:
		return "kickstart-attempted"
	case Reloaded:
		return "reloaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

const (
	defaultKickstartAfter = 7 * time.Second
	defaultReloadAfter    = 10 * time.Second

	// Kickstart nudge spacing: forced next after 300ms, then previous
	// 500ms later, to unstick a widget that loaded but never started.
	defaultNudgeDelay = 300 * time.Millisecond
	defaultNudgeGap   = 500 * time.Millisecond
)

// Hooks connect the watchdog to the session and the page.
type Hooks struct {
	QueueLen      func() int
	PlaylistKnown func() bool
	Next          func()
	Previous      func()
	// Reload performs the one silent full-page reload (cache-busted,
	// history entry replaced).
	Reload func()
	// Fail surfaces a terminal initialization error to the user.
	Fail func(msg string)
}

// Timing overrides the escalation schedule, mostly for tests.
type Timing struct {
	KickstartAfter time.Duration
	ReloadAfter    time.Duration
	NudgeDelay     time.Duration
	NudgeGap       time.Duration
}

// Watchdog detects an initialization that silently stalls and
// escalates: a soft kickstart at 7s, a hard reload at 10s. Arming
// happens once per page load; a successful queue load resolves it and
// cancels both timers.
type Watchdog struct {
	mu sync.Mutex

	hooks  Hooks
	timing Timing

	phase       Phase
	kickTimer   *time.Timer
	reloadTimer *time.Timer
	nudgeTimers []*time.Timer

	// reloaded guards the at-most-one-reload-per-page-load invariant
	// even if both timers fire in the same tick.
	reloaded bool
}

func New(hooks Hooks, timing Timing) *Watchdog {
	if timing.KickstartAfter <= 0 {
		timing.KickstartAfter = defaultKickstartAfter
	}
	if timing.ReloadAfter <= 0 {
		timing.ReloadAfter = defaultReloadAfter
	}
	if timing.NudgeDelay <= 0 {
		timing.NudgeDelay = defaultNudgeDelay
	}
	if timing.NudgeGap <= 0 {
		timing.NudgeGap = defaultNudgeGap
	}

	return &Watchdog{hooks: hooks, timing: timing, phase: Idle}
}

// Arm starts both escalation timers. Arming twice is a no-op.
func (w *Watchdog) Arm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != Idle {
		return
	}
	w.phase = Armed
	w.kickTimer = time.AfterFunc(w.timing.KickstartAfter, w.kickstart)
	w.reloadTimer = time.AfterFunc(w.timing.ReloadAfter, w.reload)
}

// Resolve is the success path: the queue populated before either timer
// fired. Both timers are cancelled.
func (w *Watchdog) Resolve() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != Armed {
		return
	}
	w.phase = Resolved
	w.cancelTimersLocked()
}

// Phase returns the current watchdog phase.
func (w *Watchdog) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// TimersArmed reports whether any escalation timer is still pending.
func (w *Watchdog) TimersArmed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.kickTimer != nil || w.reloadTimer != nil
}

func (w *Watchdog) cancelTimersLocked() {
	if w.kickTimer != nil {
		w.kickTimer.Stop()
		w.kickTimer = nil
	}
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
		w.reloadTimer = nil
	}
	for _, t := range w.nudgeTimers {
		t.Stop()
	}
	w.nudgeTimers = nil
}

// kickstart fires at the soft deadline. A populated queue gets a
// synthetic next/previous nudge and the reload timer is cancelled; an
// empty queue falls through to reload, or to a terminal error when not
// even a playlist id is known.
func (w *Watchdog) kickstart() {
	w.mu.Lock()

	if w.phase != Armed {
		w.mu.Unlock()
		return
	}
	w.kickTimer = nil

	n := 0
	if w.hooks.QueueLen != nil {
		n = w.hooks.QueueLen()
	}

	switch {
	case n > 1:
		log.Printf("ofplay: watchdog kickstart, nudging stuck widget (queue %d)", n)
		w.phase = KickstartAttempted
		if w.reloadTimer != nil {
			w.reloadTimer.Stop()
			w.reloadTimer = nil
		}
		w.nudgeTimers = append(w.nudgeTimers,
			time.AfterFunc(w.timing.NudgeDelay, w.hooks.Next),
			time.AfterFunc(w.timing.NudgeDelay+w.timing.NudgeGap, w.hooks.Previous),
		)
		w.mu.Unlock()

	case n == 1:
		log.Printf("ofplay: watchdog kickstart, single-track nudge")
		w.phase = KickstartAttempted
		if w.reloadTimer != nil {
			w.reloadTimer.Stop()
			w.reloadTimer = nil
		}
		w.nudgeTimers = append(w.nudgeTimers,
			time.AfterFunc(w.timing.NudgeDelay, w.hooks.Next),
		)
		w.mu.Unlock()

	default:
		known := w.hooks.PlaylistKnown != nil && w.hooks.PlaylistKnown()
		if known {
			w.mu.Unlock()
			w.reload()
			return
		}
		w.phase = Failed
		w.cancelTimersLocked()
		fail := w.hooks.Fail
		w.mu.Unlock()
		if fail != nil {
			fail("could not load the playlist, check the URL")
		}
	}
}

// reload attempts the one silent full-page reload. Idempotent: a
// second trigger in the same page load does nothing.
func (w *Watchdog) reload() {
	w.mu.Lock()

	if w.reloaded || w.phase == Resolved || w.phase == Failed {
		w.mu.Unlock()
		return
	}
	w.reloaded = true
	w.phase = Reloaded
	w.cancelTimersLocked()
	reload := w.hooks.Reload
	w.mu.Unlock()

	log.Printf("ofplay: watchdog escalating to silent reload")
	if reload != nil {
		reload()
	}
}
