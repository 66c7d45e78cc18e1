package session

import (
	"log"
	"time"

	"github.com/247pages/Ofplay/internal/notify"
	"github.com/247pages/Ofplay/internal/player"
)

// HandleEvent processes one inbound widget callback. It runs to
// completion under the session lock, so a state-change can never
// interleave with a control operation.
func (s *Session) HandleEvent(ev player.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case player.EventReady:
		// The widget is constructed with autoplay; nudge it in case
		// the flag was ignored.
		if len(s.queue) > 0 {
			if err := s.widget.Play(); err != nil {
				log.Printf("ofplay: widget play on ready: %v", err)
			}
		}

	case player.EventStateChanged:
		s.handleStateChange(ev.State)

	case player.EventError:
		s.handlePlaybackError(ev.Code)
	}
}

func (s *Session) handleStateChange(state player.State) {
	switch state {
	case player.Playing:
		s.isPlaying = true
		s.fanOutPlayback()
	case player.Paused:
		s.isPlaying = false
		s.fanOutPlayback()
	case player.Ended:
		if s.isRepeat {
			if err := s.widget.Seek(0); err != nil {
				log.Printf("ofplay: repeat seek: %v", err)
			}
			if err := s.widget.Play(); err != nil {
				log.Printf("ofplay: repeat play: %v", err)
			}
			return
		}
		s.advance()
	case player.Buffering, player.Unstarted, player.Ready, player.Errored:
		// No session-visible effect; errors arrive as EventError.
	}
}

// fanOutPlayback is called on every PLAYING/PAUSED transition. The
// receivers are required to be idempotent, so redundant transitions
// from the widget are harmless.
func (s *Session) fanOutPlayback() {
	if s.events != nil {
		s.events.PlaybackChanged(s.isPlaying)
	}
}

func (s *Session) handlePlaybackError(code int) {
	if player.IsPermanentError(code) {
		s.notifier.Notify(notify.Transient(notify.Warning, "video unavailable, skipping to the next one"))
		s.retries = 0
		s.stopRetryTimer()
		s.advance()
		return
	}

	if s.retries < maxTransientRetries {
		s.retries++
		s.scheduleRetry()
		return
	}

	// Retry budget exhausted: escalate to skip-forward.
	s.notifier.Notify(notify.Transient(notify.Warning, "playback keeps failing, skipping to the next one"))
	s.retries = 0
	s.stopRetryTimer()
	s.advance()
}

// scheduleRetry reissues the load command for the current track after
// the retry interval. At most one retry timer is alive at a time.
func (s *Session) scheduleRetry() {
	s.stopRetryTimer()

	if s.current < 0 || s.current >= len(s.queue) {
		return
	}
	trackID := s.queue[s.current].ID
	attempt := s.retries

	s.retryTimer = time.AfterFunc(s.retryEvery, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// The session may have moved on while the timer was pending.
		if s.current >= len(s.queue) || len(s.queue) == 0 || s.queue[s.current].ID != trackID {
			return
		}

		log.Printf("ofplay: retrying track %s (attempt %d)", trackID, attempt)
		if err := s.widget.Load(trackID); err != nil {
			log.Printf("ofplay: retry load %s: %v", trackID, err)
		}
	})
}
