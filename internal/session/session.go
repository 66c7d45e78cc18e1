package session

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/247pages/Ofplay/internal/model"
	"github.com/247pages/Ofplay/internal/notify"
	"github.com/247pages/Ofplay/internal/player"
)

const (
	maxTransientRetries  = 2
	defaultRetryInterval = 5 * time.Second
)

// Events receives UI fan-out callbacks for playback transitions:
// play/pause button, mini-player, OS media-session indicator.
// Implementations must be idempotent and side-effect-free when called
// redundantly with the same state.
type Events interface {
	PlaybackChanged(playing bool)
	TrackChanged(t model.Track, index int)
	QueueChanged(queue []model.Track, current int)
}

// Hooks are the explicit per-playback steps that the original page
// spliced in by wrapping functions. They are composed here once, at
// construction, and run in a fixed order inside playAt.
type Hooks struct {
	// ResetProgress restarts the progress tracker for a fresh track.
	ResetProgress func()
	// RefreshFavorite re-reads the favorite status of the new track.
	// Best-effort: it runs asynchronously and its failure never blocks
	// playback.
	RefreshFavorite func(trackID string)
	// RefreshMiniPlayer re-renders the mini-player content.
	RefreshMiniPlayer func()
}

// Config wires a Session to its collaborators.
type Config struct {
	PlaylistID    string
	Widget        player.Widget
	Events        Events
	Notifier      notify.Notifier
	Hooks         Hooks
	RetryInterval time.Duration // transient playback error retry spacing
	Seed          int64         // shuffle seed; 0 means time-based
}

// Session is the single mutable record coordinating the player widget,
// the progress tracker, the mini-player and the drag-reorder engine.
// All mutation happens under one mutex; every method leaves the state
// internally consistent before returning.
type Session struct {
	mu sync.Mutex

	playlistID string
	queue      []model.Track
	current    int

	isPlaying  bool
	isShuffled bool
	isRepeat   bool

	// originalOrder is the queue snapshot taken when shuffle was
	// enabled; empty while not shuffled.
	originalOrder []model.Track

	isDragging     bool
	dragStartIndex int

	isSeeking bool

	widget   player.Widget
	events   Events
	notifier notify.Notifier
	hooks    Hooks

	retries    int
	retryTimer *time.Timer
	retryEvery time.Duration

	rng *rand.Rand
}

func New(cfg Config) *Session {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Log
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Session{
		playlistID:     cfg.PlaylistID,
		widget:         cfg.Widget,
		events:         cfg.Events,
		notifier:       cfg.Notifier,
		hooks:          cfg.Hooks,
		retryEvery:     cfg.RetryInterval,
		rng:            rand.New(rand.NewSource(seed)),
		dragStartIndex: -1,
	}
}

// SetQueue replaces the queue wholesale (playlist load is a full
// replace, never a merge) and rewinds to the first track.
func (s *Session) SetQueue(tracks []model.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue[:0:0], tracks...)
	s.current = 0
	s.originalOrder = nil
	s.isShuffled = false

	s.fanOutQueue()
}

// PlaylistID returns the playlist identity this session was opened on.
func (s *Session) PlaylistID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlistID
}

func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// State is a read-only snapshot of the session for handlers and tests.
type State struct {
	PlaylistID   string        `json:"playlistId"`
	Queue        []model.Track `json:"queue"`
	CurrentIndex int           `json:"currentIndex"`
	IsPlaying    bool          `json:"isPlaying"`
	IsShuffled   bool          `json:"isShuffled"`
	IsRepeat     bool          `json:"isRepeat"`
	IsDragging   bool          `json:"isDragging"`
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		PlaylistID:   s.playlistID,
		Queue:        append([]model.Track(nil), s.queue...),
		CurrentIndex: s.current,
		IsPlaying:    s.isPlaying,
		IsShuffled:   s.isShuffled,
		IsRepeat:     s.isRepeat,
		IsDragging:   s.isDragging,
	}
}

// CurrentTrack returns the playing track, if any.
func (s *Session) CurrentTrack() (model.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 || s.current < 0 || s.current >= len(s.queue) {
		return model.Track{}, false
	}
	return s.queue[s.current], true
}

// PlayAt starts playback of the track at index. Out-of-range indices
// fail silently: logged, no state change.
func (s *Session) PlayAt(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playAt(index)
}

func (s *Session) playAt(index int) {
	if index < 0 || index >= len(s.queue) {
		log.Printf("ofplay: playAt %d out of range (queue has %d)", index, len(s.queue))
		return
	}

	s.current = index
	s.stopRetryTimer()
	s.retries = 0

	t := s.queue[index]
	if err := s.widget.Load(t.ID); err != nil {
		log.Printf("ofplay: widget load %s: %v", t.ID, err)
		s.notifier.Notify(notify.Transient(notify.Error, "playback failed to start"))
	}

	if s.hooks.ResetProgress != nil {
		s.hooks.ResetProgress()
	}
	if s.events != nil {
		s.events.TrackChanged(t, index)
	}
	if s.hooks.RefreshMiniPlayer != nil {
		s.hooks.RefreshMiniPlayer()
	}
	if s.hooks.RefreshFavorite != nil {
		go s.hooks.RefreshFavorite(t.ID)
	}
}

// Next advances to the following track with wraparound. Shuffle mode
// walks the already-shuffled order linearly; it does not re-randomize
// per step.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
}

func (s *Session) advance() {
	if len(s.queue) == 0 {
		return
	}
	s.playAt((s.current + 1) % len(s.queue))
}

// Previous steps back one track, wrapping to the last index at 0.
func (s *Session) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return
	}
	s.playAt((s.current - 1 + len(s.queue)) % len(s.queue))
}

func (s *Session) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.widget.Play(); err != nil {
		log.Printf("ofplay: widget play: %v", err)
	}
}

func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.widget.Pause(); err != nil {
		log.Printf("ofplay: widget pause: %v", err)
	}
}

// ToggleShuffle shuffles the queue in place (Fisher-Yates), keeping
// the identity of the playing track, or restores the pre-shuffle
// order. The snapshot is taken only once so repeated toggles cannot
// stack.
func (s *Session) ToggleShuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		s.isShuffled = !s.isShuffled
		return
	}

	currentID := s.queue[s.current].ID

	if !s.isShuffled {
		if len(s.originalOrder) == 0 {
			s.originalOrder = append([]model.Track(nil), s.queue...)
		}
		s.rng.Shuffle(len(s.queue), func(i, j int) {
			s.queue[i], s.queue[j] = s.queue[j], s.queue[i]
		})
		s.isShuffled = true
	} else {
		s.queue = append(s.queue[:0:0], s.originalOrder...)
		s.originalOrder = nil
		s.isShuffled = false
	}

	s.current = s.indexOf(currentID)
	s.fanOutQueue()
}

// indexOf relocates a track by id, defaulting to 0. The default is
// unreachable as long as shuffle/restore never drops a track.
func (s *Session) indexOf(trackID string) int {
	for i, t := range s.queue {
		if t.ID == trackID {
			return i
		}
	}
	return 0
}

// ToggleRepeat flips the repeat flag. No queue effect.
func (s *Session) ToggleRepeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRepeat = !s.isRepeat
}

// BeginSeek suppresses progress-tracker writes while a manual seek
// gesture is in flight.
func (s *Session) BeginSeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSeeking = true
}

// EndSeek re-enables progress writes.
func (s *Session) EndSeek() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSeeking = false
}

func (s *Session) IsSeeking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSeeking
}

func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPlaying
}

// Seek jumps to an absolute position. Used by transport controls and
// description timestamp deep links.
func (s *Session) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.widget.Seek(seconds); err != nil {
		log.Printf("ofplay: widget seek: %v", err)
	}
}

func (s *Session) fanOutQueue() {
	if s.events != nil {
		s.events.QueueChanged(append([]model.Track(nil), s.queue...), s.current)
	}
}

func (s *Session) stopRetryTimer() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// Stop tears the session down on navigation: pending retry timers are
// cancelled.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRetryTimer()
}
