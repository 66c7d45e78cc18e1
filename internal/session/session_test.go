package session

import (
	"sync"
	"testing"
	"time"

	"github.com/247pages/Ofplay/internal/model"
	"github.com/247pages/Ofplay/internal/player"
)

// fakeWidget records commands instead of driving a real player.
type fakeWidget struct {
	mu     sync.Mutex
	loads  []string
	plays  int
	pauses int
	seeks  []float64
}

func (f *fakeWidget) Load(trackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, trackID)
	return nil
}

func (f *fakeWidget) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return nil
}

func (f *fakeWidget) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeWidget) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeWidget) CurrentTime() (float64, error) { return 0, nil }
func (f *fakeWidget) Duration() (float64, error)    { return 0, nil }

func (f *fakeWidget) loadedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

func (f *fakeWidget) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

func queueOf(ids ...string) []model.Track {
	out := make([]model.Track, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Track{ID: id, Title: "title " + id})
	}
	return out
}

func newTestSession(t *testing.T, ids ...string) (*Session, *fakeWidget) {
	t.Helper()
	w := &fakeWidget{}
	s := New(Config{
		PlaylistID:    "pl-1",
		Widget:        w,
		Seed:          42,
		RetryInterval: 10 * time.Millisecond,
	})
	s.SetQueue(queueOf(ids...))
	return s, w
}

func TestNextWrapsAround(t *testing.T) {
	s, _ := newTestSession(t, "a", "b", "c")
	s.PlayAt(0)

	want := []int{1, 2, 0, 1}
	for _, idx := range want {
		s.Next()
		if got := s.Snapshot().CurrentIndex; got != idx {
			t.Fatalf("CurrentIndex = %d; want %d", got, idx)
		}
	}
}

func TestPreviousWrapsToEnd(t *testing.T) {
	s, _ := newTestSession(t, "a", "b", "c")
	s.PlayAt(0)

	s.Previous()
	if got := s.Snapshot().CurrentIndex; got != 2 {
		t.Fatalf("CurrentIndex = %d; want 2", got)
	}
}

func TestPlayAtOutOfRangeIsSilent(t *testing.T) {
	s, w := newTestSession(t, "a", "b")
	s.PlayAt(0)
	before := s.Snapshot()
	loads := len(w.loadedIDs())

	s.PlayAt(7)
	s.PlayAt(-1)

	after := s.Snapshot()
	if after.CurrentIndex != before.CurrentIndex {
		t.Fatalf("CurrentIndex changed: %d -> %d", before.CurrentIndex, after.CurrentIndex)
	}
	if got := len(w.loadedIDs()); got != loads {
		t.Fatalf("widget loads = %d; want %d", got, loads)
	}
}

func TestShuffleKeepsCurrentTrack(t *testing.T) {
	s, _ := newTestSession(t, "a", "b", "c", "d", "e", "f", "g", "h")
	s.PlayAt(3)

	s.ToggleShuffle()

	st := s.Snapshot()
	if !st.IsShuffled {
		t.Fatal("IsShuffled = false after toggle")
	}
	if got := st.Queue[st.CurrentIndex].ID; got != "d" {
		t.Fatalf("current track after shuffle = %q; want %q", got, "d")
	}
}

func TestShuffleRoundTripRestoresOrder(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	s, _ := newTestSession(t, ids...)
	s.PlayAt(3)

	s.ToggleShuffle()
	s.ToggleShuffle()

	st := s.Snapshot()
	if st.IsShuffled {
		t.Fatal("IsShuffled = true after round trip")
	}
	for i, id := range ids {
		if st.Queue[i].ID != id {
			t.Fatalf("queue[%d] = %q; want %q", i, st.Queue[i].ID, id)
		}
	}
	if got := st.Queue[st.CurrentIndex].ID; got != "d" {
		t.Fatalf("current track after restore = %q; want %q", got, "d")
	}
}

func TestNextCycleShuffledReturnsToStart(t *testing.T) {
	s, _ := newTestSession(t, "a", "b", "c", "d", "e")
	s.PlayAt(2)
	s.ToggleShuffle()

	st := s.Snapshot()
	start := st.CurrentIndex
	startID := st.Queue[start].ID

	for i := 0; i < len(st.Queue); i++ {
		s.Next()
	}

	st = s.Snapshot()
	if st.CurrentIndex != start {
		t.Fatalf("CurrentIndex after full cycle = %d; want %d", st.CurrentIndex, start)
	}
	if got := st.Queue[st.CurrentIndex].ID; got != startID {
		t.Fatalf("current track after full cycle = %q; want %q", got, startID)
	}
}

func TestMoveTrackRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		current int
	}{
		{"current is a bystander", 2},
		{"current is the moved track", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []string{"a", "b", "c", "d", "e"}
			s, _ := newTestSession(t, ids...)
			s.PlayAt(tt.current)
			wantID := ids[tt.current]

			s.MoveTrack(1, 3)
			s.MoveTrack(3, 1)

			st := s.Snapshot()
			for i, id := range ids {
				if st.Queue[i].ID != id {
					t.Fatalf("queue[%d] = %q; want %q", i, st.Queue[i].ID, id)
				}
			}
			if got := st.Queue[st.CurrentIndex].ID; got != wantID {
				t.Fatalf("current track after round trip = %q; want %q", got, wantID)
			}
		})
	}
}

func TestMoveTrackCurrentIndex(t *testing.T) {
	tests := []struct {
		name    string
		from    int
		to      int
		current int
		want    int
	}{
		{"moved track stays current", 1, 3, 1, 3},
		{"current between from and to shifts down", 0, 3, 2, 1},
		{"current between to and from shifts up", 3, 0, 1, 2},
		{"current outside span untouched", 1, 2, 4, 4},
		{"no-op move", 2, 2, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, "a", "b", "c", "d", "e")
			s.PlayAt(tt.current)

			s.MoveTrack(tt.from, tt.to)

			if got := s.Snapshot().CurrentIndex; got != tt.want {
				t.Fatalf("CurrentIndex = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestMoveTrackReordersQueue(t *testing.T) {
	s, _ := newTestSession(t, "a", "b", "c", "d")

	s.MoveTrack(0, 2)

	st := s.Snapshot()
	want := []string{"b", "c", "a", "d"}
	for i, id := range want {
		if st.Queue[i].ID != id {
			t.Fatalf("queue[%d] = %q; want %q", i, st.Queue[i].ID, id)
		}
	}
}

func TestRemoveTrackClampsCurrent(t *testing.T) {
	s, _ := newTestSession(t, "a", "b", "c")
	s.PlayAt(2)

	s.RemoveTrack(2)

	st := s.Snapshot()
	if st.CurrentIndex != 0 {
		t.Fatalf("CurrentIndex = %d; want 0", st.CurrentIndex)
	}
	if len(st.Queue) != 2 {
		t.Fatalf("queue length = %d; want 2", len(st.Queue))
	}
}

func TestEndedAdvances(t *testing.T) {
	s, w := newTestSession(t, "a", "b", "c")
	s.PlayAt(0)

	s.HandleEvent(player.Event{Kind: player.EventStateChanged, State: player.Ended})

	if got := s.Snapshot().CurrentIndex; got != 1 {
		t.Fatalf("CurrentIndex = %d; want 1", got)
	}
	loads := w.loadedIDs()
	if loads[len(loads)-1] != "b" {
		t.Fatalf("last load = %q; want %q", loads[len(loads)-1], "b")
	}
}

func TestEndedWithRepeatReplays(t *testing.T) {
	s, w := newTestSession(t, "a", "b")
	s.PlayAt(0)
	s.ToggleRepeat()

	s.HandleEvent(player.Event{Kind: player.EventStateChanged, State: player.Ended})

	if got := s.Snapshot().CurrentIndex; got != 0 {
		t.Fatalf("CurrentIndex = %d; want 0", got)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.seeks) != 1 || w.seeks[0] != 0 {
		t.Fatalf("seeks = %v; want [0]", w.seeks)
	}
	if w.plays == 0 {
		t.Fatal("repeat did not restart playback")
	}
}

func TestReadyNudgesAutoplay(t *testing.T) {
	s, w := newTestSession(t, "a")

	s.HandleEvent(player.Event{Kind: player.EventReady})

	if got := w.playCount(); got != 1 {
		t.Fatalf("plays = %d; want 1", got)
	}
}

func TestPermanentErrorSkipsImmediately(t *testing.T) {
	s, _ := newTestSession(t, "a", "b", "c")
	s.PlayAt(0)

	s.HandleEvent(player.Event{Kind: player.EventError, Code: 100})

	if got := s.Snapshot().CurrentIndex; got != 1 {
		t.Fatalf("CurrentIndex = %d; want 1", got)
	}
}

func TestTransientErrorRetriesThenSkips(t *testing.T) {
	s, w := newTestSession(t, "a", "b")
	s.PlayAt(0)
	baseLoads := len(w.loadedIDs())

	// First transient error: retry the same track in place.
	s.HandleEvent(player.Event{Kind: player.EventError, Code: 5})
	time.Sleep(50 * time.Millisecond)

	loads := w.loadedIDs()
	if len(loads) != baseLoads+1 || loads[len(loads)-1] != "a" {
		t.Fatalf("loads after first retry = %v", loads)
	}
	if got := s.Snapshot().CurrentIndex; got != 0 {
		t.Fatalf("CurrentIndex = %d; want 0 (still retrying)", got)
	}

	// Second transient error: one more retry.
	s.HandleEvent(player.Event{Kind: player.EventError, Code: 5})
	time.Sleep(50 * time.Millisecond)

	// Third: budget exhausted, skip forward.
	s.HandleEvent(player.Event{Kind: player.EventError, Code: 5})

	if got := s.Snapshot().CurrentIndex; got != 1 {
		t.Fatalf("CurrentIndex = %d; want 1 after retries exhausted", got)
	}
}

func TestPlayingStateFansOut(t *testing.T) {
	w := &fakeWidget{}
	rec := &eventRecorder{}
	s := New(Config{PlaylistID: "pl-1", Widget: w, Events: rec, Seed: 1})
	s.SetQueue(queueOf("a", "b"))

	s.HandleEvent(player.Event{Kind: player.EventStateChanged, State: player.Playing})
	s.HandleEvent(player.Event{Kind: player.EventStateChanged, State: player.Paused})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.playback) != 2 || rec.playback[0] != true || rec.playback[1] != false {
		t.Fatalf("playback transitions = %v; want [true false]", rec.playback)
	}
}

type eventRecorder struct {
	mu       sync.Mutex
	playback []bool
	tracks   []string
	queues   int
}

func (r *eventRecorder) PlaybackChanged(playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playback = append(r.playback, playing)
}

func (r *eventRecorder) TrackChanged(t model.Track, index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks = append(r.tracks, t.ID)
}

func (r *eventRecorder) QueueChanged(queue []model.Track, current int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues++
}
