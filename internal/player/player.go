package player

// State mirrors the external video player widget's playback states.
type State int

const (
	Unstarted State = iota
	Ready
	Playing
	Paused
	Buffering
	Ended
	Errored
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Buffering:
		return "buffering"
	case Ended:
		return "ended"
	case Errored:
		return "error"
	}
	return "unknown"
}

// Widget is the contract the external video player widget is wrapped
// behind. Implementations forward to the real embedded player; tests
// use in-memory fakes.
type Widget interface {
	Load(trackID string) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	CurrentTime() (float64, error)
	Duration() (float64, error)
}

// EventKind discriminates the widget's inbound callback stream.
type EventKind int

const (
	EventReady EventKind = iota
	EventStateChanged
	EventError
)

// Event is one inbound widget callback.
type Event struct {
	Kind  EventKind `json:"kind"`
	State State     `json:"state,omitempty"`
	Code  int       `json:"code,omitempty"`
}

// Widget error codes for videos that will never play: removed,
// private, or embedding-restricted. Anything else is treated as
// transient and retried in place.
var permanentCodes = map[int]bool{
	100: true, // removed or private
	101: true, // embedding restricted
	150: true, // embedding restricted (alias)
}

// IsPermanentError reports whether the widget error code means the
// video is unplayable and should be skipped immediately.
func IsPermanentError(code int) bool {
	return permanentCodes[code]
}
