package notify

import "log"

// Severity of a transient notification.
type Severity string

const (
	Info    Severity = "info"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notice is a transient, non-blocking user notification. Every
// user-visible failure in the system funnels through this one shape;
// blocking dialogs are reserved for the auth gate.
type Notice struct {
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	DurationMs int      `json:"durationMs"`
}

// Notifier delivers transient notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// Func adapts a function to the Notifier interface.
type Func func(n Notice)

func (f Func) Notify(n Notice) { f(n) }

// Multi fans a notice out to several sinks.
type Multi []Notifier

func (m Multi) Notify(n Notice) {
	for _, sink := range m {
		sink.Notify(n)
	}
}

// Log is a Notifier that only writes to the process log. Used as a
// fallback when no UI sink is wired.
var Log Notifier = Func(func(n Notice) {
	log.Printf("ofplay: notice [%s]: %s", n.Severity, n.Message)
})

// Transient builds a notice with the default on-screen duration.
func Transient(severity Severity, message string) Notice {
	return Notice{Message: message, Severity: severity, DurationMs: 4000}
}
