package core

// Logger is the logging contract of the app.
// args may carry an error, a map[string]interface{} of extras, or the acting account.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Metrics records operational counters.
type Metrics interface {
	// EmailDispatched counts one email of kind with outcome sent, suppressed or failed.
	EmailDispatched(kind, outcome string)
	// AttendanceMarked counts one attendance write by transition (created, changed, unchanged).
	AttendanceMarked(transition string)
	HookFailed(name string)
}

const (
	OutcomeSent       = "sent"
	OutcomeSuppressed = "suppressed"
	OutcomeFailed     = "failed"
)

type nopMetrics struct{}

func (nopMetrics) EmailDispatched(string, string) {}
func (nopMetrics) AttendanceMarked(string)        {}
func (nopMetrics) HookFailed(string)              {}

// NopMetrics discards everything.
var NopMetrics Metrics = nopMetrics{}
