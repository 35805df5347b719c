package wizard

import (
	"context"
	"sync"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Reporter receives notifications meant for the user.
type Reporter interface {
	Report(ctx context.Context, level Level, message string)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, level Level, message string)

func (f ReporterFunc) Report(ctx context.Context, level Level, message string) {
	f(ctx, level, message)
}

// LogReporter writes notifications to a logger.
type LogReporter struct {
	logger *logging.Logger
}

func NewLogReporter(logger *logging.Logger) *LogReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(ctx context.Context, level Level, message string) {
	switch level {
	case LevelError:
		r.logger.ErrorContext(ctx, message, "level_tag", string(level))
	case LevelWarning:
		r.logger.WarnContext(ctx, message, "level_tag", string(level))
	default:
		r.logger.InfoContext(ctx, message, "level_tag", string(level))
	}
}

// Notification is one recorded report.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// RecordingReporter keeps every notification in memory.
type RecordingReporter struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *RecordingReporter) Report(_ context.Context, level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Notification{Level: level, Message: message})
}

// Notifications returns a copy of everything reported so far.
func (r *RecordingReporter) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// Drain returns and clears the recorded notifications.
func (r *RecordingReporter) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notes
	r.notes = nil
	return out
}

// Last returns the most recent notification, if any.
func (r *RecordingReporter) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return Notification{}, false
	}
	return r.notes[len(r.notes)-1], true
}

// MultiReporter fans out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, level Level, message string) {
	for _, r := range m {
		r.Report(ctx, level, message)
	}
}
