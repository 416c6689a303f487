package errors

import (
	"context"
)

// Tag keys attached to captured events
const (
	TagSubject   = "subject"
	TagStage     = "stage"
	TagMode      = "mode"
	TagRunID     = "run_id"
	TagComponent = "component"
)

// Tracker ships errors and notable events to an external service (Sentry)
type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string) error
	CaptureMessage(ctx context.Context, message string, level Level, tags map[string]string) error

	// Flush blocks until queued events are sent or ctx expires
	Flush(ctx context.Context) error
}

// Level is the severity of a captured message
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

func (l Level) String() string {
	return string(l)
}
