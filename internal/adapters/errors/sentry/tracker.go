package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"tradecouncil/pkg/errors"
)

var _ errors.Tracker = (*Tracker)(nil)

// Tracker implements error tracking via Sentry
type Tracker struct {
	hub *sentry.Hub
}

// New initializes the global Sentry client
func New(dsn, environment, release string, sampleRate float64) (*Tracker, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
		SampleRate:  sampleRate,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init sentry")
	}

	return &Tracker{hub: sentry.CurrentHub()}, nil
}

// CaptureError reports err on a cloned hub so concurrent runs never share
// scope. The subject tag also becomes the Sentry user.
func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	t.scoped(tags, func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
	}).CaptureException(err)
	return nil
}

func (t *Tracker) CaptureMessage(ctx context.Context, message string, level errors.Level, tags map[string]string) error {
	t.scoped(tags, func(scope *sentry.Scope) {
		scope.SetLevel(convertLevel(level))
	}).CaptureMessage(message)
	return nil
}

func (t *Tracker) scoped(tags map[string]string, configure func(*sentry.Scope)) *sentry.Hub {
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if subject := tags[errors.TagSubject]; subject != "" {
			scope.SetUser(sentry.User{ID: subject})
		}
		configure(scope)
	})
	return hub
}

// Flush waits for all pending events to be sent
func (t *Tracker) Flush(ctx context.Context) error {
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !sentry.Flush(timeout) {
		return errors.New("sentry flush timed out")
	}
	return nil
}

func convertLevel(level errors.Level) sentry.Level {
	switch level {
	case errors.LevelDebug:
		return sentry.LevelDebug
	case errors.LevelInfo:
		return sentry.LevelInfo
	case errors.LevelWarning:
		return sentry.LevelWarning
	case errors.LevelError:
		return sentry.LevelError
	case errors.LevelFatal:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}
