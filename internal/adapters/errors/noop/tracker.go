package noop

import (
	"context"

	"tradecouncil/pkg/errors"
)

var _ errors.Tracker = Tracker{}

// Tracker drops every event. Used when SENTRY_DSN is unset.
type Tracker struct{}

func New() Tracker {
	return Tracker{}
}

func (Tracker) CaptureError(context.Context, error, map[string]string) error { return nil }

func (Tracker) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	return nil
}

func (Tracker) Flush(context.Context) error { return nil }
