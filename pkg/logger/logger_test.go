package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tradecouncil/pkg/errors"
)

type recordingTracker struct {
	mu       sync.Mutex
	errs     []error
	messages []string
	levels   []errors.Level
	tags     []map[string]string
}

func (r *recordingTracker) CaptureError(_ context.Context, err error, tags map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
	return nil
}

func (r *recordingTracker) CaptureMessage(_ context.Context, msg string, level errors.Level, tags map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	r.levels = append(r.levels, level)
	r.tags = append(r.tags, tags)
	return nil
}

func (r *recordingTracker) Flush(context.Context) error { return nil }

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return New(zap.New(core)), logs
}

func TestCapture_LogsTagsAndForwards(t *testing.T) {
	log, logs := observed(zapcore.DebugLevel)
	tracker := &recordingTracker{}
	log = log.WithTracker(tracker)

	cause := errors.New("inference timed out")
	tags := map[string]string{errors.TagSubject: "u1", errors.TagStage: "debate"}
	log.Capture(context.Background(), "Pipeline run failed", cause, tags)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "Pipeline run failed", entry.Message)
	assert.Equal(t, "u1", entry.ContextMap()["subject"])
	assert.Equal(t, "debate", entry.ContextMap()["stage"])

	require.Len(t, tracker.errs, 1)
	assert.ErrorIs(t, tracker.errs[0], cause)
	assert.Equal(t, tags, tracker.tags[0])
}

func TestNotice_MapsLevel(t *testing.T) {
	log, logs := observed(zapcore.DebugLevel)
	tracker := &recordingTracker{}
	log = log.WithTracker(tracker)

	log.Notice(context.Background(), errors.LevelWarning, "Dropped malformed request", map[string]string{errors.TagComponent: "consumer"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, []string{"Dropped malformed request"}, tracker.messages)
	assert.Equal(t, []errors.Level{errors.LevelWarning}, tracker.levels)
}

func TestCapture_WithoutTrackerOnlyLogs(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)

	log.Capture(context.Background(), "failed", errors.New("boom"), nil)

	assert.Equal(t, 1, logs.Len())
}

func TestWith_KeepsTracker(t *testing.T) {
	log, _ := observed(zapcore.InfoLevel)
	tracker := &recordingTracker{}

	child := log.WithTracker(tracker).With("component", "orchestrator")
	child.Errorf("flush failed: %d rows", 3)

	require.Len(t, tracker.errs, 1)
	assert.EqualError(t, tracker.errs[0], "flush failed: 3 rows")
	assert.Equal(t, "logger", tracker.tags[0][errors.TagComponent])
}

func TestTagFields_Sorted(t *testing.T) {
	fields := tagFields(map[string]string{"stage": "risk", "mode": "full", "subject": "u1"})
	assert.Equal(t, []interface{}{"mode", "full", "stage", "risk", "subject", "u1"}, fields)
}
