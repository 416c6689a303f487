package agents

import (
	"context"
	"sort"
	"sync"

	"tradecouncil/internal/adapters/ai"
)

// UsageTracker accumulates token usage per model over one pipeline run
type UsageTracker struct {
	mu    sync.Mutex
	usage map[string]*ModelUsage // model -> usage
}

// ModelUsage is the usage of one model
type ModelUsage struct {
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
	CallCount    int64  `json:"callCount"`
}

// NewUsageTracker creates an empty tracker
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{usage: make(map[string]*ModelUsage)}
}

// Record adds one response's usage
func (t *UsageTracker) Record(resp *ai.Response) {
	if t == nil || resp == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	mu, ok := t.usage[resp.Model]
	if !ok {
		mu = &ModelUsage{Model: resp.Model, Provider: resp.Provider.String()}
		t.usage[resp.Model] = mu
	}
	mu.InputTokens += int64(resp.Usage.PromptTokens)
	mu.OutputTokens += int64(resp.Usage.CompletionTokens)
	mu.CallCount++
}

// Snapshot returns usage ordered by model name
func (t *UsageTracker) Snapshot() []ModelUsage {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ModelUsage, 0, len(t.usage))
	for _, u := range t.usage {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// Calls returns the total number of recorded inference calls
func (t *UsageTracker) Calls() int64 {
	if t == nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var total int64
	for _, u := range t.usage {
		total += u.CallCount
	}
	return total
}

type usageKey struct{}

// WithUsage attaches a tracker that every stage in ctx reports to
func WithUsage(ctx context.Context, t *UsageTracker) context.Context {
	return context.WithValue(ctx, usageKey{}, t)
}

// UsageFromContext returns the attached tracker or nil
func UsageFromContext(ctx context.Context) *UsageTracker {
	t, _ := ctx.Value(usageKey{}).(*UsageTracker)
	return t
}
