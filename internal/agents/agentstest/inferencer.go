// Package agentstest provides a scripted Inferencer for stage and pipeline tests.
package agentstest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tradecouncil/internal/adapters/ai"
)

// Model is reported on every fake response
const Model = "fake-model"

// Inferencer replays canned replies per task and counts calls.
// When a task's queue has one reply left it is repeated.
type Inferencer struct {
	mu       sync.Mutex
	replies  map[ai.Task][]string
	funcs    map[ai.Task]func(ai.Request) string
	errs     map[ai.Task]error
	calls    map[ai.Task]int
	requests []ai.Request
}

var _ ai.Inferencer = (*Inferencer)(nil)

func New() *Inferencer {
	return &Inferencer{
		replies: make(map[ai.Task][]string),
		funcs:   make(map[ai.Task]func(ai.Request) string),
		errs:    make(map[ai.Task]error),
		calls:   make(map[ai.Task]int),
	}
}

// Canned returns an Inferencer with a well-formed reply for every task
func Canned() *Inferencer {
	return New().
		Reply(ai.TaskMarketAnalysis, MarketReply).
		Reply(ai.TaskSentimentAnalysis, SentimentReply).
		Reply(ai.TaskTechnicalAnalysis, TechnicalReply).
		Respond(ai.TaskResearch, BySide(BullReply, BearReply)).
		Reply(ai.TaskDebateModeration, RoundReply(0.5), RoundReply(0.3), RoundReply(0.4)).
		Reply(ai.TaskDebateSynthesis, SynthesisReply).
		Reply(ai.TaskTradeProposal, LongProposalReply).
		Reply(ai.TaskRiskNarrative, RiskReply)
}

// Reply queues texts for task, replacing earlier ones
func (f *Inferencer) Reply(task ai.Task, texts ...string) *Inferencer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[task] = append([]string(nil), texts...)
	delete(f.funcs, task)
	delete(f.errs, task)
	return f
}

// Respond answers task with fn, replacing queued replies
func (f *Inferencer) Respond(task ai.Task, fn func(ai.Request) string) *Inferencer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs[task] = fn
	delete(f.replies, task)
	delete(f.errs, task)
	return f
}

// BySide answers researcher requests according to the stance in the system prompt
func BySide(bull, bear string) func(ai.Request) string {
	return func(req ai.Request) string {
		if strings.Contains(req.SystemPrompt, "bearish researcher") {
			return bear
		}
		return bull
	}
}

// Fail makes every call for task return err
func (f *Inferencer) Fail(task ai.Task, err error) *Inferencer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[task] = err
	return f
}

func (f *Inferencer) Infer(ctx context.Context, req ai.Request) (*ai.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[req.Task]++
	f.requests = append(f.requests, req)

	if err, ok := f.errs[req.Task]; ok {
		return nil, err
	}

	if fn, ok := f.funcs[req.Task]; ok {
		return f.respond(fn(req)), nil
	}

	queue := f.replies[req.Task]
	if len(queue) == 0 {
		return nil, fmt.Errorf("agentstest: no reply scripted for task %s", req.Task)
	}

	text := queue[0]
	if len(queue) > 1 {
		f.replies[req.Task] = queue[1:]
	}

	return f.respond(text), nil
}

func (f *Inferencer) respond(text string) *ai.Response {
	return &ai.Response{
		Text:     text,
		Model:    Model,
		Provider: ai.ProviderNameOpenAI,
		Usage:    ai.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
}

// Calls returns the number of calls made for task
func (f *Inferencer) Calls(task ai.Task) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[task]
}

// TotalCalls returns the number of calls across all tasks
func (f *Inferencer) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Requests returns a copy of every request received, in order
func (f *Inferencer) Requests(task ai.Task) []ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ai.Request
	for _, r := range f.requests {
		if r.Task == task {
			out = append(out, r)
		}
	}
	return out
}
