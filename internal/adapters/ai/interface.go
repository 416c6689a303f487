package ai

import (
	"context"
	"time"
)

// Task names the kind of judgment an inference call serves.
// Routing picks a model per task.
type Task string

const (
	TaskMarketAnalysis    Task = "market_analysis"
	TaskSentimentAnalysis Task = "sentiment_analysis"
	TaskTechnicalAnalysis Task = "technical_analysis"
	TaskResearch          Task = "research"
	TaskDebateModeration  Task = "debate_moderation"
	TaskDebateSynthesis   Task = "debate_synthesis"
	TaskTradeProposal     Task = "trade_proposal"
	TaskRiskNarrative     Task = "risk_narrative"
)

// AllTasks lists every task in pipeline order
func AllTasks() []Task {
	return []Task{
		TaskMarketAnalysis,
		TaskSentimentAnalysis,
		TaskTechnicalAnalysis,
		TaskResearch,
		TaskDebateModeration,
		TaskDebateSynthesis,
		TaskTradeProposal,
		TaskRiskNarrative,
	}
}

// Request is a single prompt-in, text-out call
type Request struct {
	Task            Task
	SystemPrompt    string
	UserPrompt      string
	Temperature     float64
	MaxOutputTokens int // 0 uses the routed model's limit
}

// Usage tracks token consumption
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the text produced by a model
type Response struct {
	Text     string
	Model    string
	Provider ProviderName
	Usage    Usage
	Latency  time.Duration
}

// Inferencer is the boundary the pipeline calls. Failures are
// *errors.InferenceError classified as timeout, rate limited or network.
type Inferencer interface {
	Infer(ctx context.Context, req Request) (*Response, error)
}

// Provider executes a request against one vendor API
type Provider interface {
	Name() ProviderName
	Complete(ctx context.Context, model ModelHandle, req Request) (*Response, error)
}
