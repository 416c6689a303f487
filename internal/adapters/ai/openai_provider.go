package ai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"tradecouncil/pkg/errors"
)

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider calls the chat completions API. DeepSeek exposes the same
// API under another base URL and is served by this type too.
type OpenAIProvider struct {
	name   ProviderName
	client openai.Client
	// legacyMaxTokens sends max_tokens instead of max_completion_tokens
	legacyMaxTokens bool
}

// OpenAIOptions configures an OpenAI-compatible provider
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// NewOpenAIProvider creates a provider for api.openai.com
func NewOpenAIProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	return newOpenAICompatible(ProviderNameOpenAI, opts, false)
}

// NewDeepSeekProvider creates a provider for the DeepSeek OpenAI-compatible API
func NewDeepSeekProvider(opts OpenAIOptions) (*OpenAIProvider, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.deepseek.com/v1"
	}
	return newOpenAICompatible(ProviderNameDeepSeek, opts, true)
}

func newOpenAICompatible(name ProviderName, opts OpenAIOptions, legacyMaxTokens bool) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "%s API key is required", name)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &OpenAIProvider{
		name:            name,
		client:          openai.NewClient(reqOpts...),
		legacyMaxTokens: legacyMaxTokens,
	}, nil
}

// Name returns provider name.
func (p *OpenAIProvider) Name() ProviderName { return p.name }

// Complete sends a system+user chat completion and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, model ModelHandle, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Temperature: openai.Float(req.Temperature),
	}

	if maxTokens := int64(req.MaxOutputTokens); maxTokens > 0 {
		if p.legacyMaxTokens {
			params.MaxTokens = openai.Int(maxTokens)
		} else {
			params.MaxCompletionTokens = openai.Int(maxTokens)
		}
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(completion.Choices) == 0 {
		return nil, errors.Wrapf(errors.ErrInternal, "%s returned no choices", p.name)
	}

	return &Response{
		Text:     strings.TrimSpace(completion.Choices[0].Message.Content),
		Model:    completion.Model,
		Provider: p.name,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}
