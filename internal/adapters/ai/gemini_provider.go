package ai

import (
	"context"
	"strings"
	"sync"

	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"tradecouncil/pkg/errors"
)

var _ Provider = (*GeminiProvider)(nil)

// GeminiProvider runs requests through the ADK Gemini model.
// One ADK model is built lazily per model name.
type GeminiProvider struct {
	clientConfig *genai.ClientConfig

	mu     sync.Mutex
	models map[string]adkmodel.LLM
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "gemini API key is required")
	}

	return &GeminiProvider{
		clientConfig: &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		},
		models: make(map[string]adkmodel.LLM),
	}, nil
}

// Name returns provider name.
func (p *GeminiProvider) Name() ProviderName { return ProviderNameGoogle }

// Complete generates a single non-streaming response.
func (p *GeminiProvider) Complete(ctx context.Context, model ModelHandle, req Request) (*Response, error) {
	llm, err := p.model(ctx, model.Model)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	llmReq := &adkmodel.LLMRequest{
		Model:    model.Model,
		Contents: []*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)},
		Config:   cfg,
	}

	var (
		text  strings.Builder
		usage Usage
	)
	for resp, err := range llm.GenerateContent(ctx, llmReq, false) {
		if err != nil {
			return nil, err
		}
		if resp == nil {
			continue
		}
		if resp.ErrorCode != "" {
			return nil, errors.Newf("gemini error %s: %s", resp.ErrorCode, resp.ErrorMessage)
		}
		if resp.Content != nil {
			for _, part := range resp.Content.Parts {
				if part != nil && !part.Thought {
					text.WriteString(part.Text)
				}
			}
		}
		if resp.UsageMetadata != nil {
			usage = Usage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			}
		}
	}

	return &Response{
		Text:     strings.TrimSpace(text.String()),
		Model:    model.Model,
		Provider: ProviderNameGoogle,
		Usage:    usage,
	}, nil
}

func (p *GeminiProvider) model(ctx context.Context, name string) (adkmodel.LLM, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if llm, ok := p.models[name]; ok {
		return llm, nil
	}

	llm, err := gemini.NewModel(ctx, name, p.clientConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "create gemini model %s", name)
	}
	p.models[name] = llm
	return llm, nil
}
