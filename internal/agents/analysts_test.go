package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/agents/agentstest"
	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/internal/domain/report"
	"tradecouncil/pkg/errors"
)

func TestAnalysts_ProduceReports(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	a := h.analysts()
	ctx := context.Background()

	tests := []struct {
		name       string
		run        func(context.Context, string) (*report.Report, error)
		category   report.Category
		confidence float64
	}{
		{"market data", a.MarketData, report.CategoryMarketData, 0.85},
		{"sentiment", a.Sentiment, report.CategoryNewsSentiment, 0.80},
		{"technical", a.Technical, report.CategoryTechnical, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := tt.run(ctx, testSubject)
			require.NoError(t, err)

			assert.Equal(t, testSubject, rep.SubjectID)
			assert.Equal(t, tt.category, rep.Category)
			assert.InDelta(t, tt.confidence, rep.Confidence, 1e-9)
			assert.Equal(t, agentstest.Model, rep.ModelUsed)
			assert.Equal(t, testStart.Add(tt.category.TTL()), rep.ExpiresAt)
		})
	}

	var market MarketAnalysis
	rep, err := a.MarketData(ctx, testSubject)
	require.NoError(t, err)
	require.NoError(t, rep.Decode(&market))
	assert.Equal(t, "risk_on", market.MarketRegime)
}

func TestAnalysts_CacheHitSkipsInference(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	a := h.analysts()
	ctx := context.Background()

	first, err := a.Technical(ctx, testSubject)
	require.NoError(t, err)

	h.clock.Advance(4 * time.Minute)
	second, err := a.Technical(ctx, testSubject)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, h.infer.Calls(ai.TaskTechnicalAnalysis))

	// a different subject has its own entry
	_, err = a.Technical(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, h.infer.Calls(ai.TaskTechnicalAnalysis))
}

func TestAnalysts_ExpiredReportRecomputed(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	a := h.analysts()
	ctx := context.Background()

	first, err := a.MarketData(ctx, testSubject)
	require.NoError(t, err)

	h.clock.Advance(report.CategoryMarketData.TTL())
	second, err := a.MarketData(ctx, testSubject)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, h.infer.Calls(ai.TaskMarketAnalysis))
}

func TestAnalysts_ParseErrorAborts(t *testing.T) {
	h := newHarness(t, agentstest.Canned().Reply(ai.TaskSentimentAnalysis, agentstest.Malformed))

	rep, err := h.analysts().Sentiment(context.Background(), testSubject)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, errors.Is(err, errors.ErrParse))
	assert.Zero(t, h.cache.Len(), "failed stage must not be cached")
}

func TestAnalysts_InferenceErrorPropagates(t *testing.T) {
	cause := errors.NewInferenceError(errors.InferenceNetwork, "openai", "gpt", errors.New("connection reset"))
	h := newHarness(t, agentstest.Canned().Fail(ai.TaskMarketAnalysis, cause))

	_, err := h.analysts().MarketData(context.Background(), testSubject)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInference))
	assert.Zero(t, h.cache.Len())
}

type emptySource struct{}

func (emptySource) MarketConditions(context.Context, string) (*marketdata.MarketConditions, error) {
	return nil, nil
}

func (emptySource) News(context.Context, string) (*marketdata.NewsDigest, error) {
	return nil, nil
}

func (emptySource) Technical(context.Context, string) (*marketdata.TechnicalSnapshot, error) {
	return nil, errors.ErrUnavailable
}

func TestAnalysts_MissingInput(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	a := NewAnalysts(h.runner, emptySource{})
	ctx := context.Background()

	_, err := a.MarketData(ctx, testSubject)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = a.Sentiment(ctx, testSubject)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = a.Technical(ctx, testSubject)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))

	assert.Zero(t, h.infer.TotalCalls())
}

func TestAnalysts_PromptCarriesInstrument(t *testing.T) {
	h := newHarness(t, agentstest.Canned())

	_, err := h.analysts().Technical(context.Background(), testSubject)
	require.NoError(t, err)

	reqs := h.infer.Requests(ai.TaskTechnicalAnalysis)
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].SystemPrompt, "ES")
	assert.NotEmpty(t, reqs[0].UserPrompt)
	assert.InDelta(t, analystTemperature, reqs[0].Temperature, 1e-9)
}
