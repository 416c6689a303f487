package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/agents/agentstest"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/research"
	"tradecouncil/pkg/errors"
)

func TestResearcher_ConfidenceIsConviction(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	in := h.analystReports(t)
	ctx := context.Background()

	bull, err := NewResearcher(research.SideBull, h.runner).Run(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, report.CategoryBullishResearch, bull.Category)
	assert.InDelta(t, 0.80, bull.Confidence, 1e-9)

	bear, err := NewResearcher(research.SideBear, h.runner).Run(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, report.CategoryBearishResearch, bear.Category)
	assert.InDelta(t, 0.40, bear.Confidence, 1e-9)

	decoded, err := DecodeResearch(bear)
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Conviction)
	assert.Equal(t, []string{"Crowded long positioning", "Low volume"}, decoded.RiskFactors)

	reqs := h.infer.Requests(ai.TaskResearch)
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[0].SystemPrompt, "bullish researcher")
	assert.Contains(t, reqs[1].SystemPrompt, "bearish researcher")
}

func TestResearcher_SidesCachedSeparately(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	in := h.analystReports(t)
	ctx := context.Background()

	bull := NewResearcher(research.SideBull, h.runner)
	bear := NewResearcher(research.SideBear, h.runner)

	for i := 0; i < 2; i++ {
		_, err := bull.Run(ctx, in)
		require.NoError(t, err)
		_, err = bear.Run(ctx, in)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, h.infer.Calls(ai.TaskResearch))
}

func TestResearcher_NormalizesOutOfRange(t *testing.T) {
	h := newHarness(t, agentstest.Canned().Reply(ai.TaskResearch,
		`{"thesis":"x","conviction":140,"arguments":[{"point":"p","evidence":"e","strength":15}]}`))
	in := h.analystReports(t)

	rep, err := NewResearcher(research.SideBull, h.runner).Run(context.Background(), in)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rep.Confidence, 1e-9)

	decoded, err := DecodeResearch(rep)
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Conviction)
	assert.Equal(t, 10, decoded.Arguments[0].Strength)
	assert.NotNil(t, decoded.RiskFactors)
}

func TestResearcher_RequiresAnalystReports(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	in := h.analystReports(t)
	in.Sentiment = nil
	calls := h.infer.TotalCalls()

	_, err := NewResearcher(research.SideBear, h.runner).Run(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Equal(t, calls, h.infer.TotalCalls())
}

func TestResearcher_ParseErrorAborts(t *testing.T) {
	h := newHarness(t, agentstest.Canned().Reply(ai.TaskResearch, agentstest.Malformed))
	in := h.analystReports(t)

	_, err := NewResearcher(research.SideBull, h.runner).Run(context.Background(), in)
	assert.True(t, errors.Is(err, errors.ErrParse))
}

func TestDecodeResearch_Nil(t *testing.T) {
	_, err := DecodeResearch(nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
