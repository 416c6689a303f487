package agents

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/agents/agentstest"
	"tradecouncil/internal/domain/debate"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/research"
	"tradecouncil/pkg/errors"
)

func debateInput(full bool) DebateInput {
	return DebateInput{
		Subject:    testSubject,
		Instrument: "ES",
		Bull:       researchReport(report.CategoryBullishResearch, agentstest.BullReply, testStart),
		Bear:       researchReport(report.CategoryBearishResearch, agentstest.BearReply, testStart),
		Full:       full,
	}
}

func TestDebate_FullRun(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	in := debateInput(true)

	result, err := NewDebate(h.runner).Run(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, result.Rounds, debate.MaxRounds)
	for i, r := range result.Rounds {
		assert.Equal(t, i+1, r.RoundNumber)
	}
	assert.InDelta(t, 0.4, result.ConsensusScore, 1e-9)
	assert.Equal(t, debate.RecommendationBullish, result.FinalAssessment.Recommendation)
	assert.Equal(t, 68, result.FinalAssessment.Confidence)
	assert.Equal(t, []string{"FOMC surprise"}, result.FinalAssessment.KeyRisks)
	assert.Equal(t, agentstest.Model, result.ModelUsed)
	assert.False(t, result.QuickConsensus())

	assert.Equal(t, []uuid.UUID{in.Bull.ID, in.Bear.ID}, result.InputReportIDs)
	assert.Equal(t, 80, result.BullReport.Conviction)
	assert.Equal(t, 40, result.BearReport.Conviction)

	assert.Equal(t, debate.MaxRounds, h.infer.Calls(ai.TaskDebateModeration))
	assert.Equal(t, 1, h.infer.Calls(ai.TaskDebateSynthesis))
}

func TestDebate_LaterRoundsSeePriorRounds(t *testing.T) {
	h := newHarness(t, agentstest.Canned())

	_, err := NewDebate(h.runner).Run(context.Background(), debateInput(true))
	require.NoError(t, err)

	reqs := h.infer.Requests(ai.TaskDebateModeration)
	require.Len(t, reqs, 3)
	assert.NotContains(t, reqs[0].UserPrompt, "Breadth is narrowing under the surface.")
	assert.Contains(t, reqs[2].UserPrompt, "Breadth is narrowing under the surface.")
}

func TestDebate_MalformedRoundUsesDefault(t *testing.T) {
	h := newHarness(t, agentstest.Canned().
		Reply(ai.TaskDebateModeration, agentstest.RoundReply(0.6), agentstest.Malformed, agentstest.RoundReply(0.3)))

	result, err := NewDebate(h.runner).Run(context.Background(), debateInput(true))
	require.NoError(t, err)

	require.Len(t, result.Rounds, 3)
	assert.Equal(t, debate.DefaultRound(2), result.Rounds[1])
	assert.InDelta(t, 0.3, result.ConsensusScore, 1e-9)
}

func TestDebate_RoundScoreClamped(t *testing.T) {
	h := newHarness(t, agentstest.Canned().
		Reply(ai.TaskDebateModeration, agentstest.RoundReply(1.7), agentstest.RoundReply(-3)))

	result, err := NewDebate(h.runner).Run(context.Background(), debateInput(true))
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Rounds[0].RoundScore)
	assert.Equal(t, -1.0, result.Rounds[1].RoundScore)
	assert.Equal(t, -1.0, result.Rounds[2].RoundScore)
	assert.InDelta(t, -1.0/3, result.ConsensusScore, 1e-9)
}

func TestDebate_SynthesisFallback(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"malformed", agentstest.Malformed},
		{"unknown recommendation", `{"recommendation":"Strong Buy","confidence":90,"reasoning":"x","keyRisks":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, agentstest.Canned().Reply(ai.TaskDebateSynthesis, tt.reply))

			result, err := NewDebate(h.runner).Run(context.Background(), debateInput(true))
			require.NoError(t, err)

			fa := result.FinalAssessment
			assert.Equal(t, debate.RecommendationBullish, fa.Recommendation)
			assert.Equal(t, 40, fa.Confidence)
			assert.Equal(t, []string{"FOMC surprise", "Crowded long positioning", "Low volume"}, fa.KeyRisks)
		})
	}
}

func TestDebate_SynthesisWithoutRisksInheritsResearch(t *testing.T) {
	h := newHarness(t, agentstest.Canned().Reply(ai.TaskDebateSynthesis,
		`{"recommendation":"Neutral","confidence":150,"reasoning":"balanced"}`))

	result, err := NewDebate(h.runner).Run(context.Background(), debateInput(true))
	require.NoError(t, err)

	assert.Equal(t, debate.RecommendationNeutral, result.FinalAssessment.Recommendation)
	assert.Equal(t, 100, result.FinalAssessment.Confidence)
	assert.Len(t, result.FinalAssessment.KeyRisks, 3)
}

func TestDebate_QuickConsensus(t *testing.T) {
	h := newHarness(t, agentstest.New())
	in := debateInput(false)

	result, err := NewDebate(h.runner).Run(context.Background(), in)
	require.NoError(t, err)

	// bull 80*7/10=56, bear 40*2.5/10=10
	assert.InDelta(t, 0.46, result.ConsensusScore, 1e-9)
	assert.Equal(t, debate.RecommendationBullish, result.FinalAssessment.Recommendation)
	assert.Equal(t, 46, result.FinalAssessment.Confidence)
	assert.Equal(t, []string{"FOMC surprise", "Crowded long positioning", "Low volume"}, result.FinalAssessment.KeyRisks)
	assert.Equal(t, QuickConsensusModel, result.ModelUsed)
	assert.NotNil(t, result.Rounds)
	assert.Empty(t, result.Rounds)
	assert.True(t, result.QuickConsensus())
	assert.Equal(t, []uuid.UUID{in.Bull.ID, in.Bear.ID}, result.InputReportIDs)
	assert.Zero(t, h.infer.TotalCalls())
}

func TestDebate_QuickConsensusBearish(t *testing.T) {
	h := newHarness(t, agentstest.New())
	in := DebateInput{
		Subject: testSubject,
		Bull:    researchReport(report.CategoryBullishResearch, agentstest.BearReply, testStart),
		Bear:    researchReport(report.CategoryBearishResearch, agentstest.BullReply, testStart),
	}

	result, err := NewDebate(h.runner).Run(context.Background(), in)
	require.NoError(t, err)
	assert.InDelta(t, -0.46, result.ConsensusScore, 1e-9)
	assert.Equal(t, debate.RecommendationBearish, result.FinalAssessment.Recommendation)
}

func TestDebate_InferenceErrorIsFatal(t *testing.T) {
	cause := errors.NewInferenceError(errors.InferenceTimeout, "openai", "gpt", context.DeadlineExceeded)

	h := newHarness(t, agentstest.Canned().Fail(ai.TaskDebateSynthesis, cause))
	_, err := NewDebate(h.runner).Run(context.Background(), debateInput(true))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInference))

	h = newHarness(t, agentstest.Canned().Fail(ai.TaskDebateModeration, cause))
	_, err = NewDebate(h.runner).Run(context.Background(), debateInput(true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debate round 1")
	assert.Zero(t, h.infer.Calls(ai.TaskDebateSynthesis))
}

func TestDebate_MissingResearch(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	in := debateInput(true)
	in.Bear = nil

	_, err := NewDebate(h.runner).Run(context.Background(), in)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Zero(t, h.infer.TotalCalls())
}

func TestDebate_Latency(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	h.infer.Respond(ai.TaskDebateSynthesis, func(ai.Request) string {
		h.clock.Advance(2 * time.Second)
		return agentstest.SynthesisReply
	})

	result, err := NewDebate(h.runner).Run(context.Background(), debateInput(true))
	require.NoError(t, err)
	assert.Equal(t, int64(2000), result.TotalLatencyMs)
}

func TestMergeRisks(t *testing.T) {
	bull := debateResearch([]string{"A", "b", " ", "C"})
	bear := debateResearch([]string{"a", "D", "E", "F"})

	assert.Equal(t, []string{"A", "b", "C", "D", "E"}, mergeRisks(bull, bear))
	assert.Empty(t, mergeRisks(debateResearch(nil), debateResearch(nil)))
}

func debateResearch(risks []string) research.Report {
	return research.Report{RiskFactors: risks}
}
