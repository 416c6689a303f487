package proposal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func TestInsufficientIsFlat(t *testing.T) {
	p := Insufficient("u1", "ES", now)

	assert.Equal(t, DirectionFlat, p.Direction)
	assert.Zero(t, p.Confidence)
	assert.Equal(t, InsufficientConviction, p.Rationale)
	assert.Nil(t, p.EntryPrice)
	assert.Nil(t, p.StopLoss)
	assert.Equal(t, 1, p.PositionSize)
	assert.NotNil(t, p.TakeProfitLevels)
	assert.NotEqual(t, uuid.Nil, p.ID)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    Proposal
		check func(t *testing.T, p *Proposal)
	}{
		{
			name: "flat clears prices",
			in:   Proposal{Direction: DirectionFlat, EntryPrice: ptr(5000), StopLoss: ptr(4980), Confidence: 80},
			check: func(t *testing.T, p *Proposal) {
				assert.Nil(t, p.EntryPrice)
				assert.Nil(t, p.StopLoss)
			},
		},
		{
			name: "low confidence long forced flat",
			in:   Proposal{Direction: DirectionLong, EntryPrice: ptr(5000), Confidence: 12, Rationale: "weak breakout"},
			check: func(t *testing.T, p *Proposal) {
				assert.Equal(t, DirectionFlat, p.Direction)
				assert.Nil(t, p.EntryPrice)
				assert.Contains(t, p.Rationale, InsufficientConviction)
			},
		},
		{
			name: "unknown direction forced flat",
			in:   Proposal{Direction: "Sideways", Confidence: 90},
			check: func(t *testing.T, p *Proposal) {
				assert.Equal(t, DirectionFlat, p.Direction)
			},
		},
		{
			name: "defaults size and levels",
			in:   Proposal{Direction: DirectionShort, Confidence: 70, EntryPrice: ptr(5010), RiskRewardRatio: -1},
			check: func(t *testing.T, p *Proposal) {
				assert.Equal(t, DirectionShort, p.Direction)
				assert.Equal(t, 1, p.PositionSize)
				assert.Equal(t, []float64{}, p.TakeProfitLevels)
				assert.Zero(t, p.RiskRewardRatio)
				assert.Equal(t, "u1", p.SubjectID)
				assert.Equal(t, "ES", p.Instrument)
			},
		},
		{
			name: "confidence clamped",
			in:   Proposal{Direction: DirectionLong, Confidence: 150},
			check: func(t *testing.T, p *Proposal) {
				assert.Equal(t, 100, p.Confidence)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize("u1", "ES", now)
			tt.check(t, &p)
		})
	}
}

func TestProposalJSONRoundTrip(t *testing.T) {
	in := Proposal{
		ID:               uuid.New(),
		SubjectID:        "u1",
		Instrument:       "ES",
		Direction:        DirectionLong,
		EntryPrice:       ptr(5002.25),
		StopLoss:         ptr(4989.5),
		TakeProfitLevels: []float64{5020, 5035.75},
		PositionSize:     2,
		RiskRewardRatio:  2.1,
		Confidence:       68,
		Rationale:        "pullback to VWAP inside uptrend",
		InputsSummary: InputsSummary{
			MarketData:        "risk-on",
			Sentiment:         "mildly positive",
			Technical:         "above 20 SMA",
			ResearchConsensus: "Bullish (0.46)",
		},
		Timeframe: "intraday",
		SetupType: "pullback",
		CreatedAt: now,
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Proposal
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Empty(t, cmp.Diff(in, out))
}
