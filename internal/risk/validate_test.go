package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/domain/proposal"
	domainRisk "tradecouncil/internal/domain/risk"
)

func TestValidateProposal_WellFormed(t *testing.T) {
	assert.Empty(t, ValidateProposal(longProposal()))
}

func TestValidateProposal_IgnoresFlat(t *testing.T) {
	assert.Nil(t, ValidateProposal(&proposal.Proposal{Direction: proposal.DirectionFlat}))
	assert.Nil(t, ValidateProposal(nil))
}

func TestValidateProposal_Problems(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*proposal.Proposal)
		category string
		contains string
	}{
		{"missing stop", func(p *proposal.Proposal) { p.StopLoss = nil }, "structure", "no stop loss"},
		{"missing entry", func(p *proposal.Proposal) { p.EntryPrice = nil }, "structure", "no entry price"},
		{"missing target", func(p *proposal.Proposal) { p.TakeProfitLevels = nil }, "structure", "no take-profit"},
		{"long stop above entry", func(p *proposal.Proposal) { p.StopLoss = f64(5050) }, "structure", "not below entry"},
		{"short stop below entry", func(p *proposal.Proposal) { p.Direction = proposal.DirectionShort }, "structure", "not above entry"},
		{"tight stop", func(p *proposal.Proposal) { p.StopLoss = f64(4995) }, "execution", "very tight"},
		{"poor reward", func(p *proposal.Proposal) { p.RiskRewardRatio = 0.8 }, "reward", "below 1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := longProposal()
			tt.mutate(p)

			issues := ValidateProposal(p)
			require.NotEmpty(t, issues)

			var match *domainRisk.Issue
			for i := range issues {
				assert.Equal(t, domainRisk.SeverityMedium, issues[i].Severity)
				if issues[i].Category == tt.category {
					match = &issues[i]
				}
			}
			require.NotNil(t, match, "no %s issue in %+v", tt.category, issues)
			assert.Contains(t, match.Description, tt.contains)
		})
	}
}

func TestValidateProposal_NeverDecides(t *testing.T) {
	p := longProposal()
	p.StopLoss = nil
	p.RiskRewardRatio = 0.5

	a := Evaluate(Input{Subject: "u1", Proposal: p, Narrative: narrative(0.2), Now: now})

	assert.Equal(t, domainRisk.DecisionApproved, a.Decision)
	assert.Len(t, a.Issues, 2)
}
