package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradecouncil/internal/domain/proposal"
	domainRisk "tradecouncil/internal/domain/risk"
)

// MinRiskReward below which a directional proposal is flagged
var MinRiskReward = decimal.NewFromFloat(1.0)

var tightStopPct = decimal.NewFromFloat(0.25)

// ValidateProposal checks the structure of a directional proposal and
// returns Medium issues for anything inconsistent. It never decides.
func ValidateProposal(p *proposal.Proposal) []domainRisk.Issue {
	if p == nil || !p.Direction.Directional() {
		return nil
	}

	var issues []domainRisk.Issue
	add := func(category, description string) {
		issues = append(issues, domainRisk.Issue{
			Category:    category,
			Severity:    domainRisk.SeverityMedium,
			Description: description,
		})
	}

	if p.StopLoss == nil {
		add("structure", "Directional proposal has no stop loss.")
	}
	if p.EntryPrice == nil {
		add("structure", "Directional proposal has no entry price.")
	}
	if len(p.TakeProfitLevels) == 0 {
		add("structure", "Directional proposal has no take-profit level.")
	}

	if p.StopLoss != nil && p.EntryPrice != nil && *p.EntryPrice > 0 {
		entry := decimal.NewFromFloat(*p.EntryPrice)
		stop := decimal.NewFromFloat(*p.StopLoss)

		if p.Direction == proposal.DirectionLong && stop.GreaterThanOrEqual(entry) {
			add("structure", "Stop loss is not below entry for a long.")
		}
		if p.Direction == proposal.DirectionShort && stop.LessThanOrEqual(entry) {
			add("structure", "Stop loss is not above entry for a short.")
		}

		distance := entry.Sub(stop).Abs().Div(entry).Mul(decimal.NewFromInt(100))
		if distance.LessThan(tightStopPct) {
			add("execution", fmt.Sprintf("Stop is very tight at %s%% from entry and may be hit by noise.", distance.StringFixed(2)))
		}
	}

	if decimal.NewFromFloat(p.RiskRewardRatio).LessThan(MinRiskReward) {
		add("reward", fmt.Sprintf("Risk/reward of %.2f is below %s.", p.RiskRewardRatio, MinRiskReward.StringFixed(1)))
	}

	return issues
}
