package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradecouncil/internal/domain/proposal"
	"tradecouncil/internal/domain/psychology"
	domainRisk "tradecouncil/internal/domain/risk"
)

// Thresholds applied by Evaluate
var (
	MaxRiskScore       = 0.8
	MaxVIX             = 35.0
	DailyLossLimit     = decimal.NewFromFloat(-0.03)
	DefaultAccountSize = decimal.NewFromInt(50_000)
)

const (
	reasonRiskScore   = "risk score exceeds threshold"
	reasonExtreme     = "extreme risk factor identified"
	reasonDailyLoss   = "daily loss limit reached"
	timingCategory    = "timing"
	psychologyIssue   = "psychology"
	positionSizeField = "positionSize"
)

// Input is everything the rule engine decides on
type Input struct {
	Subject     string
	Proposal    *proposal.Proposal
	Narrative   domainRisk.Narrative
	Psychology  *psychology.Profile
	DailyPnL    *decimal.Decimal
	AccountSize *decimal.Decimal
	VIX         *float64
	Now         time.Time
}

// Evaluate produces the authoritative assessment. The narrative seeds the
// score, issues and impact; the decision comes only from these rules, in
// order:
//
//  1. flat proposal: Approved
//  2. risk score above MaxRiskScore: Rejected
//  3. any Extreme issue: Rejected
//  4. any High issue with modification suggestions: Modified
//  5. VIX above MaxVIX: Modified, adds a timing issue and halves the size
//  6. daily PnL below DailyLossLimit of the account: Rejected
//  7. otherwise Approved
//
// Rules 1 to 3 are final. Rule 6 overrides the outcome of rules 4 and 5.
func Evaluate(in Input) *domainRisk.Assessment {
	a := seed(in)

	a.BlindSpotAlerts = append(a.BlindSpotAlerts, in.Psychology.Alerts()...)

	switch {
	case in.Proposal == nil || in.Proposal.Direction == proposal.DirectionFlat:
		a.Decision = domainRisk.DecisionApproved
		return a
	case a.RiskScore > MaxRiskScore:
		return reject(a, reasonRiskScore)
	case a.HasSeverity(domainRisk.SeverityExtreme):
		return reject(a, reasonExtreme)
	}

	a.Decision = domainRisk.DecisionApproved

	switch {
	case a.HasSeverity(domainRisk.SeverityHigh) && len(a.ModificationSuggestions) > 0:
		a.Decision = domainRisk.DecisionModified
	case in.VIX != nil && *in.VIX > MaxVIX:
		applyVolatilityCut(a, in.Proposal, *in.VIX)
		a.Decision = domainRisk.DecisionModified
	}

	if ratio, breached := dailyLossBreached(in.DailyPnL, in.AccountSize); breached {
		a.Issues = append(a.Issues, domainRisk.Issue{
			Category: psychologyIssue,
			Severity: domainRisk.SeverityExtreme,
			Description: "Daily loss of " + ratio.Mul(decimal.NewFromInt(100)).StringFixed(2) +
				"% breaches the " + DailyLossLimit.Mul(decimal.NewFromInt(100)).StringFixed(0) +
				"% limit. Trading after a limit breach invites revenge trades.",
			Mitigation: strPtr("Stop trading for the day and review the session."),
		})
		return reject(a, reasonDailyLoss)
	}

	return a
}

func seed(in Input) *domainRisk.Assessment {
	n := in.Narrative

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	a := &domainRisk.Assessment{
		ID:                      uuid.New(),
		SubjectID:               in.Subject,
		RiskScore:               clamp01(n.RiskScore),
		Issues:                  append([]domainRisk.Issue{}, n.Issues...),
		PortfolioImpact:         n.PortfolioImpact,
		BlindSpotAlerts:         append([]string{}, n.BlindSpotAlerts...),
		ModificationSuggestions: append([]domainRisk.ModificationSuggestion(nil), n.ModificationSuggestions...),
		Summary:                 n.Summary,
		CreatedAt:               now.UTC(),
	}
	if a.PortfolioImpact.CorrelationRisk == "" {
		a.PortfolioImpact.CorrelationRisk = domainRisk.LevelLow
	}
	if in.Proposal != nil {
		id := in.Proposal.ID
		a.ProposalID = &id
		a.Issues = append(a.Issues, ValidateProposal(in.Proposal)...)
	}
	return a
}

func reject(a *domainRisk.Assessment, reason string) *domainRisk.Assessment {
	a.Decision = domainRisk.DecisionRejected
	a.RejectionReason = strPtr(reason)
	return a
}

func applyVolatilityCut(a *domainRisk.Assessment, p *proposal.Proposal, vix float64) {
	suggested := p.PositionSize / 2
	if suggested < 1 {
		suggested = 1
	}

	a.Issues = append(a.Issues, domainRisk.Issue{
		Category:    timingCategory,
		Severity:    domainRisk.SeverityHigh,
		Description: "VIX at " + decimal.NewFromFloat(vix).StringFixed(1) + " signals elevated volatility; reduce position size by 50%.",
		Mitigation:  strPtr("Trade half size or wait for volatility to settle."),
	})
	a.ModificationSuggestions = append(a.ModificationSuggestions, domainRisk.ModificationSuggestion{
		Field:     positionSizeField,
		Current:   domainRisk.FieldValue(decimal.NewFromInt(int64(p.PositionSize)).String()),
		Suggested: domainRisk.FieldValue(decimal.NewFromInt(int64(suggested)).String()),
		Reason:    "elevated volatility",
	})
}

// dailyLossBreached returns pnl/accountSize and whether it is below the limit
func dailyLossBreached(pnl, accountSize *decimal.Decimal) (decimal.Decimal, bool) {
	if pnl == nil {
		return decimal.Zero, false
	}

	size := DefaultAccountSize
	if accountSize != nil && accountSize.IsPositive() {
		size = *accountSize
	}

	ratio := pnl.Div(size)
	return ratio, ratio.LessThan(DailyLossLimit)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func strPtr(s string) *string {
	return &s
}
