package agents

import (
	"context"

	"github.com/shopspring/decimal"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/domain/proposal"
	"tradecouncil/internal/domain/psychology"
	"tradecouncil/internal/domain/report"
	domainRisk "tradecouncil/internal/domain/risk"
	"tradecouncil/internal/metrics"
	"tradecouncil/internal/risk"
	"tradecouncil/pkg/errors"
)

const riskTemperature = 0.2

// RiskInput is the account context a proposal is judged against
type RiskInput struct {
	Subject     string
	Proposal    *proposal.Proposal
	Psychology  *psychology.Profile
	DailyPnL    *decimal.Decimal
	AccountSize *decimal.Decimal
	VIX         *float64
}

type riskPrompt struct {
	Proposal    *proposal.Proposal
	AccountSize float64
	DailyPnL    *float64
	VIX         *float64
	Alerts      []string
}

// RiskManager obtains a risk narrative and hands it to the rule engine.
// The narrative is cached per proposal; the decision is recomputed on every call.
type RiskManager struct {
	runner *Runner
}

func NewRiskManager(runner *Runner) *RiskManager {
	return &RiskManager{runner: runner}
}

// Assess returns the final assessment and the narrative report
func (m *RiskManager) Assess(ctx context.Context, in RiskInput) (*domainRisk.Assessment, *report.Report, error) {
	if in.Proposal == nil {
		return nil, nil, errors.NewValidationError("proposal", "proposal is required", nil)
	}

	rep, err := m.runner.run(ctx, in.Subject, stage{
		category:    report.CategoryRiskManager,
		task:        ai.TaskRiskNarrative,
		prompt:      "risk_manager",
		temperature: riskTemperature,
		scope:       in.Proposal.ID.String(),
		accept: func(cached *report.Report) bool {
			var n domainRisk.Narrative
			return cached.Decode(&n) == nil && n.About(in.Proposal.ID)
		},
		load: func(context.Context) (*promptInput, error) {
			return &promptInput{
				system: systemData{Instrument: in.Proposal.Instrument},
				user:   m.prompt(in),
				decode: func(text string) (any, float64, error) {
					n, err := ParseJSON("risk_manager", text,
						Default(domainRisk.ConservativeNarrative()).Observe(func(perr *errors.ParseError) {
							m.runner.log.Warnw("Risk narrative unparseable, using conservative default",
								"subject", in.Subject, "error", perr.Err)
						}))
					if err != nil {
						return nil, 0, err
					}
					id := in.Proposal.ID
					n.ProposalID = &id
					return n, 1 - clampUnit(n.RiskScore), nil
				},
			}, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}

	var narrative domainRisk.Narrative
	if err := rep.Decode(&narrative); err != nil {
		return nil, nil, errors.Wrapf(err, "decode risk report %s", rep.ID)
	}

	assessment := risk.Evaluate(risk.Input{
		Subject:     in.Subject,
		Proposal:    in.Proposal,
		Narrative:   narrative,
		Psychology:  in.Psychology,
		DailyPnL:    in.DailyPnL,
		AccountSize: in.AccountSize,
		VIX:         in.VIX,
		Now:         m.runner.now(),
	})

	metrics.RecordRiskDecision(string(assessment.Decision))
	m.runner.log.Infow("Risk assessed",
		"subject", in.Subject,
		"decision", assessment.Decision,
		"risk_score", assessment.RiskScore,
		"issues", len(assessment.Issues),
	)

	return assessment, rep, nil
}

func (m *RiskManager) prompt(in RiskInput) riskPrompt {
	accountSize := risk.DefaultAccountSize
	if in.AccountSize != nil && in.AccountSize.IsPositive() {
		accountSize = *in.AccountSize
	}

	p := riskPrompt{
		Proposal:    in.Proposal,
		AccountSize: accountSize.InexactFloat64(),
		VIX:         in.VIX,
		Alerts:      in.Psychology.Alerts(),
	}
	if in.DailyPnL != nil {
		pnl := in.DailyPnL.InexactFloat64()
		p.DailyPnL = &pnl
	}
	return p
}

func clampUnit(v float64) float64 {
	return report.ClampConfidence(v)
}
