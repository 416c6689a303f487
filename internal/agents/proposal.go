package agents

import (
	"context"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/domain/debate"
	"tradecouncil/internal/domain/proposal"
	"tradecouncil/internal/domain/report"
	"tradecouncil/pkg/errors"
)

const proposalTemperature = 0.2

// ProposalInput is everything the trader sees
type ProposalInput struct {
	Subject      string
	Instrument   string
	CurrentPrice *float64
	MarketData   *report.Report
	Sentiment    *report.Report
	Technical    *report.Report
	Debate       *debate.Result
}

type proposalPrompt struct {
	Instrument   string
	CurrentPrice *float64
	MarketData   string
	Sentiment    string
	Technical    string
	Debate       *debate.Result
}

// ProposalGenerator turns the research into one trade proposal
type ProposalGenerator struct {
	runner *Runner
}

func NewProposalGenerator(runner *Runner) *ProposalGenerator {
	return &ProposalGenerator{runner: runner}
}

// Generate returns the normalized proposal and the trader report holding it.
// Unparseable output becomes a flat "insufficient conviction" proposal.
func (g *ProposalGenerator) Generate(ctx context.Context, in ProposalInput) (*proposal.Proposal, *report.Report, error) {
	rep, err := g.runner.run(ctx, in.Subject, stage{
		category:    report.CategoryTrader,
		task:        ai.TaskTradeProposal,
		prompt:      "trader",
		temperature: proposalTemperature,
		load: func(context.Context) (*promptInput, error) {
			if in.MarketData == nil || in.Sentiment == nil || in.Technical == nil || in.Debate == nil {
				return nil, errors.NewValidationError("proposal inputs", "analyst reports and debate result are required", nil)
			}
			return &promptInput{
				system: systemData{Instrument: in.Instrument},
				user: proposalPrompt{
					Instrument:   in.Instrument,
					CurrentPrice: in.CurrentPrice,
					MarketData:   indentPayload(in.MarketData.Payload),
					Sentiment:    indentPayload(in.Sentiment.Payload),
					Technical:    indentPayload(in.Technical.Payload),
					Debate:       in.Debate,
				},
				decode: func(text string) (any, float64, error) {
					now := g.runner.now()
					fallback := proposal.Insufficient(in.Subject, in.Instrument, now)

					p, err := ParseJSON("trader", text, Default(fallback).Observe(func(perr *errors.ParseError) {
						g.runner.log.Warnw("Trader output unparseable, proposing flat",
							"subject", in.Subject, "error", perr.Err)
					}))
					if err != nil {
						return nil, 0, err
					}
					if p == nil {
						p = fallback
					}
					p.Normalize(in.Subject, in.Instrument, now)
					return p, float64(p.Confidence) / 100, nil
				},
			}, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}

	var p proposal.Proposal
	if err := rep.Decode(&p); err != nil {
		return nil, nil, errors.Wrapf(err, "decode trader report %s", rep.ID)
	}
	p.Normalize(in.Subject, in.Instrument, g.runner.now())

	return &p, rep, nil
}
