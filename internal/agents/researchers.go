package agents

import (
	"bytes"
	"context"
	"encoding/json"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/research"
	"tradecouncil/pkg/errors"
)

const researchTemperature = 0.4

// ResearchInput is the analyst output a researcher argues from
type ResearchInput struct {
	Subject    string
	Instrument string
	MarketData *report.Report
	Sentiment  *report.Report
	Technical  *report.Report
}

type researchPrompt struct {
	Instrument          string
	Stance              string
	MarketData          string
	MarketConfidence    float64
	Sentiment           string
	SentimentConfidence float64
	Technical           string
	TechnicalConfidence float64
}

// Researcher argues one side of the trade regardless of what the data says
type Researcher struct {
	side   research.Side
	runner *Runner
}

func NewResearcher(side research.Side, runner *Runner) *Researcher {
	return &Researcher{side: side, runner: runner}
}

func (r *Researcher) Side() research.Side {
	return r.side
}

// Category is the report category this researcher produces
func (r *Researcher) Category() report.Category {
	if r.side == research.SideBear {
		return report.CategoryBearishResearch
	}
	return report.CategoryBullishResearch
}

func (r *Researcher) stance() string {
	if r.side == research.SideBear {
		return "bearish"
	}
	return "bullish"
}

// Run produces the researcher report. Confidence is conviction/100.
func (r *Researcher) Run(ctx context.Context, in ResearchInput) (*report.Report, error) {
	category := r.Category()

	return r.runner.run(ctx, in.Subject, stage{
		category:    category,
		task:        ai.TaskResearch,
		prompt:      "researcher",
		temperature: researchTemperature,
		load: func(context.Context) (*promptInput, error) {
			if in.MarketData == nil || in.Sentiment == nil || in.Technical == nil {
				return nil, errors.NewValidationError("analyst reports", "all three analyst reports are required", nil)
			}
			return &promptInput{
				system: systemData{Instrument: in.Instrument, Stance: r.stance()},
				user: researchPrompt{
					Instrument:          in.Instrument,
					Stance:              r.stance(),
					MarketData:          indentPayload(in.MarketData.Payload),
					MarketConfidence:    in.MarketData.Confidence,
					Sentiment:           indentPayload(in.Sentiment.Payload),
					SentimentConfidence: in.Sentiment.Confidence,
					Technical:           indentPayload(in.Technical.Payload),
					TechnicalConfidence: in.Technical.Confidence,
				},
				decode: func(text string) (any, float64, error) {
					rep, err := ParseJSON(category.String(), text, Abort[research.Report]())
					if err != nil {
						return nil, 0, err
					}
					rep.Normalize()
					return rep, float64(rep.Conviction) / 100, nil
				},
			}, nil
		},
	})
}

// DecodeResearch reads a researcher report payload
func DecodeResearch(rep *report.Report) (research.Report, error) {
	var out research.Report
	if rep == nil {
		return out, errors.Wrap(errors.ErrNotFound, "research report")
	}
	if err := rep.Decode(&out); err != nil {
		return out, errors.Wrapf(err, "decode %s report %s", rep.Category, rep.ID)
	}
	out.Normalize()
	return out, nil
}

func indentPayload(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
