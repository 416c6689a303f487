package agents

import (
	"context"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/internal/domain/report"
	"tradecouncil/pkg/errors"
)

const analystTemperature = 0.3

// MarketAnalysis is the market-conditions analyst payload
type MarketAnalysis struct {
	MarketRegime string    `json:"marketRegime"`
	Trend        string    `json:"trend"`
	Volatility   string    `json:"volatility"`
	KeyLevels    []float64 `json:"keyLevels"`
	Drivers      []string  `json:"drivers"`
	Summary      string    `json:"summary"`
}

// SentimentAnalysis is the news-sentiment analyst payload
type SentimentAnalysis struct {
	OverallSentiment   float64  `json:"overallSentiment"`
	Label              string   `json:"label"`
	Themes             []string `json:"themes"`
	MarketMovingEvents []string `json:"marketMovingEvents"`
	Summary            string   `json:"summary"`
}

// TechnicalSignal is one indicator reading
type TechnicalSignal struct {
	Indicator string `json:"indicator"`
	Signal    string `json:"signal"`
	Detail    string `json:"detail"`
}

// TechnicalAnalysis is the technical analyst payload
type TechnicalAnalysis struct {
	Trend      string            `json:"trend"`
	Momentum   string            `json:"momentum"`
	Signals    []TechnicalSignal `json:"signals"`
	Support    []float64         `json:"support"`
	Resistance []float64         `json:"resistance"`
	Bias       string            `json:"bias"`
	Summary    string            `json:"summary"`
}

// systemData feeds every system prompt
type systemData struct {
	Instrument string
	Timeframe  string
	Stance     string
}

// Analysts runs the three independent analyst roles against a DataSource
type Analysts struct {
	runner *Runner
	source marketdata.DataSource
}

func NewAnalysts(runner *Runner, source marketdata.DataSource) *Analysts {
	return &Analysts{runner: runner, source: source}
}

// MarketData produces the market-conditions report
func (a *Analysts) MarketData(ctx context.Context, subject string) (*report.Report, error) {
	return a.runner.run(ctx, subject, stage{
		category:    report.CategoryMarketData,
		task:        ai.TaskMarketAnalysis,
		prompt:      "market_analyst",
		temperature: analystTemperature,
		load: func(ctx context.Context) (*promptInput, error) {
			in, err := a.source.MarketConditions(ctx, subject)
			if err != nil {
				return nil, err
			}
			if in == nil {
				return nil, errors.Wrap(errors.ErrNotFound, "market conditions")
			}
			return &promptInput{
				system: systemData{Instrument: in.Instrument},
				user:   in,
				decode: func(text string) (any, float64, error) {
					payload, err := ParseJSON(report.CategoryMarketData.String(), text, Abort[MarketAnalysis]())
					if err != nil {
						return nil, 0, err
					}
					return payload, in.Completeness(), nil
				},
			}, nil
		},
	})
}

// Sentiment produces the news-sentiment report
func (a *Analysts) Sentiment(ctx context.Context, subject string) (*report.Report, error) {
	return a.runner.run(ctx, subject, stage{
		category:    report.CategoryNewsSentiment,
		task:        ai.TaskSentimentAnalysis,
		prompt:      "news_analyst",
		temperature: analystTemperature,
		load: func(ctx context.Context) (*promptInput, error) {
			in, err := a.source.News(ctx, subject)
			if err != nil {
				return nil, err
			}
			if in == nil {
				return nil, errors.Wrap(errors.ErrNotFound, "news digest")
			}
			return &promptInput{
				system: systemData{Instrument: in.Instrument},
				user:   in,
				decode: func(text string) (any, float64, error) {
					payload, err := ParseJSON(report.CategoryNewsSentiment.String(), text, Abort[SentimentAnalysis]())
					if err != nil {
						return nil, 0, err
					}
					return payload, in.Completeness(), nil
				},
			}, nil
		},
	})
}

// Technical produces the technical-analysis report
func (a *Analysts) Technical(ctx context.Context, subject string) (*report.Report, error) {
	return a.runner.run(ctx, subject, stage{
		category:    report.CategoryTechnical,
		task:        ai.TaskTechnicalAnalysis,
		prompt:      "technical_analyst",
		temperature: analystTemperature,
		load: func(ctx context.Context) (*promptInput, error) {
			in, err := a.source.Technical(ctx, subject)
			if err != nil {
				return nil, err
			}
			if in == nil {
				return nil, errors.Wrap(errors.ErrNotFound, "technical snapshot")
			}
			return &promptInput{
				system: systemData{Instrument: in.Instrument, Timeframe: in.Timeframe},
				user:   in,
				decode: func(text string) (any, float64, error) {
					payload, err := ParseJSON(report.CategoryTechnical.String(), text, Abort[TechnicalAnalysis]())
					if err != nil {
						return nil, 0, err
					}
					return payload, in.Completeness(), nil
				},
			}, nil
		},
	})
}
