package agents

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradecouncil/internal/agents/agentstest"
	"tradecouncil/internal/datasource"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/report/reporttest"
	"tradecouncil/internal/repository/memory"
	"tradecouncil/pkg/logger"
)

const testSubject = "u1"

var testStart = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

type harness struct {
	infer  *agentstest.Inferencer
	cache  *memory.ReportCache
	clock  *reporttest.Clock
	runner *Runner
}

func newHarness(t *testing.T, infer *agentstest.Inferencer) *harness {
	t.Helper()
	return newHarnessWith(t, infer, func(*Deps) {})
}

func newHarnessWith(t *testing.T, infer *agentstest.Inferencer, configure func(*Deps)) *harness {
	t.Helper()

	clock := reporttest.NewClock(testStart)
	cache := memory.NewReportCache(clock.Now)

	deps := Deps{
		Inferencer: infer,
		Cache:      cache,
		Log:        logger.NewNop(),
		Now:        clock.Now,
	}
	configure(&deps)

	runner, err := NewRunner(deps)
	require.NoError(t, err)

	return &harness{infer: infer, cache: cache, clock: clock, runner: runner}
}

func (h *harness) analysts() *Analysts {
	return NewAnalysts(h.runner, datasource.NewFixed("ES", h.clock.Now))
}

// analystReports runs all three analysts and returns the research input
func (h *harness) analystReports(t *testing.T) ResearchInput {
	t.Helper()
	ctx := context.Background()
	a := h.analysts()

	market, err := a.MarketData(ctx, testSubject)
	require.NoError(t, err)
	sentiment, err := a.Sentiment(ctx, testSubject)
	require.NoError(t, err)
	technical, err := a.Technical(ctx, testSubject)
	require.NoError(t, err)

	return ResearchInput{
		Subject:    testSubject,
		Instrument: "ES",
		MarketData: market,
		Sentiment:  sentiment,
		Technical:  technical,
	}
}

// researchReport wraps a canned researcher reply the way a Researcher stores it
func researchReport(category report.Category, reply string, now time.Time) *report.Report {
	return report.New(testSubject, category, json.RawMessage(reply), 0.5, agentstest.Model, time.Millisecond, now)
}
