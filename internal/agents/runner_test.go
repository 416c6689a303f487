package agents

import (
	"context"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/agents/agentstest"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/repository/memory"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/templates"
)

func TestNewRunner_RequiresDeps(t *testing.T) {
	_, err := NewRunner(Deps{Cache: memory.NewReportCache(nil)})
	assert.True(t, errors.Is(err, errors.ErrConfiguration))

	_, err = NewRunner(Deps{Inferencer: agentstest.New()})
	assert.True(t, errors.Is(err, errors.ErrConfiguration))

	r, err := NewRunner(Deps{Inferencer: agentstest.New(), Cache: memory.NewReportCache(nil)})
	require.NoError(t, err)
	assert.NotNil(t, r.prompts)
	assert.Nil(t, r.flight)
}

func TestNewRunner_RejectsIncompletePrompts(t *testing.T) {
	prompts, err := templates.NewRegistryFromFS(fstest.MapFS{
		"trader/system.tmpl": {Data: []byte("You trade {{.Instrument}}.")},
		"trader/user.tmpl":   {Data: []byte("Propose.")},
	})
	require.NoError(t, err)

	_, err = NewRunner(Deps{Inferencer: agentstest.New(), Cache: memory.NewReportCache(nil), Prompts: prompts})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
	assert.Contains(t, err.Error(), "market_analyst/system")
}

type flakyCache struct {
	report.Cache
	getErr error
	putErr error
}

func (c flakyCache) Get(ctx context.Context, subject string, category report.Category) (*report.Report, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.Cache.Get(ctx, subject, category)
}

func (c flakyCache) Put(ctx context.Context, subject string, category report.Category, r *report.Report) error {
	if c.putErr != nil {
		return c.putErr
	}
	return c.Cache.Put(ctx, subject, category, r)
}

func TestRunner_CacheErrorsAreNotFatal(t *testing.T) {
	broken := errors.Wrap(errors.ErrUnavailable, "redis down")

	h := newHarnessWith(t, agentstest.Canned(), func(d *Deps) {
		d.Cache = flakyCache{Cache: d.Cache, getErr: broken, putErr: broken}
	})
	a := h.analysts()

	for i := 0; i < 2; i++ {
		rep, err := a.MarketData(context.Background(), testSubject)
		require.NoError(t, err)
		assert.NotNil(t, rep)
	}

	assert.Equal(t, 2, h.infer.Calls(ai.TaskMarketAnalysis))
	assert.Zero(t, h.cache.Len())
}

func TestRunner_DedupeInFlight(t *testing.T) {
	release := make(chan struct{})
	infer := agentstest.Canned()
	infer.Respond(ai.TaskMarketAnalysis, func(ai.Request) string {
		<-release
		return agentstest.MarketReply
	})

	h := newHarnessWith(t, infer, func(d *Deps) { d.DedupeInFlight = true })
	a := h.analysts()

	const callers = 5
	var wg sync.WaitGroup
	ids := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rep, err := a.MarketData(context.Background(), testSubject)
			if assert.NoError(t, err) {
				ids[i] = rep.ID.String()
			}
		}(i)
	}

	// late callers either join the flight or hit the cache
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, h.infer.Calls(ai.TaskMarketAnalysis))
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRunner_DedupeSharesErrors(t *testing.T) {
	h := newHarnessWith(t, agentstest.Canned().Reply(ai.TaskMarketAnalysis, agentstest.Malformed),
		func(d *Deps) { d.DedupeInFlight = true })

	_, err := h.analysts().MarketData(context.Background(), testSubject)
	assert.True(t, errors.Is(err, errors.ErrParse))
}

func TestRunner_RecordsUsage(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	tracker := NewUsageTracker()
	ctx := WithUsage(context.Background(), tracker)

	_, err := h.analysts().MarketData(ctx, "u2")
	require.NoError(t, err)
	_, err = h.analysts().Sentiment(ctx, "u2")
	require.NoError(t, err)
	// cached, no usage
	_, err = h.analysts().Sentiment(ctx, "u2")
	require.NoError(t, err)

	assert.Equal(t, int64(2), tracker.Calls())
	assert.Equal(t, []ModelUsage{{
		Model:        agentstest.Model,
		Provider:     string(ai.ProviderNameOpenAI),
		InputTokens:  200,
		OutputTokens: 100,
		CallCount:    2,
	}}, tracker.Snapshot())
}

func TestUsageTracker_NilSafe(t *testing.T) {
	var tracker *UsageTracker
	tracker.Record(&ai.Response{Model: "m"})
	assert.Zero(t, tracker.Calls())
	assert.Nil(t, tracker.Snapshot())
	assert.Nil(t, UsageFromContext(context.Background()))
}

func TestRunner_CancelledContext(t *testing.T) {
	h := newHarness(t, agentstest.Canned())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.analysts().MarketData(ctx, testSubject)
	assert.True(t, errors.Is(err, context.Canceled))
}
