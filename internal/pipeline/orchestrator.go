package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tradecouncil/internal/agents"
	"tradecouncil/internal/domain/analytics"
	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/internal/domain/proposal"
	"tradecouncil/internal/domain/psychology"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/research"
	"tradecouncil/internal/metrics"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
)

const (
	ModeFull     = "full"
	ModeAnalysts = "analysts"
)

// User-facing failure messages, one per stage
const (
	msgAnalysis = "Analysis failed"
	msgResearch = "Research failed"
	msgDebate   = "Debate failed"
	msgProposal = "Proposal generation failed"
	msgRisk     = "Risk assessment failed"
)

// Notifier is told about every successful full run
type Notifier interface {
	PipelineCompleted(ctx context.Context, res *Result) error
}

// Deps wires the orchestrator. Runner and Source are required.
type Deps struct {
	Runner     *agents.Runner
	Source     marketdata.DataSource
	Psychology psychology.Repository // optional
	Analytics  analytics.Sink        // optional
	Notifier   Notifier              // optional
	Log        *logger.Logger
	Now        func() time.Time

	Instrument         string
	DefaultAccountSize decimal.Decimal
}

// Orchestrator sequences the stages of a run. Stages within a fan-out are
// joined before the next starts; a failing sibling does not cancel the rest.
type Orchestrator struct {
	analysts   *agents.Analysts
	bull       *agents.Researcher
	bear       *agents.Researcher
	debate     *agents.Debate
	proposals  *agents.ProposalGenerator
	risk       *agents.RiskManager
	source     marketdata.DataSource
	psychology psychology.Repository
	analytics  analytics.Sink
	notifier   Notifier
	log        *logger.Logger
	now        func() time.Time

	instrument  string
	accountSize decimal.Decimal
}

func New(deps Deps) (*Orchestrator, error) {
	if deps.Runner == nil {
		return nil, errors.NewConfigurationError("stage runner", nil)
	}
	if deps.Source == nil {
		return nil, errors.NewConfigurationError("data source", nil)
	}
	if deps.Log == nil {
		deps.Log = logger.Get()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Instrument == "" {
		deps.Instrument = "ES"
	}

	return &Orchestrator{
		analysts:    agents.NewAnalysts(deps.Runner, deps.Source),
		bull:        agents.NewResearcher(research.SideBull, deps.Runner),
		bear:        agents.NewResearcher(research.SideBear, deps.Runner),
		debate:      agents.NewDebate(deps.Runner),
		proposals:   agents.NewProposalGenerator(deps.Runner),
		risk:        agents.NewRiskManager(deps.Runner),
		source:      deps.Source,
		psychology:  deps.Psychology,
		analytics:   deps.Analytics,
		notifier:    deps.Notifier,
		log:         deps.Log.With("component", "orchestrator"),
		now:         deps.Now,
		instrument:  deps.Instrument,
		accountSize: deps.DefaultAccountSize,
	}, nil
}

// RunAnalystsOnly runs the three analysts concurrently
func (o *Orchestrator) RunAnalystsOnly(ctx context.Context, subject string) (res *AnalystsResult, err error) {
	start := o.now()
	defer func() {
		metrics.RecordPipelineRun(ModeAnalysts, o.now().Sub(start), err)
		if err != nil {
			o.log.Capture(ctx, "Analysts run failed", err, failureTags(subject, ModeAnalysts, "", err))
		}
	}()

	ctx = agents.WithUsage(ctx, agents.NewUsageTracker())

	in, err := o.runAnalysts(ctx, subject)
	if err != nil {
		return nil, err
	}

	res = &AnalystsResult{
		SubjectID:  subject,
		MarketData: in.MarketData,
		Sentiment:  in.Sentiment,
		Technical:  in.Technical,
		LatencyMs:  o.now().Sub(start).Milliseconds(),
	}

	o.record(ctx, analytics.Run{
		RunID:          uuid.New(),
		SubjectID:      subject,
		Mode:           ModeAnalysts,
		InferenceCalls: agents.UsageFromContext(ctx).Calls(),
		LatencyMs:      res.LatencyMs,
		CompletedAt:    o.now().UTC(),
	})

	return res, nil
}

// RunFullPipeline runs analysts, researchers and the debate, then optionally
// the proposal and risk stages, and derives the overall recommendation.
// It returns a complete Result or a single *errors.PipelineError.
func (o *Orchestrator) RunFullPipeline(ctx context.Context, subject string, opts Options) (res *Result, err error) {
	start := o.now()
	runID := uuid.New()
	tracker := agents.NewUsageTracker()
	ctx = agents.WithUsage(ctx, tracker)

	log := o.log.With("subject", subject, "run_id", runID)
	defer func() {
		metrics.RecordPipelineRun(ModeFull, o.now().Sub(start), err)
		if err != nil {
			log.Capture(ctx, "Pipeline run failed", err, failureTags(subject, ModeFull, runID.String(), err))
		}
	}()

	analysts, err := o.runAnalysts(ctx, subject)
	if err != nil {
		return nil, err
	}

	bull, bear, err := o.runResearch(ctx, analysts)
	if err != nil {
		return nil, err
	}

	stageStart := o.now()
	result, err := o.debate.Run(ctx, agents.DebateInput{
		Subject:        subject,
		Instrument:     o.instrument,
		Bull:           bull,
		Bear:           bear,
		InputReportIDs: []uuid.UUID{bull.ID, bear.ID},
		Full:           opts.IncludeDebate,
	})
	if err != nil {
		return nil, errors.NewPipelineError("debate", msgDebate, err)
	}
	metrics.RecordStage("debate", o.now().Sub(stageStart))

	res = &Result{
		RunID:        runID,
		SubjectID:    subject,
		Instrument:   o.instrument,
		MarketData:   analysts.MarketData,
		Sentiment:    analysts.Sentiment,
		Technical:    analysts.Technical,
		BullResearch: bull,
		BearResearch: bear,
		Debate:       result,
	}

	if opts.IncludeProposal {
		if err := o.runProposal(ctx, res, analysts, opts); err != nil {
			return nil, err
		}
	}

	res.Overall = Recommend(res.Debate, res.Proposal, res.Risk)
	res.Usage = tracker.Snapshot()
	res.CompletedAt = o.now().UTC()
	res.LatencyMs = o.now().Sub(start).Milliseconds()

	log.Infow("Pipeline run completed",
		"action", res.Overall.Action,
		"direction", res.Overall.Direction,
		"confidence", res.Overall.Confidence,
		"inference_calls", tracker.Calls(),
		"latency_ms", res.LatencyMs,
	)

	o.record(ctx, runRow(res, tracker.Calls()))
	o.notify(ctx, res)

	return res, nil
}

func (o *Orchestrator) runAnalysts(ctx context.Context, subject string) (agents.ResearchInput, error) {
	start := o.now()
	in := agents.ResearchInput{Subject: subject, Instrument: o.instrument}

	var g errgroup.Group
	g.Go(func() (err error) {
		in.MarketData, err = o.analysts.MarketData(ctx, subject)
		return err
	})
	g.Go(func() (err error) {
		in.Sentiment, err = o.analysts.Sentiment(ctx, subject)
		return err
	})
	g.Go(func() (err error) {
		in.Technical, err = o.analysts.Technical(ctx, subject)
		return err
	})
	if err := g.Wait(); err != nil {
		return in, errors.NewPipelineError("analysts", msgAnalysis, err)
	}

	metrics.RecordStage("analysts", o.now().Sub(start))
	return in, nil
}

func (o *Orchestrator) runResearch(ctx context.Context, in agents.ResearchInput) (bull, bear *report.Report, err error) {
	start := o.now()

	var g errgroup.Group
	g.Go(func() (err error) {
		bull, err = o.bull.Run(ctx, in)
		return err
	})
	g.Go(func() (err error) {
		bear, err = o.bear.Run(ctx, in)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, errors.NewPipelineError("research", msgResearch, err)
	}

	metrics.RecordStage("research", o.now().Sub(start))
	return bull, bear, nil
}

// runProposal generates the proposal while the psychology profile is looked
// up, then runs the risk manager over both.
func (o *Orchestrator) runProposal(ctx context.Context, res *Result, in agents.ResearchInput, opts Options) error {
	start := o.now()

	var (
		p       *proposal.Proposal
		profile *psychology.Profile
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		p, _, err = o.proposals.Generate(ctx, agents.ProposalInput{
			Subject:      res.SubjectID,
			Instrument:   o.instrument,
			CurrentPrice: opts.CurrentPrice,
			MarketData:   in.MarketData,
			Sentiment:    in.Sentiment,
			Technical:    in.Technical,
			Debate:       res.Debate,
		})
		return err
	})
	g.Go(func() error {
		profile = o.findProfile(ctx, res.SubjectID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return errors.NewPipelineError("proposal", msgProposal, err)
	}
	metrics.RecordStage("proposal", o.now().Sub(start))

	start = o.now()
	accountSize := opts.AccountSize
	if accountSize == nil && o.accountSize.IsPositive() {
		accountSize = &o.accountSize
	}

	assessment, _, err := o.risk.Assess(ctx, agents.RiskInput{
		Subject:     res.SubjectID,
		Proposal:    p,
		Psychology:  profile,
		DailyPnL:    opts.CurrentPnL,
		AccountSize: accountSize,
		VIX:         o.vix(ctx, res.SubjectID, opts),
	})
	if err != nil {
		return errors.NewPipelineError("risk", msgRisk, err)
	}
	metrics.RecordStage("risk", o.now().Sub(start))

	res.Proposal = p
	res.Risk = assessment
	return nil
}

// findProfile treats a missing repository or lookup failure as no profile
func (o *Orchestrator) findProfile(ctx context.Context, subject string) *psychology.Profile {
	if o.psychology == nil {
		return nil
	}

	profile, err := o.psychology.Find(ctx, subject)
	switch {
	case err == nil:
		return profile
	case errors.Is(err, errors.ErrConfiguration), errors.Is(err, errors.ErrNotFound):
		o.log.Debugw("Psychology profile unavailable", "subject", subject, "error", err)
	default:
		o.log.Warnw("Psychology profile lookup failed, continuing without it", "subject", subject, "error", err)
	}
	return nil
}

// vix prefers the caller's level and falls back to the market input
func (o *Orchestrator) vix(ctx context.Context, subject string, opts Options) *float64 {
	if opts.VIXLevel != nil {
		return opts.VIXLevel
	}

	market, err := o.source.MarketConditions(ctx, subject)
	if err != nil {
		o.log.Warnw("Market conditions unavailable for risk VIX", "subject", subject, "error", err)
		return nil
	}
	if market == nil {
		return nil
	}
	return market.VIX
}

func (o *Orchestrator) record(ctx context.Context, run analytics.Run) {
	if o.analytics == nil {
		return
	}
	if err := o.analytics.Record(ctx, run); err != nil {
		o.log.Warnw("Failed to record pipeline run", "run_id", run.RunID, "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, res *Result) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.PipelineCompleted(ctx, res); err != nil {
		o.log.Warnw("Failed to publish pipeline completion", "run_id", res.RunID, "error", err)
	}
}

func runRow(res *Result, calls int64) analytics.Run {
	run := analytics.Run{
		RunID:          res.RunID,
		SubjectID:      res.SubjectID,
		Mode:           ModeFull,
		Action:         string(res.Overall.Action),
		Direction:      string(res.Overall.Direction),
		Confidence:     int32(res.Overall.Confidence),
		InferenceCalls: calls,
		LatencyMs:      res.LatencyMs,
		CompletedAt:    res.CompletedAt,
	}
	if res.Debate != nil {
		run.ConsensusScore = res.Debate.ConsensusScore
		run.QuickConsensus = res.Debate.QuickConsensus()
	}
	if res.Risk != nil {
		run.Decision = string(res.Risk.Decision)
		run.RiskScore = res.Risk.RiskScore
	}
	return run
}

// failureTags labels a failed run for the error tracker
func failureTags(subject, mode, runID string, err error) map[string]string {
	tags := map[string]string{
		errors.TagSubject: subject,
		errors.TagMode:    mode,
	}
	if runID != "" {
		tags[errors.TagRunID] = runID
	}
	var perr *errors.PipelineError
	if errors.As(err, &perr) {
		tags[errors.TagStage] = perr.Stage
	}
	return tags
}
