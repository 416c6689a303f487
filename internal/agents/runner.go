package agents

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/metrics"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
	"tradecouncil/pkg/templates"
)

// PromptRoles name the template directories the stages render
var PromptRoles = []string{
	"market_analyst",
	"news_analyst",
	"technical_analyst",
	"researcher",
	"debate_round",
	"debate_synthesis",
	"trader",
	"risk_manager",
}

// Deps are the collaborators shared by every stage
type Deps struct {
	Inferencer ai.Inferencer
	Cache      report.Cache
	Prompts    *templates.Registry
	Log        *logger.Logger
	Now        func() time.Time

	// DedupeInFlight collapses concurrent cache misses for the same
	// (subject, category) into one inference call.
	DedupeInFlight bool
}

// Runner executes the cache-check, prompt, inference, parse and store cycle
// common to all report-producing stages.
type Runner struct {
	infer   ai.Inferencer
	cache   report.Cache
	prompts *templates.Registry
	log     *logger.Logger
	now     func() time.Time
	flight  *singleflight.Group
}

// NewRunner validates deps and builds a Runner
func NewRunner(deps Deps) (*Runner, error) {
	if deps.Inferencer == nil {
		return nil, errors.NewConfigurationError("inferencer", nil)
	}
	if deps.Cache == nil {
		return nil, errors.NewConfigurationError("report cache", nil)
	}
	if deps.Prompts == nil {
		deps.Prompts = templates.Get()
	}
	if err := deps.Prompts.Validate(PromptRoles...); err != nil {
		return nil, errors.NewConfigurationError("prompts", err)
	}
	if deps.Log == nil {
		deps.Log = logger.Get()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := &Runner{
		infer:   deps.Inferencer,
		cache:   deps.Cache,
		prompts: deps.Prompts,
		log:     deps.Log.With("component", "agents"),
		now:     deps.Now,
	}
	if deps.DedupeInFlight {
		r.flight = &singleflight.Group{}
	}
	return r, nil
}

// stage describes one report-producing role
type stage struct {
	category    report.Category
	task        ai.Task
	prompt      string // template directory holding system.tmpl and user.tmpl
	temperature float64

	// scope narrows in-flight de-duplication below (subject, category)
	scope string

	// accept rejects a fresh cached report that was computed for other input
	accept func(*report.Report) bool

	// load gathers prompt input; it only runs on a cache miss
	load func(ctx context.Context) (*promptInput, error)
}

type promptInput struct {
	system any
	user   any

	// decode turns model text into the report payload and its confidence
	decode func(text string) (payload any, confidence float64, err error)
}

func (r *Runner) run(ctx context.Context, subject string, s stage) (*report.Report, error) {
	if cached := r.lookup(ctx, subject, s); cached != nil {
		return cached, nil
	}

	if r.flight == nil {
		return r.compute(ctx, subject, s)
	}

	key := subject + "|" + s.category.String()
	if s.scope != "" {
		key += "|" + s.scope
	}
	v, err, shared := r.flight.Do(key, func() (interface{}, error) {
		return r.compute(ctx, subject, s)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.log.Debugw("Shared in-flight report", "subject", subject, "category", s.category)
	}
	return v.(*report.Report), nil
}

// lookup treats backend errors and reports rejected by s.accept as a miss
func (r *Runner) lookup(ctx context.Context, subject string, s stage) *report.Report {
	category := s.category
	cached, err := r.cache.Get(ctx, subject, category)
	switch {
	case err != nil:
		metrics.RecordCacheLookup(category.String(), "error")
		r.log.Warnw("Report cache lookup failed, recomputing",
			"subject", subject, "category", category, "error", err)
		return nil
	case cached == nil || !cached.Fresh(r.now()):
		metrics.RecordCacheLookup(category.String(), "miss")
		r.log.Debugw("Report cache miss", "subject", subject, "category", category)
		return nil
	case s.accept != nil && !s.accept(cached):
		metrics.RecordCacheLookup(category.String(), "stale_input")
		r.log.Debugw("Cached report was computed for other input, recomputing",
			"subject", subject, "category", category, "report_id", cached.ID)
		return nil
	default:
		metrics.RecordCacheLookup(category.String(), "hit")
		r.log.Debugw("Report cache hit", "subject", subject, "category", category, "report_id", cached.ID)
		return cached
	}
}

func (r *Runner) compute(ctx context.Context, subject string, s stage) (*report.Report, error) {
	start := r.now()

	in, err := s.load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s input", s.category)
	}

	resp, err := r.complete(ctx, s.task, s.temperature, s.prompt, in.system, in.user)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", s.category)
	}

	payload, confidence, err := in.decode(resp.Text)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s payload", s.category)
	}

	rep := report.New(subject, s.category, raw, confidence, resp.Model, r.now().Sub(start), r.now())

	if err := r.cache.Put(ctx, subject, s.category, rep); err != nil {
		r.log.Warnw("Report cache write failed",
			"subject", subject, "category", s.category, "error", err)
	}

	r.log.Infow("Report computed",
		"subject", subject,
		"category", s.category,
		"model", rep.ModelUsed,
		"confidence", rep.Confidence,
		"latency_ms", rep.LatencyMs,
	)

	return rep, nil
}

// complete renders the system and user prompts under dir and runs one
// inference call. Usage is reported to the tracker in ctx.
func (r *Runner) complete(
	ctx context.Context,
	task ai.Task,
	temperature float64,
	dir string,
	system, user any,
) (*ai.Response, error) {
	systemPrompt, userPrompt, err := r.prompts.RenderPair(dir, system, user)
	if err != nil {
		return nil, errors.Wrap(err, "render prompts")
	}

	resp, err := r.infer.Infer(ctx, ai.Request{
		Task:         task,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  temperature,
	})
	if err != nil {
		return nil, err
	}

	UsageFromContext(ctx).Record(resp)
	return resp, nil
}
