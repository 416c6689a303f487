package agents

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tradecouncil/internal/adapters/ai"
	"tradecouncil/internal/domain/debate"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/research"
	"tradecouncil/internal/metrics"
	"tradecouncil/pkg/errors"
)

const (
	roundTemperature     = 0.6
	synthesisTemperature = 0.3

	// topArguments per side are quoted in every round prompt
	topArguments = 3
	maxKeyRisks  = 5

	// QuickConsensusModel marks results produced without inference
	QuickConsensusModel = "quick-consensus"
)

// DebateInput carries both researcher reports into the debate
type DebateInput struct {
	Subject        string
	Instrument     string
	Bull           *report.Report
	Bear           *report.Report
	InputReportIDs []uuid.UUID
	// Full runs MaxRounds moderated rounds; otherwise quick consensus is used
	Full bool
}

type roundPrompt struct {
	Round         int
	MaxRounds     int
	Bull          research.Report
	Bear          research.Report
	BullArguments []research.Argument
	BearArguments []research.Argument
	PriorRounds   []debate.Round
}

type synthesisPrompt struct {
	Instrument     string
	ConsensusScore float64
	Bull           research.Report
	Bear           research.Report
	Rounds         []debate.Round
}

// Debate runs the bull/bear exchange. Parse failures inside the debate fall
// back to deterministic defaults; inference failures are returned.
type Debate struct {
	runner *Runner
}

func NewDebate(runner *Runner) *Debate {
	return &Debate{runner: runner}
}

// Run produces a DebateResult. Rounds is empty exactly when in.Full is false.
func (d *Debate) Run(ctx context.Context, in DebateInput) (*debate.Result, error) {
	start := d.runner.now()

	bull, err := DecodeResearch(in.Bull)
	if err != nil {
		return nil, err
	}
	bear, err := DecodeResearch(in.Bear)
	if err != nil {
		return nil, err
	}

	result := &debate.Result{
		ID:             uuid.New(),
		SubjectID:      in.Subject,
		InputReportIDs: inputIDs(in),
		BullReport:     bull,
		BearReport:     bear,
		Rounds:         []debate.Round{},
	}

	if in.Full {
		if err := d.full(ctx, in, result); err != nil {
			return nil, err
		}
	} else {
		d.quick(result)
	}

	result.CreatedAt = d.runner.now().UTC()
	result.TotalLatencyMs = d.runner.now().Sub(start).Milliseconds()

	d.runner.log.Infow("Debate finished",
		"subject", in.Subject,
		"rounds", len(result.Rounds),
		"consensus_score", result.ConsensusScore,
		"recommendation", result.FinalAssessment.Recommendation,
		"latency_ms", result.TotalLatencyMs,
	)

	return result, nil
}

func (d *Debate) full(ctx context.Context, in DebateInput, result *debate.Result) error {
	bullTop := result.BullReport.TopArguments(topArguments)
	bearTop := result.BearReport.TopArguments(topArguments)

	for n := 1; n <= debate.MaxRounds; n++ {
		prompt := roundPrompt{
			Round:         n,
			MaxRounds:     debate.MaxRounds,
			Bull:          result.BullReport,
			Bear:          result.BearReport,
			BullArguments: bullTop,
			BearArguments: bearTop,
			PriorRounds:   result.Rounds,
		}

		resp, err := d.runner.complete(ctx, ai.TaskDebateModeration, roundTemperature,
			"debate_round", systemData{Instrument: in.Instrument}, prompt)
		if err != nil {
			return errors.Wrapf(err, "debate round %d", n)
		}

		round, err := ParseJSON(debateStage(n), resp.Text,
			Default(debate.DefaultRound(n)).Observe(d.fallback(in.Subject, "round")))
		if err != nil {
			return err
		}
		round.RoundNumber = n
		round.RoundScore = debate.ClampScore(round.RoundScore)

		result.Rounds = append(result.Rounds, round)
		result.ModelUsed = resp.Model
	}

	result.ConsensusScore = debate.MeanScore(result.Rounds)
	keyRisks := mergeRisks(result.BullReport, result.BearReport)

	resp, err := d.runner.complete(ctx, ai.TaskDebateSynthesis, synthesisTemperature,
		"debate_synthesis", systemData{Instrument: in.Instrument}, synthesisPrompt{
			Instrument:     in.Instrument,
			ConsensusScore: result.ConsensusScore,
			Bull:           result.BullReport,
			Bear:           result.BearReport,
			Rounds:         result.Rounds,
		})
	if err != nil {
		return errors.Wrap(err, "debate synthesis")
	}
	result.ModelUsed = resp.Model

	fallback := debate.AssessmentFromScore(result.ConsensusScore, keyRisks)
	assessment, err := ParseJSON("debate_synthesis", resp.Text,
		Default(fallback).Observe(d.fallback(in.Subject, "synthesis")))
	if err != nil {
		return err
	}
	if !assessment.Recommendation.Valid() {
		d.runner.log.Warnw("Debate synthesis returned unknown recommendation, using score",
			"subject", in.Subject, "recommendation", assessment.Recommendation)
		metrics.RecordDebateFallback("synthesis")
		assessment = fallback
	}
	assessment.Confidence = clampPercent(assessment.Confidence)
	if assessment.KeyRisks == nil {
		assessment.KeyRisks = keyRisks
	}

	result.FinalAssessment = assessment
	return nil
}

// quick scores each side as conviction weighted by mean argument strength
func (d *Debate) quick(result *debate.Result) {
	bullScore := float64(result.BullReport.Conviction) * result.BullReport.MeanStrength() / 10
	bearScore := float64(result.BearReport.Conviction) * result.BearReport.MeanStrength() / 10

	score := debate.ClampScore((bullScore - bearScore) / 100)

	result.ConsensusScore = score
	result.ModelUsed = QuickConsensusModel
	result.FinalAssessment = debate.FinalAssessment{
		Recommendation: debate.RecommendationFromScore(score),
		Confidence:     debate.ScoreConfidence(score),
		Reasoning:      "Quick consensus from researcher conviction and argument strength; no debate rounds were run.",
		KeyRisks:       mergeRisks(result.BullReport, result.BearReport),
	}
}

func (d *Debate) fallback(subject, kind string) func(*errors.ParseError) {
	return func(perr *errors.ParseError) {
		metrics.RecordDebateFallback(kind)
		d.runner.log.Warnw("Debate output unparseable, using default",
			"subject", subject, "kind", kind, "stage", perr.Stage, "error", perr.Err)
	}
}

func debateStage(n int) string {
	return "debate_round_" + strconv.Itoa(n)
}

func inputIDs(in DebateInput) []uuid.UUID {
	if len(in.InputReportIDs) > 0 {
		return in.InputReportIDs
	}
	ids := make([]uuid.UUID, 0, 2)
	if in.Bull != nil {
		ids = append(ids, in.Bull.ID)
	}
	if in.Bear != nil {
		ids = append(ids, in.Bear.ID)
	}
	return ids
}

// mergeRisks unions both sides' risk factors in order, bull first
func mergeRisks(bull, bear research.Report) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, maxKeyRisks)
	for _, list := range [][]string{bull.RiskFactors, bear.RiskFactors} {
		for _, r := range list {
			key := strings.ToLower(strings.TrimSpace(r))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
			if len(out) == maxKeyRisks {
				return out
			}
		}
	}
	return out
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
