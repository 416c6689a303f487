package pipeline

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradecouncil/internal/agents"
	"tradecouncil/internal/domain/debate"
	"tradecouncil/internal/domain/proposal"
	"tradecouncil/internal/domain/report"
	"tradecouncil/internal/domain/risk"
)

// Options tune a full pipeline run. Nil fields fall back to defaults.
type Options struct {
	// IncludeDebate runs the full moderated debate instead of quick consensus
	IncludeDebate   bool
	IncludeProposal bool

	CurrentPrice *float64
	VIXLevel     *float64
	AccountSize  *decimal.Decimal
	CurrentPnL   *decimal.Decimal
}

// Action is what the subject should do with the run's outcome
type Action string

const (
	ActionTrade Action = "Trade"
	ActionWait  Action = "Wait"
	ActionAvoid Action = "Avoid"
)

// Recommendation is the single verdict of a run
type Recommendation struct {
	Action     Action             `json:"action"`
	Direction  proposal.Direction `json:"direction"`
	Confidence int                `json:"confidence"`
}

// Result is the complete outcome of RunFullPipeline
type Result struct {
	RunID        uuid.UUID           `json:"runId"`
	SubjectID    string              `json:"subjectId"`
	Instrument   string              `json:"instrument"`
	MarketData   *report.Report      `json:"marketData"`
	Sentiment    *report.Report      `json:"sentiment"`
	Technical    *report.Report      `json:"technical"`
	BullResearch *report.Report      `json:"bullResearch"`
	BearResearch *report.Report      `json:"bearResearch"`
	Debate       *debate.Result      `json:"debate"`
	Proposal     *proposal.Proposal  `json:"proposal,omitempty"`
	Risk         *risk.Assessment    `json:"risk,omitempty"`
	Overall      Recommendation      `json:"overallRecommendation"`
	Usage        []agents.ModelUsage `json:"usage"`
	LatencyMs    int64               `json:"latencyMs"`
	CompletedAt  time.Time           `json:"completedAt"`
}

// AnalystsResult is the outcome of RunAnalystsOnly
type AnalystsResult struct {
	SubjectID  string         `json:"subjectId"`
	MarketData *report.Report `json:"marketData"`
	Sentiment  *report.Report `json:"sentiment"`
	Technical  *report.Report `json:"technical"`
	LatencyMs  int64          `json:"latencyMs"`
}

// Recommend derives the overall verdict:
//
//   - rejected by risk: Avoid, confidence 100 - riskScore*100
//   - flat proposal or |consensus| below the threshold: Wait
//   - otherwise Trade, in the proposal's direction or the sign of consensus
func Recommend(d *debate.Result, p *proposal.Proposal, a *risk.Assessment) Recommendation {
	var score float64
	var debateConfidence int
	if d != nil {
		score = d.ConsensusScore
		debateConfidence = d.FinalAssessment.Confidence
	}

	switch {
	case a != nil && a.Decision == risk.DecisionRejected:
		return Recommendation{
			Action:     ActionAvoid,
			Direction:  proposal.DirectionFlat,
			Confidence: int(math.Round(100 - a.RiskScore*100)),
		}
	case p != nil && p.Direction == proposal.DirectionFlat,
		math.Abs(score) < debate.ConsensusThreshold:
		return Recommendation{
			Action:     ActionWait,
			Direction:  proposal.DirectionFlat,
			Confidence: debateConfidence,
		}
	}

	rec := Recommendation{Action: ActionTrade, Confidence: debateConfidence}
	switch {
	case p != nil && p.Direction.Directional():
		rec.Direction = p.Direction
		rec.Confidence = p.Confidence
	case score > 0:
		rec.Direction = proposal.DirectionLong
	default:
		rec.Direction = proposal.DirectionShort
	}
	return rec
}
