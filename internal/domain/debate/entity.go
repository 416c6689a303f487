package debate

import (
	"math"
	"time"

	"github.com/google/uuid"

	"tradecouncil/internal/domain/research"
)

// MaxRounds is the fixed length of a full debate
const MaxRounds = 3

// ConsensusThreshold separates a directional recommendation from Neutral
const ConsensusThreshold = 0.2

// Recommendation is the debate's directional verdict
type Recommendation string

const (
	RecommendationBullish Recommendation = "Bullish"
	RecommendationBearish Recommendation = "Bearish"
	RecommendationNeutral Recommendation = "Neutral"
)

func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationBullish, RecommendationBearish, RecommendationNeutral:
		return true
	}
	return false
}

// Round is one bull/bear exchange scored by the moderator
type Round struct {
	RoundNumber  int     `json:"roundNumber"`
	BullArgument string  `json:"bullArgument"`
	BearRebuttal string  `json:"bearRebuttal"`
	BearArgument string  `json:"bearArgument"`
	BullRebuttal string  `json:"bullRebuttal"`
	RoundScore   float64 `json:"roundScore"` // -1 (bear) .. 1 (bull)
}

// FinalAssessment is the synthesized verdict over all rounds
type FinalAssessment struct {
	Recommendation Recommendation `json:"recommendation"`
	Confidence     int            `json:"confidence"` // 0..100
	Reasoning      string         `json:"reasoning"`
	KeyRisks       []string       `json:"keyRisks"`
}

// Result is produced by both the full debate and the quick-consensus path.
// Rounds is empty exactly when quick consensus ran.
type Result struct {
	ID              uuid.UUID       `json:"id"`
	SubjectID       string          `json:"subjectId"`
	InputReportIDs  []uuid.UUID     `json:"inputReportIds"`
	BullReport      research.Report `json:"bullReport"`
	BearReport      research.Report `json:"bearReport"`
	Rounds          []Round         `json:"rounds"`
	ConsensusScore  float64         `json:"consensusScore"`
	FinalAssessment FinalAssessment `json:"finalAssessment"`
	ModelUsed       string          `json:"modelUsed"`
	TotalLatencyMs  int64           `json:"totalLatencyMs"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// QuickConsensus reports whether the result came from the heuristic path
func (r *Result) QuickConsensus() bool {
	return len(r.Rounds) == 0
}

// DefaultRound substitutes for a round whose moderator output was unusable
func DefaultRound(n int) Round {
	return Round{
		RoundNumber:  n,
		BullArgument: "Price structure and momentum still support upside continuation.",
		BearRebuttal: "Momentum is fading and the move lacks broad participation.",
		BearArgument: "Macro headwinds and stretched positioning raise downside risk.",
		BullRebuttal: "Headwinds are known and largely priced in at current levels.",
		RoundScore:   0,
	}
}

// RecommendationFromScore maps a consensus score to a verdict
func RecommendationFromScore(score float64) Recommendation {
	switch {
	case score > ConsensusThreshold:
		return RecommendationBullish
	case score < -ConsensusThreshold:
		return RecommendationBearish
	default:
		return RecommendationNeutral
	}
}

// AssessmentFromScore is the deterministic fallback when synthesis fails
func AssessmentFromScore(score float64, keyRisks []string) FinalAssessment {
	if keyRisks == nil {
		keyRisks = []string{}
	}
	return FinalAssessment{
		Recommendation: RecommendationFromScore(score),
		Confidence:     ScoreConfidence(score),
		Reasoning:      "Assessment derived from the aggregate debate score; no synthesized reasoning was available.",
		KeyRisks:       keyRisks,
	}
}

// ScoreConfidence converts |score| to a 0..100 confidence
func ScoreConfidence(score float64) int {
	c := int(math.Round(math.Abs(score) * 100))
	if c > 100 {
		return 100
	}
	return c
}

// MeanScore averages round scores, 0 for no rounds
func MeanScore(rounds []Round) float64 {
	if len(rounds) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rounds {
		sum += r.RoundScore
	}
	return ClampScore(sum / float64(len(rounds)))
}

// ClampScore bounds a score to [-1,1]
func ClampScore(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
