package proposal

import (
	"time"

	"github.com/google/uuid"
)

// Direction of a proposed trade
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
	DirectionFlat  Direction = "Flat"
)

func (d Direction) Directional() bool {
	return d == DirectionLong || d == DirectionShort
}

// MinConviction is the confidence below which a proposal is forced flat
const MinConviction = 30

// InsufficientConviction is the rationale attached to forced-flat proposals
const InsufficientConviction = "insufficient conviction"

// InputsSummary records one-line digests of what the proposal was built from
type InputsSummary struct {
	MarketData        string `json:"marketData"`
	Sentiment         string `json:"sentiment"`
	Technical         string `json:"technical"`
	ResearchConsensus string `json:"researchConsensus"`
}

// Proposal is the trader's structured trade idea
type Proposal struct {
	ID               uuid.UUID     `json:"id"`
	SubjectID        string        `json:"subjectId"`
	Instrument       string        `json:"instrument"`
	Direction        Direction     `json:"direction"`
	EntryPrice       *float64      `json:"entryPrice"`
	StopLoss         *float64      `json:"stopLoss"`
	TakeProfitLevels []float64     `json:"takeProfitLevels"`
	PositionSize     int           `json:"positionSize"`
	RiskRewardRatio  float64       `json:"riskRewardRatio"`
	Confidence       int           `json:"confidence"`
	Rationale        string        `json:"rationale"`
	InputsSummary    InputsSummary `json:"inputsSummary"`
	Timeframe        string        `json:"timeframe"`
	SetupType        string        `json:"setupType"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// Insufficient is the safe proposal used when the trader output is unusable
func Insufficient(subject, instrument string, now time.Time) *Proposal {
	p := &Proposal{
		SubjectID:  subject,
		Instrument: instrument,
		Direction:  DirectionFlat,
		Confidence: 0,
		Rationale:  InsufficientConviction,
	}
	p.Normalize(subject, instrument, now)
	return p
}

// Normalize enforces the proposal invariants regardless of model output.
// Missing identity fields are filled from subject, instrument and now.
func (p *Proposal) Normalize(subject, instrument string, now time.Time) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.SubjectID == "" {
		p.SubjectID = subject
	}
	if p.Instrument == "" {
		p.Instrument = instrument
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now.UTC()
	}

	switch {
	case p.Confidence < 0:
		p.Confidence = 0
	case p.Confidence > 100:
		p.Confidence = 100
	}

	if !p.Direction.Directional() || p.Confidence < MinConviction {
		if p.Direction.Directional() {
			p.Rationale = InsufficientConviction + ": " + p.Rationale
		}
		p.Direction = DirectionFlat
	}

	if p.Direction == DirectionFlat {
		p.EntryPrice = nil
		p.StopLoss = nil
	}
	if p.PositionSize < 1 {
		p.PositionSize = 1
	}
	if p.TakeProfitLevels == nil {
		p.TakeProfitLevels = []float64{}
	}
	if p.RiskRewardRatio < 0 {
		p.RiskRewardRatio = 0
	}
	if p.Rationale == "" && p.Direction == DirectionFlat {
		p.Rationale = InsufficientConviction
	}
}
