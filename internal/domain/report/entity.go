package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Category identifies the pipeline role that produced a report
type Category string

const (
	CategoryMarketData      Category = "market_data"
	CategoryNewsSentiment   Category = "news_sentiment"
	CategoryTechnical       Category = "technical"
	CategoryBullishResearch Category = "bullish_research"
	CategoryBearishResearch Category = "bearish_research"
	CategoryTrader          Category = "trader"
	CategoryRiskManager     Category = "risk_manager"
)

// Categories lists every known category in pipeline order
var Categories = []Category{
	CategoryMarketData,
	CategoryNewsSentiment,
	CategoryTechnical,
	CategoryBullishResearch,
	CategoryBearishResearch,
	CategoryTrader,
	CategoryRiskManager,
}

var ttls = map[Category]time.Duration{
	CategoryMarketData:      5 * time.Minute,
	CategoryNewsSentiment:   15 * time.Minute,
	CategoryTechnical:       5 * time.Minute,
	CategoryBullishResearch: 30 * time.Minute,
	CategoryBearishResearch: 30 * time.Minute,
	CategoryTrader:          15 * time.Minute,
	CategoryRiskManager:     10 * time.Minute,
}

// TTL returns how long a report of this category stays fresh.
// Unknown categories get the shortest TTL.
func (c Category) TTL() time.Duration {
	if d, ok := ttls[c]; ok {
		return d
	}
	return 5 * time.Minute
}

func (c Category) Valid() bool {
	_, ok := ttls[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}

// Report is the persisted output of one pipeline role for one subject
type Report struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	SubjectID  string          `db:"subject_id" json:"subjectId"`
	Category   Category        `db:"category" json:"category"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	Confidence float64         `db:"confidence" json:"confidence"` // [0,1]
	ModelUsed  string          `db:"model_used" json:"modelUsed"`
	LatencyMs  int64           `db:"latency_ms" json:"latencyMs"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	ExpiresAt  time.Time       `db:"expires_at" json:"expiresAt"`
}

// New builds a report whose expiry is derived from the category TTL
func New(
	subject string,
	category Category,
	payload json.RawMessage,
	confidence float64,
	model string,
	latency time.Duration,
	now time.Time,
) *Report {
	now = now.UTC()
	return &Report{
		ID:         uuid.New(),
		SubjectID:  subject,
		Category:   category,
		Payload:    payload,
		Confidence: ClampConfidence(confidence),
		ModelUsed:  model,
		LatencyMs:  latency.Milliseconds(),
		CreatedAt:  now,
		ExpiresAt:  now.Add(category.TTL()),
	}
}

// Fresh reports whether the report can still be served from cache
func (r *Report) Fresh(now time.Time) bool {
	return r != nil && now.Before(r.ExpiresAt)
}

// Decode unmarshals the payload into v
func (r *Report) Decode(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

// ClampConfidence bounds a confidence value to [0,1]
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
