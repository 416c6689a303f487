package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run is one analytics row per finished pipeline run
type Run struct {
	RunID          uuid.UUID `ch:"run_id"`
	SubjectID      string    `ch:"subject_id"`
	Mode           string    `ch:"mode"` // full, analysts
	Action         string    `ch:"action"`
	Direction      string    `ch:"direction"`
	Confidence     int32     `ch:"confidence"`
	ConsensusScore float64   `ch:"consensus_score"`
	QuickConsensus bool      `ch:"quick_consensus"`
	Decision       string    `ch:"decision"`
	RiskScore      float64   `ch:"risk_score"`
	InferenceCalls int64     `ch:"inference_calls"`
	LatencyMs      int64     `ch:"latency_ms"`
	Error          string    `ch:"error"`
	CompletedAt    time.Time `ch:"completed_at"`
}

// Sink receives finished runs. Implementations may buffer.
type Sink interface {
	Record(ctx context.Context, run Run) error
}
