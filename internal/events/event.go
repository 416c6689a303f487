package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"tradecouncil/internal/pipeline"
	"tradecouncil/pkg/errors"
)

const (
	eventVersion = "1.0"
	eventSource  = "tradecouncil"

	TypePipelineCompleted = "pipeline.completed"
)

// CompletedEvent flattens a finished run into a protobuf Struct.
// Model-written strings are sanitized since protobuf rejects invalid UTF-8.
func CompletedEvent(res *pipeline.Result, occurredAt time.Time) (*structpb.Struct, error) {
	if res == nil {
		return nil, errors.New("nil pipeline result")
	}

	fields := map[string]interface{}{
		"id":          uuid.NewString(),
		"type":        TypePipelineCompleted,
		"source":      eventSource,
		"version":     eventVersion,
		"occurredAt":  occurredAt.UTC().Format(time.RFC3339Nano),
		"runId":       res.RunID.String(),
		"subjectId":   SanitizeUTF8(res.SubjectID),
		"instrument":  res.Instrument,
		"action":      string(res.Overall.Action),
		"direction":   string(res.Overall.Direction),
		"confidence":  res.Overall.Confidence,
		"latencyMs":   res.LatencyMs,
		"completedAt": res.CompletedAt.UTC().Format(time.RFC3339Nano),
		"usage":       usageList(res),
	}

	if d := res.Debate; d != nil {
		fields["debate"] = map[string]interface{}{
			"consensusScore": d.ConsensusScore,
			"recommendation": string(d.FinalAssessment.Recommendation),
			"confidence":     d.FinalAssessment.Confidence,
			"rounds":         len(d.Rounds),
			"quickConsensus": d.QuickConsensus(),
			"keyRisks":       stringList(d.FinalAssessment.KeyRisks),
		}
	}

	if p := res.Proposal; p != nil {
		proposal := map[string]interface{}{
			"id":           p.ID.String(),
			"direction":    string(p.Direction),
			"positionSize": p.PositionSize,
			"confidence":   p.Confidence,
			"rationale":    SanitizeUTF8(p.Rationale),
		}
		if p.EntryPrice != nil {
			proposal["entryPrice"] = *p.EntryPrice
		}
		if p.StopLoss != nil {
			proposal["stopLoss"] = *p.StopLoss
		}
		fields["proposal"] = proposal
	}

	if a := res.Risk; a != nil {
		risk := map[string]interface{}{
			"decision":  string(a.Decision),
			"riskScore": a.RiskScore,
			"issues":    len(a.Issues),
		}
		if a.RejectionReason != nil {
			risk["rejectionReason"] = *a.RejectionReason
		}
		fields["risk"] = risk
	}

	event, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "build pipeline completed event")
	}
	return event, nil
}

func usageList(res *pipeline.Result) []interface{} {
	out := make([]interface{}, 0, len(res.Usage))
	for _, u := range res.Usage {
		out = append(out, map[string]interface{}{
			"model":        u.Model,
			"provider":     u.Provider,
			"inputTokens":  u.InputTokens,
			"outputTokens": u.OutputTokens,
			"calls":        u.CallCount,
		})
	}
	return out
}

func stringList(in []string) []interface{} {
	out := make([]interface{}, 0, len(in))
	for _, s := range in {
		out = append(out, SanitizeUTF8(s))
	}
	return out
}

// SanitizeUTF8 drops invalid UTF-8 sequences
func SanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}
