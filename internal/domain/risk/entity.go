package risk

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Severity of a risk issue
type Severity string

const (
	SeverityLow     Severity = "Low"
	SeverityMedium  Severity = "Medium"
	SeverityHigh    Severity = "High"
	SeverityExtreme Severity = "Extreme"
)

// Decision is the final verdict on a proposal
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
	DecisionModified Decision = "Modified"
	DecisionPending  Decision = "Pending"
)

// Level is a coarse Low/Medium/High rating
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// Issue is one identified risk factor
type Issue struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Mitigation  *string  `json:"mitigation,omitempty"`
}

// PortfolioImpact estimates how the trade changes account exposure
type PortfolioImpact struct {
	MaxDrawdownPct           float64 `json:"maxDrawdownPct"`
	PositionConcentrationPct float64 `json:"positionConcentrationPct"`
	CorrelationRisk          Level   `json:"correlationRisk"`
}

// FieldValue holds a suggested field value. Models emit numbers or strings
// interchangeably, so both decode into the same textual form.
type FieldValue string

func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FieldValue(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	*v = FieldValue(data)
	return nil
}

// Float parses the value as a number
func (v FieldValue) Float() (float64, bool) {
	f, err := strconv.ParseFloat(string(v), 64)
	return f, err == nil
}

// ModificationSuggestion proposes a change to one proposal field
type ModificationSuggestion struct {
	Field     string     `json:"field"`
	Current   FieldValue `json:"current"`
	Suggested FieldValue `json:"suggested"`
	Reason    string     `json:"reason"`
}

// Narrative is the model-produced risk commentary. It seeds an Assessment
// but its Decision is never used as the verdict.
type Narrative struct {
	// ProposalID is the proposal the commentary was written about
	ProposalID              *uuid.UUID               `json:"proposalId,omitempty"`
	RiskScore               float64                  `json:"riskScore"`
	Decision                Decision                 `json:"decision,omitempty"`
	Issues                  []Issue                  `json:"issues"`
	PortfolioImpact         PortfolioImpact          `json:"portfolioImpact"`
	BlindSpotAlerts         []string                 `json:"blindSpotAlerts"`
	ModificationSuggestions []ModificationSuggestion `json:"modificationSuggestions,omitempty"`
	Summary                 string                   `json:"summary"`
}

// About reports whether the narrative was written for proposal id
func (n Narrative) About(id uuid.UUID) bool {
	return n.ProposalID != nil && *n.ProposalID == id
}

// ConservativeNarrative stands in for an unparseable risk commentary
func ConservativeNarrative() Narrative {
	return Narrative{
		RiskScore: 0.5,
		Issues:    []Issue{},
		PortfolioImpact: PortfolioImpact{
			CorrelationRisk: LevelMedium,
		},
		BlindSpotAlerts: []string{},
		Summary:         "Risk commentary unavailable; hard limits applied.",
	}
}

// Assessment is the authoritative risk verdict for a proposal
type Assessment struct {
	ID                      uuid.UUID                `json:"id"`
	SubjectID               string                   `json:"subjectId"`
	ProposalID              *uuid.UUID               `json:"proposalId,omitempty"`
	RiskScore               float64                  `json:"riskScore"`
	Decision                Decision                 `json:"decision"`
	Issues                  []Issue                  `json:"issues"`
	PortfolioImpact         PortfolioImpact          `json:"portfolioImpact"`
	BlindSpotAlerts         []string                 `json:"blindSpotAlerts"`
	ModificationSuggestions []ModificationSuggestion `json:"modificationSuggestions,omitempty"`
	RejectionReason         *string                  `json:"rejectionReason,omitempty"`
	Summary                 string                   `json:"summary"`
	CreatedAt               time.Time                `json:"createdAt"`
}

// HasSeverity reports whether any issue carries the given severity
func (a *Assessment) HasSeverity(s Severity) bool {
	for _, i := range a.Issues {
		if i.Severity == s {
			return true
		}
	}
	return false
}
