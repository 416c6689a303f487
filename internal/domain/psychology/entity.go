package psychology

import (
	"context"
	"time"
)

// Profile holds behavioural-bias scores for a subject, each in [0,1].
// Higher means the bias was observed more often in the subject's history.
type Profile struct {
	SubjectID           string    `db:"subject_id" json:"subjectId"`
	FomoScore           float64   `db:"fomo_score" json:"fomoScore"`
	RevengeTradingScore float64   `db:"revenge_trading_score" json:"revengeTradingScore"`
	OvertradingScore    float64   `db:"overtrading_score" json:"overtradingScore"`
	LossAversionScore   float64   `db:"loss_aversion_score" json:"lossAversionScore"`
	DisciplineScore     float64   `db:"discipline_score" json:"disciplineScore"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// Neutral is the profile assumed when none is on record
func Neutral(subject string) *Profile {
	return &Profile{
		SubjectID:       subject,
		DisciplineScore: 0.5,
	}
}

// AlertThreshold marks a bias score worth surfacing
const AlertThreshold = 0.7

// Alerts returns blind-spot warnings for biases at or above AlertThreshold
func (p *Profile) Alerts() []string {
	if p == nil {
		return nil
	}
	var alerts []string
	if p.FomoScore >= AlertThreshold {
		alerts = append(alerts, "History of FOMO entries: confirm the setup was planned before the move.")
	}
	if p.RevengeTradingScore >= AlertThreshold {
		alerts = append(alerts, "Revenge-trading pattern after losses: check whether this trade follows a recent loss.")
	}
	if p.OvertradingScore >= AlertThreshold {
		alerts = append(alerts, "Overtrading tendency: count today's trades against your plan.")
	}
	if p.LossAversionScore >= AlertThreshold {
		alerts = append(alerts, "Loss aversion: commit to the stop loss before entry.")
	}
	return alerts
}

// Repository is the read-only profile store.
// Find returns nil, nil when the subject has no profile.
type Repository interface {
	Find(ctx context.Context, subject string) (*Profile, error)
}
