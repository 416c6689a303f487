package postgres

import (
	"context"
	"database/sql"

	"tradecouncil/internal/domain/psychology"
	"tradecouncil/pkg/errors"
)

// Compile-time check
var _ psychology.Repository = (*PsychologyRepository)(nil)

// PsychologyRepository reads psychology_profiles. Profiles are maintained
// by the journaling side of the product, never by the pipeline.
type PsychologyRepository struct {
	db DBTX
}

func NewPsychologyRepository(db DBTX) *PsychologyRepository {
	return &PsychologyRepository{db: db}
}

func (r *PsychologyRepository) Find(ctx context.Context, subject string) (*psychology.Profile, error) {
	var p psychology.Profile

	query := `
		SELECT subject_id, fomo_score, revenge_trading_score, overtrading_score,
		       loss_aversion_score, discipline_score, updated_at
		FROM psychology_profiles
		WHERE subject_id = $1`

	err := r.db.GetContext(ctx, &p, query, subject)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find psychology profile for %s", subject)
	}
	return &p, nil
}

// Upsert stores a profile; used by seeding and tests
func (r *PsychologyRepository) Upsert(ctx context.Context, p *psychology.Profile) error {
	query := `
		INSERT INTO psychology_profiles (
			subject_id, fomo_score, revenge_trading_score, overtrading_score,
			loss_aversion_score, discipline_score, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (subject_id) DO UPDATE SET
			fomo_score = $2,
			revenge_trading_score = $3,
			overtrading_score = $4,
			loss_aversion_score = $5,
			discipline_score = $6,
			updated_at = $7`

	_, err := r.db.ExecContext(ctx, query,
		p.SubjectID, p.FomoScore, p.RevengeTradingScore, p.OvertradingScore,
		p.LossAversionScore, p.DisciplineScore, p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert psychology profile for %s", p.SubjectID)
	}
	return nil
}
