package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tradecouncil/internal/domain/report"
	"tradecouncil/pkg/errors"
)

// Compile-time check
var _ report.Store = (*ReportStore)(nil)

// ReportStore keeps the append-only report history in agent_reports
type ReportStore struct {
	db  DBTX
	now func() time.Time
}

// NewReportStore creates a new report store
func NewReportStore(db DBTX, now func() time.Time) *ReportStore {
	if now == nil {
		now = time.Now
	}
	return &ReportStore{db: db, now: now}
}

// Find returns the newest report of the category, or nil if it has expired
func (s *ReportStore) Find(ctx context.Context, subject string, category report.Category) (*report.Report, error) {
	var r report.Report

	query := `
		SELECT id, subject_id, category, payload, confidence, model_used, latency_ms, created_at, expires_at
		FROM agent_reports
		WHERE subject_id = $1 AND category = $2
		ORDER BY created_at DESC
		LIMIT 1`

	err := s.db.GetContext(ctx, &r, query, subject, category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find %s report for %s", category, subject)
	}

	if !r.Fresh(s.now()) {
		return nil, nil
	}
	return &r, nil
}

// Save appends the report; history is never updated in place
func (s *ReportStore) Save(ctx context.Context, subject string, category report.Category, r *report.Report) (*report.Report, error) {
	stored := *r
	stored.SubjectID = subject
	stored.Category = category

	query := `
		INSERT INTO agent_reports (
			id, subject_id, category, payload, confidence,
			model_used, latency_ms, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		stored.ID, stored.SubjectID, stored.Category, string(stored.Payload), stored.Confidence,
		stored.ModelUsed, stored.LatencyMs, stored.CreatedAt, stored.ExpiresAt,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "save %s report for %s", category, subject)
	}

	return &stored, nil
}

// List returns reports newest first
func (s *ReportStore) List(ctx context.Context, subject string, filter report.ListFilter) ([]*report.Report, error) {
	query := `
		SELECT id, subject_id, category, payload, confidence, model_used, latency_ms, created_at, expires_at
		FROM agent_reports
		WHERE subject_id = $1`
	args := []interface{}{subject}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	args = append(args, filter.EffectiveLimit())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var reports []*report.Report
	if err := s.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, errors.Wrapf(err, "list reports for %s", subject)
	}
	return reports, nil
}
