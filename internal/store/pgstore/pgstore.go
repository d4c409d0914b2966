// Package pgstore is the PostgreSQL report repository, used when the service
// runs against a shared database instead of a local sqlite file.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/geo"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the reports table if needed. It mirrors the sqlite
// migrations.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS reports (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL CHECK (kind IN ('before', 'after')),
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'verified')),
	lat DOUBLE PRECISION,
	lng DOUBLE PRECISION,
	description TEXT NOT NULL DEFAULT '',
	contributor TEXT NOT NULL DEFAULT '',
	photo_key TEXT NOT NULL DEFAULT '',
	mime_type TEXT NOT NULL DEFAULT 'image/jpeg',
	assessment_category TEXT,
	assessment_volume TEXT,
	assessment_notes TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_kind_status ON reports(kind, status);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ReportStore implements the report repository on PostgreSQL.
type ReportStore struct {
	pool *pgxpool.Pool
}

// NewReportStore constructs a repository.
func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

const reportColumns = `id, kind, status, lat, lng, description, contributor, photo_key, mime_type,
	assessment_category, assessment_volume, assessment_notes, created_at, updated_at`

// Create inserts r and returns the stored row.
func (s *ReportStore) Create(ctx context.Context, r *domain.Report) (*domain.Report, error) {
	status := r.Status
	if status == "" {
		status = domain.StatusPending
	}
	var lat, lng *float64
	if r.Location != nil {
		lat, lng = &r.Location.Lat, &r.Location.Lng
	}
	now := time.Now().UTC()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO reports (kind, status, lat, lng, description, contributor, photo_key, mime_type, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+reportColumns,
		string(r.Kind), string(status), lat, lng, r.Description, r.Contributor, r.PhotoKey, r.MimeType, now, now)
	created, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return created, nil
}

// GetByID returns nil, nil when the report does not exist.
func (s *ReportStore) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select report: %w", err)
	}
	return r, nil
}

// List returns reports matching filter ordered by id.
func (s *ReportStore) List(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind=$%d", len(args)))
	}
	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*domain.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

// UpdateStatus sets status on all ids atomically.
func (s *ReportStore) UpdateStatus(ctx context.Context, status domain.Status, ids ...int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		for _, id := range ids {
			tag, err := tx.Exec(ctx, `UPDATE reports SET status=$1, updated_at=$2 WHERE id=$3`, string(status), now, id)
			if err := checkAffected(tag, err, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetAssessment stores the photo assessment for id.
func (s *ReportStore) SetAssessment(ctx context.Context, id int64, a *domain.Assessment) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reports
		SET assessment_category=$1, assessment_volume=$2, assessment_notes=$3, updated_at=$4
		WHERE id=$5
	`, a.Category, a.Volume, a.Notes, time.Now().UTC(), id)
	return checkAffected(tag, err, id)
}

// Delete removes all ids atomically.
func (s *ReportStore) Delete(ctx context.Context, ids ...int64) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, id := range ids {
			tag, err := tx.Exec(ctx, `DELETE FROM reports WHERE id=$1`, id)
			if err := checkAffected(tag, err, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func checkAffected(tag pgconn.CommandTag, err error, id int64) error {
	if err != nil {
		return fmt.Errorf("update report %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %d: %w", id, domain.ErrReportNotFound)
	}
	return nil
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var (
		r                       domain.Report
		kind, status            string
		lat, lng                *float64
		category, volume, notes *string
	)
	err := row.Scan(&r.ID, &kind, &status, &lat, &lng, &r.Description, &r.Contributor,
		&r.PhotoKey, &r.MimeType, &category, &volume, &notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Kind = domain.Kind(kind)
	r.Status = domain.Status(status)
	if lat != nil && lng != nil {
		r.Location = &geo.Coordinate{Lat: *lat, Lng: *lng}
	}
	if category != nil {
		r.Assessment = &domain.Assessment{Category: *category, Volume: deref(volume), Notes: deref(notes)}
	}
	return &r, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
