package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/geo"
)

type ReportStore struct {
	db *sql.DB
}

func NewReportStore(db *sql.DB) *ReportStore {
	return &ReportStore{db: db}
}

const reportColumns = `id, kind, status, lat, lng, description, contributor, photo_key, mime_type,
	assessment_category, assessment_volume, assessment_notes, created_at, updated_at`

// Create inserts r and returns the stored row. Status defaults to pending.
func (s *ReportStore) Create(ctx context.Context, r *domain.Report) (*domain.Report, error) {
	status := r.Status
	if status == "" {
		status = domain.StatusPending
	}
	var lat, lng sql.NullFloat64
	if r.Location != nil {
		lat = sql.NullFloat64{Float64: r.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: r.Location.Lng, Valid: true}
	}
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (kind, status, lat, lng, description, contributor, photo_key, mime_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Kind, status, lat, lng, r.Description, r.Contributor, r.PhotoKey, r.MimeType, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ReportStore) GetByID(ctx context.Context, id int64) (*domain.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return r, nil
}

// List returns reports matching filter in insertion order. Pairing relies on
// this order being stable.
func (s *ReportStore) List(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}

	query := `SELECT ` + reportColumns + ` FROM reports`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*domain.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

// UpdateStatus sets status on every id in one transaction. If any id is
// missing nothing is changed and domain.ErrReportNotFound is returned.
func (s *ReportStore) UpdateStatus(ctx context.Context, status domain.Status, ids ...int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, id := range ids {
			result, err := tx.ExecContext(ctx, `
				UPDATE reports SET status = ?, updated_at = ? WHERE id = ?
			`, status, now, id)
			if err != nil {
				return fmt.Errorf("failed to update report %d: %w", id, err)
			}
			if err := requireRow(result, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ReportStore) SetAssessment(ctx context.Context, id int64, a *domain.Assessment) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET assessment_category = ?, assessment_volume = ?, assessment_notes = ?, updated_at = ?
		WHERE id = ?
	`, a.Category, a.Volume, a.Notes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to store assessment: %w", err)
	}
	return requireRow(result, id)
}

// Delete removes every id in one transaction. If any id is missing nothing
// is removed and domain.ErrReportNotFound is returned.
func (s *ReportStore) Delete(ctx context.Context, ids ...int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			result, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("failed to delete report %d: %w", id, err)
			}
			if err := requireRow(result, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ReportStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func requireRow(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("report %d: %w", id, domain.ErrReportNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var (
		r                       domain.Report
		lat, lng                sql.NullFloat64
		category, volume, notes sql.NullString
	)
	err := row.Scan(&r.ID, &r.Kind, &r.Status, &lat, &lng, &r.Description, &r.Contributor,
		&r.PhotoKey, &r.MimeType, &category, &volume, &notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		r.Location = &geo.Coordinate{Lat: lat.Float64, Lng: lng.Float64}
	}
	if category.Valid {
		r.Assessment = &domain.Assessment{Category: category.String, Volume: volume.String, Notes: notes.String}
	}
	return &r, nil
}
