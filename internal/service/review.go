package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/pairing"
)

// Pairs recomputes the before/after pairs among reports with status.
func (s *ReportService) Pairs(ctx context.Context, status domain.Status) ([]domain.Pair, error) {
	reports, err := s.reports.List(ctx, domain.ReportFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return s.matcher.FindMatchingPairs(reports, status), nil
}

// Dashboard returns the counts and review queue for officials.
func (s *ReportService) Dashboard(ctx context.Context) (*pairing.Summary, error) {
	reports, err := s.reports.List(ctx, domain.ReportFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	summary := s.matcher.Summarize(reports)
	return &summary, nil
}

// Approve verifies both halves of the pending pair keyed by pairID.
func (s *ReportService) Approve(ctx context.Context, pairID int64) (*domain.Pair, error) {
	pair, err := s.pendingPair(ctx, pairID)
	if err != nil {
		return nil, err
	}

	if err := s.reports.UpdateStatus(ctx, domain.StatusVerified, pair.Before.ID, pair.After.ID); err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return nil, ErrPairNotFound
		}
		return nil, fmt.Errorf("failed to approve pair: %w", err)
	}
	pair.Before.Status = domain.StatusVerified
	pair.After.Status = domain.StatusVerified

	s.logger.Info("pair approved", "pair_id", pairID, "before_id", pair.Before.ID, "after_id", pair.After.ID)
	return pair, nil
}

// Reject removes both halves of the pending pair keyed by pairID along with
// their photos. Photo removal failures are logged only.
func (s *ReportService) Reject(ctx context.Context, pairID int64) error {
	pair, err := s.pendingPair(ctx, pairID)
	if err != nil {
		return err
	}

	if err := s.reports.Delete(ctx, pair.Before.ID, pair.After.ID); err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return ErrPairNotFound
		}
		return fmt.Errorf("failed to reject pair: %w", err)
	}

	for _, r := range []*domain.Report{pair.Before, pair.After} {
		if r.PhotoKey == "" {
			continue
		}
		if err := s.photoStg.Delete(ctx, r.PhotoKey); err != nil {
			s.logger.Error("failed to delete photo file", "report_id", r.ID, "storage_key", r.PhotoKey, "error", err)
		}
	}

	s.logger.Info("pair rejected", "pair_id", pairID, "before_id", pair.Before.ID, "after_id", pair.After.ID)
	return nil
}

func (s *ReportService) pendingPair(ctx context.Context, pairID int64) (*domain.Pair, error) {
	pairs, err := s.Pairs(ctx, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	for i := range pairs {
		if pairs[i].ID == pairID {
			return &pairs[i], nil
		}
	}
	return nil, ErrPairNotFound
}

// Marker colours follow the review state of the report.
const (
	MarkerColorPending  = "#F59E0B"
	MarkerColorVerified = "#10B981"
)

// Marker is a report placed on the review map.
type Marker struct {
	ReportID    int64         `json:"report_id"`
	Kind        domain.Kind   `json:"kind"`
	Status      domain.Status `json:"status"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	Description string        `json:"description"`
	Color       string        `json:"color"`
}

// MapMarkers returns a marker for every located report with status, or for
// every located report when status is empty.
func (s *ReportService) MapMarkers(ctx context.Context, status domain.Status) ([]Marker, error) {
	reports, err := s.reports.List(ctx, domain.ReportFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	markers := make([]Marker, 0, len(reports))
	for _, r := range reports {
		if !r.Location.Valid() {
			continue
		}
		color := MarkerColorPending
		if r.Status == domain.StatusVerified {
			color = MarkerColorVerified
		}
		desc := r.Description
		if desc == "" {
			desc = "Report"
		}
		markers = append(markers, Marker{
			ReportID:    r.ID,
			Kind:        r.Kind,
			Status:      r.Status,
			Lat:         r.Location.Lat,
			Lng:         r.Location.Lng,
			Description: desc,
			Color:       color,
		})
	}
	return markers, nil
}
