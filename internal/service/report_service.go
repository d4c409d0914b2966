package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/geo"
	"github.com/vbonduro/prakriti/internal/pairing"
	"github.com/vbonduro/prakriti/internal/photostore"
	"github.com/vbonduro/prakriti/internal/vision"
)

// reportRepository is the subset of the report stores that ReportService
// requires. Both the sqlite and postgres stores satisfy it.
type reportRepository interface {
	Create(ctx context.Context, r *domain.Report) (*domain.Report, error)
	GetByID(ctx context.Context, id int64) (*domain.Report, error)
	List(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error)
	UpdateStatus(ctx context.Context, status domain.Status, ids ...int64) error
	SetAssessment(ctx context.Context, id int64, a *domain.Assessment) error
	Delete(ctx context.Context, ids ...int64) error
}

// assessmentQueue schedules background photo assessment.
type assessmentQueue interface {
	EnqueueAssessment(ctx context.Context, reportID int64) error
}

const maxDescriptionLen = 2000

type ReportService struct {
	reports  reportRepository
	photoStg photostore.PhotoStore
	analyzer vision.WasteAnalyzer
	queue    assessmentQueue
	matcher  pairing.Matcher
	logger   *slog.Logger
}

// NewReportService wires the service. analyzer and queue may be nil, in which
// case submissions are not assessed.
func NewReportService(
	reports reportRepository,
	photoStg photostore.PhotoStore,
	analyzer vision.WasteAnalyzer,
	queue assessmentQueue,
	matcher pairing.Matcher,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		reports:  reports,
		photoStg: photoStg,
		analyzer: analyzer,
		queue:    queue,
		matcher:  matcher,
		logger:   logger,
	}
}

// Submission is a citizen's before or after photo of a site.
type Submission struct {
	Kind        domain.Kind
	Description string
	Contributor string
	Location    *geo.Coordinate
	Photo       []byte
	MimeType    string
}

func (s Submission) validate() error {
	if !s.Kind.Valid() {
		return invalid("kind", "must be before or after")
	}
	if len(s.Photo) == 0 {
		return invalid("image", "photo required")
	}
	if s.MimeType == "" {
		return invalid("image", "photo type unknown")
	}
	if s.Location == nil {
		return invalid("location", "location required")
	}
	if !s.Location.Valid() {
		return invalid("location", "latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	if s.Kind == domain.KindBefore && strings.TrimSpace(s.Description) == "" {
		return invalid("description", "description required")
	}
	if utf8.RuneCountInString(s.Description) > maxDescriptionLen {
		return invalid("description", "description too long")
	}
	return nil
}

// SubmitReport stores the photo and creates a pending report. If the report
// row cannot be written the stored photo is removed again.
func (s *ReportService) SubmitReport(ctx context.Context, sub Submission) (*domain.Report, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}
	s.logger.Info("submit report started", "kind", sub.Kind, "mime_type", sub.MimeType, "bytes", len(sub.Photo))

	storageKey, err := s.photoStg.Save(ctx, string(sub.Kind), sub.MimeType, bytes.NewReader(sub.Photo))
	if err != nil {
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}
	s.logger.Debug("photo saved", "storage_key", storageKey)

	report, err := s.reports.Create(ctx, &domain.Report{
		Kind:        sub.Kind,
		Status:      domain.StatusPending,
		Location:    sub.Location,
		Description: strings.TrimSpace(sub.Description),
		Contributor: strings.TrimSpace(sub.Contributor),
		PhotoKey:    storageKey,
		MimeType:    sub.MimeType,
	})
	if err != nil {
		if stgErr := s.photoStg.Delete(ctx, storageKey); stgErr != nil {
			s.logger.Error("failed to roll back photo after create error", "storage_key", storageKey, "error", stgErr)
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if s.queue != nil {
		if err := s.queue.EnqueueAssessment(ctx, report.ID); err != nil {
			s.logger.Error("failed to enqueue assessment", "report_id", report.ID, "error", err)
		}
	}

	s.logger.Info("submit report complete", "report_id", report.ID, "kind", report.Kind)
	return report, nil
}

func (s *ReportService) ListReports(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error) {
	return s.reports.List(ctx, filter)
}

func (s *ReportService) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if report == nil {
		return nil, ErrNotFound
	}
	return report, nil
}

// GetPhoto returns the report's photo. The caller must close the reader.
func (s *ReportService) GetPhoto(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if report.PhotoKey == "" {
		return nil, "", ErrNotFound
	}

	rc, mimeType, err := s.photoStg.Get(ctx, report.PhotoKey)
	if errors.Is(err, photostore.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read photo: %w", err)
	}
	if report.MimeType != "" {
		mimeType = report.MimeType
	}
	return rc, mimeType, nil
}

// AssessReport runs the photo assessor on a stored report and saves the
// result.
func (s *ReportService) AssessReport(ctx context.Context, id int64) (*domain.Assessment, error) {
	if s.analyzer == nil {
		return nil, ErrAssessmentDisabled
	}

	rc, mimeType, err := s.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			s.logger.Error("failed to close photo reader", "report_id", id, "error", cerr)
		}
	}()

	s.logger.Info("photo assessment started", "report_id", id)
	assessment, err := s.analyzer.Assess(ctx, rc, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to assess photo: %w", err)
	}

	if err := s.reports.SetAssessment(ctx, id, assessment); err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to store assessment: %w", err)
	}
	s.logger.Info("photo assessment complete", "report_id", id, "category", assessment.Category)
	return assessment, nil
}
