package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/queue"
	"github.com/vbonduro/prakriti/internal/service"
)

type reportAssessor interface {
	AssessReport(ctx context.Context, id int64) (*domain.Assessment, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	assessor reportAssessor
	logger   *slog.Logger
}

func NewProcessor(assessor reportAssessor, logger *slog.Logger) *Processor {
	return &Processor{assessor: assessor, logger: logger}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskAssessReport, p.handleAssess)
	return mux
}

func (p *Processor) handleAssess(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseAssessPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	assessment, err := p.assessor.AssessReport(ctx, payload.ReportID)
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrAssessmentDisabled):
		// Rejected reports are deleted before their task runs.
		p.logger.Warn("assessment skipped", "report_id", payload.ReportID, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	case err != nil:
		p.logger.Error("assessment failed", "report_id", payload.ReportID, "error", err)
		return err
	}

	p.logger.Info("report assessed", "report_id", payload.ReportID, "category", assessment.Category)
	return nil
}

// NewServer returns an asynq server for the assessment queue.
func NewServer(redis asynq.RedisClientOpt, concurrency int, logger *slog.Logger) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Logger:      &asynqLogger{logger: logger},
	})
}

// asynqLogger routes asynq's internal logging to slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
