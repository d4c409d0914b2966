package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vbonduro/prakriti/internal/config"
	"github.com/vbonduro/prakriti/internal/db"
	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/logging"
	"github.com/vbonduro/prakriti/internal/pairing"
	"github.com/vbonduro/prakriti/internal/photostore"
	"github.com/vbonduro/prakriti/internal/photostore/local"
	"github.com/vbonduro/prakriti/internal/photostore/s3"
	"github.com/vbonduro/prakriti/internal/queue"
	"github.com/vbonduro/prakriti/internal/service"
	"github.com/vbonduro/prakriti/internal/store"
	"github.com/vbonduro/prakriti/internal/store/pgstore"
	"github.com/vbonduro/prakriti/internal/vision"
	claudevision "github.com/vbonduro/prakriti/internal/vision/claude"
	ollamavision "github.com/vbonduro/prakriti/internal/vision/ollama"
)

type reportRepository interface {
	Create(ctx context.Context, r *domain.Report) (*domain.Report, error)
	GetByID(ctx context.Context, id int64) (*domain.Report, error)
	List(ctx context.Context, filter domain.ReportFilter) ([]*domain.Report, error)
	UpdateStatus(ctx context.Context, status domain.Status, ids ...int64) error
	SetAssessment(ctx context.Context, id int64, a *domain.Assessment) error
	Delete(ctx context.Context, ids ...int64) error
}

// app holds the process-wide dependencies shared by serve and worker.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	reports reportRepository
	closers []func()
}

func newApp(ctx context.Context, role string) (*app, error) {
	cfg := config.Load()

	logger, cleanup, err := logging.New(role, cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, closers: []func(){cleanup}}

	reports, err := a.openRepository(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reports = reports
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) openRepository(ctx context.Context) (reportRepository, error) {
	switch a.cfg.DBDriver {
	case "postgres":
		if a.cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
		pool, err := pgstore.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pgstore.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		a.logger.Info("using postgres report store")
		return pgstore.NewReportStore(pool), nil
	case "sqlite", "":
		database, err := db.Open(a.cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := database.Close(); err != nil {
				a.logger.Error("failed to close database", "error", err)
			}
		})
		a.logger.Info("using sqlite report store", "path", a.cfg.DBPath)
		return store.NewReportStore(database), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", a.cfg.DBDriver)
	}
}

func (a *app) newPhotoStore(ctx context.Context) (photostore.PhotoStore, error) {
	switch a.cfg.PhotoBackend {
	case "s3":
		stg, err := s3.New(s3.Options{
			Endpoint:  a.cfg.S3Endpoint,
			AccessKey: a.cfg.S3AccessKey,
			SecretKey: a.cfg.S3SecretKey,
			Bucket:    a.cfg.S3Bucket,
			Region:    a.cfg.S3Region,
			UseSSL:    a.cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize photo store: %w", err)
		}
		if err := stg.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		a.logger.Info("using s3 photo store", "endpoint", a.cfg.S3Endpoint, "bucket", a.cfg.S3Bucket)
		return stg, nil
	case "local", "":
		stg, err := local.NewLocalPhotoStore(a.cfg.PhotoPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize photo store: %w", err)
		}
		return stg, nil
	default:
		return nil, fmt.Errorf("unknown PHOTO_BACKEND %q", a.cfg.PhotoBackend)
	}
}

// newVisionAnalyzer returns nil when assessment is disabled.
func (a *app) newVisionAnalyzer() vision.WasteAnalyzer {
	switch a.cfg.VisionBackend {
	case "claude":
		if a.cfg.ClaudeAPIKey == "" {
			a.logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
			return nil
		}
		a.logger.Info("using Claude vision backend", "model", a.cfg.ClaudeModel)
		return claudevision.NewClaudeAnalyzer(a.cfg.ClaudeAPIKey, a.cfg.ClaudeModel)
	case "ollama":
		a.logger.Info("using Ollama vision backend", "model", a.cfg.OllamaModel)
		return ollamavision.NewOllamaAnalyzer(a.cfg.OllamaHost, a.cfg.OllamaModel)
	default:
		a.logger.Info("photo assessment disabled")
		return nil
	}
}

func (a *app) redisOpt() asynq.RedisClientOpt {
	return queue.RedisOpt(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
}

// newService wires the report service. Assessment is queued only when both a
// vision backend and Redis are configured.
func (a *app) newService(ctx context.Context) (*service.ReportService, error) {
	photoStg, err := a.newPhotoStore(ctx)
	if err != nil {
		return nil, err
	}

	analyzer := a.newVisionAnalyzer()
	var q *queue.Enqueuer
	if analyzer != nil && a.cfg.RedisAddr != "" {
		client := asynq.NewClient(a.redisOpt())
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Error("failed to close queue client", "error", err)
			}
		})
		q = queue.NewEnqueuer(client)
	}

	return service.NewReportService(
		a.reports,
		photoStg,
		analyzer,
		assessmentQueue(q),
		pairing.NewMatcher(a.cfg.PairThresholdMeters),
		a.logger,
	), nil
}

// assessmentQueue avoids handing the service a typed nil.
func assessmentQueue(q *queue.Enqueuer) interface {
	EnqueueAssessment(ctx context.Context, reportID int64) error
} {
	if q == nil {
		return nil
	}
	return q
}
