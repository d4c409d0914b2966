package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TaskAssessReport is scheduled each time a report photo is submitted.
	TaskAssessReport = "report:assess"

	maxRetry = 5
)

// AssessPayload tells the worker which report photo to assess.
type AssessPayload struct {
	ReportID int64 `json:"report_id"`
}

// NewAssessTask builds the task for reportID.
func NewAssessTask(reportID int64) (*asynq.Task, error) {
	data, err := json.Marshal(AssessPayload{ReportID: reportID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TaskAssessReport, data, asynq.MaxRetry(maxRetry)), nil
}

// ParseAssessPayload decodes the payload of a TaskAssessReport task.
func ParseAssessPayload(task *asynq.Task) (AssessPayload, error) {
	var p AssessPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	if p.ReportID <= 0 {
		return p, fmt.Errorf("decode payload: invalid report id %d", p.ReportID)
	}
	return p, nil
}

// Enqueuer schedules assessment tasks on Redis.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueAssessment enqueues a photo assessment for reportID.
func (e *Enqueuer) EnqueueAssessment(ctx context.Context, reportID int64) error {
	task, err := NewAssessTask(reportID)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue assess task: %w", err)
	}
	return nil
}

// RedisOpt builds the asynq connection options shared by the client and the
// worker server.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
}
