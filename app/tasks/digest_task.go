package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newsletter-digest/app/pipeline"
)

type DigestTask struct {
	Task
	runner Runner
}

func NewDigestTask(runner Runner, trigger Trigger) *DigestTask {
	return &DigestTask{
		Task:   NewTask(TaskTypeDigestRun, trigger),
		runner: runner,
	}
}

// Execute runs the pipeline once. A run already in progress is not an
// error; a store failure is, so the scheduler retries it.
func (t *DigestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.runner.Run(ctx)
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		slog.Info("Digest run skipped, another run in progress", "id", t.ID, "trigger", string(t.Trigger))
		return nil
	}
	if err != nil {
		slog.Error("Task failed", "type", string(t.Type), "id", t.ID, "error", err)
		return fmt.Errorf("digest run failed: %w", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"trigger", string(t.Trigger),
		"run_id", report.RunID,
		"processed", report.Processed,
		"failed", report.Failed,
		"duration", t.GetDuration())

	return nil
}
