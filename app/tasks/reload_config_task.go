package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type ReloadConfigTask struct {
	Task
	configs ConfigReloader
}

func NewReloadConfigTask(configs ConfigReloader, trigger Trigger) *ReloadConfigTask {
	return &ReloadConfigTask{
		Task:    NewTask(TaskTypeReloadConfig, trigger),
		configs: configs,
	}
}

func (t *ReloadConfigTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.configs.Run(); err != nil {
		slog.Error("Task failed", "type", string(t.Type), "error", err)
		return fmt.Errorf("failed to reload feed configurations: %w", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"trigger", string(t.Trigger),
		"configs", t.configs.GetConfigCount(),
		"duration", t.GetDuration())

	return nil
}
