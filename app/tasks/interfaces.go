package tasks

import (
	"context"

	"github.com/lysyi3m/newsletter-digest/app/pipeline"
)

// TaskSchedulerInterface is the scheduler surface used by main and the API.
//
//	scheduler := NewScheduler(runner, configCache, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewDigestTask(runner, TriggerAPI))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Runner performs one digest run.
type Runner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

// ConfigReloader re-reads the feed source configuration from disk.
type ConfigReloader interface {
	Run() error
	GetConfigCount() int
}
