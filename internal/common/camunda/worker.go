// internal/common/camunda/worker.go
package camunda

import (
	"benefit-orchestrator/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// HandlerFunc is the signature every task handler exposes.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// Registration binds a task type to its handler.
type Registration struct {
	TaskType string
	Handler  HandlerFunc
}

// OpenWorkers opens a job worker for every enabled registration and returns them for shutdown.
func OpenWorkers(client zbc.Client, cfg *config.Config, regs []Registration, log *zap.Logger) []worker.JobWorker {
	workers := make([]worker.JobWorker, 0, len(regs))
	for _, reg := range regs {
		if !config.IsWorkerEnabled(cfg, reg.TaskType) {
			log.Info("worker disabled", zap.String("taskType", reg.TaskType))
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, reg.TaskType)

		w := client.NewJobWorker().
			JobType(reg.TaskType).
			Handler(worker.JobHandler(reg.Handler)).
			MaxJobsActive(wcfg.MaxJobsActive).
			Timeout(config.GetDuration(wcfg.Timeout)).
			Name(cfg.App.Name).
			Open()

		log.Info("worker started",
			zap.String("taskType", reg.TaskType),
			zap.Int("maxJobsActive", wcfg.MaxJobsActive),
			zap.Int("timeoutMs", wcfg.Timeout),
		)
		workers = append(workers, w)
	}
	return workers
}

// CloseWorkers stops polling and waits for in-flight jobs.
func CloseWorkers(workers []worker.JobWorker, log *zap.Logger) {
	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	log.Info("all workers closed", zap.Int("count", len(workers)))
}
