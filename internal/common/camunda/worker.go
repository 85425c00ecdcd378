package camunda

import (
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"cashflow-loans/internal/common/config"
	"cashflow-loans/internal/common/logger"
)

// JobHandler handles one activated job and completes or fails it itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Workers opens job workers for enabled task types and closes them together.
type Workers struct {
	mu      sync.Mutex
	client  zbc.Client
	workers map[string]worker.JobWorker
	logger  logger.Logger
}

func NewWorkers(client zbc.Client, log logger.Logger) *Workers {
	return &Workers{client: client, workers: map[string]worker.JobWorker{}, logger: log}
}

// Registration binds a BPMN task type to its handler and its key under the
// "workers" config section.
type Registration struct {
	ConfigKey string
	TaskType  string
	Handler   JobHandler
}

// StartEnabled opens a worker for every registration the config leaves enabled
// and returns the task types it started. Workers missing from the config run
// with the defaults.
func (w *Workers) StartEnabled(cfg *config.Config, regs ...Registration) []string {
	started := make([]string, 0, len(regs))
	for _, r := range regs {
		if !config.IsWorkerEnabled(cfg, r.ConfigKey) {
			w.logger.Info("Worker disabled", map[string]interface{}{
				"taskType":  r.TaskType,
				"configKey": r.ConfigKey,
			})
			continue
		}
		w.Start(r.TaskType, config.GetWorkerConfig(cfg, r.ConfigKey), r.Handler)
		started = append(started, r.TaskType)
	}
	return started
}

// Start opens a worker for taskType. Callers decide whether it is enabled.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) {
	jobWorker := w.client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Name(taskType + "-worker").
		Open()

	w.mu.Lock()
	w.workers[taskType] = jobWorker
	w.mu.Unlock()

	w.logger.Info("Worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
}

// Running returns the task types with an open worker.
func (w *Workers) Running() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.workers))
	for t := range w.workers {
		out = append(out, t)
	}
	return out
}

// Close stops every worker and waits for in-flight jobs.
func (w *Workers) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for taskType, jw := range w.workers {
		jw.Close()
		jw.AwaitClose()
		w.logger.Info("Worker stopped", map[string]interface{}{"taskType": taskType})
	}
	w.workers = map[string]worker.JobWorker{}
}
