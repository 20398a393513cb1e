package lessonworker

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/temporalx"
	"github.com/lessonbuddy/lessonbuddy-backend/internal/temporalx/lessongen"
)

// Runner hosts the Temporal worker that executes chapter generation
// workflows.
type Runner struct {
	log        *logger.Logger
	tc         temporalsdkclient.Client
	activities *lessongen.Activities
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, activities *lessongen.Activities) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if activities == nil {
		return nil, fmt.Errorf("temporal worker missing activities")
	}
	return &Runner{log: log, tc: tc, activities: activities}, nil
}

// Start launches the worker and retries when the Temporal server is not yet
// accepting pollers. The worker stops when ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	cfg := temporalx.LoadConfig()
	r.log.Info("Starting Temporal worker", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	deadline := time.Now().Add(60 * time.Second)
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w := worker.New(r.tc, cfg.TaskQueue, worker.Options{})
		w.RegisterWorkflowWithOptions(lessongen.ChapterGenerationWorkflow, workflow.RegisterOptions{
			Name: lessongen.WorkflowName,
		})
		w.RegisterActivity(r.activities)

		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		if time.Now().After(deadline) {
			return fmt.Errorf("temporal worker failed to start: %w", startErr)
		}
		r.log.Warn("Temporal worker start failed; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(time.Second)
	}
}
