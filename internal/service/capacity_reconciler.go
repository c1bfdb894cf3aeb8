package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campushub/registration-api/pkg/jobs"
)

type reconcilerCourseRepository interface {
	ListIDs(ctx context.Context) ([]string, error)
	RecomputeCapacity(ctx context.Context, courseID string) (int, error)
}

// CapacityReconciler re-derives every course's capacity from its groups at
// boot. Capacities can drift only through out-of-band writes, so one pass on
// startup is enough to repair them; the job queue spreads the updates over a
// small worker pool and retries transient failures.
type CapacityReconciler struct {
	courses reconcilerCourseRepository
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewCapacityReconciler constructs the reconciler with the given worker count.
func NewCapacityReconciler(courses reconcilerCourseRepository, workers int, logger *zap.Logger) *CapacityReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &CapacityReconciler{courses: courses, logger: logger}
	r.queue = jobs.NewQueue("capacity-reconcile", r.handle, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return r
}

// Run enqueues one recompute job per course and returns the number queued.
// Workers keep draining in the background until Stop.
func (r *CapacityReconciler) Run(ctx context.Context) (int, error) {
	r.queue.Start(ctx)
	ids, err := r.courses.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list courses for reconciliation: %w", err)
	}
	for _, id := range ids {
		if err := r.queue.Enqueue(jobs.Job{ID: id, Type: "recompute-capacity", Payload: id}); err != nil {
			return 0, fmt.Errorf("enqueue capacity job: %w", err)
		}
	}
	r.logger.Info("capacity reconciliation scheduled", zap.Int("courses", len(ids)))
	return len(ids), nil
}

// Stop waits for in-flight jobs to finish.
func (r *CapacityReconciler) Stop() {
	r.queue.Stop()
}

func (r *CapacityReconciler) handle(ctx context.Context, job jobs.Job) error {
	courseID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	capacity, err := r.courses.RecomputeCapacity(ctx, courseID)
	if err != nil {
		return fmt.Errorf("recompute capacity for %s: %w", courseID, err)
	}
	r.logger.Debug("course capacity reconciled",
		zap.String("course_id", courseID), zap.Int("capacity", capacity))
	return nil
}
