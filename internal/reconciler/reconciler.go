package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/daap14/useradmin/internal/metrics"
	"github.com/daap14/useradmin/internal/project"
)

// ProjectStore is the subset of project.Repository the reconciler needs.
type ProjectStore interface {
	ListOwnersWithoutPersonal(ctx context.Context) ([]project.Owner, error)
	CreatePersonal(ctx context.Context, owner project.Owner) (*project.Project, error)
}

// Reconciler makes sure every user owns a personal project. Creating a user
// and its personal project are separate writes; the reconciler closes the gap
// left when the second one fails.
type Reconciler struct {
	projects ProjectStore
	metrics  *metrics.Metrics
	schedule string
}

// New creates a new Reconciler running on the given cron schedule
// (for example "@every 1m").
func New(projects ProjectStore, m *metrics.Metrics, schedule string) *Reconciler {
	return &Reconciler{
		projects: projects,
		metrics:  m,
		schedule: schedule,
	}
}

// Start runs one pass immediately, then one per schedule tick. It blocks until
// ctx is cancelled and waits for a running pass to finish before returning.
func (r *Reconciler) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.schedule, func() { r.Reconcile(ctx) }); err != nil {
		return fmt.Errorf("invalid reconciler schedule %q: %w", r.schedule, err)
	}

	slog.Info("reconciler started", "schedule", r.schedule)
	r.Reconcile(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("reconciler stopped")
	return nil
}

// Reconcile creates the missing personal projects and returns how many were created.
func (r *Reconciler) Reconcile(ctx context.Context) int {
	owners, err := r.projects.ListOwnersWithoutPersonal(ctx)
	if err != nil {
		slog.Error("reconciler: failed to list users without personal project", "error", err)
		return 0
	}

	created := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			return created
		}

		p, err := r.projects.CreatePersonal(ctx, owner)
		if err != nil {
			if errors.Is(err, project.ErrPersonalProjectExists) {
				continue
			}
			slog.Warn("reconciler: failed to create personal project",
				"userId", owner.ID,
				"email", owner.Email,
				"error", err,
			)
			continue
		}

		created++
		if r.metrics != nil {
			r.metrics.ProjectsCreated.Inc()
		}
		slog.Info("reconciler: created personal project",
			"userId", owner.ID,
			"projectId", p.ID,
			"name", p.Name,
		)
	}
	return created
}
