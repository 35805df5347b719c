// Package seeder fills the wizard service with random drafts, for demos
// and load tests of the draft store.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
)

// Service is the part of the wizard API the seeder drives.
type Service interface {
	Create(ctx context.Context, jobID string) (*api.Result, error)
	Apply(ctx context.Context, id string, actions ...api.Action) (*api.Result, error)
	Next(ctx context.Context, id string) (*api.Result, error)
	Submit(ctx context.Context, id string) (*api.Result, error)
	Fields(ctx context.Context, pattern, fieldType string) ([]api.Field, error)
}

// Config controls a seeding run.
type Config struct {
	Pattern string
	Count   int
	// Submit creates the jobs on the cluster instead of leaving drafts.
	Submit bool
}

// Report counts the outcome of a run.
type Report struct {
	Drafts    []string `json:"drafts" yaml:"drafts"`
	Submitted []string `json:"submitted" yaml:"submitted"`
	Failed    int      `json:"failed" yaml:"failed"`
}

// Runner handles the seeding execution.
type Runner struct {
	svc    Service
	gen    *Generator
	logger *logging.Logger
}

// NewRunner creates a runner. A nil logger discards progress output.
func NewRunner(svc Service, seed int64, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{svc: svc, gen: NewGenerator(seed), logger: logger}
}

// Run seeds cfg.Count sessions. Sessions that fail are counted and
// skipped; only an unusable pattern aborts the run.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Pattern == "" {
		return nil, fmt.Errorf("a source pattern is required")
	}
	fields, err := r.svc.Fields(ctx, cfg.Pattern, "")
	if err != nil {
		return nil, fmt.Errorf("load fields of %s: %w", cfg.Pattern, err)
	}

	report := &Report{}
	for i := 0; i < cfg.Count; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		actions, err := r.gen.Actions(cfg.Pattern, fields)
		if err != nil {
			return report, err
		}
		id, submitted, err := r.seedOne(ctx, actions, cfg.Submit)
		if err != nil {
			r.logger.Warn("seed session failed", slog.Int("n", i+1), logging.Error(err))
			report.Failed++
			continue
		}
		if submitted {
			report.Submitted = append(report.Submitted, id)
		} else {
			report.Drafts = append(report.Drafts, id)
		}
		r.logger.Info("seeded session", slog.String(logging.FieldSession, id), slog.Bool("submitted", submitted))
	}
	return report, nil
}

func (r *Runner) seedOne(ctx context.Context, actions []api.Action, submit bool) (string, bool, error) {
	res, err := r.svc.Create(ctx, "")
	if err != nil {
		return "", false, err
	}
	id := res.State.ID
	if res, err = r.svc.Apply(ctx, id, actions...); err != nil {
		return id, false, err
	}
	for res.State.CurrentStep < 4 {
		if res, err = r.svc.Next(ctx, id); err != nil {
			return id, false, err
		}
	}
	if !submit {
		return id, false, nil
	}
	if _, err := r.svc.Submit(ctx, id); err != nil {
		return id, false, err
	}
	return id, true, nil
}
