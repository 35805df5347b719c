// Package jobfile drives a wizard session from a YAML description of the
// job, for scripted use.
package jobfile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
)

const reviewStep = 4

// File is a job file:
//
//	job_id: nightly_rollup   # optional, edits an existing job
//	actions:
//	  - type: set_job_name
//	    value: nightly_rollup
//	submit: true
type File struct {
	JobID   string       `yaml:"job_id,omitempty"`
	Actions []api.Action `yaml:"actions"`
	Submit  bool         `yaml:"submit"`
}

// Load reads and checks a job file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse job file: %w", err)
	}
	if len(f.Actions) == 0 && f.JobID == "" {
		return nil, errors.New("job file has no actions")
	}
	for i, a := range f.Actions {
		if a.Type == "" {
			return nil, fmt.Errorf("action %d has no type", i)
		}
	}
	return &f, nil
}

// Service is the part of the wizard API a job file needs.
type Service interface {
	Create(ctx context.Context, jobID string) (*api.Result, error)
	Apply(ctx context.Context, id string, actions ...api.Action) (*api.Result, error)
	Next(ctx context.Context, id string) (*api.Result, error)
	Submit(ctx context.Context, id string) (*api.Result, error)
}

// Run opens a session, applies the file's actions, walks to the review
// step and submits when asked. Notifications of every call go to notify.
// On failure the returned result is the last state the service reported,
// so the session can be resumed.
func Run(ctx context.Context, svc Service, f *File, notify func(api.Notification)) (*api.Result, error) {
	if notify == nil {
		notify = func(api.Notification) {}
	}
	report := func(res *api.Result) *api.Result {
		for _, n := range res.Notifications {
			notify(n)
		}
		return res
	}
	fail := func(last *api.Result, err error) (*api.Result, error) {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Wizard != nil {
			last = report(apiErr.Wizard)
		}
		return last, err
	}

	res, err := svc.Create(ctx, f.JobID)
	if err != nil {
		return nil, fmt.Errorf("open wizard: %w", err)
	}
	report(res)
	id := res.State.ID

	if len(f.Actions) > 0 {
		next, err := svc.Apply(ctx, id, f.Actions...)
		if err != nil {
			return fail(res, err)
		}
		res = report(next)
	}
	if res.State.FieldsStatus == "failed" {
		return res, fmt.Errorf("fields of %s could not be loaded: %s", res.State.Job.SourceIndex, res.State.FieldsError)
	}

	for res.State.CurrentStep < reviewStep {
		next, err := svc.Next(ctx, id)
		if err != nil {
			return fail(res, err)
		}
		res = report(next)
	}

	if !f.Submit {
		return res, nil
	}
	done, err := svc.Submit(ctx, id)
	if err != nil {
		return fail(res, err)
	}
	return report(done), nil
}
