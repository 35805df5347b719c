package shell

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/pkg/output"
)

// fakeService keeps a tiny session: actions only record themselves, next
// needs a job name, submit needs step 4.
type fakeService struct {
	mu       sync.Mutex
	calls    []string
	state    api.State
	patterns []string
}

func newFakeService() *fakeService {
	return &fakeService{state: api.State{ID: "s1", CurrentStep: 1, Phase: "editing", FieldsStatus: "idle"}}
}

func (f *fakeService) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeService) result(notes ...api.Notification) *api.Result {
	if notes == nil {
		notes = []api.Notification{}
	}
	return &api.Result{State: f.state, Notifications: notes}
}

func (f *fakeService) Get(context.Context, string) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get")
	return f.result(), nil
}

func (f *fakeService) Apply(_ context.Context, _ string, actions ...api.Action) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range actions {
		f.record(a.Type)
		switch a.Type {
		case "set_job_name":
			f.state.Job.ID = a.Value
		case "set_source_index":
			f.state.Job.SourceIndex = a.Value
			f.state.FieldsStatus = "ready"
		case "add_metric":
			return nil, &api.APIError{
				StatusCode: http.StatusBadRequest,
				Errors:     []api.ErrorObject{{Status: "400", Code: "invalid_action", Detail: "action 0 (add_metric): field is not available for the source pattern"}},
				Wizard:     f.result(),
			}
		}
	}
	return f.result(), nil
}

func (f *fakeService) Next(context.Context, string) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("next")
	if f.state.Job.ID == "" {
		res := f.result()
		res.StepResult = &api.StepResult{Valid: false, Messages: map[string]string{"name": "Job name is required"}}
		return nil, &api.APIError{
			StatusCode: http.StatusUnprocessableEntity,
			Errors: []api.ErrorObject{{
				Status: "422", Code: "validation_failed", Detail: "Job name is required",
				Source: map[string]string{"pointer": "/data/attributes/state/job/name"},
			}},
			Wizard: res,
		}
	}
	f.state.CurrentStep++
	return f.result(), nil
}

func (f *fakeService) Back(context.Context, string) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("back")
	f.state.CurrentStep--
	return f.result(), nil
}

func (f *fakeService) Jump(_ context.Context, _ string, step int) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("jump")
	f.state.CurrentStep = step
	return f.result(), nil
}

func (f *fakeService) Submit(context.Context, string) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("submit")
	f.state.Phase = "submitted"
	return f.result(api.Notification{Level: api.LevelSuccess, Message: `Created rollup job "` + f.state.Job.ID + `"`}), nil
}

func (f *fakeService) Cancel(context.Context, string) (*api.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cancel")
	f.state.Phase = "cancelled"
	return f.result(), nil
}

func (f *fakeService) Fields(_ context.Context, pattern, _ string) ([]api.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("fields")
	f.patterns = append(f.patterns, pattern)
	return []api.Field{{Path: "order_date", Type: "date"}, {Path: "amount", Type: "numeric"}}, nil
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func runShell(t *testing.T, svc *fakeService, input string) (string, string) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, errOut bytes.Buffer
	sh := New(svc, *svc.result(), output.New(&out, &errOut))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sh.Run(ctx, strings.NewReader(input)))
	return out.String(), errOut.String()
}

func TestRun_SubmitEndsSession(t *testing.T) {
	svc := newFakeService()
	out, errOut := runShell(t, svc, strings.Join([]string{
		"next",
		"name nightly_rollup",
		"source sales-*",
		"fields",
		"next",
		"jump 4",
		"submit",
		"name ignored_after_submit",
	}, "\n"))

	calls := svc.Calls()
	assert.Equal(t, []string{"next", "set_job_name", "set_source_index", "fields", "next", "jump", "submit"}, calls)
	assert.Equal(t, []string{"sales-*"}, svc.patterns)

	assert.Contains(t, errOut, "✗ name: Job name is required")
	assert.Contains(t, out, "Step 1 of 4: Collections")
	assert.Contains(t, out, "Step 2 of 4: Aggregations")
	assert.Contains(t, out, "Step 4 of 4: Review")
	assert.Contains(t, out, "order_date")
	assert.Contains(t, out, `✓ Created rollup job "nightly_rollup"`)
}

func TestRun_LocalCommandsAndParseErrors(t *testing.T) {
	svc := newFakeService()
	out, errOut := runShell(t, svc, "help\n\nbogus\nshow\nquit\nnext\n")

	assert.Empty(t, svc.Calls())
	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, "Job:         (not set)")
	assert.Contains(t, errOut, `unknown command "bogus"`)
}

func TestRun_RejectedActionKeepsState(t *testing.T) {
	svc := newFakeService()
	_, errOut := runShell(t, svc, "metric amount sum\ncancel\n")

	assert.Equal(t, []string{"add_metric", "cancel"}, svc.Calls())
	assert.Contains(t, errOut, "field is not available")
}

func TestRun_FieldsWithoutSource(t *testing.T) {
	svc := newFakeService()
	_, errOut := runShell(t, svc, "fields\n")

	assert.Empty(t, svc.Calls())
	assert.Contains(t, errOut, "set a source index first")
}

func TestWriteSummary(t *testing.T) {
	st := api.State{
		FieldsStatus: "ready",
		Job: api.Job{
			ID:          "nightly_rollup",
			SourceIndex: "sales-*",
			TargetIndex: "sales_rollup",
			DateHistogram: &api.DateHistogram{
				Field:    api.Field{Path: "order_date", Type: "date"},
				Interval: api.Interval{Type: "calendar", Value: 1, Unit: "d"},
				Timezone: "UTC",
			},
			Dimensions: []api.Dimension{{Field: api.Field{Path: "region"}, Method: "terms"}},
			Metrics:    []api.Metric{{Field: api.Field{Path: "amount"}, Aggregations: []string{"sum", "avg"}}},
			Schedule:   api.Schedule{Kind: "cron", Expression: "0 2 * * *", Timezone: "UTC"},
			PageSize:   1000,
			Delay:      300000,
			Enabled:    true,
		},
	}

	var buf bytes.Buffer
	WriteSummary(&buf, st)
	got := buf.String()

	assert.Contains(t, got, "Source:      sales-* (fields ready)")
	assert.Contains(t, got, "Date:        order_date every 1d (calendar, UTC)")
	assert.Contains(t, got, "Dimension 1: region (terms)")
	assert.Contains(t, got, "Metric 1:    amount [sum, avg]")
	assert.Contains(t, got, `Schedule:    cron "0 2 * * *" UTC`)
	assert.Contains(t, got, "Delay:       300000ms")
}
