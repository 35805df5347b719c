package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
)

func TestCommandsRegistered(t *testing.T) {
	expected := map[string]bool{
		"wizard":  false,
		"apply":   false,
		"get":     false,
		"fields":  false,
		"drafts":  false,
		"profile": false,
		"seed":    false,
		"watch":   false,
	}
	for _, c := range rootCmd.Commands() {
		name := strings.Fields(c.Use)[0]
		if _, ok := expected[name]; ok {
			expected[name] = true
		}
	}
	for name, found := range expected {
		assert.True(t, found, "expected command %q to be registered with root command", name)
	}
}

func TestSubcommands(t *testing.T) {
	var drafts, profiles []string
	for _, c := range draftsCmd.Commands() {
		drafts = append(drafts, c.Name())
	}
	for _, c := range profileCmd.Commands() {
		profiles = append(profiles, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "delete"}, drafts)
	assert.ElementsMatch(t, []string{"set", "list", "remove"}, profiles)
}

// fakeWizardService serves just enough of the wizard API for the commands.
type fakeWizardService struct {
	mu      sync.Mutex
	step    int
	actions []api.Action
	deleted []string
}

func (f *fakeWizardService) result() api.Result {
	return api.Result{State: api.State{
		ID:           "s1",
		CurrentStep:  f.step,
		Phase:        "editing",
		FieldsStatus: "ready",
		Job:          api.Job{ID: "nightly_rollup", SourceIndex: "sales-*", TargetIndex: "sales_rollup", PageSize: 1000},
	}}
}

func (f *fakeWizardService) writeResult(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{"type": "wizard", "id": "s1", "attributes": f.result()},
	})
}

func (f *fakeWizardService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/wizards", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.step = 1
		f.writeResult(w, http.StatusCreated)
	})
	mux.HandleFunc("GET /api/v1/wizards", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{
			map[string]any{"type": "draft", "id": "s1", "attributes": api.Draft{ID: "s1", SourceIndex: "sales-*", Step: 2, Phase: "editing"}},
		}})
	})
	mux.HandleFunc("GET /api/v1/wizards/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.PathValue("id") != "s1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[{"status":"404","code":"not_found","detail":"wizard not found"}]}`))
			return
		}
		f.writeResult(w, http.StatusOK)
	})
	mux.HandleFunc("DELETE /api/v1/wizards/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deleted = append(f.deleted, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/v1/wizards/{id}/actions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Actions []api.Action `json:"actions"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.actions = append(f.actions, body.Actions...)
		f.writeResult(w, http.StatusOK)
	})
	mux.HandleFunc("POST /api/v1/wizards/{id}/next", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.step++
		f.writeResult(w, http.StatusOK)
	})
	mux.HandleFunc("GET /api/v1/fields", func(w http.ResponseWriter, r *http.Request) {
		fields := []api.Field{
			{Path: "amount", Type: "numeric", RawType: "double"},
			{Path: "order_date", Type: "date", RawType: "date"},
		}
		if r.URL.Query().Get("type") == "numeric" {
			fields = fields[:1]
		}
		data := make([]any, len(fields))
		for i, fd := range fields {
			data[i] = map[string]any{"type": "field", "id": fd.Path, "attributes": fd}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	return mux
}

func runCLI(t *testing.T, svc *fakeWizardService, stdin string, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true

	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)
	t.Setenv("ROLLUP_SERVICE_URL", srv.URL)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	rootCmd.SetArgs(append([]string{"--config", cfgPath, "--output", "table"}, args...))
	err := ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

func TestFieldsCommand(t *testing.T) {
	out, _, err := runCLI(t, &fakeWizardService{}, "", "fields", "sales-*", "--type", "")
	require.NoError(t, err)
	assert.Contains(t, out, "amount")
	assert.Contains(t, out, "order_date")
	assert.Contains(t, out, "double")

	out, _, err = runCLI(t, &fakeWizardService{}, "", "fields", "sales-*", "--type", "numeric", "-o", "json")
	require.NoError(t, err)
	var fields []api.Field
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	assert.Equal(t, []api.Field{{Path: "amount", Type: "numeric", RawType: "double"}}, fields)
}

func TestGetCommand(t *testing.T) {
	out, _, err := runCLI(t, &fakeWizardService{step: 2}, "", "get", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Wizard:      s1 (editing, step 2 of 4)")
	assert.Contains(t, out, "Target:      sales_rollup")

	_, errOut, err := runCLI(t, &fakeWizardService{}, "", "get", "missing")
	require.Error(t, err)
	assert.Contains(t, errOut, "wizard not found")
}

func TestDraftsCommands(t *testing.T) {
	svc := &fakeWizardService{}
	out, _, err := runCLI(t, svc, "", "drafts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "2/4")
	assert.Contains(t, out, "create")

	out, _, err = runCLI(t, svc, "", "drafts", "delete", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Draft s1 deleted")
	assert.Equal(t, []string{"s1"}, svc.deleted)
}

func TestApplyCommand_DryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
actions:
  - type: set_job_name
    value: nightly_rollup
  - type: set_source_index
    value: sales-*
submit: true
`), 0600))

	svc := &fakeWizardService{}
	out, _, err := runCLI(t, svc, "", "apply", "-f", path, "--dry-run")
	require.NoError(t, err)

	assert.Len(t, svc.actions, 2)
	assert.Equal(t, 4, svc.step)
	assert.Contains(t, out, "Draft s1 is ready for review")
}

func TestWizardCommand_Shell(t *testing.T) {
	out, _, err := runCLI(t, &fakeWizardService{}, "name nightly_rollup\nshow\nquit\n", "wizard", "--job", "", "--resume", "")
	require.NoError(t, err)

	assert.Contains(t, out, "Wizard s1.")
	assert.Contains(t, out, "Step 1 of 4: Collections")
	assert.Contains(t, out, "Job:         nightly_rollup")
}

func TestWizardCommand_ConflictingFlags(t *testing.T) {
	_, _, err := runCLI(t, &fakeWizardService{}, "", "wizard", "--job", "a", "--resume", "b")
	assert.Error(t, err)
}

func TestProfileCommands(t *testing.T) {
	out, _, err := runCLI(t, &fakeWizardService{}, "", "profile", "set", "staging", "http://rollup.staging:8095")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile 'staging' now points at http://rollup.staging:8095")
	assert.Equal(t, "http://rollup.staging:8095", cfg.ServiceURL("staging"))
}
