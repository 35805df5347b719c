package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wizardDoc(state State) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"type":       "rollup-wizard",
			"id":         state.ID,
			"attributes": Result{State: state, Notifications: []Notification{}},
		},
	}
}

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8095/")
	assert.Equal(t, "http://localhost:8095", c.baseURL)
	assert.NotNil(t, c.client)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name  string
		jobID string
		body  string
	}{
		{"new job", "", ""},
		{"edit", "nightly_rollup", `{"job_id":"nightly_rollup"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/v1/wizards", r.URL.Path)
				if tt.body == "" {
					assert.Empty(t, r.Header.Get("Content-Type"))
				} else {
					var got map[string]string
					require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
					assert.Equal(t, tt.jobID, got["job_id"])
				}
				w.WriteHeader(http.StatusCreated)
				_ = json.NewEncoder(w).Encode(wizardDoc(State{ID: "s1", CurrentStep: 1, Phase: "editing"}))
			}))
			defer srv.Close()

			res, err := NewClient(srv.URL).Create(context.Background(), tt.jobID)
			require.NoError(t, err)
			assert.Equal(t, "s1", res.State.ID)
			assert.Equal(t, 1, res.State.CurrentStep)
		})
	}
}

func TestApply_SendsActions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/wizards/s1/actions", r.URL.Path)
		var body struct {
			Actions []Action `json:"actions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Actions, 2)
		assert.Equal(t, "set_job_name", body.Actions[0].Type)
		assert.Equal(t, []string{"sum"}, body.Actions[1].Aggregations)
		_ = json.NewEncoder(w).Encode(wizardDoc(State{ID: "s1", FieldsStatus: "ready"}))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Apply(context.Background(), "s1",
		Action{Type: "set_job_name", Value: "nightly"},
		Action{Type: "add_metric", Field: "amount", Aggregations: []string{"sum"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "ready", res.State.FieldsStatus)
}

func TestNext_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSONAPI)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{
			"errors":[{"status":"422","code":"validation_failed","title":"Validation Failed",
				"detail":"Job name is required","source":{"pointer":"/data/attributes/state/job/name"}}],
			"meta":{"wizard":{"state":{"id":"s1","current_step":1},"notifications":[],
				"step_result":{"valid":false,"messages":{"name":"Job name is required"}}}}
		}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Next(context.Background(), "s1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "validation_failed", apiErr.Code())
	assert.Equal(t, "name", apiErr.Errors[0].Pointer())
	assert.Equal(t, "Job name is required", err.Error())
	require.NotNil(t, apiErr.Wizard)
	require.NotNil(t, apiErr.Wizard.StepResult)
	assert.False(t, apiErr.Wizard.StepResult.Valid)
}

func TestAPIError_NoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Submit(context.Background(), "s1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "wizard service returned 502", err.Error())
	assert.Nil(t, apiErr.Wizard)
}

func TestFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/fields", r.URL.Path)
		assert.Equal(t, "sales-*", r.URL.Query().Get("pattern"))
		assert.Equal(t, "date", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`{"data":[{"type":"rollup-field","id":"order_date","attributes":{"path":"order_date","type":"date","raw_type":"date"}}],"meta":{"total":1}}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Fields(context.Background(), "sales-*", "date")
	require.NoError(t, err)
	assert.Equal(t, []Field{{Path: "order_date", Type: "date", RawType: "date"}}, got)
}

func TestDrafts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"data":[{"type":"rollup-draft","id":"s1","attributes":{"id":"s1","source_index":"sales-*","step":2,"phase":"editing","updated_at":"2024-03-01T02:00:00Z"}}],"meta":{"total":1}}`))
		case http.MethodDelete:
			assert.Equal(t, "/api/v1/wizards/s1", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	list, err := c.ListDrafts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sales-*", list[0].SourceIndex)
	assert.Equal(t, 2, list[0].Step)

	assert.NoError(t, c.DeleteDraft(context.Background(), "s1"))
}

func TestUnreachable(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1").Get(context.Background(), "s1")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
