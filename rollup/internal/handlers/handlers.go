// Package handlers exposes wizard sessions over HTTP as JSON:API resources.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/httputil"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/client"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/drafts"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/service"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/wizard"
)

const (
	resourceWizard = "rollup-wizard"
	resourceDraft  = "rollup-draft"
	resourceField  = "rollup-field"
)

// Wizards is the session API served by the handlers.
type Wizards interface {
	Create(ctx context.Context) (service.Result, error)
	Edit(ctx context.Context, jobID string) (service.Result, error)
	Get(ctx context.Context, id string) (service.Result, error)
	Apply(ctx context.Context, id string, actions ...wizard.Action) (service.Result, error)
	Next(ctx context.Context, id string) (service.Result, error)
	Back(ctx context.Context, id string) (service.Result, error)
	Jump(ctx context.Context, id string, step wizard.Step) (service.Result, error)
	Submit(ctx context.Context, id string) (service.Result, error)
	Cancel(ctx context.Context, id string) (service.Result, error)
	Fields(ctx context.Context, pattern string) ([]fields.FieldDescriptor, error)
	ListDrafts(ctx context.Context) ([]drafts.Summary, error)
	DeleteDraft(ctx context.Context, id string) error
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// StatsFunc reports counters shown next to the health status.
type StatsFunc func(ctx context.Context) (map[string]string, error)

type Handler struct {
	wizards Wizards
	checks  map[string]HealthCheck
	stats   map[string]StatsFunc
	logger  *logging.Logger
}

func NewHandler(wizards Wizards, checks map[string]HealthCheck, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{wizards: wizards, checks: checks, stats: map[string]StatsFunc{}, logger: logger}
}

// AddStats registers fn under name in the /healthz output.
func (h *Handler) AddStats(name string, fn StatsFunc) {
	h.stats[name] = fn
}

type createRequest struct {
	JobID string `json:"job_id"`
}

type actionsRequest struct {
	Actions []wizard.Action `json:"actions"`
}

type jumpRequest struct {
	Step wizard.Step `json:"step"`
}

func (h *Handler) writeResult(w http.ResponseWriter, status int, res service.Result) {
	httputil.WriteResource(w, status, resourceWizard, res.State.ID, res, "/api/v1/wizards/"+res.State.ID)
}

// writeError maps service errors onto statuses. When the operation got far
// enough to produce a state, it is returned in meta so clients can render
// the validation messages.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, res *service.Result) {
	var (
		verr *jobspec.ValidationError
		serr *jobspec.SubmissionError
		rerr *fields.RetrievalError
	)

	switch {
	case errors.Is(err, drafts.ErrNotFound):
		httputil.WriteNotFound(w, resourceWizard, r.PathValue("id"))
	case errors.Is(err, client.ErrJobNotFound):
		httputil.WriteJSONAPIError(w, http.StatusNotFound, "job_not_found", "Rollup Job Not Found", err.Error())
	case errors.Is(err, wizard.ErrStepInvalid) && res != nil && res.StepResult != nil:
		h.writeProblems(w, res.StepResult.Messages, res)
	case errors.As(err, &verr):
		h.writeProblems(w, verr.Fields(), res)
	case errors.As(err, &serr):
		status := serr.Status
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		h.writeErrors(w, status, []httputil.ErrorObject{httputil.NewError(status, serr.Type, "Rollup Job Rejected", serr.Reason)}, res)
	case errors.As(err, &rerr):
		httputil.WriteJSONAPIError(w, http.StatusBadGateway, "field_retrieval_failed", "Field Retrieval Failed", err.Error())
	case errors.Is(err, wizard.ErrWizardClosed),
		errors.Is(err, wizard.ErrJumpNotAllowed),
		errors.Is(err, wizard.ErrNotReviewStep),
		errors.Is(err, wizard.ErrLastStep):
		h.writeErrors(w, http.StatusConflict, []httputil.ErrorObject{httputil.NewError(http.StatusConflict, "invalid_transition", "Invalid Transition", err.Error())}, res)
	case errors.Is(err, wizard.ErrUnexpected):
		h.logger.ErrorContext(r.Context(), "unexpected wizard failure", logging.Error(err))
		h.writeErrors(w, http.StatusBadGateway, []httputil.ErrorObject{httputil.NewError(http.StatusBadGateway, "unexpected", "Submission Failed", "Could not create job")}, res)
	case isInputError(err):
		h.writeErrors(w, http.StatusBadRequest, []httputil.ErrorObject{httputil.NewError(http.StatusBadRequest, "invalid_action", "Invalid Action", err.Error())}, res)
	default:
		h.logger.ErrorContext(r.Context(), "wizard request failed", "path", r.URL.Path, logging.Error(err))
		httputil.WriteInternalError(w, "An internal error occurred")
	}
}

// isInputError reports errors caused by the request content: any rejected
// action, or a builder error surfacing outside one.
func isInputError(err error) bool {
	var aerr *service.ActionError
	if errors.As(err, &aerr) {
		return true
	}
	for _, target := range []error{
		wizard.ErrFieldUnavailable,
		jobspec.ErrNoDateHistogram,
		jobspec.ErrDuplicate,
		jobspec.ErrIncompatibleField,
		jobspec.ErrIndexOutOfRange,
		jobspec.ErrUnknownAgg,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) writeProblems(w http.ResponseWriter, problems map[string]string, res *service.Result) {
	keys := make([]string, 0, len(problems))
	for k := range problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	errs := make([]httputil.ErrorObject, 0, len(keys))
	for _, k := range keys {
		e := httputil.NewError(http.StatusUnprocessableEntity, "validation_failed", "Validation Failed", problems[k])
		e.Source = map[string]string{"pointer": "/data/attributes/state/job/" + k}
		errs = append(errs, e)
	}
	h.writeErrors(w, http.StatusUnprocessableEntity, errs, res)
}

func (h *Handler) writeErrors(w http.ResponseWriter, status int, errs []httputil.ErrorObject, res *service.Result) {
	body := map[string]any{"errors": errs}
	if res != nil && res.State.ID != "" {
		body["meta"] = map[string]any{"wizard": res}
	}
	httputil.WriteJSONAPI(w, status, body)
}

// CreateWizard handles POST /api/v1/wizards. A body with job_id opens the
// wizard on an existing job.
func (h *Handler) CreateWizard(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteJSONAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid Request", err.Error())
			return
		}
	}

	var res service.Result
	var err error
	if req.JobID != "" {
		res, err = h.wizards.Edit(r.Context(), req.JobID)
	} else {
		res, err = h.wizards.Create(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	h.writeResult(w, http.StatusCreated, res)
}

// GetWizard handles GET /api/v1/wizards/{id}.
func (h *Handler) GetWizard(w http.ResponseWriter, r *http.Request) {
	res, err := h.wizards.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	h.writeResult(w, http.StatusOK, res)
}

// ApplyActions handles POST /api/v1/wizards/{id}/actions.
func (h *Handler) ApplyActions(w http.ResponseWriter, r *http.Request) {
	var req actionsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteJSONAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid Request", err.Error())
		return
	}
	if len(req.Actions) == 0 {
		httputil.WriteJSONAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid Request", "at least one action is required")
		return
	}

	res, err := h.wizards.Apply(r.Context(), r.PathValue("id"), req.Actions...)
	if err != nil {
		h.writeError(w, r, err, &res)
		return
	}
	h.writeResult(w, http.StatusOK, res)
}

func (h *Handler) transition(op func(ctx context.Context, id string) (service.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := op(r.Context(), r.PathValue("id"))
		if err != nil {
			h.writeError(w, r, err, &res)
			return
		}
		h.writeResult(w, http.StatusOK, res)
	}
}

// Next handles POST /api/v1/wizards/{id}/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.transition(h.wizards.Next)(w, r)
}

// Back handles POST /api/v1/wizards/{id}/back.
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.transition(h.wizards.Back)(w, r)
}

// Submit handles POST /api/v1/wizards/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(h.wizards.Submit)(w, r)
}

// Cancel handles POST /api/v1/wizards/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(h.wizards.Cancel)(w, r)
}

// Jump handles POST /api/v1/wizards/{id}/jump.
func (h *Handler) Jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteJSONAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid Request", err.Error())
		return
	}
	if !req.Step.Valid() {
		httputil.WriteJSONAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid Request", "step must be between 1 and 4")
		return
	}
	h.transition(func(ctx context.Context, id string) (service.Result, error) {
		return h.wizards.Jump(ctx, id, req.Step)
	})(w, r)
}

// ListDrafts handles GET /api/v1/wizards[?limit=n], newest first.
func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	list, err := h.wizards.ListDrafts(r.Context())
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	if limit := httputil.ParseIntParam(r.URL.Query().Get("limit"), 0); limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	resources := make([]httputil.Resource, len(list))
	for i, d := range list {
		resources[i] = httputil.Resource{
			Type:       resourceDraft,
			ID:         d.ID,
			Attributes: d,
			Links:      map[string]string{"self": "/api/v1/wizards/" + d.ID},
		}
	}
	httputil.WriteCollection(w, http.StatusOK, resources)
}

// DeleteDraft handles DELETE /api/v1/wizards/{id}.
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.wizards.DeleteDraft(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Fields handles GET /api/v1/fields?pattern=.
func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("pattern"))
	if pattern == "" {
		httputil.WriteJSONAPIError(w, http.StatusBadRequest, "invalid_request", "Invalid Request", "pattern is required")
		return
	}

	got, err := h.wizards.Fields(r.Context(), pattern)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	if t := r.URL.Query().Get("type"); t != "" {
		got = fields.ByType(got, fields.FieldType(t))
	}
	resources := make([]httputil.Resource, len(got))
	for i, d := range got {
		resources[i] = httputil.Resource{Type: resourceField, ID: d.Path, Attributes: d}
	}
	httputil.WriteCollection(w, http.StatusOK, resources)
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	body := map[string]any{"status": overall, "dependencies": deps}

	stats := make(map[string]map[string]string, len(h.stats))
	for name, fn := range h.stats {
		s, err := fn(ctx)
		if err != nil {
			h.logger.WarnContext(ctx, "health stats failed", "stats", name, logging.Error(err))
			continue
		}
		stats[name] = s
	}
	if len(stats) > 0 {
		body["stats"] = stats
	}
	httputil.WriteJSON(w, status, body)
}
