// Package service runs wizard sessions on behalf of the HTTP API. Each call
// loads the session from the draft store, applies one operation under the
// session lock and saves the result.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/drafts"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/metrics"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/wizard"
)

// JobBackend persists jobs and loads existing ones for edit mode.
type JobBackend interface {
	wizard.JobStore
	GetJob(ctx context.Context, id string) (jobspec.Job, error)
}

// CancelNotifier is told when a session is discarded.
type CancelNotifier interface {
	PublishCancelled(ctx context.Context, sessionID, jobID string) error
}

// Config holds the optional collaborators of a WizardService.
type Config struct {
	Defaults   jobspec.Defaults
	Normalizer *schedule.Normalizer
	Observers  []wizard.SubmitObserver
	Cancelled  CancelNotifier
	Logger     *logging.Logger
}

// ActionError reports which action of a batch was rejected. Earlier
// actions of the batch stay applied.
type ActionError struct {
	Index int
	Type  string
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Result is the outcome of one wizard operation.
type Result struct {
	State         wizard.State          `json:"state"`
	Notifications []wizard.Notification `json:"notifications"`
	StepResult    *wizard.StepResult    `json:"step_result,omitempty"`
}

type WizardService struct {
	drafts   drafts.Store
	resolver wizard.FieldResolver
	backend  JobBackend
	cfg      Config
	logger   *logging.Logger
	locks    *sessionLocks
}

func NewWizardService(store drafts.Store, resolver wizard.FieldResolver, backend JobBackend, cfg Config) *WizardService {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Defaults.PageSize == 0 {
		cfg.Defaults = jobspec.DefaultDefaults()
	}
	return &WizardService{
		drafts:   store,
		resolver: resolver,
		backend:  backend,
		cfg:      cfg,
		logger:   cfg.Logger,
		locks:    newSessionLocks(),
	}
}

func (s *WizardService) options(id string, rec *wizard.RecordingReporter) wizard.Options {
	return wizard.Options{
		SessionID:  id,
		Defaults:   s.cfg.Defaults,
		Normalizer: s.cfg.Normalizer,
		Reporter:   wizard.MultiReporter{wizard.NewLogReporter(s.logger), rec},
		Logger:     s.logger,
		Observers:  s.cfg.Observers,
	}
}

func (s *WizardService) result(c *wizard.Controller, rec *wizard.RecordingReporter) Result {
	notes := rec.Drain()
	if notes == nil {
		notes = []wizard.Notification{}
	}
	return Result{State: c.State(), Notifications: notes}
}

// Create opens a new session.
func (s *WizardService) Create(ctx context.Context) (Result, error) {
	rec := &wizard.RecordingReporter{}
	c := wizard.New(s.resolver, s.backend, s.options("", rec))
	if err := s.drafts.Save(ctx, c.State()); err != nil {
		return Result{}, fmt.Errorf("save draft: %w", err)
	}
	metrics.ActiveSessions.Inc()
	s.logger.InfoContext(ctx, "wizard session opened", logging.FieldSession, c.ID())
	return s.result(c, rec), nil
}

// Edit opens a session pre-populated with an existing job and loads its
// source fields.
func (s *WizardService) Edit(ctx context.Context, jobID string) (Result, error) {
	job, err := s.backend.GetJob(ctx, jobID)
	if err != nil {
		return Result{}, err
	}

	rec := &wizard.RecordingReporter{}
	c, req := wizard.NewForEdit(job, s.resolver, s.backend, s.options("", rec))
	c.ApplyFields(ctx, c.Resolve(ctx, req))
	if err := s.drafts.Save(ctx, c.State()); err != nil {
		return Result{}, fmt.Errorf("save draft: %w", err)
	}
	metrics.ActiveSessions.Inc()
	s.logger.InfoContext(ctx, "wizard session opened for edit", logging.FieldSession, c.ID(), logging.JobID(jobID))
	return s.result(c, rec), nil
}

// Get returns the saved state of a session.
func (s *WizardService) Get(ctx context.Context, id string) (Result, error) {
	state, err := s.drafts.Load(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{State: state, Notifications: []wizard.Notification{}}, nil
}

// withSession runs fn on the restored controller under the session lock and
// saves the state afterwards, whether fn failed or not.
func (s *WizardService) withSession(ctx context.Context, id string, rec *wizard.RecordingReporter, fn func(c *wizard.Controller) error) (*wizard.Controller, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	state, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	c := wizard.Restore(state, s.resolver, s.backend, s.options(id, rec))

	opErr := fn(c)
	if err := s.drafts.Save(ctx, c.State()); err != nil {
		return c, errors.Join(opErr, fmt.Errorf("save draft: %w", err))
	}
	return c, opErr
}

// Apply dispatches actions in order. A source change resolves its fields
// with the session unlocked; a resolution overtaken by a newer source
// change is discarded when applied.
func (s *WizardService) Apply(ctx context.Context, id string, actions ...wizard.Action) (Result, error) {
	rec := &wizard.RecordingReporter{}
	var c *wizard.Controller

	for i, a := range actions {
		var req *wizard.FieldRequest
		var err error
		c, err = s.withSession(ctx, id, rec, func(c *wizard.Controller) error {
			var derr error
			if req, derr = c.Dispatch(a); derr != nil {
				return &ActionError{Index: i, Type: a.Type, Err: derr}
			}
			return nil
		})
		if err != nil {
			return s.partial(c, rec), err
		}
		if req == nil {
			continue
		}

		res := c.Resolve(ctx, *req)
		c, err = s.withSession(ctx, id, rec, func(c *wizard.Controller) error {
			c.ApplyFields(ctx, res)
			return nil
		})
		if err != nil {
			return s.partial(c, rec), err
		}
	}

	if c == nil {
		return s.Get(ctx, id)
	}
	return s.result(c, rec), nil
}

func (s *WizardService) partial(c *wizard.Controller, rec *wizard.RecordingReporter) Result {
	if c == nil {
		return Result{Notifications: rec.Drain()}
	}
	return s.result(c, rec)
}

// Next advances the session. On an invalid step the result carries the
// validation messages.
func (s *WizardService) Next(ctx context.Context, id string) (Result, error) {
	rec := &wizard.RecordingReporter{}
	var step wizard.StepResult
	c, err := s.withSession(ctx, id, rec, func(c *wizard.Controller) error {
		var err error
		step, err = c.Next(ctx)
		return err
	})
	if c == nil {
		return Result{}, err
	}
	out := s.result(c, rec)
	out.StepResult = &step
	return out, err
}

func (s *WizardService) Back(ctx context.Context, id string) (Result, error) {
	rec := &wizard.RecordingReporter{}
	c, err := s.withSession(ctx, id, rec, func(c *wizard.Controller) error { return c.Back() })
	return s.partial(c, rec), err
}

func (s *WizardService) Jump(ctx context.Context, id string, step wizard.Step) (Result, error) {
	rec := &wizard.RecordingReporter{}
	c, err := s.withSession(ctx, id, rec, func(c *wizard.Controller) error { return c.JumpTo(step) })
	return s.partial(c, rec), err
}

// Submit finalizes the session's job and sends it to the cluster.
func (s *WizardService) Submit(ctx context.Context, id string) (Result, error) {
	rec := &wizard.RecordingReporter{}
	c, err := s.withSession(ctx, id, rec, func(c *wizard.Controller) error {
		_, err := c.Submit(ctx)
		return err
	})
	if err == nil {
		metrics.ActiveSessions.Dec()
	}
	return s.partial(c, rec), err
}

// Cancel discards the session's job.
func (s *WizardService) Cancel(ctx context.Context, id string) (Result, error) {
	rec := &wizard.RecordingReporter{}
	var jobID string
	var wasOpen bool
	c, err := s.withSession(ctx, id, rec, func(c *wizard.Controller) error {
		st := c.State()
		jobID, wasOpen = st.Job.ID, !st.Closed()
		return c.Cancel(ctx)
	})
	if err != nil {
		return s.partial(c, rec), err
	}

	if wasOpen {
		metrics.ActiveSessions.Dec()
		if s.cfg.Cancelled != nil {
			if err := s.cfg.Cancelled.PublishCancelled(ctx, id, jobID); err != nil {
				s.logger.WarnContext(ctx, "failed to publish cancel event", logging.FieldSession, id, logging.Error(err))
			}
		}
	}
	return s.result(c, rec), nil
}

// Fields resolves a pattern without touching any session.
func (s *WizardService) Fields(ctx context.Context, pattern string) ([]fields.FieldDescriptor, error) {
	return s.resolver.Resolve(ctx, pattern)
}

// ListDrafts lists saved sessions, newest first.
func (s *WizardService) ListDrafts(ctx context.Context) ([]drafts.Summary, error) {
	return s.drafts.List(ctx)
}

// DeleteDraft removes a saved session.
func (s *WizardService) DeleteDraft(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	state, err := s.drafts.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		return err
	}
	if !state.Closed() {
		metrics.ActiveSessions.Dec()
	}
	return nil
}
