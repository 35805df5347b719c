package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/metrics"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/schedule"
)

var (
	ErrWizardClosed     = errors.New("wizard is closed")
	ErrStepInvalid      = errors.New("step is invalid")
	ErrJumpNotAllowed   = errors.New("step has not been reached yet")
	ErrNotReviewStep    = errors.New("submit is only available on the review step")
	ErrLastStep         = errors.New("already on the last step")
	ErrFieldUnavailable = errors.New("field is not available for the source pattern")
	ErrUnexpected       = errors.New("could not create job")
)

// FieldResolver computes the field compatibility set of a pattern.
type FieldResolver interface {
	Resolve(ctx context.Context, pattern string) ([]fields.FieldDescriptor, error)
}

// JobStore persists a finalized job. cc is nil for new jobs.
type JobStore interface {
	PutJob(ctx context.Context, id string, doc jobspec.Document, cc *jobspec.Concurrency) (jobspec.JobResponse, error)
}

// Submission describes one submit attempt, successful or not.
type Submission struct {
	SessionID string
	JobID     string
	Action    string
	Document  jobspec.Document
	Response  *jobspec.JobResponse
	Err       error
	Duration  time.Duration
}

// Succeeded reports whether the backend accepted the job.
func (s Submission) Succeeded() bool {
	return s.Err == nil
}

// SubmitObserver is told about every submit attempt. Observer errors are
// logged and never fail the submission.
type SubmitObserver interface {
	ObserveSubmission(ctx context.Context, sub Submission) error
}

// FieldRequest asks for the field set of Pattern on behalf of Generation.
type FieldRequest struct {
	Generation uint64 `json:"generation"`
	Pattern    string `json:"pattern"`
}

// Resolution is the answer to a FieldRequest.
type Resolution struct {
	Generation uint64
	Pattern    string
	Fields     []fields.FieldDescriptor
	Err        error
}

// Options configure a Controller. Zero values get defaults.
type Options struct {
	SessionID  string
	Defaults   jobspec.Defaults
	Normalizer *schedule.Normalizer
	Reporter   Reporter
	Logger     *logging.Logger
	Observers  []SubmitObserver
}

// Controller owns one wizard session. It is not safe for concurrent use;
// only Resolve may run outside the owning goroutine.
type Controller struct {
	state      State
	resolver   FieldResolver
	store      JobStore
	normalizer *schedule.Normalizer
	reporter   Reporter
	logger     *logging.Logger
	observers  []SubmitObserver
	// timezone fills in a date histogram or cron schedule entered
	// without one.
	timezone string
}

func newController(resolver FieldResolver, store JobStore, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Reporter == nil {
		opts.Reporter = NewLogReporter(opts.Logger)
	}
	if opts.Normalizer == nil {
		opts.Normalizer = schedule.NewNormalizer(nil)
	}
	tz := opts.Defaults.Timezone
	if tz == "" {
		tz = jobspec.DefaultDefaults().Timezone
	}
	return &Controller{
		resolver:   resolver,
		store:      store,
		normalizer: opts.Normalizer,
		reporter:   opts.Reporter,
		logger:     opts.Logger,
		observers:  opts.Observers,
		timezone:   tz,
	}
}

func sessionID(opts Options) string {
	if opts.SessionID != "" {
		return opts.SessionID
	}
	return uuid.NewString()
}

// New opens a wizard for a new job.
func New(resolver FieldResolver, store JobStore, opts Options) *Controller {
	c := newController(resolver, store, opts)
	d := opts.Defaults
	if d.PageSize == 0 {
		d = jobspec.DefaultDefaults()
	}
	c.state = newState(sessionID(opts), jobspec.New(d))
	return c
}

// NewForEdit opens a wizard pre-populated with an existing job. Every step
// starts valid. The returned request loads the fields of the job's source
// pattern; descriptors are reconciled when it is applied.
func NewForEdit(job jobspec.Job, resolver FieldResolver, store JobStore, opts Options) (*Controller, FieldRequest) {
	c := newController(resolver, store, opts)
	c.state = newState(sessionID(opts), job.Clone())
	c.state.Edit = true
	for _, step := range Steps {
		c.state.Validity[step] = ValidityValid
	}
	c.state.HighestValidated = StepReview
	c.state.Reached = StepReview
	c.state.Generation = 1
	c.state.FieldsPattern = job.SourceIndex
	c.state.FieldsStatus = FieldsLoading
	return c, FieldRequest{Generation: 1, Pattern: job.SourceIndex}
}

// Restore resumes a wizard from a saved state.
func Restore(state State, resolver FieldResolver, store JobStore, opts Options) *Controller {
	c := newController(resolver, store, opts)
	c.state = state.Clone()
	if c.state.Validity == nil {
		c.state.Validity = map[Step]Validity{}
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state.Clone()
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.state.ID
}

func (c *Controller) ctx(ctx context.Context) context.Context {
	return logging.ContextWithSession(ctx, c.state.ID)
}

// Patch applies an arbitrary job patch. Named operations below are thin
// wrappers around it.
func (c *Controller) Patch(op string, fn func(jobspec.Job) (jobspec.Job, error)) error {
	if c.state.Closed() {
		return ErrWizardClosed
	}
	next, err := fn(c.state.Job)
	if err != nil {
		c.logger.Debug("patch rejected", "op", op, logging.FieldSession, c.state.ID, logging.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	c.state.Job = next
	c.refresh()
	return nil
}

func pure(fn func(jobspec.Job) jobspec.Job) func(jobspec.Job) (jobspec.Job, error) {
	return func(j jobspec.Job) (jobspec.Job, error) { return fn(j), nil }
}

func (c *Controller) SetJobName(name string) error {
	return c.Patch("set job name", pure(func(j jobspec.Job) jobspec.Job { return jobspec.SetJobName(j, name) }))
}

func (c *Controller) SetDescription(desc string) error {
	return c.Patch("set description", pure(func(j jobspec.Job) jobspec.Job { return jobspec.SetDescription(j, desc) }))
}

func (c *Controller) SetTargetIndex(target string) error {
	return c.Patch("set target index", pure(func(j jobspec.Job) jobspec.Job { return jobspec.SetTargetIndex(j, target) }))
}

// SetSourceIndex changes the source pattern, drops the previous field set
// and issues a new generation. Any resolution for an earlier generation is
// discarded by ApplyFields.
func (c *Controller) SetSourceIndex(pattern string) (FieldRequest, error) {
	if c.state.Closed() {
		return FieldRequest{}, ErrWizardClosed
	}
	pattern = strings.TrimSpace(pattern)

	c.state.Job = jobspec.SetSourceIndex(c.state.Job, pattern)
	c.state.Generation++
	c.state.Fields = []fields.FieldDescriptor{}
	c.state.FieldsPattern = pattern
	c.state.FieldsError = ""
	if pattern == "" {
		c.state.FieldsStatus = FieldsIdle
	} else {
		c.state.FieldsStatus = FieldsLoading
	}
	c.refresh()

	return FieldRequest{Generation: c.state.Generation, Pattern: pattern}, nil
}

// Resolve runs a field request. It does not read or write wizard state and
// may run on any goroutine.
func (c *Controller) Resolve(ctx context.Context, req FieldRequest) Resolution {
	res := Resolution{Generation: req.Generation, Pattern: req.Pattern}
	if req.Pattern == "" {
		res.Fields = []fields.FieldDescriptor{}
		return res
	}
	res.Fields, res.Err = c.resolver.Resolve(ctx, req.Pattern)
	return res
}

// ApplyFields installs a resolution if it answers the latest request.
// It returns false when the resolution was discarded.
func (c *Controller) ApplyFields(ctx context.Context, res Resolution) bool {
	ctx = c.ctx(ctx)
	if c.state.Closed() {
		c.logger.DebugContext(ctx, "ignoring field resolution for closed wizard", logging.Pattern(res.Pattern))
		return false
	}
	if res.Generation != c.state.Generation {
		metrics.StaleResolutions.Inc()
		c.logger.InfoContext(ctx, "discarding stale field resolution",
			logging.Pattern(res.Pattern),
			logging.Generation(res.Generation),
			"current_generation", c.state.Generation)
		return false
	}

	if res.Err != nil {
		c.state.FieldsStatus = FieldsFailed
		c.state.FieldsError = res.Err.Error()
		c.reporter.Report(ctx, LevelWarning,
			fmt.Sprintf("Could not load fields for %q. Reload the fields to retry.", res.Pattern))
		return true
	}

	c.state.Fields = append([]fields.FieldDescriptor{}, res.Fields...)
	c.state.FieldsStatus = FieldsReady
	c.state.FieldsError = ""
	if len(res.Fields) == 0 && res.Pattern != "" {
		c.reporter.Report(ctx, LevelWarning,
			fmt.Sprintf("No fields are shared by the indices matching %q", res.Pattern))
	}

	if c.state.Edit {
		job, missing := jobspec.Reconcile(c.state.Job, res.Fields)
		c.state.Job = job
		if len(missing) > 0 {
			c.reporter.Report(ctx, LevelWarning,
				"Fields missing from some matching indices: "+strings.Join(missing, ", "))
		}
	}
	c.refresh()
	return true
}

// ReloadFields issues a new field request for the current pattern, for
// retrying after a failed fetch. The job keeps its selections.
func (c *Controller) ReloadFields() (FieldRequest, error) {
	return c.SetSourceIndex(c.state.Job.SourceIndex)
}

// lookup finds a resolved field by path, preferring the given types.
func (c *Controller) lookup(path string, prefer ...fields.FieldType) (fields.FieldDescriptor, error) {
	if c.state.FieldsStatus != FieldsReady {
		return fields.FieldDescriptor{}, fmt.Errorf("%w: fields for %q are %s",
			ErrFieldUnavailable, c.state.Job.SourceIndex, c.state.FieldsStatus)
	}
	var fallback *fields.FieldDescriptor
	for i, d := range c.state.Fields {
		if d.Path != path {
			continue
		}
		for _, t := range prefer {
			if d.Type == t {
				return d, nil
			}
		}
		if fallback == nil {
			fallback = &c.state.Fields[i]
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return fields.FieldDescriptor{}, fmt.Errorf("%w: %s", ErrFieldUnavailable, path)
}

// SetDateHistogram selects the date field by path. An empty tz means the
// configured default timezone.
func (c *Controller) SetDateHistogram(path string, iv schedule.Interval, tz string) error {
	if c.state.Closed() {
		return ErrWizardClosed
	}
	f, err := c.lookup(path, fields.TypeDate)
	if err != nil {
		return err
	}
	if tz == "" {
		tz = c.timezone
	}
	return c.Patch("set date histogram", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.SetDateHistogram(j, f, iv, tz)
	})
}

func (c *Controller) SetDateHistogramInterval(iv schedule.Interval) error {
	return c.Patch("set date histogram interval", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.SetDateHistogramInterval(j, iv)
	})
}

func (c *Controller) ClearDateHistogram() error {
	return c.Patch("clear date histogram", pure(jobspec.ClearDateHistogram))
}

// AddDimension adds a terms or histogram dimension on the field at path.
func (c *Controller) AddDimension(path string, method jobspec.Method, interval float64) error {
	if c.state.Closed() {
		return ErrWizardClosed
	}
	prefer := []fields.FieldType{fields.TypeKeyword, fields.TypeNumeric}
	if method == jobspec.MethodHistogram {
		prefer = []fields.FieldType{fields.TypeNumeric}
	}
	f, err := c.lookup(path, prefer...)
	if err != nil {
		return err
	}
	return c.Patch("add dimension", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.AddDimension(j, jobspec.Dimension{Field: f, Method: method, Interval: interval})
	})
}

func (c *Controller) RemoveDimension(i int) error {
	return c.Patch("remove dimension", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.RemoveDimension(j, i)
	})
}

func (c *Controller) ReorderDimension(from, to int) error {
	return c.Patch("reorder dimension", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.ReorderDimension(j, from, to)
	})
}

// AddMetric adds a metric on the numeric field at path.
func (c *Controller) AddMetric(path string, aggs ...jobspec.Aggregation) error {
	if c.state.Closed() {
		return ErrWizardClosed
	}
	f, err := c.lookup(path, fields.TypeNumeric)
	if err != nil {
		return err
	}
	return c.Patch("add metric", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.AddMetric(j, f, aggs...)
	})
}

func (c *Controller) RemoveMetric(i int) error {
	return c.Patch("remove metric", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.RemoveMetric(j, i)
	})
}

func (c *Controller) SetMetricAggregations(i int, aggs ...jobspec.Aggregation) error {
	return c.Patch("set metric aggregations", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.SetMetricAggregations(j, i, aggs...)
	})
}

// SetSchedule stores s. A cron schedule without a timezone gets the
// configured default.
func (c *Controller) SetSchedule(s schedule.Spec) error {
	if s.Kind == schedule.KindCron && s.Timezone == "" {
		s.Timezone = c.timezone
	}
	return c.Patch("set schedule", pure(func(j jobspec.Job) jobspec.Job { return jobspec.SetSchedule(j, s) }))
}

func (c *Controller) SetPaging(size int) error {
	return c.Patch("set page size", pure(func(j jobspec.Job) jobspec.Job { return jobspec.SetPaging(j, size) }))
}

func (c *Controller) SetEnabled(enabled bool) error {
	return c.Patch("set enabled", pure(func(j jobspec.Job) jobspec.Job { return jobspec.SetEnabled(j, enabled) }))
}

func (c *Controller) SetContinuous(continuous bool) error {
	return c.Patch("set continuous", pure(func(j jobspec.Job) jobspec.Job { return jobspec.SetContinuous(j, continuous) }))
}

func (c *Controller) SetDelay(value *int64, unit schedule.DelayUnit) error {
	return c.Patch("set delay", func(j jobspec.Job) (jobspec.Job, error) {
		return jobspec.SetDelay(j, value, unit)
	})
}

// refresh re-checks every step validated so far, so HighestValidated
// never covers a step that is now invalid and recovers once it is fixed.
func (c *Controller) refresh() {
	limit := c.state.Reached
	c.state.HighestValidated = 0
	broken := false
	for _, step := range Steps {
		if step > limit {
			break
		}
		switch {
		case broken:
			c.state.Validity[step] = ValidityPending
		case ValidateStep(step, c.state).Valid:
			c.state.Validity[step] = ValidityValid
			c.state.HighestValidated = step
		default:
			c.state.Validity[step] = ValidityInvalid
			broken = true
		}
	}

	current := ValidateStep(c.state.CurrentStep, c.state)
	if len(c.state.Messages) > 0 {
		c.state.Messages = current.Messages
	}
	c.state.Warnings = current.Warnings
}

// Next validates the current step and advances on success.
func (c *Controller) Next(ctx context.Context) (StepResult, error) {
	ctx = c.ctx(ctx)
	if c.state.Closed() {
		return StepResult{}, ErrWizardClosed
	}
	from := c.state.CurrentStep
	if from >= StepReview {
		return StepResult{}, ErrLastStep
	}
	to := from + 1

	res := ValidateStep(from, c.state)
	if !res.Valid {
		c.state.Validity[from] = ValidityInvalid
		c.state.Messages = res.Messages
		c.state.Warnings = res.Warnings
		metrics.StepTransitions.WithLabelValues(from.String(), to.String(), "blocked").Inc()
		c.logger.DebugContext(ctx, "step validation failed",
			logging.Step(int(from)), "problems", len(res.Messages))
		return res, fmt.Errorf("%s: %w", from, ErrStepInvalid)
	}

	for _, k := range jobspec.SortedFields(res.Warnings) {
		c.reporter.Report(ctx, LevelWarning, fmt.Sprintf("%s: %s", k, res.Warnings[k]))
	}

	c.state.Validity[from] = ValidityValid
	if from > c.state.Reached {
		c.state.Reached = from
	}
	c.state.CurrentStep = to
	c.state.Messages = nil
	c.refresh()
	metrics.StepTransitions.WithLabelValues(from.String(), to.String(), "ok").Inc()
	return res, nil
}

// Back moves one step back without validating.
func (c *Controller) Back() error {
	if c.state.Closed() {
		return ErrWizardClosed
	}
	if c.state.CurrentStep > StepCollections {
		from := c.state.CurrentStep
		c.state.CurrentStep--
		metrics.StepTransitions.WithLabelValues(from.String(), c.state.CurrentStep.String(), "back").Inc()
	}
	c.state.Messages = nil
	c.state.Warnings = ValidateStep(c.state.CurrentStep, c.state).Warnings
	return nil
}

// JumpTo moves to step n if every step before it has been validated, so
// n may be one past HighestValidated: the step Next would reach anyway.
// This is one step more permissive than "only to validated steps".
func (c *Controller) JumpTo(n Step) error {
	if c.state.Closed() {
		return ErrWizardClosed
	}
	if !n.Valid() {
		return fmt.Errorf("unknown step %d", int(n))
	}
	if n > c.state.HighestValidated+1 {
		return fmt.Errorf("%s: %w", n, ErrJumpNotAllowed)
	}
	metrics.StepTransitions.WithLabelValues(c.state.CurrentStep.String(), n.String(), "jump").Inc()
	c.state.CurrentStep = n
	c.state.Messages = nil
	c.state.Warnings = ValidateStep(n, c.state).Warnings
	return nil
}

// Submit finalizes and persists the job. On failure the wizard stays on
// the review step with the job intact.
func (c *Controller) Submit(ctx context.Context) (jobspec.JobResponse, error) {
	ctx = c.ctx(ctx)
	if c.state.Closed() {
		return jobspec.JobResponse{}, ErrWizardClosed
	}
	if c.state.CurrentStep != StepReview {
		return jobspec.JobResponse{}, ErrNotReviewStep
	}

	action := "create"
	if c.state.Job.IsEdit() {
		action = "update"
	}

	prepared, err := jobspec.Prepare(c.state.Job, c.normalizer)
	if err == nil {
		var doc jobspec.Document
		doc, err = jobspec.Encode(prepared)
		if err == nil {
			return c.persist(ctx, action, prepared, doc)
		}
	}

	res := ValidateStep(StepReview, c.state)
	c.state.Validity[StepReview] = ValidityInvalid
	c.state.Messages = res.Messages
	if len(c.state.Messages) == 0 {
		c.state.Messages = map[string]string{"job": err.Error()}
	}
	metrics.Submissions.WithLabelValues(action, "invalid").Inc()
	c.reporter.Report(ctx, LevelError, "Fix the highlighted fields before submitting")
	return jobspec.JobResponse{}, err
}

func (c *Controller) persist(ctx context.Context, action string, job jobspec.Job, doc jobspec.Document) (jobspec.JobResponse, error) {
	start := time.Now()
	resp, err := c.put(ctx, job.ID, doc, job.Concurrency())
	elapsed := time.Since(start)
	metrics.SubmissionDuration.Observe(elapsed.Seconds())

	sub := Submission{
		SessionID: c.state.ID,
		JobID:     job.ID,
		Action:    action,
		Document:  doc,
		Err:       err,
		Duration:  elapsed,
	}

	if err != nil {
		metrics.Submissions.WithLabelValues(action, "error").Inc()
		c.logger.ErrorContext(ctx, "rollup job submission failed",
			logging.JobID(job.ID), "action", action, logging.Error(err))
		c.reporter.Report(ctx, LevelError, submissionMessage(action, err))
		c.notify(ctx, sub)
		return jobspec.JobResponse{}, err
	}

	metrics.Submissions.WithLabelValues(action, "ok").Inc()
	sub.Response = &resp

	seq, term := resp.SeqNo, resp.PrimaryTerm
	job.SeqNo, job.PrimaryTerm = &seq, &term
	c.state.Job = job
	c.state.Phase = PhaseSubmitted
	c.state.Validity[StepReview] = ValidityValid
	c.state.HighestValidated = StepReview
	c.state.Reached = StepReview
	c.state.Messages = nil
	c.state.Result = &resp

	verb := "Created"
	if action == "update" {
		verb = "Updated"
	}
	c.logger.InfoContext(ctx, "rollup job submitted",
		logging.JobID(job.ID), "action", action, logging.Duration(elapsed.Milliseconds()))
	c.reporter.Report(ctx, LevelSuccess, fmt.Sprintf("%s rollup job %q", verb, job.ID))
	c.notify(ctx, sub)
	return resp, nil
}

// put calls the store and turns a panic into ErrUnexpected.
func (c *Controller) put(ctx context.Context, id string, doc jobspec.Document, cc *jobspec.Concurrency) (resp jobspec.JobResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "panic during rollup job submission", logging.JobID(id), "panic", fmt.Sprint(r))
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
		}
	}()
	return c.store.PutJob(ctx, id, doc, cc)
}

func (c *Controller) notify(ctx context.Context, sub Submission) {
	for _, o := range c.observers {
		if err := o.ObserveSubmission(ctx, sub); err != nil {
			c.logger.WarnContext(ctx, "submission observer failed", logging.JobID(sub.JobID), logging.Error(err))
		}
	}
}

func submissionMessage(action string, err error) string {
	var se *jobspec.SubmissionError
	if errors.As(err, &se) && se.Reason != "" {
		return se.Reason
	}
	if action == "update" {
		return "Could not update job"
	}
	return "Could not create job"
}

// Cancel discards the job. Cancelling twice is a no-op.
func (c *Controller) Cancel(ctx context.Context) error {
	ctx = c.ctx(ctx)
	switch c.state.Phase {
	case PhaseSubmitted:
		return ErrWizardClosed
	case PhaseCancelled:
		return nil
	}
	c.state.Phase = PhaseCancelled
	c.state.Job = jobspec.Job{}
	c.state.Fields = []fields.FieldDescriptor{}
	c.state.FieldsStatus = FieldsIdle
	c.state.Messages = nil
	c.state.Warnings = nil
	c.state.Generation++
	c.reporter.Report(ctx, LevelInfo, "Rollup job discarded")
	return nil
}
