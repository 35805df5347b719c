// Package wizard drives the four-step rollup job wizard: collections,
// aggregations, schedule and review. All state lives in a serializable
// State value that only changes through Controller operations.
package wizard

import (
	"fmt"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/fields"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/rollup/internal/jobspec"
)

// Step is a wizard page, numbered from 1.
type Step int

const (
	StepCollections Step = iota + 1
	StepAggregations
	StepSchedule
	StepReview
)

// Steps lists every step in order.
var Steps = []Step{StepCollections, StepAggregations, StepSchedule, StepReview}

func (s Step) String() string {
	switch s {
	case StepCollections:
		return "collections"
	case StepAggregations:
		return "aggregations"
	case StepSchedule:
		return "schedule"
	case StepReview:
		return "review"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid reports whether s is one of Steps.
func (s Step) Valid() bool {
	return s >= StepCollections && s <= StepReview
}

// Validity is the last known validation outcome of a step.
type Validity string

const (
	ValidityPending Validity = "pending"
	ValidityValid   Validity = "valid"
	ValidityInvalid Validity = "invalid"
)

// Phase is the lifecycle of the wizard as a whole.
type Phase string

const (
	PhaseEditing   Phase = "editing"
	PhaseSubmitted Phase = "submitted"
	PhaseCancelled Phase = "cancelled"
)

// FieldsStatus tracks the field compatibility set of the current pattern.
type FieldsStatus string

const (
	FieldsIdle    FieldsStatus = "idle"
	FieldsLoading FieldsStatus = "loading"
	FieldsReady   FieldsStatus = "ready"
	FieldsFailed  FieldsStatus = "failed"
)

// State is the complete wizard state.
type State struct {
	ID               string                   `json:"id"`
	CurrentStep      Step                     `json:"current_step"`
	HighestValidated Step                     `json:"highest_validated"`
	Reached          Step                     `json:"reached"`
	Validity         map[Step]Validity        `json:"validity"`
	Messages         map[string]string        `json:"messages,omitempty"`
	Warnings         map[string]string        `json:"warnings,omitempty"`
	Job              jobspec.Job              `json:"job"`
	Fields           []fields.FieldDescriptor `json:"fields"`
	FieldsStatus     FieldsStatus             `json:"fields_status"`
	FieldsPattern    string                   `json:"fields_pattern,omitempty"`
	FieldsError      string                   `json:"fields_error,omitempty"`
	Generation       uint64                   `json:"generation"`
	Phase            Phase                    `json:"phase"`
	Edit             bool                     `json:"edit"`
	Result           *jobspec.JobResponse     `json:"result,omitempty"`
}

func newState(id string, job jobspec.Job) State {
	s := State{
		ID:           id,
		CurrentStep:  StepCollections,
		Validity:     map[Step]Validity{},
		Job:          job,
		Fields:       []fields.FieldDescriptor{},
		FieldsStatus: FieldsIdle,
		Phase:        PhaseEditing,
	}
	for _, step := range Steps {
		s.Validity[step] = ValidityPending
	}
	return s
}

// Closed reports whether the wizard no longer accepts changes.
func (s State) Closed() bool {
	return s.Phase != PhaseEditing
}

// Clone deep-copies s.
func (s State) Clone() State {
	out := s
	out.Job = s.Job.Clone()
	out.Validity = make(map[Step]Validity, len(s.Validity))
	for k, v := range s.Validity {
		out.Validity[k] = v
	}
	out.Messages = cloneMap(s.Messages)
	out.Warnings = cloneMap(s.Warnings)
	out.Fields = append([]fields.FieldDescriptor{}, s.Fields...)
	if s.Result != nil {
		r := *s.Result
		out.Result = &r
	}
	return out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
