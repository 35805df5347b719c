// Package api is the HTTP client for the rollup wizard service.
package api

import "time"

// Field is one entry of a pattern's field compatibility set.
type Field struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	RawType string `json:"raw_type,omitempty"`
}

type Interval struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

type DateHistogram struct {
	Field    Field    `json:"field"`
	Interval Interval `json:"interval"`
	Timezone string   `json:"timezone"`
}

type Dimension struct {
	Field    Field   `json:"field"`
	Method   string  `json:"method"`
	Interval float64 `json:"interval,omitempty"`
}

type Metric struct {
	Field        Field    `json:"field"`
	Aggregations []string `json:"aggregations"`
}

type Schedule struct {
	Kind       string `json:"kind"`
	Period     int    `json:"period,omitempty"`
	Unit       string `json:"unit,omitempty"`
	Expression string `json:"expression,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

// Job is the job under construction as the service reports it.
type Job struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	SourceIndex   string         `json:"source_index"`
	TargetIndex   string         `json:"target_index"`
	DateHistogram *DateHistogram `json:"date_histogram,omitempty"`
	Dimensions    []Dimension    `json:"dimensions"`
	Metrics       []Metric       `json:"metrics"`
	Schedule      Schedule       `json:"schedule"`
	PageSize      int            `json:"page_size"`
	Delay         int64          `json:"delay"`
	Enabled       bool           `json:"enabled"`
	Continuous    bool           `json:"continuous"`
}

// State is a wizard session.
type State struct {
	ID               string            `json:"id"`
	CurrentStep      int               `json:"current_step"`
	HighestValidated int               `json:"highest_validated"`
	Reached          int               `json:"reached"`
	Messages         map[string]string `json:"messages,omitempty"`
	Warnings         map[string]string `json:"warnings,omitempty"`
	Job              Job               `json:"job"`
	Fields           []Field           `json:"fields"`
	FieldsStatus     string            `json:"fields_status"`
	FieldsPattern    string            `json:"fields_pattern,omitempty"`
	FieldsError      string            `json:"fields_error,omitempty"`
	Phase            string            `json:"phase"`
	Edit             bool              `json:"edit"`
}

// Notification levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type StepResult struct {
	Valid    bool              `json:"valid"`
	Messages map[string]string `json:"messages,omitempty"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

// Result is the outcome of one wizard operation.
type Result struct {
	State         State          `json:"state"`
	Notifications []Notification `json:"notifications"`
	StepResult    *StepResult    `json:"step_result,omitempty"`
}

// Draft summarizes a saved session.
type Draft struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	SourceIndex string    `json:"source_index"`
	Step        int       `json:"step"`
	Phase       string    `json:"phase"`
	Edit        bool      `json:"edit"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Action is one patch sent to POST /api/v1/wizards/{id}/actions. Job
// files use the same shape in YAML.
type Action struct {
	Type string `json:"type" yaml:"type"`

	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Flag  *bool  `json:"flag,omitempty" yaml:"flag,omitempty"`

	Field         string   `json:"field,omitempty" yaml:"field,omitempty"`
	Method        string   `json:"method,omitempty" yaml:"method,omitempty"`
	Interval      float64  `json:"interval,omitempty" yaml:"interval,omitempty"`
	IntervalType  string   `json:"interval_type,omitempty" yaml:"interval_type,omitempty"`
	IntervalValue int      `json:"interval_value,omitempty" yaml:"interval_value,omitempty"`
	IntervalUnit  string   `json:"interval_unit,omitempty" yaml:"interval_unit,omitempty"`
	Timezone      string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Aggregations  []string `json:"aggregations,omitempty" yaml:"aggregations,omitempty"`

	Index int `json:"index,omitempty" yaml:"index,omitempty"`
	From  int `json:"from,omitempty" yaml:"from,omitempty"`
	To    int `json:"to,omitempty" yaml:"to,omitempty"`

	Kind           string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Period         int    `json:"period,omitempty" yaml:"period,omitempty"`
	Unit           string `json:"unit,omitempty" yaml:"unit,omitempty"`
	CronExpression string `json:"cron_expression,omitempty" yaml:"cron_expression,omitempty"`
	CronTimezone   string `json:"cron_timezone,omitempty" yaml:"cron_timezone,omitempty"`

	PageSize  int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	Delay     *int64 `json:"delay,omitempty" yaml:"delay,omitempty"`
	DelayUnit string `json:"delay_unit,omitempty" yaml:"delay_unit,omitempty"`
}
