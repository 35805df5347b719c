package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/pkg/output"
)

// Service is the part of the wizard API the shell drives.
type Service interface {
	Get(ctx context.Context, id string) (*api.Result, error)
	Apply(ctx context.Context, id string, actions ...api.Action) (*api.Result, error)
	Next(ctx context.Context, id string) (*api.Result, error)
	Back(ctx context.Context, id string) (*api.Result, error)
	Jump(ctx context.Context, id string, step int) (*api.Result, error)
	Submit(ctx context.Context, id string) (*api.Result, error)
	Cancel(ctx context.Context, id string) (*api.Result, error)
	Fields(ctx context.Context, pattern, fieldType string) ([]api.Field, error)
}

var stepNames = map[int]string{1: "Collections", 2: "Aggregations", 3: "Schedule", 4: "Review"}

// Shell runs one wizard session interactively.
type Shell struct {
	svc   Service
	id    string
	out   *output.Printer
	state api.State
}

func New(svc Service, initial api.Result, out *output.Printer) *Shell {
	return &Shell{svc: svc, id: initial.State.ID, out: out, state: initial.State}
}

// State returns the last state received from the service.
func (s *Shell) State() api.State {
	return s.state
}

type reply struct {
	cmd    Command
	res    *api.Result
	fields []api.Field
	err    error
}

// state returns the session state carried by r, if any.
func (r reply) state() *api.State {
	if r.res != nil {
		return &r.res.State
	}
	var apiErr *api.APIError
	if errors.As(r.err, &apiErr) && apiErr.Wizard != nil {
		return &apiErr.Wizard.State
	}
	return nil
}

// execute performs one remote command. pattern is the source index the
// session had after the previous command.
func (s *Shell) execute(ctx context.Context, cmd Command, pattern string) reply {
	r := reply{cmd: cmd}
	switch cmd.Kind {
	case KindAction:
		r.res, r.err = s.svc.Apply(ctx, s.id, *cmd.Action)
	case KindNext:
		r.res, r.err = s.svc.Next(ctx, s.id)
	case KindBack:
		r.res, r.err = s.svc.Back(ctx, s.id)
	case KindJump:
		r.res, r.err = s.svc.Jump(ctx, s.id, cmd.Step)
	case KindSubmit:
		r.res, r.err = s.svc.Submit(ctx, s.id)
	case KindCancel:
		r.res, r.err = s.svc.Cancel(ctx, s.id)
	case KindFields:
		if pattern == "" {
			r.err = errors.New("set a source index first")
			return r
		}
		r.fields, r.err = s.svc.Fields(ctx, pattern, cmd.FieldType)
	default:
		r.err = fmt.Errorf("command %d is not remote", cmd.Kind)
	}
	return r
}

// Run reads commands from in until the user quits or the session closes.
// Remote commands go to the service one at a time from a worker goroutine;
// their replies are rendered by this loop as they arrive.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	jobs := make(chan Command)
	replies := make(chan reply)
	pattern := s.state.Job.SourceIndex
	go func() {
		defer close(replies)
		for cmd := range jobs {
			r := s.execute(ctx, cmd, pattern)
			if st := r.state(); st != nil {
				pattern = st.Job.SourceIndex
			}
			select {
			case replies <- r:
			case <-done:
				return
			}
		}
	}()

	var (
		queue      []Command
		closing    bool
		jobsClosed bool
	)

	s.renderStep()
	s.prompt()
	for {
		if closing && len(queue) == 0 && !jobsClosed {
			close(jobs)
			jobsClosed = true
		}
		var send chan<- Command
		var head Command
		if len(queue) > 0 {
			send, head = jobs, queue[0]
		}

		select {
		case <-ctx.Done():
			if !jobsClosed {
				close(jobs)
			}
			return ctx.Err()

		case send <- head:
			queue = queue[1:]

		case line, ok := <-lines:
			if !ok {
				lines = nil
				closing = true
				continue
			}
			cmd, err := Parse(line)
			switch {
			case errors.Is(err, errEmpty):
				s.prompt()
				continue
			case err != nil:
				s.out.Error("%v", err)
				s.prompt()
				continue
			}
			switch cmd.Kind {
			case KindQuit:
				lines = nil
				closing = true
			case KindHelp:
				fmt.Fprintln(s.out.Out, Usage)
				s.prompt()
			case KindShow:
				s.renderSummary()
				s.prompt()
			default:
				queue = append(queue, cmd)
			}

		case r, ok := <-replies:
			if !ok {
				return nil
			}
			s.render(r)
			if s.state.Phase != "" && s.state.Phase != "editing" {
				lines = nil
				closing = true
				queue = nil
				continue
			}
			if !closing {
				s.prompt()
			}
		}
	}
}

func (s *Shell) prompt() {
	fmt.Fprintf(s.out.Out, "[%d/4 %s]> ", s.state.CurrentStep, strings.ToLower(stepNames[s.state.CurrentStep]))
}

func (s *Shell) render(r reply) {
	if r.err != nil {
		var apiErr *api.APIError
		if errors.As(r.err, &apiErr) && apiErr.Wizard != nil {
			s.apply(apiErr.Wizard)
		}
		s.renderError(r.err)
		return
	}

	if r.cmd.Kind == KindFields {
		table := output.NewTable([]string{"FIELD", "TYPE"})
		for _, f := range r.fields {
			table.AddRow([]string{f.Path, f.Type})
		}
		table.Render(s.out.Out)
		return
	}

	prev := s.state.CurrentStep
	s.apply(r.res)
	if s.state.CurrentStep != prev {
		s.renderStep()
	}
}

// apply adopts res as the current state and prints its notifications.
func (s *Shell) apply(res *api.Result) {
	s.state = res.State
	for _, n := range res.Notifications {
		s.out.Notify(n.Level, n.Message)
	}
	if res.StepResult != nil {
		for _, k := range sortedKeys(res.StepResult.Warnings) {
			s.out.Warn("%s: %s", k, res.StepResult.Warnings[k])
		}
	}
}

func (s *Shell) renderError(err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Errors) == 0 {
		s.out.Error("%v", err)
		return
	}
	for _, e := range apiErr.Errors {
		if p := e.Pointer(); p != "" && p != e.Source["pointer"] {
			s.out.Error("%s: %s", p, e.Detail)
			continue
		}
		s.out.Error("%s", e.Detail)
	}
}

func (s *Shell) renderStep() {
	n := s.state.CurrentStep
	s.out.Info("Step %d of 4: %s", n, stepNames[n])
}

func (s *Shell) renderSummary() {
	WriteSummary(s.out.Out, s.state)
}

// WriteSummary prints the job under construction.
func WriteSummary(w io.Writer, st api.State) {
	j := st.Job
	fmt.Fprintf(w, "Job:         %s\n", orNone(j.ID))
	if j.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", j.Description)
	}
	fmt.Fprintf(w, "Source:      %s (fields %s)\n", orNone(j.SourceIndex), st.FieldsStatus)
	fmt.Fprintf(w, "Target:      %s\n", orNone(j.TargetIndex))
	if dh := j.DateHistogram; dh != nil {
		fmt.Fprintf(w, "Date:        %s every %d%s (%s, %s)\n", dh.Field.Path, dh.Interval.Value, dh.Interval.Unit, dh.Interval.Type, dh.Timezone)
	} else {
		fmt.Fprintf(w, "Date:        none\n")
	}
	for i, d := range j.Dimensions {
		desc := d.Method
		if d.Method == "histogram" {
			desc = fmt.Sprintf("histogram %g", d.Interval)
		}
		fmt.Fprintf(w, "Dimension %d: %s (%s)\n", i+1, d.Field.Path, desc)
	}
	for i, m := range j.Metrics {
		fmt.Fprintf(w, "Metric %d:    %s [%s]\n", i+1, m.Field.Path, strings.Join(m.Aggregations, ", "))
	}
	switch j.Schedule.Kind {
	case "cron":
		fmt.Fprintf(w, "Schedule:    cron %q %s\n", j.Schedule.Expression, j.Schedule.Timezone)
	default:
		fmt.Fprintf(w, "Schedule:    every %d %s\n", j.Schedule.Period, strings.ToLower(j.Schedule.Unit))
	}
	fmt.Fprintf(w, "Page size:   %d\n", j.PageSize)
	fmt.Fprintf(w, "Delay:       %dms\n", j.Delay)
	fmt.Fprintf(w, "Enabled:     %t  Continuous: %t\n", j.Enabled, j.Continuous)
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
