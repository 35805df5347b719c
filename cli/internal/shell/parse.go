// Package shell implements the interactive wizard prompt: a line grammar
// mapped onto wizard actions and an event loop that talks to the service.
package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/internal/api"
)

// Kind is what a parsed line asks for.
type Kind int

const (
	KindAction Kind = iota + 1
	KindNext
	KindBack
	KindJump
	KindSubmit
	KindCancel
	KindFields
	KindShow
	KindHelp
	KindQuit
)

// Command is one parsed input line.
type Command struct {
	Kind   Kind
	Action *api.Action
	Step   int
	// FieldType narrows a fields listing.
	FieldType string
}

// Remote reports whether c needs a round trip to the service.
func (c Command) Remote() bool {
	switch c.Kind {
	case KindShow, KindHelp, KindQuit:
		return false
	}
	return true
}

var errEmpty = errors.New("empty command")

// Usage lists the commands understood by Parse.
const Usage = `Commands:
  name <job-name>                      set the job name
  description <text>                   set the description
  source <pattern>                     set the source index pattern and load its fields
  reload                               retry loading the fields of the source pattern
  target <index>                       set the target index
  date <field> <fixed|calendar> <1d>  [tz]
                                       bucket by a date field
  interval <fixed|calendar> <1h>       change the date histogram interval
  nodate                               remove the date histogram
  dim <field> [terms | histogram <n>]  add a dimension
  rmdim <n>                            remove dimension n
  movedim <from> <to>                  move a dimension
  metric <field> <agg[,agg]>           add a metric (min,max,sum,avg,value_count)
  aggs <n> <agg[,agg]>                 replace the aggregations of metric n
  rmmetric <n>                         remove metric n
  every <period> <minutes|hours|days>  run on a fixed interval
  cron "<expression>" [tz]             run on a cron schedule
  pagesize <n>                         documents per page
  delay <n> [seconds|minutes|hours|days] | delay none
  enabled on|off
  continuous on|off
  fields [date|numeric|keyword|text]   list the fields of the source pattern
  next | back | jump <n> | show | submit | cancel | help | quit`

// Tokenize splits line on whitespace. Single or double quotes group words
// and are removed.
func Tokenize(line string) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
		inTok  bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inTok = true
		case r == ' ' || r == '\t':
			if inTok {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inTok {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// Parse maps one input line onto a Command. Positions typed by the user
// are 1-based.
func Parse(line string) (Command, error) {
	tokens, err := Tokenize(strings.TrimSpace(line))
	if err != nil {
		return Command{}, err
	}
	if len(tokens) == 0 {
		return Command{}, errEmpty
	}
	verb, args := strings.ToLower(tokens[0]), tokens[1:]

	action := func(a api.Action) (Command, error) {
		return Command{Kind: KindAction, Action: &a}, nil
	}

	switch verb {
	case "next":
		return Command{Kind: KindNext}, nil
	case "back":
		return Command{Kind: KindBack}, nil
	case "submit":
		return Command{Kind: KindSubmit}, nil
	case "cancel":
		return Command{Kind: KindCancel}, nil
	case "show":
		return Command{Kind: KindShow}, nil
	case "help", "?":
		return Command{Kind: KindHelp}, nil
	case "quit", "exit":
		return Command{Kind: KindQuit}, nil
	case "jump":
		n, err := position(args, 0, "step")
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindJump, Step: n}, nil
	case "fields":
		c := Command{Kind: KindFields}
		if len(args) > 0 {
			c.FieldType = strings.ToLower(args[0])
		}
		return c, nil

	case "name":
		return action(api.Action{Type: "set_job_name", Value: strings.Join(args, " ")})
	case "description", "desc":
		return action(api.Action{Type: "set_description", Value: strings.Join(args, " ")})
	case "source":
		if err := need(args, 1, "source <pattern>"); err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "set_source_index", Value: args[0]})
	case "reload":
		return action(api.Action{Type: "reload_fields"})
	case "target":
		if err := need(args, 1, "target <index>"); err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "set_target_index", Value: args[0]})

	case "date":
		if err := need(args, 3, "date <field> <fixed|calendar> <interval> [tz]"); err != nil {
			return Command{}, err
		}
		value, unit, err := splitInterval(args[2])
		if err != nil {
			return Command{}, err
		}
		a := api.Action{Type: "set_date_histogram", Field: args[0], IntervalType: strings.ToLower(args[1]), IntervalValue: value, IntervalUnit: unit}
		if len(args) > 3 {
			a.Timezone = args[3]
		}
		return action(a)
	case "interval":
		if err := need(args, 2, "interval <fixed|calendar> <interval>"); err != nil {
			return Command{}, err
		}
		value, unit, err := splitInterval(args[1])
		if err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "set_date_histogram_interval", IntervalType: strings.ToLower(args[0]), IntervalValue: value, IntervalUnit: unit})
	case "nodate":
		return action(api.Action{Type: "clear_date_histogram"})

	case "dim":
		if err := need(args, 1, "dim <field> [terms | histogram <interval>]"); err != nil {
			return Command{}, err
		}
		a := api.Action{Type: "add_dimension", Field: args[0], Method: "terms"}
		if len(args) > 1 {
			a.Method = strings.ToLower(args[1])
		}
		if a.Method == "histogram" {
			if err := need(args, 3, "dim <field> histogram <interval>"); err != nil {
				return Command{}, err
			}
			iv, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return Command{}, fmt.Errorf("histogram interval %q is not a number", args[2])
			}
			a.Interval = iv
		}
		return action(a)
	case "rmdim":
		n, err := position(args, 0, "dimension")
		if err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "remove_dimension", Index: n - 1})
	case "movedim":
		from, err := position(args, 0, "from")
		if err != nil {
			return Command{}, err
		}
		to, err := position(args, 1, "to")
		if err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "reorder_dimension", From: from - 1, To: to - 1})

	case "metric":
		if err := need(args, 2, "metric <field> <agg[,agg]>"); err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "add_metric", Field: args[0], Aggregations: splitList(args[1:])})
	case "aggs":
		n, err := position(args, 0, "metric")
		if err != nil {
			return Command{}, err
		}
		if err := need(args, 2, "aggs <n> <agg[,agg]>"); err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "set_metric_aggregations", Index: n - 1, Aggregations: splitList(args[1:])})
	case "rmmetric":
		n, err := position(args, 0, "metric")
		if err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "remove_metric", Index: n - 1})

	case "every":
		if err := need(args, 2, "every <period> <minutes|hours|days>"); err != nil {
			return Command{}, err
		}
		period, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("period %q is not a number", args[0])
		}
		return action(api.Action{Type: "set_schedule", Kind: "fixed", Period: period, Unit: args[1]})
	case "cron":
		if err := need(args, 1, `cron "<expression>" [tz]`); err != nil {
			return Command{}, err
		}
		a := api.Action{Type: "set_schedule", Kind: "cron", CronExpression: args[0]}
		if len(args) > 1 {
			a.CronTimezone = args[1]
		}
		return action(a)

	case "pagesize":
		if err := need(args, 1, "pagesize <n>"); err != nil {
			return Command{}, err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("page size %q is not a number", args[0])
		}
		return action(api.Action{Type: "set_page_size", PageSize: n})
	case "delay":
		if err := need(args, 1, "delay <n> [unit] | delay none"); err != nil {
			return Command{}, err
		}
		a := api.Action{Type: "set_delay"}
		if strings.ToLower(args[0]) != "none" {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return Command{}, fmt.Errorf("delay %q is not a number", args[0])
			}
			a.Delay = &n
			if len(args) > 1 {
				a.DelayUnit = args[1]
			}
		}
		return action(a)
	case "enabled", "continuous":
		if err := need(args, 1, verb+" on|off"); err != nil {
			return Command{}, err
		}
		on, err := parseSwitch(args[0])
		if err != nil {
			return Command{}, err
		}
		return action(api.Action{Type: "set_" + verb, Flag: &on})
	}
	return Command{}, fmt.Errorf("unknown command %q (type help)", verb)
}

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func position(args []string, i int, what string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s number", what)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", what, args[i])
	}
	return n, nil
}

// splitInterval splits "15m" into 15 and "m". A bare unit means 1.
func splitInterval(s string) (int, string, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	unit := s[i:]
	if unit == "" {
		return 0, "", fmt.Errorf("interval %q has no unit", s)
	}
	if i == 0 {
		return 1, unit, nil
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, "", fmt.Errorf("interval %q: %w", s, err)
	}
	return n, unit, nil
}

// splitList accepts "sum,avg" as well as "sum avg".
func splitList(args []string) []string {
	var out []string
	for _, a := range args {
		for _, p := range strings.Split(a, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, strings.ToLower(p))
			}
		}
	}
	return out
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
