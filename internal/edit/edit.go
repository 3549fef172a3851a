// Package edit applies manual corrections to a logger series: nulling
// values, marking out-of-soil spans, removing rows and bounded gap filling.
package edit

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/microclimate-qa/internal/model"
	"github.com/sells-group/microclimate-qa/internal/qa"
)

// Kinds of edit operations.
const (
	OpNullValues = "null_values"
	OpNullSpan   = "null_span"
	OpFlagOOS    = "flag_oos"
	OpRemoveRows = "remove_rows"
	OpFillGaps   = "fill_gaps"
)

// Plan is an ordered list of edit operations for one file.
type Plan struct {
	File       string      `yaml:"file"`
	Operations []Operation `yaml:"operations"`
}

// Operation is one manual edit. Which fields apply depends on Op.
type Operation struct {
	Op         string   `yaml:"op"`
	Channel    string   `yaml:"channel,omitempty"`
	Timestamps []string `yaml:"timestamps,omitempty"`
	Start      string   `yaml:"start,omitempty"`
	End        string   `yaml:"end,omitempty"`
	OOS        bool     `yaml:"oos,omitempty"`
	ByDate     bool     `yaml:"by_date,omitempty"`
	Limit      int      `yaml:"limit,omitempty"`
}

// Outcome records what a single operation changed.
type Outcome struct {
	Op       string `json:"op"`
	Affected int    `json:"affected"`
}

// LoadPlan reads an edit plan from a YAML file. The document has a
// top-level "edits" key.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "edit: read plan %s", path)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates an edit plan.
func ParsePlan(data []byte) (*Plan, error) {
	var wrapper struct {
		Edits Plan `yaml:"edits"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "edit: parse plan")
	}
	for i, op := range wrapper.Edits.Operations {
		if err := op.validate(); err != nil {
			return nil, eris.Wrapf(err, "edit: operation %d", i)
		}
	}
	return &wrapper.Edits, nil
}

func (o Operation) validate() error {
	switch o.Op {
	case OpNullValues:
		if o.Channel == "" || len(o.Timestamps) == 0 {
			return eris.New("null_values needs channel and timestamps")
		}
	case OpNullSpan:
		if o.Channel == "" || o.Start == "" || o.End == "" {
			return eris.New("null_span needs channel, start and end")
		}
	case OpFlagOOS:
		if o.Start == "" || o.End == "" {
			return eris.New("flag_oos needs start and end")
		}
	case OpRemoveRows:
		if len(o.Timestamps) == 0 && o.Start == "" && o.End == "" {
			return eris.New("remove_rows needs timestamps or a start/end range")
		}
	case OpFillGaps:
		if o.Limit < 0 {
			return eris.New("fill_gaps limit must not be negative")
		}
	default:
		return eris.Errorf("unknown op %q", o.Op)
	}
	if o.Channel != "" {
		if _, ok := model.ParseChannel(o.Channel); !ok {
			return eris.Errorf("unknown channel %q", o.Channel)
		}
	}
	return nil
}

// Apply runs the plan against s and returns the edited copy. The input is
// not modified. defaultLimit is used by fill_gaps operations without a limit.
func Apply(s *model.Series, plan *Plan, defaultLimit int) (*model.Series, []Outcome, error) {
	out := s.Clone()
	outcomes := make([]Outcome, 0, len(plan.Operations))
	for i, op := range plan.Operations {
		var (
			n   int
			err error
		)
		switch op.Op {
		case OpNullValues:
			n, err = nullValues(out, op)
		case OpNullSpan:
			n, err = nullSpan(out, op)
		case OpFlagOOS:
			n, err = flagOOS(out, op)
		case OpRemoveRows:
			out, n, err = removeRows(out, op)
		case OpFillGaps:
			limit := op.Limit
			if limit == 0 {
				limit = defaultLimit
			}
			out, n = qa.FillGaps(out, limit)
		default:
			err = eris.Errorf("unknown op %q", op.Op)
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "edit: operation %d (%s)", i, op.Op)
		}
		zap.L().Debug("edit: applied",
			zap.String("file", s.ID),
			zap.String("op", op.Op),
			zap.Int("affected", n),
		)
		outcomes = append(outcomes, Outcome{Op: op.Op, Affected: n})
	}
	return out, outcomes, nil
}

func nullValues(s *model.Series, op Operation) (int, error) {
	c, _ := model.ParseChannel(op.Channel)
	col, ok := s.Columns[c]
	if !ok {
		return 0, nil
	}
	stamps := make(map[time.Time]bool, len(op.Timestamps))
	for _, raw := range op.Timestamps {
		t, err := model.ParseTime(raw)
		if err != nil {
			return 0, err
		}
		stamps[t] = true
	}
	n := 0
	for i, t := range s.Times {
		if stamps[t] {
			col[i] = model.Missing
			n++
		}
	}
	return n, nil
}

func nullSpan(s *model.Series, op Operation) (int, error) {
	start, end, err := span(s, op)
	if err != nil {
		return 0, err
	}
	c, _ := model.ParseChannel(op.Channel)
	col, ok := s.Columns[c]
	n := 0
	for i, t := range s.Times {
		if t.Before(start) || t.After(end) {
			continue
		}
		if ok {
			col[i] = model.Missing
		}
		if op.OOS {
			s.MarkOutOfSoil()[i] = true
		}
		n++
	}
	return n, nil
}

func flagOOS(s *model.Series, op Operation) (int, error) {
	start, end, err := span(s, op)
	if err != nil {
		return 0, err
	}
	oos := s.MarkOutOfSoil()
	n := 0
	for i, t := range s.Times {
		if !t.Before(start) && !t.After(end) {
			oos[i] = true
			n++
		}
	}
	return n, nil
}

func removeRows(s *model.Series, op Operation) (*model.Series, int, error) {
	exact := make(map[time.Time]bool)
	days := make(map[time.Time]bool)
	for _, raw := range op.Timestamps {
		t, err := model.ParseTime(raw)
		if err != nil {
			return nil, 0, err
		}
		if op.ByDate && model.IsDateOnly(raw) {
			days[t] = true
			continue
		}
		exact[t] = true
	}

	hasRange := op.Start != "" || op.End != ""
	var start, end time.Time
	if hasRange {
		var err error
		if start, end, err = span(s, op); err != nil {
			return nil, 0, err
		}
	}

	out := s.Filter(func(i int) bool {
		t := s.Times[i]
		if exact[t] || days[t.Truncate(24*time.Hour)] {
			return false
		}
		return !(hasRange && !t.Before(start) && !t.After(end))
	})
	return out, s.Len() - out.Len(), nil
}

// span resolves an inclusive start/end range. An open side extends to the
// first or last timestamp of the series.
func span(s *model.Series, op Operation) (time.Time, time.Time, error) {
	start, end := s.Span()
	if op.Start != "" {
		t, err := model.ParseTime(op.Start)
		if err != nil {
			return start, end, err
		}
		start = t
	}
	if op.End != "" {
		t, err := model.ParseTime(op.End)
		if err != nil {
			return start, end, err
		}
		end = t
	}
	if end.Before(start) {
		return start, end, eris.Errorf("end %s before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}
