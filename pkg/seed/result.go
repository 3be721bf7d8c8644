package seed

import (
	"github.com/samber/lo"

	"github.com/ngc-omeka/omeka-dist/pkg/report"
)

// Outcome classifies what happened to one seeded item
type Outcome int

const (
	// OutcomeOK means the item was created, imported or installed
	OutcomeOK Outcome = iota
	// OutcomeNote means the item was already present and was skipped
	OutcomeNote
	// OutcomeWarning means a dependency of the item could not be found
	OutcomeWarning
	// OutcomeError means the item was incomplete or the call failed
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNote:
		return "note"
	case OutcomeWarning:
		return "warning"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome marks the run as completed with errors
func (o Outcome) Failed() bool {
	return o == OutcomeWarning || o == OutcomeError
}

// ItemResult is the outcome of one manifest or config entry
type ItemResult struct {
	Item    string
	Outcome Outcome
	Message string
}

// StageResult collects the items of one sub-stage
type StageResult struct {
	Name  string
	Items []ItemResult
}

// Count returns the number of items with the given outcome
func (s StageResult) Count(o Outcome) int {
	return lo.CountBy(s.Items, func(item ItemResult) bool { return item.Outcome == o })
}

// Failed reports whether any item failed
func (s StageResult) Failed() bool {
	return lo.SomeBy(s.Items, func(item ItemResult) bool { return item.Outcome.Failed() })
}

// Result is the outcome of a seeding run
type Result struct {
	Stages []StageResult
}

// Success is false when any sub-stage reported a warning or an error
func (r *Result) Success() bool {
	return !lo.SomeBy(r.Stages, func(s StageResult) bool { return s.Failed() })
}

// Stage returns the named sub-stage result
func (r *Result) Stage(name string) (StageResult, bool) {
	return lo.Find(r.Stages, func(s StageResult) bool { return s.Name == name })
}

// Rows renders the result as summary table rows
func (r *Result) Rows() []report.StageRow {
	return lo.Map(r.Stages, func(s StageResult, _ int) report.StageRow {
		return report.StageRow{
			Stage:    s.Name,
			OK:       s.Count(OutcomeOK),
			Notes:    s.Count(OutcomeNote),
			Warnings: s.Count(OutcomeWarning),
			Errors:   s.Count(OutcomeError),
		}
	})
}
