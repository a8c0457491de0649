// Package resume decides how to treat a variable that may have been coded
// by a previous run: skip it, extend it incrementally, or redo it in full.
package resume

import (
	"fmt"
	"strings"

	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/dataset"
)

// Mode is the caller-requested classification mode.
type Mode string

const (
	// ModeIncremental codes only rows lacking a prior result.
	ModeIncremental Mode = "incremental"
	// ModeRerun re-codes every row with data, overwriting prior results.
	ModeRerun Mode = "rerun"
)

// ParseMode maps a config string to a Mode, defaulting to incremental.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeIncremental):
		return ModeIncremental, nil
	case string(ModeRerun):
		return ModeRerun, nil
	}
	return "", fmt.Errorf("unknown classification mode %q", s)
}

// Action is the resolved processing path for one variable.
type Action int

const (
	// ActionClassifyAll runs the full pipeline over every row with data:
	// first runs and rerun mode.
	ActionClassifyAll Action = iota
	// ActionIncremental classifies only rows missing a code; coded rows
	// are preserved verbatim.
	ActionIncremental
	// ActionSkip means every row with data already has a code; no work and
	// no LLM calls.
	ActionSkip
)

// Decision is the resolver's outcome.
type Decision struct {
	Action        Action
	TotalWithData int
	CodedFilled   int
	CodedEmpty    int
	// PriorCategories is the taxonomy persisted by the previous run, loaded
	// only for ActionIncremental. Nil when no choice metadata exists.
	PriorCategories []model.Category
	// ExistingCodes maps row index to the prior serialized code for rows
	// preserved during an incremental run.
	ExistingCodes map[int]string
}

// Resolve inspects the dataset's coded column for the variable and decides
// the processing path. A missing source column is a fatal error; a missing
// coded column simply means a first run.
func Resolve(ds dataset.Dataset, choices dataset.ChoiceStore, variable string, mode Mode, invalidCode int) (Decision, error) {
	if !ds.HasColumn(variable) {
		return Decision{}, fmt.Errorf("variable %q not found in raw data", variable)
	}

	coded := dataset.CodedColumn(variable)
	if !ds.HasColumn(coded) {
		return Decision{Action: ActionClassifyAll}, nil
	}

	source, err := ds.Column(variable)
	if err != nil {
		return Decision{}, err
	}
	codes, err := ds.Column(coded)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{ExistingCodes: make(map[int]string)}
	for row, value := range source {
		hasData := strings.TrimSpace(value) != ""
		hasCode := strings.TrimSpace(codes[row]) != ""
		if hasData {
			d.TotalWithData++
			if hasCode {
				d.CodedFilled++
			} else {
				d.CodedEmpty++
			}
		}
		if hasCode {
			d.ExistingCodes[row] = strings.TrimSpace(codes[row])
		}
	}

	if mode == ModeRerun {
		d.Action = ActionClassifyAll
		d.ExistingCodes = nil
		return d, nil
	}

	if d.CodedEmpty == 0 {
		d.Action = ActionSkip
		return d, nil
	}

	d.Action = ActionIncremental
	if choices != nil {
		prior, err := choices.LoadChoices(variable, invalidCode)
		if err != nil {
			// Missing or unreadable choice metadata degrades to generating
			// a fresh taxonomy; already-coded rows are still preserved.
			prior = nil
		}
		d.PriorCategories = prior
	}
	return d, nil
}
