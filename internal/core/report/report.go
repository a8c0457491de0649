// Package report aggregates classification outcomes into the per-variable
// summary returned to the caller.
package report

import (
	"strconv"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

// Input carries everything the aggregator needs from a completed run.
type Input struct {
	Variable        string
	Question        string
	TotalRows       int
	ResponsesFound  int
	InvalidCode     int
	Classifications []model.Classification
	Taxonomy        *model.Taxonomy
	Outliers        int
	NewCategories   int
	Degraded        bool
}

// Build produces the immutable VariableSummary for a completed run.
// Existing rows count as classified unless their carried code is the
// invalid code.
func Build(in Input) model.VariableSummary {
	s := model.VariableSummary{
		Variable:       in.Variable,
		Question:       in.Question,
		Status:         model.StatusCompleted,
		TotalRows:      in.TotalRows,
		ResponsesFound: in.ResponsesFound,
		Outliers:       in.Outliers,
		NewCategories:  in.NewCategories,
		Degraded:       in.Degraded,
		Distribution:   make(map[string]int),
	}
	if in.Taxonomy != nil {
		s.Categories = in.Taxonomy.Len()
	}

	invalidCode := strconv.Itoa(in.InvalidCode)
	for _, c := range in.Classifications {
		switch c.Outcome {
		case model.OutcomeEmpty:
			s.EmptyResponses++
		case model.OutcomeInvalid:
			s.InvalidText++
		case model.OutcomeClassified:
			s.ValidClassified++
			if primary, ok := c.Primary(); ok {
				s.Distribution[primary.Category]++
			}
		case model.OutcomeExisting:
			if c.CarriedCode == invalidCode {
				s.InvalidText++
			} else {
				s.ValidClassified++
			}
		}
	}
	return s
}

// Skipped builds the summary for a variable whose rows were all coded by a
// prior run, distinguishable from a failed or empty run.
func Skipped(variable, question string, totalRows, classified int) model.VariableSummary {
	return model.VariableSummary{
		Variable:        variable,
		Question:        question,
		Status:          model.StatusSkipped,
		TotalRows:       totalRows,
		ValidClassified: classified,
	}
}
