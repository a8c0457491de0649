package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

func TestBuild(t *testing.T) {
	tax := model.NewTaxonomy([]string{"A", "B", "Other"})

	classifications := []model.Classification{
		{Row: 0, Outcome: model.OutcomeEmpty},
		{Row: 1, Outcome: model.OutcomeInvalid, Codes: []int{99}, Confidence: 1.0},
		{Row: 2, Outcome: model.OutcomeClassified,
			Assignments: []model.Assignment{{Category: "A", Confidence: 0.9}}, Codes: []int{1}},
		{Row: 3, Outcome: model.OutcomeClassified,
			Assignments: []model.Assignment{{Category: "A", Confidence: 0.8}, {Category: "B", Confidence: 0.7}}, Codes: []int{1, 2}},
		{Row: 4, Outcome: model.OutcomeExisting, CarriedCode: "2", Confidence: 1.0},
		{Row: 5, Outcome: model.OutcomeExisting, CarriedCode: "99", Confidence: 1.0},
	}

	s := Build(Input{
		Variable:        "Q1",
		Question:        "What should we improve?",
		TotalRows:       6,
		ResponsesFound:  5,
		InvalidCode:     99,
		Classifications: classifications,
		Taxonomy:        tax,
		Outliers:        1,
		NewCategories:   0,
	})

	assert.Equal(t, model.StatusCompleted, s.Status)
	assert.Equal(t, 6, s.TotalRows)
	assert.Equal(t, 5, s.ResponsesFound)
	assert.Equal(t, 1, s.EmptyResponses)
	// One invalid this run plus one prior row carrying the invalid code.
	assert.Equal(t, 2, s.InvalidText)
	// Two classified this run plus one valid existing row.
	assert.Equal(t, 3, s.ValidClassified)
	assert.Equal(t, 3, s.Categories)
	assert.Equal(t, 1, s.Outliers)

	// Distribution counts the primary category only.
	assert.Equal(t, map[string]int{"A": 2}, s.Distribution)
}

func TestSkipped(t *testing.T) {
	s := Skipped("Q1", "", 100, 80)
	assert.Equal(t, model.StatusSkipped, s.Status)
	assert.Equal(t, 100, s.TotalRows)
	assert.Equal(t, 80, s.ValidClassified)
	assert.Zero(t, s.Categories)
}
