// Package dataset provides the engine's view of survey data: row-indexed
// column access over the raw-data table and persisted category-choice
// metadata. The engine only sees the interfaces; the xlsx implementations
// live alongside them.
package dataset

import (
	"github.com/insightcoder/insightcoder/internal/core/model"
)

// CodedColumn returns the derived column name holding a variable's codes.
func CodedColumn(variable string) string {
	return variable + "_coded"
}

// Dataset is row-indexed access to one variable's raw data plus the ability
// to write the derived coded column back.
type Dataset interface {
	// Rows reports the number of data rows.
	Rows() int
	// HasColumn reports whether a named column exists.
	HasColumn(name string) bool
	// Column returns one cell per row ("" for blank), length Rows().
	Column(name string) ([]string, error)
	// SetColumn writes values into the named column, inserting it directly
	// after the column named by after when it does not exist yet.
	SetColumn(name, after string, values []string) error
	// Save persists the table.
	Save() error
}

// ChoiceStore persists the label↔code choice metadata for coded variables,
// used to rebuild a taxonomy when continuing an incremental run.
type ChoiceStore interface {
	// LoadChoices returns the stored categories for a variable, excluding
	// the synthetic invalid category. Empty result means none stored.
	LoadChoices(variable string, invalidCode int) ([]model.Category, error)
	// SaveChoices replaces the variable's choice list with the given
	// categories plus the synthetic invalid category, and registers the
	// coded field in the form definition.
	SaveChoices(variable string, categories []model.Category, invalid model.Category) error
	// Save persists the form definition.
	Save() error
}
