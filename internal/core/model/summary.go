package model

// VariableSummary aggregates one completed variable run.
type VariableSummary struct {
	Variable        string         `json:"variable"`
	Question        string         `json:"question,omitempty"`
	Status          string         `json:"status"`
	Error           string         `json:"error,omitempty"`
	TotalRows       int            `json:"total_rows"`
	ResponsesFound  int            `json:"responses_found"`
	EmptyResponses  int            `json:"empty_responses"`
	InvalidText     int            `json:"invalid_text_responses"`
	ValidClassified int            `json:"valid_classified"`
	Categories      int            `json:"categories_generated"`
	NewCategories   int            `json:"new_categories_added"`
	Outliers        int            `json:"outliers_found"`
	Degraded        bool           `json:"degraded,omitempty"`
	Distribution    map[string]int `json:"distribution,omitempty"`
}

// Run statuses reported in VariableSummary.Status.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)
