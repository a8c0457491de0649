// Package semiopen handles pre-coded select questions that carry an
// "Other"-style option ("Lainnya") with a companion free-text field. It
// detects the pairs from the form definition, codes only the free-text
// answers, and merges them with the pre-coded selections.
package semiopen

import (
	"regexp"
	"strings"

	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/dataset"
)

// Form is the view of the form definition the semi-open pass needs.
type Form interface {
	SurveyFields() []dataset.SurveyField
	ChoiceLists() map[string][]model.Category
	AppendChoices(list string, categories []model.Category) error
	Save() error
}

// Pair is one detected semi open-ended question: a select question whose
// choice list has an Other option, plus the free-text field catching the
// answers of respondents who picked it.
type Pair struct {
	SelectVariable string
	TextVariable   string
	ListName       string
	OtherCode      int
	SelectLabel    string
	TextLabel      string
}

var otherChoice = regexp.MustCompile(`(?i)lainnya`)

// textSuffixes are the naming conventions for the companion text field.
var textSuffixes = []string{"_L", "_l", "_lainnya", "_Lainnya", "_other", "_Other"}

// companionSearchRange caps how many survey rows after the select question
// are scanned for the text field.
const companionSearchRange = 5

// Detect returns every semi open-ended pair in the form: select_one and
// select_multiple questions whose choice list contains an Other option and
// that have a companion text field within the next few survey rows.
func Detect(form Form) []Pair {
	fields := form.SurveyFields()
	if len(fields) == 0 {
		return nil
	}

	otherCodes := make(map[string]int)
	for list, categories := range form.ChoiceLists() {
		for _, c := range categories {
			if otherChoice.MatchString(c.Label) {
				otherCodes[list] = c.Code
			}
		}
	}
	if len(otherCodes) == 0 {
		return nil
	}

	var pairs []Pair
	for i, f := range fields {
		if !strings.HasPrefix(f.Type, "select_one") && !strings.HasPrefix(f.Type, "select_multiple") {
			continue
		}

		list := f.Name
		if parts := strings.Fields(f.Type); len(parts) > 1 {
			list = parts[1]
		}
		code, ok := otherCodes[list]
		if !ok {
			continue
		}

		text, ok := findCompanion(fields, i)
		if !ok {
			continue
		}

		pairs = append(pairs, Pair{
			SelectVariable: f.Name,
			TextVariable:   text.Name,
			ListName:       list,
			OtherCode:      code,
			SelectLabel:    f.Label,
			TextLabel:      text.Label,
		})
	}
	return pairs
}

// findCompanion scans the rows after the select question for its text field,
// matched by naming convention or by a "lainnya"/"sebutkan" label on a field
// sharing the select variable's prefix.
func findCompanion(fields []dataset.SurveyField, selectIdx int) (dataset.SurveyField, bool) {
	selectName := fields[selectIdx].Name
	end := min(selectIdx+1+companionSearchRange, len(fields))

	for _, f := range fields[selectIdx+1 : end] {
		if f.Type != "text" {
			continue
		}
		for _, suffix := range textSuffixes {
			if f.Name == selectName+suffix {
				return f, true
			}
		}
		label := strings.ToLower(f.Label)
		if (strings.Contains(label, "lainnya") || strings.Contains(label, "sebutkan")) &&
			strings.HasPrefix(f.Name, selectName) {
			return f, true
		}
	}
	return dataset.SurveyField{}, false
}
