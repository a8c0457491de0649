package dataset

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

const (
	choicesSheet = "choices"
	surveySheet  = "survey"
)

// FormFile is the form-definition workbook (survey + choices sheets). The
// choices sheet maps each coded variable to a `<var>_codes` list of
// label↔code pairs; the survey sheet gains a select_one row for each coded
// field. All sheets are held in memory and rewritten on Save.
type FormFile struct {
	path    string
	outPath string
	sheets  map[string][][]string
	order   []string
}

// OpenFormFile reads every sheet of the form workbook.
func OpenFormFile(path string) (*FormFile, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open form file %s: %w", path, err)
	}
	defer f.Close()

	ff := &FormFile{
		path:    path,
		outPath: path,
		sheets:  make(map[string][][]string),
	}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		ff.sheets[sheet] = normalize(rows)
		ff.order = append(ff.order, sheet)
	}
	return ff, nil
}

// SetOutputPath redirects Save to a separate file so inputs stay untouched.
func (ff *FormFile) SetOutputPath(path string) { ff.outPath = path }

func listName(variable string) string { return variable + "_codes" }

// LoadChoices returns the stored categories for a variable in sheet order,
// skipping the synthetic invalid entry.
func (ff *FormFile) LoadChoices(variable string, invalidCode int) ([]model.Category, error) {
	rows, ok := ff.sheets[choicesSheet]
	if !ok || len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	listCol := indexOf(header, "list_name")
	nameCol := indexOf(header, "name")
	labelCol := indexOf(header, "label")
	if listCol < 0 || nameCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("choices sheet is missing list_name/name/label columns")
	}

	want := listName(variable)
	var categories []model.Category
	for _, row := range rows[1:] {
		if cell(row, listCol) != want {
			continue
		}
		code, err := strconv.Atoi(cell(row, nameCol))
		if err != nil {
			continue
		}
		if code == invalidCode {
			continue
		}
		categories = append(categories, model.Category{
			Label: cell(row, labelCol),
			Code:  code,
		})
	}
	return categories, nil
}

// SaveChoices replaces the variable's choice list with the given categories
// plus the invalid category, and registers the coded field on the survey
// sheet next to the source question.
func (ff *FormFile) SaveChoices(variable string, categories []model.Category, invalid model.Category) error {
	if err := ff.writeChoices(variable, categories, invalid); err != nil {
		return err
	}
	ff.registerCodedField(variable)
	return nil
}

func (ff *FormFile) writeChoices(variable string, categories []model.Category, invalid model.Category) error {
	rows, ok := ff.sheets[choicesSheet]
	if !ok || len(rows) == 0 {
		rows = [][]string{{"list_name", "name", "label"}}
	}

	header := rows[0]
	listCol := indexOf(header, "list_name")
	nameCol := indexOf(header, "name")
	labelCol := indexOf(header, "label")
	if listCol < 0 || nameCol < 0 || labelCol < 0 {
		return fmt.Errorf("choices sheet is missing list_name/name/label columns")
	}

	want := listName(variable)
	kept := [][]string{header}
	for _, row := range rows[1:] {
		if cell(row, listCol) != want {
			kept = append(kept, row)
		}
	}

	add := func(code int, label string) {
		row := make([]string, len(header))
		row[listCol] = want
		row[nameCol] = strconv.Itoa(code)
		row[labelCol] = label
		kept = append(kept, row)
	}
	for _, c := range categories {
		add(c.Code, c.Label)
	}
	add(invalid.Code, invalid.Label)

	ff.sheets[choicesSheet] = kept
	return nil
}

// registerCodedField inserts a select_one row for the coded column right
// after the source question, if the survey sheet exists and the field is
// not registered yet.
func (ff *FormFile) registerCodedField(variable string) {
	rows, ok := ff.sheets[surveySheet]
	if !ok || len(rows) == 0 {
		return
	}

	header := rows[0]
	typeCol := indexOf(header, "type")
	nameCol := indexOf(header, "name")
	labelCol := indexOf(header, "label")
	if typeCol < 0 || nameCol < 0 {
		return
	}

	coded := CodedColumn(variable)
	varRow := -1
	for i, row := range rows[1:] {
		name := cell(row, nameCol)
		if name == coded {
			return // already registered
		}
		if name == variable {
			varRow = i + 1
		}
	}
	if varRow < 0 {
		return
	}

	newRow := make([]string, len(header))
	newRow[typeCol] = "select_one " + listName(variable)
	newRow[nameCol] = coded
	if labelCol >= 0 {
		label := cell(rows[varRow], labelCol)
		if label == "" {
			label = variable
		}
		newRow[labelCol] = label + " - Coded"
	}

	out := make([][]string, 0, len(rows)+1)
	out = append(out, rows[:varRow+1]...)
	out = append(out, newRow)
	out = append(out, rows[varRow+1:]...)
	ff.sheets[surveySheet] = out
}

// SurveyField is one row of the survey sheet.
type SurveyField struct {
	Type  string
	Name  string
	Label string
}

// SurveyFields returns the survey sheet rows in order. Nil when the sheet
// is missing or lacks the type/name columns.
func (ff *FormFile) SurveyFields() []SurveyField {
	rows, ok := ff.sheets[surveySheet]
	if !ok || len(rows) == 0 {
		return nil
	}

	header := rows[0]
	typeCol := indexOf(header, "type")
	nameCol := indexOf(header, "name")
	labelCol := indexOf(header, "label")
	if typeCol < 0 || nameCol < 0 {
		return nil
	}

	fields := make([]SurveyField, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fields = append(fields, SurveyField{
			Type:  cell(row, typeCol),
			Name:  cell(row, nameCol),
			Label: cell(row, labelCol),
		})
	}
	return fields
}

// ChoiceLists returns every choice list keyed by list_name, in sheet order.
// Rows whose code is not an integer are skipped.
func (ff *FormFile) ChoiceLists() map[string][]model.Category {
	rows, ok := ff.sheets[choicesSheet]
	if !ok || len(rows) == 0 {
		return nil
	}

	header := rows[0]
	listCol := indexOf(header, "list_name")
	nameCol := indexOf(header, "name")
	labelCol := indexOf(header, "label")
	if listCol < 0 || nameCol < 0 || labelCol < 0 {
		return nil
	}

	lists := make(map[string][]model.Category)
	for _, row := range rows[1:] {
		list := cell(row, listCol)
		if list == "" {
			continue
		}
		code, err := strconv.Atoi(cell(row, nameCol))
		if err != nil {
			continue
		}
		lists[list] = append(lists[list], model.Category{
			Label: cell(row, labelCol),
			Code:  code,
		})
	}
	return lists
}

// AppendChoices adds categories to the end of an existing choice list
// without touching its current rows.
func (ff *FormFile) AppendChoices(list string, categories []model.Category) error {
	rows, ok := ff.sheets[choicesSheet]
	if !ok || len(rows) == 0 {
		rows = [][]string{{"list_name", "name", "label"}}
	}

	header := rows[0]
	listCol := indexOf(header, "list_name")
	nameCol := indexOf(header, "name")
	labelCol := indexOf(header, "label")
	if listCol < 0 || nameCol < 0 || labelCol < 0 {
		return fmt.Errorf("choices sheet is missing list_name/name/label columns")
	}

	for _, c := range categories {
		row := make([]string, len(header))
		row[listCol] = list
		row[nameCol] = strconv.Itoa(c.Code)
		row[labelCol] = c.Label
		rows = append(rows, row)
	}

	ff.sheets[choicesSheet] = rows
	return nil
}

// Save rewrites every sheet to the output path.
func (ff *FormFile) Save() error {
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	for i, sheet := range ff.order {
		if i == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}
		for r, row := range ff.sheets[sheet] {
			if err := setRow(f, sheet, r+1, row); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(ff.outPath); err != nil {
		return fmt.Errorf("save form file %s: %w", ff.outPath, err)
	}
	return nil
}

func normalize(rows [][]string) [][]string {
	if len(rows) == 0 {
		return rows
	}
	width := len(rows[0])
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
