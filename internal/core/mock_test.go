package core

import (
	"context"
	"errors"

	"github.com/insightcoder/insightcoder/internal/core/model"
	"github.com/insightcoder/insightcoder/internal/dataset"
)

type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Prompts       []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

// FakeDataset is an in-memory stand-in for a spreadsheet.
type FakeDataset struct {
	Columns map[string][]string
	RowsN   int
	Saved   bool
}

func (f *FakeDataset) Rows() int { return f.RowsN }

func (f *FakeDataset) HasColumn(name string) bool {
	_, ok := f.Columns[name]
	return ok
}

func (f *FakeDataset) Column(name string) ([]string, error) {
	col, ok := f.Columns[name]
	if !ok {
		return nil, errors.New("no such column")
	}
	return col, nil
}

func (f *FakeDataset) SetColumn(name, after string, values []string) error {
	f.Columns[name] = values
	return nil
}

func (f *FakeDataset) Save() error {
	f.Saved = true
	return nil
}

// FakeChoices records saved choice lists.
type FakeChoices struct {
	Prior        []model.Category
	SavedCats    []model.Category
	SavedInvalid model.Category
	Saved        bool
}

func (f *FakeChoices) LoadChoices(variable string, invalidCode int) ([]model.Category, error) {
	if f.Prior == nil {
		return nil, errors.New("no choices for variable")
	}
	return f.Prior, nil
}

func (f *FakeChoices) SaveChoices(variable string, categories []model.Category, invalid model.Category) error {
	f.SavedCats = categories
	f.SavedInvalid = invalid
	return nil
}

func (f *FakeChoices) Save() error {
	f.Saved = true
	return nil
}

// FakeForm is an in-memory form definition for the semi open-ended pass.
type FakeForm struct {
	Fields   []dataset.SurveyField
	Lists    map[string][]model.Category
	Appended map[string][]model.Category
	Saved    bool
}

func (f *FakeForm) SurveyFields() []dataset.SurveyField { return f.Fields }

func (f *FakeForm) ChoiceLists() map[string][]model.Category { return f.Lists }

func (f *FakeForm) AppendChoices(list string, categories []model.Category) error {
	if f.Appended == nil {
		f.Appended = make(map[string][]model.Category)
	}
	f.Appended[list] = append(f.Appended[list], categories...)
	return nil
}

func (f *FakeForm) Save() error {
	f.Saved = true
	return nil
}
