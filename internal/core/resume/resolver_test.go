package resume

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

type fakeDataset struct {
	columns map[string][]string
	rows    int
}

func (f *fakeDataset) Rows() int { return f.rows }

func (f *fakeDataset) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

func (f *fakeDataset) Column(name string) ([]string, error) {
	col, ok := f.columns[name]
	if !ok {
		return nil, errors.New("no such column")
	}
	return col, nil
}

func (f *fakeDataset) SetColumn(name, after string, values []string) error {
	f.columns[name] = values
	return nil
}

func (f *fakeDataset) Save() error { return nil }

type fakeChoices struct {
	categories []model.Category
	err        error
}

func (f *fakeChoices) LoadChoices(variable string, invalidCode int) ([]model.Category, error) {
	return f.categories, f.err
}

func (f *fakeChoices) SaveChoices(variable string, categories []model.Category, invalid model.Category) error {
	f.categories = categories
	return nil
}

func (f *fakeChoices) Save() error { return nil }

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	assert.NoError(t, err)
	assert.Equal(t, ModeIncremental, m)

	m, err = ParseMode(" Rerun ")
	assert.NoError(t, err)
	assert.Equal(t, ModeRerun, m)

	_, err = ParseMode("bogus")
	assert.Error(t, err)
}

func TestResolveMissingVariableIsFatal(t *testing.T) {
	ds := &fakeDataset{columns: map[string][]string{}}
	_, err := Resolve(ds, nil, "Q1", ModeIncremental, 99)
	assert.Error(t, err)
}

func TestResolveFirstRun(t *testing.T) {
	ds := &fakeDataset{columns: map[string][]string{
		"Q1": {"a", "b", ""},
	}, rows: 3}

	d, err := Resolve(ds, nil, "Q1", ModeIncremental, 99)
	require.NoError(t, err)
	assert.Equal(t, ActionClassifyAll, d.Action)
}

func TestResolveSkipWhenFullyCoded(t *testing.T) {
	ds := &fakeDataset{columns: map[string][]string{
		"Q1":       {"a", "b", ""},
		"Q1_coded": {"1", "2 3", ""},
	}, rows: 3}

	d, err := Resolve(ds, nil, "Q1", ModeIncremental, 99)
	require.NoError(t, err)
	assert.Equal(t, ActionSkip, d.Action)
	assert.Equal(t, 2, d.CodedFilled)
	assert.Equal(t, 0, d.CodedEmpty)
}

func TestResolveIncremental(t *testing.T) {
	ds := &fakeDataset{columns: map[string][]string{
		"Q1":       {"a", "b", "c", ""},
		"Q1_coded": {"1", "", "", ""},
	}, rows: 4}
	choices := &fakeChoices{categories: []model.Category{{Label: "A", Code: 1}}}

	d, err := Resolve(ds, choices, "Q1", ModeIncremental, 99)
	require.NoError(t, err)
	assert.Equal(t, ActionIncremental, d.Action)
	assert.Equal(t, 3, d.TotalWithData)
	assert.Equal(t, 1, d.CodedFilled)
	assert.Equal(t, 2, d.CodedEmpty)
	assert.Equal(t, map[int]string{0: "1"}, d.ExistingCodes)
	assert.Equal(t, choices.categories, d.PriorCategories)
}

func TestResolveIncrementalWithoutChoiceMetadata(t *testing.T) {
	ds := &fakeDataset{columns: map[string][]string{
		"Q1":       {"a", "b"},
		"Q1_coded": {"1", ""},
	}, rows: 2}
	choices := &fakeChoices{err: errors.New("sheet missing")}

	d, err := Resolve(ds, choices, "Q1", ModeIncremental, 99)
	require.NoError(t, err)
	assert.Equal(t, ActionIncremental, d.Action)
	// Unreadable metadata degrades to a fresh taxonomy, never an error.
	assert.Nil(t, d.PriorCategories)
}

func TestResolveRerunIgnoresExistingCodes(t *testing.T) {
	ds := &fakeDataset{columns: map[string][]string{
		"Q1":       {"a", "b"},
		"Q1_coded": {"1", "2"},
	}, rows: 2}

	d, err := Resolve(ds, nil, "Q1", ModeRerun, 99)
	require.NoError(t, err)
	assert.Equal(t, ActionClassifyAll, d.Action)
	assert.Nil(t, d.ExistingCodes)
}
