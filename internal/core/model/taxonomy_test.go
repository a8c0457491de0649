package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTaxonomyAssignsSequentialCodes(t *testing.T) {
	tax := NewTaxonomy([]string{"Fasilitas", "Kebersihan", "Other"})

	assert.Equal(t, 3, tax.Len())
	assert.Equal(t, []string{"Fasilitas", "Kebersihan", "Other"}, tax.Labels())

	code, ok := tax.Code("Fasilitas")
	assert.True(t, ok)
	assert.Equal(t, 1, code)
	code, _ = tax.Code("Other")
	assert.Equal(t, 3, code)

	_, ok = tax.Code("Unknown")
	assert.False(t, ok)
}

func TestAppendNeverReassignsCodes(t *testing.T) {
	tax := NewTaxonomy([]string{"A", "B"})

	added := tax.Append([]string{"B", "C", ""}, true)
	assert.Equal(t, 1, added)

	// B kept its original code; C got the next one after the max.
	code, _ := tax.Code("B")
	assert.Equal(t, 2, code)
	code, _ = tax.Code("C")
	assert.Equal(t, 3, code)
	assert.Equal(t, 1, tax.AddedCount())
}

func TestRestorePreservesPersistedCodes(t *testing.T) {
	tax := Restore([]Category{
		{Label: "A", Code: 1},
		{Label: "Gap", Code: 7},
	})

	code, _ := tax.Code("Gap")
	assert.Equal(t, 7, code)

	// New labels continue after the persisted maximum, so old codes keep
	// their meaning across runs.
	tax.Append([]string{"New"}, true)
	code, _ = tax.Code("New")
	assert.Equal(t, 8, code)
}

func TestCategoriesReturnsCopy(t *testing.T) {
	tax := NewTaxonomy([]string{"A"})
	cats := tax.Categories()
	cats[0].Label = "mutated"

	assert.Equal(t, []string{"A"}, tax.Labels())
}
