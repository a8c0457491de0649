package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		name string
		c    Classification
		want string
	}{
		{
			name: "empty row stays uncoded",
			c:    Classification{Outcome: OutcomeEmpty},
			want: "",
		},
		{
			name: "single label",
			c:    Classification{Outcome: OutcomeClassified, Codes: []int{4}},
			want: "4",
		},
		{
			name: "multi label joins with spaces",
			c:    Classification{Outcome: OutcomeClassified, Codes: []int{1, 3, 7}},
			want: "1 3 7",
		},
		{
			name: "invalid row carries the invalid code",
			c:    Classification{Outcome: OutcomeInvalid, Codes: []int{99}},
			want: "99",
		},
		{
			name: "existing row echoes the prior code verbatim",
			c:    Classification{Outcome: OutcomeExisting, CarriedCode: "2 5"},
			want: "2 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.CodeString())
		})
	}
}

func TestPrimary(t *testing.T) {
	c := Classification{Assignments: []Assignment{
		{Category: "A", Confidence: 0.9},
		{Category: "B", Confidence: 0.7},
	}}
	primary, ok := c.Primary()
	assert.True(t, ok)
	assert.Equal(t, "A", primary.Category)

	_, ok = Classification{}.Primary()
	assert.False(t, ok)
}

func TestSortByRow(t *testing.T) {
	cs := []Classification{{Row: 5}, {Row: 0}, {Row: 3}}
	SortByRow(cs)
	assert.Equal(t, []int{0, 3, 5}, []int{cs[0].Row, cs[1].Row, cs[2].Row})
}
