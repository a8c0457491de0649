package model

import (
	"sort"
	"strconv"
	"strings"
)

// Outcome describes how a row was resolved during a run.
type Outcome int

const (
	// OutcomeEmpty marks rows whose source cell was null or blank. They are
	// left uncoded, matching the behavior of the form platform.
	OutcomeEmpty Outcome = iota
	// OutcomeInvalid marks boilerplate non-answers ("n/a", "tidak ada", ...).
	OutcomeInvalid
	// OutcomeClassified marks rows coded by the model in this run.
	OutcomeClassified
	// OutcomeExisting marks rows whose code was carried over from a prior
	// run and not re-classified.
	OutcomeExisting
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeClassified:
		return "classified"
	case OutcomeExisting:
		return "existing"
	}
	return "unknown"
}

// Response is one free-text cell for a variable. Row is the stable
// zero-based index into the dataset.
type Response struct {
	Row  int
	Text string
}

// Assignment is one (category, confidence) pair of a multi-label result.
type Assignment struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Classification is the resolved result for one dataset row.
//
// Assignments are sorted by descending confidence; the first entry is the
// primary category. Codes parallels Assignments for classified rows. For
// existing rows only CarriedCode is retained (the prior run's serialized
// code); the category itself is not resolved.
type Classification struct {
	Row         int
	Response    string
	Outcome     Outcome
	Assignments []Assignment
	Codes       []int
	CarriedCode string
	Confidence  float64
}

// Primary returns the highest-confidence assignment.
func (c Classification) Primary() (Assignment, bool) {
	if len(c.Assignments) == 0 {
		return Assignment{}, false
	}
	return c.Assignments[0], true
}

// CodeString serializes the row's codes for the coded column: empty for
// uncoded rows, a bare code for single-label results, and space-joined codes
// for multi-label results ("1 3"). Existing rows echo their carried code.
func (c Classification) CodeString() string {
	switch c.Outcome {
	case OutcomeEmpty:
		return ""
	case OutcomeExisting:
		return c.CarriedCode
	}
	parts := make([]string, len(c.Codes))
	for i, code := range c.Codes {
		parts[i] = strconv.Itoa(code)
	}
	return strings.Join(parts, " ")
}

// SortByRow orders classifications by original dataset row, restoring input
// order after parallel assembly.
func SortByRow(cs []Classification) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Row < cs[j].Row })
}
