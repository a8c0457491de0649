package model

// Category is one label of a variable's taxonomy. Code is 1-based in order
// of first appearance. Added marks labels mined from outliers in pass 2.
type Category struct {
	Label string
	Code  int
	Added bool
}

// Taxonomy is the ordered category list and label→code map for one
// variable's run. Codes are append-only: once assigned, a label keeps its
// code for the lifetime of the run, and new labels always receive codes
// strictly greater than the current maximum.
type Taxonomy struct {
	categories []Category
	codes      map[string]int
}

// NewTaxonomy builds a taxonomy from labels in order, assigning codes 1..n.
// Duplicate labels are dropped.
func NewTaxonomy(labels []string) *Taxonomy {
	t := &Taxonomy{codes: make(map[string]int)}
	t.Append(labels, false)
	return t
}

// Restore rebuilds a taxonomy from persisted categories, preserving their
// original codes. Used when continuing an incremental run.
func Restore(categories []Category) *Taxonomy {
	t := &Taxonomy{codes: make(map[string]int)}
	for _, c := range categories {
		if _, ok := t.codes[c.Label]; ok {
			continue
		}
		t.categories = append(t.categories, c)
		t.codes[c.Label] = c.Code
	}
	return t
}

// Append adds labels not yet present, assigning each the next code after the
// current maximum. Returns the number of labels actually added.
func (t *Taxonomy) Append(labels []string, added bool) int {
	n := 0
	for _, label := range labels {
		if label == "" {
			continue
		}
		if _, ok := t.codes[label]; ok {
			continue
		}
		code := t.MaxCode() + 1
		t.categories = append(t.categories, Category{Label: label, Code: code, Added: added})
		t.codes[label] = code
		n++
	}
	return n
}

// Code resolves a label to its numeric code.
func (t *Taxonomy) Code(label string) (int, bool) {
	code, ok := t.codes[label]
	return code, ok
}

// Labels returns the labels in code order.
func (t *Taxonomy) Labels() []string {
	labels := make([]string, len(t.categories))
	for i, c := range t.categories {
		labels[i] = c.Label
	}
	return labels
}

// Categories returns a copy of the ordered category list.
func (t *Taxonomy) Categories() []Category {
	out := make([]Category, len(t.categories))
	copy(out, t.categories)
	return out
}

// Len reports the number of categories.
func (t *Taxonomy) Len() int { return len(t.categories) }

// MaxCode reports the highest assigned code, 0 when empty.
func (t *Taxonomy) MaxCode() int {
	max := 0
	for _, c := range t.categories {
		if c.Code > max {
			max = c.Code
		}
	}
	return max
}

// AddedCount reports how many categories were mined in pass 2.
func (t *Taxonomy) AddedCount() int {
	n := 0
	for _, c := range t.categories {
		if c.Added {
			n++
		}
	}
	return n
}
