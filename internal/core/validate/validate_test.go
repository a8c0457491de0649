package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	v := New([]string{"tidak ada", "n/a", "ta"})

	// Blank and too-short responses.
	assert.False(t, v.IsValid(""))
	assert.False(t, v.IsValid("   "))
	assert.False(t, v.IsValid("ab"))

	// Exact pattern matches, case-insensitive.
	assert.False(t, v.IsValid("N/A"))
	assert.False(t, v.IsValid("Tidak Ada"))
	assert.False(t, v.IsValid("  tidak ada  "))

	// Pattern as a whitespace-delimited prefix.
	assert.False(t, v.IsValid("tidak ada jawaban"))

	// Prefix must end at a word boundary, not mid-word.
	assert.True(t, v.IsValid("tidak adanya penerangan jalan"))

	assert.True(t, v.IsValid("perbaikan fasilitas kesehatan"))
}

func TestIsValidMultibyte(t *testing.T) {
	// Length is counted in runes, not bytes.
	v := New(nil)
	assert.False(t, v.IsValid("éé"))
	assert.True(t, v.IsValid("ééé"))
}

func TestFilter(t *testing.T) {
	v := New([]string{"tidak ada"})
	valid, invalid := v.Filter([]string{
		"perbaikan jalan",
		"tidak ada",
		"x",
		"fasilitas olahraga",
	})

	assert.Equal(t, []string{"perbaikan jalan", "fasilitas olahraga"}, valid)
	assert.Equal(t, []string{"tidak ada", "x"}, invalid)
}

func TestNewNormalizesPatterns(t *testing.T) {
	v := New([]string{"  N/A  ", ""})
	assert.False(t, v.IsValid("n/a"))
}
