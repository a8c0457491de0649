package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type parsePayload struct {
	Categories []string `json:"categories"`
}

func TestParseJSON(t *testing.T) {
	raw := "```json\n{\"categories\": [\"A\", \"B\"]}\n```"
	parsed, err := ParseJSON[parsePayload](raw)
	assert.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, parsed.Categories)
}

func TestParseJSONWithSurroundingProse(t *testing.T) {
	raw := "Here is the result: {\"categories\": [\"A\"]} Hope that helps!"
	parsed, err := ParseJSON[parsePayload](raw)
	assert.NoError(t, err)
	assert.Equal(t, []string{"A"}, parsed.Categories)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[parsePayload]("sorry, I cannot answer that")
	assert.Error(t, err)
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON[parsePayload]("{\"categories\": [")
	assert.Error(t, err)
}

func TestNumberedList(t *testing.T) {
	assert.Equal(t, "1. a\n2. b", NumberedList([]string{"a", "b"}))
	assert.Equal(t, "", NumberedList(nil))
}

func TestBulletList(t *testing.T) {
	assert.Equal(t, "- a\n- b", BulletList([]string{"a", "b"}))
}

func TestQuestionContext(t *testing.T) {
	assert.Equal(t, "", QuestionContext(""))
	assert.Contains(t, QuestionContext("What should we improve?"), "What should we improve?")
}
