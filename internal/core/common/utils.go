package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON extracts and unmarshals the JSON object embedded in an LLM
// response. It tolerates markdown fences and prose around the object by
// cutting from the first '{' to the last '}'.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || start > end {
		return zero, fmt.Errorf("no JSON object found in response")
	}

	var result T
	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, response[start:end+1])
	}

	return result, nil
}

// NumberedList renders items as a 1-based numbered list for prompts.
func NumberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BulletList renders items as a dashed list for prompts.
func BulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}

// QuestionContext renders the optional question block appended to prompts.
// Empty input yields an empty string so templates stay clean.
func QuestionContext(question string) string {
	if question == "" {
		return ""
	}
	return fmt.Sprintf("\n\nQUESTION CONTEXT: %q\nCategories and assignments must stay relevant to this question.", question)
}
