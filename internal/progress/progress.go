// Package progress tracks classification jobs and streams step updates to
// the caller. The engine only sees the Callback type; job-level state lives
// behind the Tracker interface with in-memory and Redis implementations.
package progress

import (
	"time"

	"github.com/insightcoder/insightcoder/internal/core/model"
)

// Callback reports one pipeline step. A negative percent is advisory: the
// message carries information (e.g. a transient retry notice) without moving
// the progress bar.
type Callback func(message string, percent int)

// Advisory is the percent value for messages that do not change progress.
const Advisory = -1

// Nop discards progress updates.
func Nop(string, int) {}

// Message is one timestamped log line of a job.
type Message struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

// Status is a snapshot of a job's progress.
type Status struct {
	Status             string                  `json:"status"`
	CurrentVariable    string                  `json:"current_variable,omitempty"`
	CurrentQuestion    string                  `json:"current_question,omitempty"`
	CurrentStep        string                  `json:"current_step"`
	Progress           int                     `json:"progress"`
	VariableProgress   int                     `json:"variable_progress"`
	TotalVariables     int                     `json:"total_variables"`
	CompletedVariables int                     `json:"completed_variables"`
	StartTime          time.Time               `json:"start_time"`
	EndTime            time.Time               `json:"end_time,omitzero"`
	Messages           []Message               `json:"messages"`
	Error              string                  `json:"error,omitempty"`
	Completed          bool                    `json:"completed"`
	Results            []model.VariableSummary `json:"results,omitempty"`
}

// Tracker records job progress. Implementations are safe for concurrent use
// and best-effort: a failed update never aborts a classification run.
type Tracker interface {
	Create(jobID string, totalVariables int)
	StartVariable(jobID, variable, question string, index int)
	Step(jobID, message string, percent int)
	CompleteVariable(jobID, variable string, summary model.VariableSummary)
	Complete(jobID string)
	Fail(jobID, errMsg string)
	Get(jobID string) (Status, bool)
	Delete(jobID string)
}

// maxMessages bounds the per-job message log.
const maxMessages = 50

func appendMessage(s *Status, text string) {
	s.Messages = append(s.Messages, Message{
		Time: time.Now().Format("15:04:05"),
		Text: text,
	})
	if len(s.Messages) > maxMessages {
		s.Messages = s.Messages[len(s.Messages)-maxMessages:]
	}
}

// applyStep folds one step update into a status: variable progress moves the
// overall percent, computed from completed variables plus the current one.
func applyStep(s *Status, message string, percent int) {
	s.CurrentStep = message
	if percent >= 0 {
		s.VariableProgress = percent
		if s.TotalVariables > 0 {
			overall := (float64(s.CompletedVariables) + float64(percent)/100) / float64(s.TotalVariables) * 100
			if int(overall) > s.Progress {
				s.Progress = int(overall)
			}
		}
	}
	appendMessage(s, message)
}
