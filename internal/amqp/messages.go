package amqp

import (
	"encoding/json"
	"time"
)

// ImportCompletedMessage notifies the audit worker that a commit finished.
// Carries only the job ID; the worker fetches the full audit row from the
// database, so a stale or replayed message is harmless.
type ImportCompletedMessage struct {
	JobID     string    `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewImportCompletedMessage(jobID string) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
