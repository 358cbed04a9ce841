package amqp

import (
	"testing"
	"time"
)

func TestNewImportCompletedMessage(t *testing.T) {
	msg := NewImportCompletedMessage("job-123")

	if msg.JobID != "job-123" {
		t.Errorf("NewImportCompletedMessage() JobID = %v, want job-123", msg.JobID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewImportCompletedMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewImportCompletedMessage() Timestamp should be recent")
	}
}

func TestImportCompletedMessage_JSON(t *testing.T) {
	timestamp := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	msg := &ImportCompletedMessage{
		JobID:     "8400d32e-6a71-4bd5-8f2b-3f0a34c1a001",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ImportCompletedMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("ImportCompletedMessageFromJSON() error = %v", err)
	}

	if parsed.JobID != msg.JobID {
		t.Errorf("Parsed JobID = %v, want %v", parsed.JobID, msg.JobID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestImportCompletedMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"jobId": 42`)

	if _, err := ImportCompletedMessageFromJSON(invalidJSON); err == nil {
		t.Error("ImportCompletedMessageFromJSON() should fail with invalid JSON")
	}
}
