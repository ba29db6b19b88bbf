package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// AttemptLog is the document indexed for every resolved deposit attempt
type AttemptLog struct {
	Timestamp    time.Time `json:"timestamp"`
	AttemptID    string    `json:"attempt_id"`
	UserID       string    `json:"user_id"`
	Method       string    `json:"method"`
	Family       string    `json:"family"`
	Amount       float64   `json:"amount,omitempty"`
	Outcome      string    `json:"outcome"`
	Message      string    `json:"message,omitempty"`
	ProcessingMs int64     `json:"processing_ms"`
}

// Logger indexes deposit attempt outcomes into OpenSearch
type Logger struct {
	client *Client
}

// NewLogger creates a new audit logger
func NewLogger(client *Client) *Logger {
	return &Logger{client: client}
}

// LogAttempt indexes a single attempt document. Failures here must never
// fail the attempt itself; callers log and continue.
func (l *Logger) LogAttempt(ctx context.Context, entry AttemptLog) error {
	if l == nil || l.client == nil {
		return nil
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.AttemptID == "" {
		entry.AttemptID = uuid.New().String()
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal attempt: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      l.client.indexName(),
		DocumentID: entry.AttemptID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.client)
	if err != nil {
		return fmt.Errorf("audit: failed to index attempt: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("audit: index request returned %s", res.Status())
	}

	return nil
}
