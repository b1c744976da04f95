package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	// JobTypeSideEffectRetry re-runs the side effect bound to a successful
	// payment (e.g. ticket issuance) after a first attempt failed.
	JobTypeSideEffectRetry JobType = "side_effect_retry"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// SideEffectRetryPayload identifies the payment whose side effect must run.
type SideEffectRetryPayload struct {
	PaymentReference string `json:"payment_reference"`
}

// ToMap converts the payload to a map for storage
func (p SideEffectRetryPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"payment_reference": p.PaymentReference,
	}
}

// SideEffectRetryPayloadFromMap creates a payload from a map
func SideEffectRetryPayloadFromMap(data map[string]interface{}) (*SideEffectRetryPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload SideEffectRetryPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}
