package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Job is the message body that flows through the broker
type Job struct {
	Type      JobKind         `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"createdAt"`
}

// NewJob wraps payload in a job stamped with the current time
func NewJob(payload Payload) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", payload.Kind(), err)
	}

	return &Job{
		Type:      payload.Kind(),
		Data:      data,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// ParseJob decodes a message body into a Job
func ParseJob(body []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &job, nil
}

// Decode returns the typed payload for the job's kind
func (j *Job) Decode() (Payload, error) {
	switch j.Type {
	case KindTaskAssignment:
		return decodeAs[TaskAssignmentData](j)
	case KindOTPEmail:
		return decodeAs[OTPEmailData](j)
	case KindTaskNotification:
		return decodeAs[TaskNotificationData](j)
	case KindTaskStatusUpdate:
		return decodeAs[TaskStatusData](j)
	case KindTaskDelete:
		return decodeAs[TaskDeleteData](j)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, j.Type)
	}
}

func decodeAs[T Payload](j *Job) (Payload, error) {
	if len(j.Data) == 0 || string(j.Data) == "null" {
		return nil, fmt.Errorf("%w: %s has no data", ErrInvalidPayload, j.Type)
	}

	var payload T
	if err := json.Unmarshal(j.Data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, j.Type, err)
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return payload, nil
}
