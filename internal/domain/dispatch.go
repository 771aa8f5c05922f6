package domain

import (
	"context"
	"fmt"
)

// Handlers performs the side effect of each job kind.
// Adding a kind means adding a method here, so every implementation must handle it.
type Handlers interface {
	HandleTaskAssignment(ctx context.Context, data TaskAssignmentData) error
	HandleOTPEmail(ctx context.Context, data OTPEmailData) error
	HandleTaskNotification(ctx context.Context, data TaskNotificationData) error
	HandleTaskStatusUpdate(ctx context.Context, data TaskStatusData) error
	HandleTaskDelete(ctx context.Context, data TaskDeleteData) error
}

// Dispatch routes payload to the matching handler method
func Dispatch(ctx context.Context, h Handlers, payload Payload) error {
	switch p := payload.(type) {
	case TaskAssignmentData:
		return h.HandleTaskAssignment(ctx, p)
	case OTPEmailData:
		return h.HandleOTPEmail(ctx, p)
	case TaskNotificationData:
		return h.HandleTaskNotification(ctx, p)
	case TaskStatusData:
		return h.HandleTaskStatusUpdate(ctx, p)
	case TaskDeleteData:
		return h.HandleTaskDelete(ctx, p)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownJobType, payload)
	}
}

// DispatchJob decodes job and dispatches it
func DispatchJob(ctx context.Context, h Handlers, job *Job) error {
	payload, err := job.Decode()
	if err != nil {
		return err
	}
	return Dispatch(ctx, h, payload)
}
