package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
	"github.com/cuongbtq/notify-pipeline/internal/email"
)

type fakeEmail struct {
	otp         []domain.OTPEmailData
	assignments []domain.TaskAssignmentData
	result      *email.SendResult
	err         error
}

func (f *fakeEmail) SendOTPEmail(ctx context.Context, to, name, otp string) (*email.SendResult, error) {
	f.otp = append(f.otp, domain.OTPEmailData{Email: to, Name: name, OTP: otp})
	return f.reply()
}

func (f *fakeEmail) SendTaskAssignmentEmail(ctx context.Context, data domain.TaskAssignmentData) (*email.SendResult, error) {
	f.assignments = append(f.assignments, data)
	return f.reply()
}

func (f *fakeEmail) reply() (*email.SendResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &email.SendResult{Success: true, MessageID: "m-1"}, nil
}

type fakeStore struct {
	saved []*domain.ChatMessage
	err   error
}

func (f *fakeStore) CreateSystemMessage(ctx context.Context, text, room string) (*domain.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	msg := &domain.ChatMessage{
		ID:              int64(len(f.saved) + 1),
		Room:            room,
		Text:            text,
		IsSystemMessage: true,
	}
	f.saved = append(f.saved, msg)
	return msg, nil
}

type broadcast struct {
	room string
	msg  *domain.ChatMessage
}

type fakeBroadcaster struct {
	sent []broadcast
	err  error
}

func (f *fakeBroadcaster) BroadcastToRoom(ctx context.Context, room string, msg *domain.ChatMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, broadcast{room: room, msg: msg})
	return nil
}

func newTestService() (*Service, *fakeEmail, *fakeStore, *fakeBroadcaster) {
	mail := &fakeEmail{}
	store := &fakeStore{}
	bc := &fakeBroadcaster{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(mail, store, bc, log), mail, store, bc
}

func TestMessageTexts(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "notification with assignee",
			got: TaskNotificationText(domain.TaskNotificationData{
				ProjectID:    "p1",
				Title:        "Ship",
				AssignedUser: &domain.AssignedUser{ID: "u2", Name: "Bob"},
				Priority:     "high",
				DueDate:      "2024-03-09T00:00:00.000Z",
			}),
			want: "📋 New Task Assigned!\n\nTask: Ship\nAssigned to: Bob\nPriority: high\nDue: 3/9/2024",
		},
		{
			name: "notification without assignee or due date",
			got: TaskNotificationText(domain.TaskNotificationData{
				ProjectID: "p1",
				Title:     "Ship",
				Priority:  "low",
			}),
			want: "📋 New Task Created!\n\nTask: Ship\nPriority: low\nDue: No deadline",
		},
		{
			name: "status completed",
			got:  TaskStatusText(domain.TaskStatusData{TaskTitle: "Build UI", Status: "completed", UserName: "Ann"}),
			want: "✅ Task Status Updated!\n\nTask: Build UI\nNew Status: COMPLETED\nUpdated by: Ann",
		},
		{
			name: "status in progress",
			got:  TaskStatusText(domain.TaskStatusData{TaskTitle: "Build UI", Status: "in-progress", UserName: "Ann"}),
			want: "🔄 Task Status Updated!\n\nTask: Build UI\nNew Status: IN-PROGRESS\nUpdated by: Ann",
		},
		{
			name: "status other",
			got:  TaskStatusText(domain.TaskStatusData{TaskTitle: "Build UI", Status: "todo", UserName: "Ann"}),
			want: "📝 Task Status Updated!\n\nTask: Build UI\nNew Status: TODO\nUpdated by: Ann",
		},
		{
			name: "delete",
			got:  TaskDeleteText(domain.TaskDeleteData{TaskTitle: "Old", UserName: "Ann"}),
			want: "🗑️ Task Deleted\n\nTask: Old\nDeleted by: Ann",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestService_HandleTaskStatusUpdate(t *testing.T) {
	svc, _, store, bc := newTestService()

	err := svc.HandleTaskStatusUpdate(context.Background(), domain.TaskStatusData{
		ProjectID: "p1",
		TaskTitle: "Build UI",
		Status:    "completed",
		UserName:  "Ann",
		UserID:    "u1",
	})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	msg := store.saved[0]
	assert.Equal(t, "project_p1", msg.Room)
	assert.Contains(t, msg.Text, "Build UI")
	assert.Contains(t, msg.Text, "COMPLETED")
	assert.Nil(t, msg.Sender)
	assert.True(t, msg.IsSystemMessage)

	require.Len(t, bc.sent, 1)
	assert.Equal(t, "project_p1", bc.sent[0].room)
	assert.Same(t, msg, bc.sent[0].msg)
}

func TestService_ChatHandlersUseProjectRoom(t *testing.T) {
	svc, _, store, bc := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.HandleTaskNotification(ctx, domain.TaskNotificationData{ProjectID: "a", Title: "Ship"}))
	require.NoError(t, svc.HandleTaskDelete(ctx, domain.TaskDeleteData{ProjectID: "b", TaskTitle: "Old"}))

	require.Len(t, store.saved, 2)
	assert.Equal(t, "project_a", store.saved[0].Room)
	assert.Equal(t, "project_b", store.saved[1].Room)
	assert.Len(t, bc.sent, 2)
}

func TestService_ChatFailures(t *testing.T) {
	data := domain.TaskDeleteData{ProjectID: "p1", TaskTitle: "Old"}

	t.Run("store failure skips broadcast", func(t *testing.T) {
		svc, _, store, bc := newTestService()
		store.err = errors.New("connection refused")

		err := svc.HandleTaskDelete(context.Background(), data)
		assert.ErrorContains(t, err, "failed to save system message")
		assert.Empty(t, bc.sent)
	})

	t.Run("broadcast failure", func(t *testing.T) {
		svc, _, _, bc := newTestService()
		bc.err = errors.New("redis: closed")

		err := svc.HandleTaskDelete(context.Background(), data)
		assert.ErrorContains(t, err, "failed to broadcast system message")
	})
}

func TestService_HandleOTPEmail(t *testing.T) {
	svc, mail, _, _ := newTestService()

	err := svc.HandleOTPEmail(context.Background(), domain.OTPEmailData{Email: "a@b.com", Name: "Ann", OTP: "123456"})
	require.NoError(t, err)
	assert.Equal(t, []domain.OTPEmailData{{Email: "a@b.com", Name: "Ann", OTP: "123456"}}, mail.otp)
}

func TestService_EmailFailures(t *testing.T) {
	data := domain.TaskAssignmentData{RecipientEmail: "bob@x.io", TaskTitle: "Write docs"}

	tests := []struct {
		name     string
		result   *email.SendResult
		err      error
		wantIs   error
		contains string
	}{
		{
			name:     "provider reports failure",
			result:   &email.SendResult{Success: false, Error: "mailbox unavailable"},
			wantIs:   ErrDeliveryFailed,
			contains: "mailbox unavailable",
		},
		{
			name:     "render error",
			err:      errors.New("template not found: task_assignment"),
			contains: "template not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mail, _, _ := newTestService()
			mail.result = tt.result
			mail.err = tt.err

			err := svc.HandleTaskAssignment(context.Background(), data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "bob@x.io")
			assert.Contains(t, err.Error(), tt.contains)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.Len(t, mail.assignments, 1)
		})
	}
}

func TestService_DispatchesThroughHandlers(t *testing.T) {
	svc, mail, _, _ := newTestService()

	job, err := domain.NewJob(domain.OTPEmailData{Email: "a@b.com", Name: "Ann", OTP: "123456"})
	require.NoError(t, err)

	require.NoError(t, domain.DispatchJob(context.Background(), svc, job))
	require.Len(t, mail.otp, 1)
	assert.Equal(t, "123456", mail.otp[0].OTP)
}
