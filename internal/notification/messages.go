package notification

import (
	"fmt"
	"strings"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
)

// RoomID is the chat room of a project
func RoomID(projectID string) string {
	return "project_" + projectID
}

// TaskNotificationText announces a new task
func TaskNotificationText(data domain.TaskNotificationData) string {
	due := shortDueDate(data.DueDate)

	if data.AssignedUser != nil {
		return fmt.Sprintf("📋 New Task Assigned!\n\nTask: %s\nAssigned to: %s\nPriority: %s\nDue: %s",
			data.Title, data.AssignedUser.Name, data.Priority, due)
	}
	return fmt.Sprintf("📋 New Task Created!\n\nTask: %s\nPriority: %s\nDue: %s",
		data.Title, data.Priority, due)
}

// TaskStatusText announces a status change
func TaskStatusText(data domain.TaskStatusData) string {
	return fmt.Sprintf("%s Task Status Updated!\n\nTask: %s\nNew Status: %s\nUpdated by: %s",
		statusEmoji(data.Status), data.TaskTitle, strings.ToUpper(data.Status), data.UserName)
}

// TaskDeleteText announces a deleted task
func TaskDeleteText(data domain.TaskDeleteData) string {
	return fmt.Sprintf("🗑️ Task Deleted\n\nTask: %s\nDeleted by: %s", data.TaskTitle, data.UserName)
}

func statusEmoji(status string) string {
	switch status {
	case "completed":
		return "✅"
	case "in-progress":
		return "🔄"
	default:
		return "📝"
	}
}

func shortDueDate(raw string) string {
	due, ok := domain.ParseDueDate(raw)
	if !ok {
		return "No deadline"
	}
	return due.Format("1/2/2006")
}
