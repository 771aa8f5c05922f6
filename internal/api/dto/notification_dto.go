package dto

import (
	"github.com/cuongbtq/notify-pipeline/internal/domain"
)

type OTPEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
	OTP   string `json:"otp" binding:"required"`
}

func (r OTPEmailRequest) Payload() domain.OTPEmailData {
	return domain.OTPEmailData{Email: r.Email, Name: r.Name, OTP: r.OTP}
}

type TaskAssignmentRequest struct {
	RecipientEmail  string `json:"recipientEmail" binding:"required,email"`
	RecipientName   string `json:"recipientName"`
	TaskTitle       string `json:"taskTitle" binding:"required"`
	TaskDescription string `json:"taskDescription"`
	ProjectTitle    string `json:"projectTitle"`
	AssignedBy      string `json:"assignedBy"`
	DueDate         string `json:"dueDate"`
	Priority        string `json:"priority" binding:"omitempty,oneof=low medium high"`
	ProjectID       string `json:"projectId"`
}

func (r TaskAssignmentRequest) Payload() domain.TaskAssignmentData {
	return domain.TaskAssignmentData{
		RecipientEmail:  r.RecipientEmail,
		RecipientName:   r.RecipientName,
		TaskTitle:       r.TaskTitle,
		TaskDescription: r.TaskDescription,
		ProjectTitle:    r.ProjectTitle,
		AssignedBy:      r.AssignedBy,
		DueDate:         r.DueDate,
		Priority:        r.Priority,
		ProjectID:       r.ProjectID,
	}
}

type AssignedUserDTO struct {
	ID    string `json:"_id"`
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}

type TaskCreatedRequest struct {
	ProjectID    string           `json:"projectId" binding:"required"`
	Title        string           `json:"title" binding:"required"`
	AssignedUser *AssignedUserDTO `json:"assignedUser"`
	Priority     string           `json:"priority"`
	DueDate      string           `json:"dueDate"`
	UserID       string           `json:"userId"`
	UserName     string           `json:"userName"`
}

func (r TaskCreatedRequest) Payload() domain.TaskNotificationData {
	data := domain.TaskNotificationData{
		ProjectID: r.ProjectID,
		Title:     r.Title,
		Priority:  r.Priority,
		DueDate:   r.DueDate,
		UserID:    r.UserID,
		UserName:  r.UserName,
	}
	if r.AssignedUser != nil {
		data.AssignedUser = &domain.AssignedUser{
			ID:    r.AssignedUser.ID,
			Name:  r.AssignedUser.Name,
			Email: r.AssignedUser.Email,
		}
	}
	return data
}

type TaskStatusRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
	TaskTitle string `json:"taskTitle" binding:"required"`
	Status    string `json:"status" binding:"required"`
	UserName  string `json:"userName"`
	UserID    string `json:"userId"`
}

func (r TaskStatusRequest) Payload() domain.TaskStatusData {
	return domain.TaskStatusData{
		ProjectID: r.ProjectID,
		TaskTitle: r.TaskTitle,
		Status:    r.Status,
		UserName:  r.UserName,
		UserID:    r.UserID,
	}
}

type TaskDeletedRequest struct {
	ProjectID string `json:"projectId" binding:"required"`
	TaskTitle string `json:"taskTitle" binding:"required"`
	UserName  string `json:"userName"`
	UserID    string `json:"userId"`
}

func (r TaskDeletedRequest) Payload() domain.TaskDeleteData {
	return domain.TaskDeleteData{
		ProjectID: r.ProjectID,
		TaskTitle: r.TaskTitle,
		UserName:  r.UserName,
		UserID:    r.UserID,
	}
}

type EnqueueResponse struct {
	Status  string `json:"status"`
	JobType string `json:"jobType"`
}

type ListMessagesRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListMessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	NextCursor string               `json:"next_cursor,omitempty"`
}
