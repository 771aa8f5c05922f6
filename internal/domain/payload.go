package domain

import "time"

// Payload is the typed data of one job kind
type Payload interface {
	Kind() JobKind
	Validate() error
}

// TaskAssignmentData drives the task assignment email
type TaskAssignmentData struct {
	RecipientEmail  string `json:"recipientEmail"`
	RecipientName   string `json:"recipientName"`
	TaskTitle       string `json:"taskTitle"`
	TaskDescription string `json:"taskDescription"`
	ProjectTitle    string `json:"projectTitle"`
	AssignedBy      string `json:"assignedBy"`
	DueDate         string `json:"dueDate,omitempty"`
	Priority        string `json:"priority"`
	ProjectID       string `json:"projectId"`
}

func (TaskAssignmentData) Kind() JobKind { return KindTaskAssignment }

func (d TaskAssignmentData) Validate() error {
	if d.RecipientEmail == "" {
		return missing(d.Kind(), "recipientEmail")
	}
	if d.TaskTitle == "" {
		return missing(d.Kind(), "taskTitle")
	}
	return nil
}

// OTPEmailData drives the verification code email
type OTPEmailData struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	OTP   string `json:"otp"`
}

func (OTPEmailData) Kind() JobKind { return KindOTPEmail }

func (d OTPEmailData) Validate() error {
	if d.Email == "" {
		return missing(d.Kind(), "email")
	}
	if d.OTP == "" {
		return missing(d.Kind(), "otp")
	}
	return nil
}

// AssignedUser is the member a new task was given to
type AssignedUser struct {
	ID    string `json:"_id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// TaskNotificationData announces a created task in the project chat
type TaskNotificationData struct {
	ProjectID    string        `json:"projectId"`
	Title        string        `json:"title"`
	AssignedUser *AssignedUser `json:"assignedUser,omitempty"`
	Priority     string        `json:"priority"`
	DueDate      string        `json:"dueDate,omitempty"`
	UserID       string        `json:"userId"`
	UserName     string        `json:"userName"`
}

func (TaskNotificationData) Kind() JobKind { return KindTaskNotification }

func (d TaskNotificationData) Validate() error {
	if d.ProjectID == "" {
		return missing(d.Kind(), "projectId")
	}
	if d.Title == "" {
		return missing(d.Kind(), "title")
	}
	return nil
}

// TaskStatusData announces a task status change in the project chat
type TaskStatusData struct {
	ProjectID string `json:"projectId"`
	TaskTitle string `json:"taskTitle"`
	Status    string `json:"status"`
	UserName  string `json:"userName"`
	UserID    string `json:"userId"`
}

func (TaskStatusData) Kind() JobKind { return KindTaskStatusUpdate }

func (d TaskStatusData) Validate() error {
	if d.ProjectID == "" {
		return missing(d.Kind(), "projectId")
	}
	if d.TaskTitle == "" {
		return missing(d.Kind(), "taskTitle")
	}
	if d.Status == "" {
		return missing(d.Kind(), "status")
	}
	return nil
}

// TaskDeleteData announces a deleted task in the project chat
type TaskDeleteData struct {
	ProjectID string `json:"projectId"`
	TaskTitle string `json:"taskTitle"`
	UserName  string `json:"userName"`
	UserID    string `json:"userId"`
}

func (TaskDeleteData) Kind() JobKind { return KindTaskDelete }

func (d TaskDeleteData) Validate() error {
	if d.ProjectID == "" {
		return missing(d.Kind(), "projectId")
	}
	if d.TaskTitle == "" {
		return missing(d.Kind(), "taskTitle")
	}
	return nil
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDueDate reads the due dates producers send (ISO-8601 timestamps or plain dates)
func ParseDueDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
