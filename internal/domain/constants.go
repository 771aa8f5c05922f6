package domain

// JobKind discriminates the job payload
type JobKind string

// Job kinds
const (
	KindTaskAssignment   JobKind = "TASK_ASSIGNMENT"
	KindTaskNotification JobKind = "TASK_NOTIFICATION"
	KindTaskStatusUpdate JobKind = "TASK_STATUS_UPDATE"
	KindTaskDelete       JobKind = "TASK_DELETE"
	KindOTPEmail         JobKind = "OTP_EMAIL"
)

// Routing keys on the main exchange
const (
	RoutingKeyTaskAssignment   = "email.task_assignment"
	RoutingKeyOTPEmail         = "email.otp"
	RoutingKeyTaskNotification = "chat.task_notification"
	RoutingKeyTaskStatus       = "chat.task_status"
	RoutingKeyTaskDelete       = "chat.task_delete"
)

// Default queue names and the routing patterns bound to them
const (
	QueueEmail   = "email_notifications"
	QueueChat    = "chat_notifications"
	QueueGeneral = "general_notifications"

	PatternEmail   = "email.#"
	PatternChat    = "chat.#"
	PatternGeneral = "general.#"
)

// HeaderRetryCount carries how many times a job has been republished
const HeaderRetryCount = "x-retry-count"

// DefaultMaxRetries is the republish ceiling when a consumer does not set one
const DefaultMaxRetries = 3

// Kinds lists every job kind the dispatcher understands
var Kinds = []JobKind{
	KindTaskAssignment,
	KindTaskNotification,
	KindTaskStatusUpdate,
	KindTaskDelete,
	KindOTPEmail,
}

var routingKeys = map[JobKind]string{
	KindTaskAssignment:   RoutingKeyTaskAssignment,
	KindOTPEmail:         RoutingKeyOTPEmail,
	KindTaskNotification: RoutingKeyTaskNotification,
	KindTaskStatusUpdate: RoutingKeyTaskStatus,
	KindTaskDelete:       RoutingKeyTaskDelete,
}

// RoutingKey returns the fixed routing key for kind
func (k JobKind) RoutingKey() (string, bool) {
	key, ok := routingKeys[k]
	return key, ok
}

// Valid reports whether k is a known job kind
func (k JobKind) Valid() bool {
	_, ok := routingKeys[k]
	return ok
}
