package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types
	TypeCalendarSyncCompleted MessageType = "calendar.sync_completed"
	TypeCalendarSyncError     MessageType = "calendar.sync_error"
	TypeBulkSyncCompleted     MessageType = "bulk_sync.completed"
	TypeTasksGenerated        MessageType = "tasks.generated"
	TypeTaskUpdated           MessageType = "task.updated"
	TypeNotification          MessageType = "notification"

	// Client -> Server command types
	TypePing      MessageType = "ping"
	TypeSubscribe MessageType = "subscribe"

	// Server -> Client response types
	TypePong       MessageType = "pong"
	TypeSubscribed MessageType = "subscribed"
	TypeError      MessageType = "error"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// ClientMessage is a command sent by a dashboard client. Subscribe commands
// carry the owner whose events the client wants.
type ClientMessage struct {
	Type           MessageType `json:"type"`
	PlatformUserID string      `json:"platform_user_id,omitempty"`
}

// SubscribedPayload confirms the owner a client now receives events for.
type SubscribedPayload struct {
	PlatformUserID string `json:"platform_user_id"`
}

// CalendarSyncPayload is the payload for calendar.sync_completed events.
type CalendarSyncPayload struct {
	PropertyID          string `json:"property_id"`
	PropertyName        string `json:"property_name"`
	FeedsSynced         int    `json:"feeds_synced"`
	FeedsFailed         int    `json:"feeds_failed"`
	ReservationsCreated int    `json:"reservations_created"`
	ReservationsUpdated int    `json:"reservations_updated"`
	EventsRejected      int    `json:"events_rejected"`
	TasksCreated        int    `json:"tasks_created"`
	TasksUpdated        int    `json:"tasks_updated"`
}

// CalendarSyncErrorPayload is the payload for calendar.sync_error events.
type CalendarSyncErrorPayload struct {
	PropertyID string `json:"property_id"`
	FeedID     string `json:"feed_id,omitempty"`
	URL        string `json:"ical_url,omitempty"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// BulkSyncPayload is the payload for bulk_sync.completed events.
type BulkSyncPayload struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	Failed    int `json:"failed"`
}

// TasksGeneratedPayload is the payload for tasks.generated events.
type TasksGeneratedPayload struct {
	PropertyID       string `json:"property_id"`
	TasksCreated     int    `json:"tasks_created"`
	TasksUpdated     int    `json:"tasks_updated"`
	SkippedCompleted int    `json:"skipped_completed"`
}

// TaskUpdatedPayload is the payload for task.updated events.
type TaskUpdatedPayload struct {
	TaskID        string  `json:"task_id"`
	PropertyID    string  `json:"property_id"`
	ScheduledDate string  `json:"scheduled_date"`
	Status        string  `json:"status"`
	CleanerID     *string `json:"cleaner_id,omitempty"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level       string `json:"level"` // info, warning, error, success
	Title       string `json:"title"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	OriginalType string `json:"original_type,omitempty"`
}
