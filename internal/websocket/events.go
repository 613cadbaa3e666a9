package websocket

import (
	"log/slog"

	"github.com/turnover-ops/backend/internal/storage/models"
)

// EventBroadcaster encodes domain events and hands them to the hub. Events
// about one owner's properties only reach that owner's clients. A nil
// *EventBroadcaster is valid and drops every event.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// BroadcastCalendarSyncCompleted sends a property sync summary to owner.
func (b *EventBroadcaster) BroadcastCalendarSyncCompleted(owner string, payload CalendarSyncPayload) {
	b.broadcast(owner, NewMessage(TypeCalendarSyncCompleted, payload))
}

// BroadcastCalendarSyncError sends a feed or property sync failure to the
// property's owner. feed is nil for failures after the feeds were synced.
func (b *EventBroadcaster) BroadcastCalendarSyncError(property *models.Property, feed *models.ICalFeed, code string, err error) {
	payload := CalendarSyncErrorPayload{
		PropertyID: property.ID,
		Error:      code,
		Message:    err.Error(),
	}
	if feed != nil {
		payload.FeedID = feed.ID
		payload.URL = feed.URL
	}
	b.broadcast(property.Owner(), NewMessage(TypeCalendarSyncError, payload))
}

// BroadcastBulkSyncCompleted sends a bulk sync summary to every client.
func (b *EventBroadcaster) BroadcastBulkSyncCompleted(payload BulkSyncPayload) {
	b.broadcast("", NewMessage(TypeBulkSyncCompleted, payload))
}

// BroadcastTasksGenerated sends a task generation summary to owner.
func (b *EventBroadcaster) BroadcastTasksGenerated(owner string, payload TasksGeneratedPayload) {
	b.broadcast(owner, NewMessage(TypeTasksGenerated, payload))
}

// BroadcastTaskUpdated sends a task change to the task's owner.
func (b *EventBroadcaster) BroadcastTaskUpdated(task *models.CleaningTask) {
	b.broadcast(task.OwnerID, NewMessage(TypeTaskUpdated, TaskUpdatedPayload{
		TaskID:        task.ID,
		PropertyID:    task.PropertyID,
		ScheduledDate: task.ScheduledDate,
		Status:        task.Status,
		CleanerID:     task.CleanerID,
	}))
}

// BroadcastNotification sends a notification to all connected clients.
func (b *EventBroadcaster) BroadcastNotification(level, title, message string) {
	payload := NotificationPayload{
		Level:       level,
		Title:       title,
		Message:     message,
		Dismissible: true,
	}
	b.broadcast("", NewMessage(TypeNotification, payload))
}

func (b *EventBroadcaster) broadcast(owner string, msg Message) {
	if b == nil || b.hub == nil {
		return
	}

	data, err := msg.JSON()
	if err != nil {
		slog.Error("Error encoding WebSocket message", "type", msg.Type, "error", err)
		return
	}

	b.hub.BroadcastTo(owner, data)
}
