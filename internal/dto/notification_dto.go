package dto

import (
	"time"

	"github.com/noah-isme/gema-multigraders/internal/models"
)

// NotificationCreateRequest describes a notification to deliver to one user.
type NotificationCreateRequest struct {
	UserID   string `json:"user_id" validate:"required,max=64"`
	Type     string `json:"type" validate:"required,max=64"`
	Subject  string `json:"subject" validate:"required,max=255"`
	Message  string `json:"message" validate:"required,min=1,max=2000"`
	Link     string `json:"link" validate:"omitempty,max=512"`
	SenderID string `json:"sender_id" validate:"omitempty,max=64"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	SenderID  string    `json:"sender_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotificationListResponse wraps a page of notifications.
type NotificationListResponse struct {
	Items  []NotificationResponse `json:"items"`
	Unread int64                  `json:"unread"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Subject:   model.Subject,
		Message:   model.Message,
		Link:      model.Link,
		SenderID:  model.SenderID,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
