package domain

import (
	"strings"
	"time"
)

// Notification is one polled inbox entry for a user. It is created by the
// dispatcher, flipped to read exactly once, and never deleted.
type Notification struct {
	ID        string
	UserID    string
	TaskID    string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}

// NewNotification constructs an unread notification.
func NewNotification(id, userID, taskID, title, message string, now time.Time) (Notification, error) {
	id = strings.TrimSpace(id)
	userID = strings.TrimSpace(userID)
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)

	if id == "" {
		return Notification{}, ErrInvalidID
	}
	if userID == "" {
		return Notification{}, ErrInvalidRecipient
	}
	if title == "" || message == "" {
		return Notification{}, ErrInvalidMessage
	}

	return Notification{
		ID:        id,
		UserID:    userID,
		TaskID:    strings.TrimSpace(taskID),
		Title:     title,
		Message:   message,
		CreatedAt: now.UTC(),
	}, nil
}

// MarkRead flips the read flag.
func (n *Notification) MarkRead() {
	n.Read = true
}
