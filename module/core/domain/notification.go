package domain

import "time"

// Notification is the durable record of an alert. The core creates it;
// the notification CRUD layer owns IsRead afterwards.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
