package domain

import "time"

// Notification types used for admin alerts.
const (
	NotificationAdminClaimPending = "admin_claim_pending"
)

type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Title          string    `json:"title" dynamodbav:"title"`
	Message        string    `json:"message" dynamodbav:"message"`
	Type           string    `json:"type" dynamodbav:"type"`
	Link           string    `json:"link,omitempty" dynamodbav:"link"`
	Read           bool      `json:"read" dynamodbav:"read"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// AdminAlert is the payload handed to the notification dispatcher.
type AdminAlert struct {
	Title   string
	Message string
	Type    string
	Link    string
}
