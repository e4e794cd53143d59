package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Subscription tiers. The per-tier business limit comes from config.
const (
	TierStandard = "standard"
	TierGrowth   = "growth"
	TierGold     = "gold"
)

// Profile is the slice of the user record this service reads and writes.
// Identity fields (full_name, email) are only ever filled when empty;
// claim submissions never overwrite populated identity data.
type Profile struct {
	UserID     string    `json:"id" dynamodbav:"user_id"`
	Role       string    `json:"role" dynamodbav:"role"`
	Tier       string    `json:"tier" dynamodbav:"tier"`
	BusinessID string    `json:"business_id,omitempty" dynamodbav:"business_id"`
	FullName   string    `json:"full_name,omitempty" dynamodbav:"full_name"`
	Email      string    `json:"email,omitempty" dynamodbav:"email"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
}
