package domain

import "time"

// VerificationCode stores a 6-digit code tied to one claim and one proof method.
// PK: code_id, GSI: claim_id-index.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL (24h after issuance).
type VerificationCode struct {
	CodeID     string     `json:"id" dynamodbav:"code_id"`
	ClaimID    string     `json:"claim_id" dynamodbav:"claim_id"`
	Method     string     `json:"method" dynamodbav:"method"`
	Code       string     `json:"code" dynamodbav:"code"`
	ExpiresAt  int64      `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	Verified   bool       `json:"verified" dynamodbav:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at"`
	CreatedAt  time.Time  `json:"created" dynamodbav:"created_at"`
}

// Expired reports whether the code's lifetime has passed. ExpiresAt carries
// second precision because it doubles as the DynamoDB TTL attribute, so
// expiry is enforced at whole-second granularity.
func (v *VerificationCode) Expired(now time.Time) bool {
	return v.ExpiresAt < now.Unix()
}
