package domain

import "time"

// Claim lifecycle statuses. A business is considered claimed when it carries
// an approved claim; there is no separate flag on the business row.
const (
	ClaimStatusPending  = "pending"
	ClaimStatusApproved = "approved"
	ClaimStatusRejected = "rejected"
)

// Per-method proof statuses. Transitions are monotonic:
// pending -> verified (email/phone), pending -> pending_review (document/video).
const (
	ProofStatusPending       = "pending"
	ProofStatusPendingReview = "pending_review"
	ProofStatusVerified      = "verified"
)

// Proof methods form a fixed closed set.
const (
	MethodEmail    = "email"
	MethodPhone    = "phone"
	MethodDocument = "document"
	MethodVideo    = "video"
)

// Keys used inside Claim.ProofData.
const (
	ProofDataEmailVerified    = "email_verified"
	ProofDataPhoneVerified    = "phone_verified"
	ProofDataDocumentUploaded = "document_uploaded"
	ProofDataVideoUploaded    = "video_uploaded"
	ProofDataRequestedUpdates = "requested_updates"
	ProofDataRejectionReason  = "rejection_reason"
)

type Claim struct {
	ClaimID      string                 `json:"id" dynamodbav:"claim_id"`
	UserID       string                 `json:"user_id" dynamodbav:"user_id"`
	BusinessID   string                 `json:"business_id" dynamodbav:"business_id"`
	FullName     string                 `json:"full_name" dynamodbav:"full_name"`
	JobTitle     string                 `json:"job_title" dynamodbav:"job_title"`
	ClaimerType  string                 `json:"claimer_type" dynamodbav:"claimer_type"`
	Email        string                 `json:"email" dynamodbav:"email"`
	Phone        string                 `json:"phone" dynamodbav:"phone"`
	Status       string                 `json:"status" dynamodbav:"status"`
	ProofMethods []string               `json:"proof_methods" dynamodbav:"proof_methods"`
	ProofStatus  map[string]string      `json:"proof_status" dynamodbav:"proof_status"`
	ProofData    map[string]interface{} `json:"proof_data" dynamodbav:"proof_data"`
	Message      string                 `json:"message,omitempty" dynamodbav:"message"`
	CreatedAt    time.Time              `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time              `json:"updated" dynamodbav:"updated_at"`
}

// SubmitClaimRequest is the structured part of a claim submission.
// Files travel separately as ProofFile values.
type SubmitClaimRequest struct {
	BusinessName string   `json:"business_name" validate:"required_without=ExistingBusinessID"`
	Category     string   `json:"category" validate:"required_without=ExistingBusinessID"`
	Subcategory  string   `json:"subcategory"`
	Address      string   `json:"address"`
	City         string   `json:"city" validate:"required_without=ExistingBusinessID"`
	Quartier     string   `json:"quartier"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website" validate:"omitempty,url"`
	Description  string   `json:"description"`
	Amenities    []string `json:"amenities"`

	FullName      string   `json:"full_name" validate:"required"`
	Position      string   `json:"position" validate:"required"`
	ClaimerType   string   `json:"claimer_type" validate:"required,oneof=owner co_owner legal_representative manager marketing_manager agency_representative employee_delegate other"`
	Email         string   `json:"email" validate:"required,email"`
	PersonalPhone string   `json:"personal_phone" validate:"required"`
	ProofMethods  []string `json:"proof_methods" validate:"required,min=1,dive,oneof=email phone document video"`
	Message       string   `json:"message"`

	ExistingBusinessID string `json:"existing_business_id"`
}

// ProofFile is an attached proof or media file.
// Kind is one of "document", "video", "logo", "cover".
type ProofFile struct {
	Kind        string
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult is the per-file outcome of a proof upload batch.
type UploadResult struct {
	Kind string
	OK   bool
	URL  string
	Err  error
}
