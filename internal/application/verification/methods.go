package verification

import "github.com/claimdesk/claims-api/internal/domain"

// methodRule captures how each proof method behaves, so the engine never
// branches on method names directly.
type methodRule struct {
	RequiresFile bool // proof needs an attached file at submission
	ManualReview bool // resolved by an admin decision, not by a code
	EmailsCode   bool // generated codes are delivered over email
	Resendable   bool // a fresh code may be requested for this method
}

var methodRules = map[string]methodRule{
	domain.MethodEmail:    {EmailsCode: true, Resendable: true},
	domain.MethodPhone:    {Resendable: true},
	domain.MethodDocument: {RequiresFile: true, ManualReview: true, Resendable: true},
	domain.MethodVideo:    {RequiresFile: true, ManualReview: true},
}

// RuleFor returns the rule for a proof method, reporting whether it exists.
func RuleFor(method string) (methodRule, bool) {
	r, ok := methodRules[method]
	return r, ok
}

// InitialStatus is the proof status a method starts in at claim creation.
// Code-based methods always start pending; client-sent "already verified"
// flags are never trusted. File-based methods move straight to pending_review
// when a file arrived with the submission.
func InitialStatus(method string, hasFile bool) string {
	rule, ok := methodRules[method]
	if !ok {
		return domain.ProofStatusPending
	}
	if rule.RequiresFile && hasFile {
		return domain.ProofStatusPendingReview
	}
	return domain.ProofStatusPending
}
