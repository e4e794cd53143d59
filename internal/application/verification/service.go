package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/claimdesk/claims-api/internal/config"
	"github.com/claimdesk/claims-api/internal/domain"
	"github.com/claimdesk/claims-api/internal/pkg/id"
	"github.com/claimdesk/claims-api/internal/pkg/ratelimit"
)

// codeTTL is how long a verification code stays valid after issuance.
const codeTTL = 24 * time.Hour

type codeStore interface {
	Put(ctx context.Context, v *domain.VerificationCode) error
	FindActive(ctx context.Context, claimID, method, code string) (*domain.VerificationCode, error)
	DeleteByClaimMethod(ctx context.Context, claimID, method string) error
	MarkVerified(ctx context.Context, codeID string, at time.Time) error
}

type claimStore interface {
	Get(ctx context.Context, claimID string) (*domain.Claim, error)
	SetProofStatus(ctx context.Context, claimID, method, status string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type Service interface {
	GenerateCode(ctx context.Context, method, claimID, contactEmail string) error
	VerifyCode(ctx context.Context, claimID, method, code, actingUserID string) error
	ResendCode(ctx context.Context, claimID, method, actingUserID string) error
}

type service struct {
	codes    codeStore
	claims   claimStore
	mailer   mailer
	limiter  ratelimit.Limiter
	policies config.RateLimits
	siteName string
	now      func() time.Time
}

type ServiceDeps struct {
	CodeRepo  codeStore
	ClaimRepo claimStore
	Mailer    mailer
	Limiter   ratelimit.Limiter
	Policies  config.RateLimits
	SiteName  string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		codes:    deps.CodeRepo,
		claims:   deps.ClaimRepo,
		mailer:   deps.Mailer,
		limiter:  deps.Limiter,
		policies: deps.Policies,
		siteName: deps.SiteName,
		now:      time.Now,
	}
}

// GenerateCode issues a fresh 6-digit code for a code-based method and
// delivers it over the method's channel. Manual-review methods (document,
// video) are proven by their uploaded file, so no code is issued.
func (s *service) GenerateCode(ctx context.Context, method, claimID, contactEmail string) error {
	rule, ok := RuleFor(method)
	if !ok {
		return fmt.Errorf("unknown proof method %q: %w", method, domain.ErrBadRequest)
	}
	if rule.ManualReview {
		return nil
	}

	v, err := s.newCode(ctx, claimID, method)
	if err != nil {
		return err
	}

	if rule.EmailsCode {
		return s.mailer.SendEmail(contactEmail, s.codeSubject(), s.codeBody(v.Code))
	}
	// No SMS transport is wired up; the code is persisted and can be
	// surfaced through a support channel until an SMS provider lands.
	slog.Info("phone verification code persisted without delivery", "claim_id", claimID)
	return nil
}

// VerifyCode validates a submitted code and atomically flips the method's
// proof status to verified. The code lookup is scoped to (claim, method,
// code) so a code issued for one channel cannot verify another.
func (s *service) VerifyCode(ctx context.Context, claimID, method, code, actingUserID string) error {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.UserID != actingUserID {
		return fmt.Errorf("claim belongs to another user: %w", domain.ErrForbidden)
	}

	key := ratelimit.Key("verification", actingUserID, claimID)
	if d := s.limiter.Check(key, policy(s.policies.Verification)); d.Limited {
		return &domain.RateLimitError{RetryAfter: d.RetryAfter}
	}

	v, err := s.codes.FindActive(ctx, claimID, method, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.limiter.RecordAttempt(key, policy(s.policies.Verification))
			return fmt.Errorf("invalid verification code: %w", domain.ErrNotFound)
		}
		return err
	}

	now := s.now()
	if v.Expired(now) {
		s.limiter.RecordAttempt(key, policy(s.policies.Verification))
		return fmt.Errorf("verification code expired, request a new one: %w", domain.ErrBadRequest)
	}

	// ErrConflict means a concurrent call already flipped this code; the
	// proof-status merge below is idempotent, so just fall through.
	if err := s.codes.MarkVerified(ctx, v.CodeID, now); err != nil && !errors.Is(err, domain.ErrConflict) {
		return err
	}

	// Single-key server-side merge; concurrent verifications for other
	// methods on the same claim must never be lost.
	if err := s.claims.SetProofStatus(ctx, claimID, v.Method, domain.ProofStatusVerified); err != nil {
		return err
	}

	s.limiter.Clear(key)
	return nil
}

// ResendCode replaces any outstanding codes for (claim, method) with a fresh
// one carrying a new 24h expiry.
func (s *service) ResendCode(ctx context.Context, claimID, method, actingUserID string) error {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if claim.UserID != actingUserID {
		return fmt.Errorf("claim belongs to another user: %w", domain.ErrForbidden)
	}

	rule, ok := RuleFor(method)
	if !ok || !rule.Resendable {
		return fmt.Errorf("codes cannot be resent for method %q: %w", method, domain.ErrBadRequest)
	}

	key := ratelimit.Key("resend", actingUserID, claimID)
	if d := s.limiter.Check(key, policy(s.policies.Resend)); d.Limited {
		return &domain.RateLimitError{RetryAfter: d.RetryAfter}
	}
	s.limiter.RecordAttempt(key, policy(s.policies.Resend))

	if err := s.codes.DeleteByClaimMethod(ctx, claimID, method); err != nil {
		return err
	}

	v, err := s.newCode(ctx, claimID, method)
	if err != nil {
		return err
	}

	if rule.EmailsCode {
		// The code is already persisted and valid; a failed send only
		// costs the user a retry, so it must not fail the resend.
		if err := s.mailer.SendEmail(claim.Email, s.codeSubject(), s.codeBody(v.Code)); err != nil {
			slog.Warn("verification email send failed", "claim_id", claimID, "err", err)
		}
	}
	return nil
}

func (s *service) newCode(ctx context.Context, claimID, method string) (*domain.VerificationCode, error) {
	code, err := sixDigits()
	if err != nil {
		return nil, err
	}
	now := s.now()
	v := &domain.VerificationCode{
		CodeID:    id.New(),
		ClaimID:   claimID,
		Method:    method,
		Code:      code,
		ExpiresAt: now.Add(codeTTL).Unix(),
		CreatedAt: now.UTC(),
	}
	if err := s.codes.Put(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) codeSubject() string {
	return fmt.Sprintf("%s - your verification code", s.siteName)
}

func (s *service) codeBody(code string) string {
	return fmt.Sprintf("Your verification code is %s. It expires in 24 hours.", code)
}

// sixDigits returns a uniform random zero-padded 6-digit code.
func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func policy(p config.RatePolicy) ratelimit.Policy {
	return ratelimit.Policy{Window: p.Window, MaxAttempts: p.MaxAttempts, BlockFor: p.BlockFor}
}
