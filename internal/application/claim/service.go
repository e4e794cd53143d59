package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimdesk/claims-api/internal/application/verification"
	"github.com/claimdesk/claims-api/internal/config"
	"github.com/claimdesk/claims-api/internal/domain"
	"github.com/claimdesk/claims-api/internal/pkg/id"
	"github.com/claimdesk/claims-api/internal/pkg/ratelimit"
	"github.com/claimdesk/claims-api/internal/pkg/validate"
)

// Actor is the authenticated caller of a claim operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// BusinessClaimStatus reports whether a business is claimed and the caller's
// own most recent claim on it, if any.
type BusinessClaimStatus struct {
	Claimed  bool          `json:"claimed"`
	OwnClaim *domain.Claim `json:"own_claim,omitempty"`
}

type claimStore interface {
	Put(ctx context.Context, c *domain.Claim) error
	Get(ctx context.Context, claimID string) (*domain.Claim, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Claim, error)
	FindApprovedByBusiness(ctx context.Context, businessID string) (*domain.Claim, error)
	FindPendingByUserBusiness(ctx context.Context, userID, businessID string) (*domain.Claim, error)
	MergeProofData(ctx context.Context, claimID string, updates map[string]interface{}) error
	Update(ctx context.Context, claimID string, updates map[string]interface{}) error
}

type businessStore interface {
	Put(ctx context.Context, b *domain.Business) error
	Get(ctx context.Context, businessID string) (*domain.Business, error)
	Update(ctx context.Context, businessID string, updates map[string]interface{}) error
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	EnsureWithIdentity(ctx context.Context, userID, fullName, email string) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type assignmentStore interface {
	Put(ctx context.Context, userID, businessID string) error
}

type limitGuard interface {
	Enforce(ctx context.Context, userID, tier string, isAdmin bool) error
}

type proofUploader interface {
	UploadMany(ctx context.Context, claimID string, files []domain.ProofFile) []domain.UploadResult
}

type codeIssuer interface {
	GenerateCode(ctx context.Context, method, claimID, contactEmail string) error
}

type adminNotifier interface {
	NotifyAdmins(ctx context.Context, alert domain.AdminAlert)
}

type Service interface {
	Submit(ctx context.Context, actor Actor, req domain.SubmitClaimRequest, files []domain.ProofFile) (string, error)
	Get(ctx context.Context, actor Actor, claimID string) (*domain.Claim, error)
	ListMine(ctx context.Context, actor Actor) ([]domain.Claim, error)
	BusinessStatus(ctx context.Context, actor Actor, businessID string) (*BusinessClaimStatus, error)
	Approve(ctx context.Context, actor Actor, claimID string) error
	Reject(ctx context.Context, actor Actor, claimID, reason string) error
}

type service struct {
	claims      claimStore
	businesses  businessStore
	profiles    profileStore
	assignments assignmentStore
	guard       limitGuard
	uploader    proofUploader
	codes       codeIssuer
	notifier    adminNotifier
	limiter     ratelimit.Limiter
	policies    config.RateLimits
}

type ServiceDeps struct {
	ClaimRepo      claimStore
	BusinessRepo   businessStore
	ProfileRepo    profileStore
	AssignmentRepo assignmentStore
	Guard          limitGuard
	Uploader       proofUploader
	CodeIssuer     codeIssuer
	Notifier       adminNotifier
	Limiter        ratelimit.Limiter
	Policies       config.RateLimits
}

func NewService(deps ServiceDeps) Service {
	return &service{
		claims:      deps.ClaimRepo,
		businesses:  deps.BusinessRepo,
		profiles:    deps.ProfileRepo,
		assignments: deps.AssignmentRepo,
		guard:       deps.Guard,
		uploader:    deps.Uploader,
		codes:       deps.CodeIssuer,
		notifier:    deps.Notifier,
		limiter:     deps.Limiter,
		policies:    deps.Policies,
	}
}

// Submit runs the ordered submission guards and, once they all pass, creates
// the business (when needed) and the claim. Everything after the claim insert
// (file uploads, code generation, admin notification) is best effort and
// never fails the submission.
func (s *service) Submit(ctx context.Context, actor Actor, req domain.SubmitClaimRequest, files []domain.ProofFile) (string, error) {
	if actor.UserID == "" {
		return "", fmt.Errorf("authentication required: %w", domain.ErrUnauthorized)
	}

	subKey := ratelimit.Key("submission", actor.UserID)
	if d := s.limiter.Check(subKey, policy(s.policies.Submission)); d.Limited {
		return "", &domain.RateLimitError{RetryAfter: d.RetryAfter}
	}
	s.limiter.RecordAttempt(subKey, policy(s.policies.Submission))

	profile, err := s.profiles.Get(ctx, actor.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Error("claim submission: profile lookup failed", "user_id", actor.UserID, "err", err)
		return "", err
	}
	tier := domain.TierStandard
	isAdmin := actor.IsAdmin()
	if profile != nil {
		if profile.Tier != "" {
			tier = profile.Tier
		}
		isAdmin = isAdmin || profile.Role == domain.RoleAdmin
	}

	if err := s.guard.Enforce(ctx, actor.UserID, tier, isAdmin); err != nil {
		return "", err
	}

	existing, err := s.claims.ListByUser(ctx, actor.UserID)
	if err != nil {
		slog.Error("claim submission: claim lookup failed", "user_id", actor.UserID, "err", err)
		return "", err
	}
	if !isAdmin {
		for _, c := range existing {
			if c.Status == domain.ClaimStatusPending {
				return "", fmt.Errorf("you already have a pending claim, wait for it to be reviewed: %w",
					domain.ErrForbidden)
			}
		}
	}

	if err := validateSubmission(req, files); err != nil {
		return "", err
	}

	if err := s.profiles.EnsureWithIdentity(ctx, actor.UserID, req.FullName, req.Email); err != nil {
		slog.Error("claim submission: profile upsert failed", "user_id", actor.UserID, "err", err)
		return "", err
	}

	businessID, stagedUpdates, err := s.resolveBusiness(ctx, actor.UserID, isAdmin, req)
	if err != nil {
		return "", err
	}

	if _, err := s.claims.FindPendingByUserBusiness(ctx, actor.UserID, businessID); err == nil {
		return "", fmt.Errorf("you already have a pending claim for this business: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		slog.Error("claim submission: duplicate check failed", "user_id", actor.UserID, "business_id", businessID, "err", err)
		return "", err
	}

	hasDocument := hasFile(files, domain.MethodDocument)
	hasVideo := hasFile(files, domain.MethodVideo)

	proofStatus := make(map[string]string, len(req.ProofMethods))
	for _, method := range req.ProofMethods {
		proofStatus[method] = verification.InitialStatus(method, hasFile(files, method))
	}

	// Verification flags always start false server-side; only the
	// verification engine may flip them.
	proofData := map[string]interface{}{
		domain.ProofDataEmailVerified:    false,
		domain.ProofDataPhoneVerified:    false,
		domain.ProofDataDocumentUploaded: hasDocument,
		domain.ProofDataVideoUploaded:    hasVideo,
	}
	if len(stagedUpdates) > 0 {
		proofData[domain.ProofDataRequestedUpdates] = stagedUpdates
	}

	now := time.Now().UTC()
	c := &domain.Claim{
		ClaimID:      id.New(),
		UserID:       actor.UserID,
		BusinessID:   businessID,
		FullName:     req.FullName,
		JobTitle:     req.Position,
		ClaimerType:  req.ClaimerType,
		Email:        req.Email,
		Phone:        req.PersonalPhone,
		Status:       domain.ClaimStatusPending,
		ProofMethods: req.ProofMethods,
		ProofStatus:  proofStatus,
		ProofData:    proofData,
		Message:      req.Message,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.claims.Put(ctx, c); err != nil {
		slog.Error("claim submission: claim insert failed", "user_id", actor.UserID, "business_id", businessID, "err", err)
		return "", err
	}

	s.uploadProofFiles(ctx, c.ClaimID, businessID, files)

	for _, method := range req.ProofMethods {
		if err := s.codes.GenerateCode(ctx, method, c.ClaimID, req.Email); err != nil {
			slog.Warn("claim submission: code generation failed", "claim_id", c.ClaimID, "method", method, "err", err)
		}
	}

	s.notifier.NotifyAdmins(ctx, domain.AdminAlert{
		Title:   "New claim awaiting review",
		Message: fmt.Sprintf("%s submitted a claim for %s.", req.FullName, businessLabel(req)),
		Type:    domain.NotificationAdminClaimPending,
		Link:    "/admin/claims",
	})

	return c.ClaimID, nil
}

// resolveBusiness returns the target business id plus any field updates that
// must be staged for admin approval instead of applied immediately.
func (s *service) resolveBusiness(ctx context.Context, userID string, isAdmin bool, req domain.SubmitClaimRequest) (string, map[string]interface{}, error) {
	requested := requestedUpdates(req)

	if req.ExistingBusinessID != "" {
		if _, err := s.businesses.Get(ctx, req.ExistingBusinessID); err != nil {
			return "", nil, err
		}
		if _, err := s.claims.FindApprovedByBusiness(ctx, req.ExistingBusinessID); err == nil {
			return "", nil, fmt.Errorf("this business has already been claimed: %w", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("claim submission: claimed check failed", "business_id", req.ExistingBusinessID, "err", err)
			return "", nil, err
		}

		// Only admins may touch an existing listing directly; everyone
		// else has their edits staged for the approval step.
		if isAdmin && len(requested) > 0 {
			if err := s.businesses.Update(ctx, req.ExistingBusinessID, requested); err != nil {
				slog.Error("claim submission: business update failed", "business_id", req.ExistingBusinessID, "err", err)
				return "", nil, err
			}
			return req.ExistingBusinessID, nil, nil
		}
		return req.ExistingBusinessID, requested, nil
	}

	now := time.Now().UTC()
	description := req.Description
	if description == "" {
		description = "To be completed"
	}
	b := &domain.Business{
		BusinessID:  id.New(),
		Name:        req.BusinessName,
		Type:        "commerce",
		Category:    req.Category,
		Subcategory: req.Subcategory,
		City:        req.City,
		Quartier:    req.Quartier,
		Location:    fmt.Sprintf("%s, %s, %s", req.Address, req.Quartier, req.City),
		Description: description,
		Phone:       req.Phone,
		Website:     req.Website,
		Amenities:   req.Amenities,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.businesses.Put(ctx, b); err != nil {
		slog.Error("claim submission: business creation failed", "user_id", userID, "err", err)
		return "", nil, err
	}
	return b.BusinessID, nil, nil
}

// uploadProofFiles stores the attachments and merges whatever succeeded into
// the claim and business rows. Failures are logged, never fatal.
func (s *service) uploadProofFiles(ctx context.Context, claimID, businessID string, files []domain.ProofFile) {
	results := s.uploader.UploadMany(ctx, claimID, files)

	proofUpdates := map[string]interface{}{}
	businessUpdates := map[string]interface{}{}
	for _, r := range results {
		if !r.OK {
			continue
		}
		switch r.Kind {
		case domain.MethodDocument:
			proofUpdates["document_url"] = r.URL
			proofUpdates[domain.ProofDataDocumentUploaded] = true
		case domain.MethodVideo:
			proofUpdates["video_url"] = r.URL
			proofUpdates[domain.ProofDataVideoUploaded] = true
		case "logo":
			businessUpdates["logo_url"] = r.URL
		case "cover":
			businessUpdates["cover_url"] = r.URL
		}
	}

	if len(proofUpdates) > 0 {
		if err := s.claims.MergeProofData(ctx, claimID, proofUpdates); err != nil {
			slog.Warn("claim submission: proof data merge failed", "claim_id", claimID, "err", err)
		}
	}
	if len(businessUpdates) > 0 {
		if err := s.businesses.Update(ctx, businessID, businessUpdates); err != nil {
			slog.Warn("claim submission: business media update failed", "business_id", businessID, "err", err)
		}
	}
}

func (s *service) Get(ctx context.Context, actor Actor, claimID string) (*domain.Claim, error) {
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("claim belongs to another user: %w", domain.ErrForbidden)
	}
	return c, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor) ([]domain.Claim, error) {
	return s.claims.ListByUser(ctx, actor.UserID)
}

func (s *service) BusinessStatus(ctx context.Context, actor Actor, businessID string) (*BusinessClaimStatus, error) {
	status := &BusinessClaimStatus{}

	if _, err := s.claims.FindApprovedByBusiness(ctx, businessID); err == nil {
		status.Claimed = true
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	mine, err := s.claims.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	for i := range mine {
		if mine[i].BusinessID != businessID {
			continue
		}
		if status.OwnClaim == nil || mine[i].CreatedAt.After(status.OwnClaim.CreatedAt) {
			c := mine[i]
			status.OwnClaim = &c
		}
	}
	return status, nil
}

// Approve resolves a pending claim: staged business updates are applied, the
// claimant's profile is linked to the business, and the claim becomes the
// business's single approved claim.
func (s *service) Approve(ctx context.Context, actor Actor, claimID string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("admin role required: %w", domain.ErrForbidden)
	}
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status != domain.ClaimStatusPending {
		return fmt.Errorf("claim is already %s: %w", c.Status, domain.ErrConflict)
	}
	if _, err := s.claims.FindApprovedByBusiness(ctx, c.BusinessID); err == nil {
		return fmt.Errorf("business already has an approved claim: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if staged, ok := c.ProofData[domain.ProofDataRequestedUpdates].(map[string]interface{}); ok && len(staged) > 0 {
		if err := s.businesses.Update(ctx, c.BusinessID, staged); err != nil {
			slog.Error("claim approval: staged business update failed", "claim_id", claimID, "business_id", c.BusinessID, "err", err)
			return err
		}
	}

	if err := s.claims.Update(ctx, claimID, map[string]interface{}{"status": domain.ClaimStatusApproved}); err != nil {
		slog.Error("claim approval: status update failed", "claim_id", claimID, "err", err)
		return err
	}

	if err := s.profiles.Update(ctx, c.UserID, map[string]interface{}{"business_id": c.BusinessID}); err != nil {
		slog.Warn("claim approval: profile link failed", "claim_id", claimID, "user_id", c.UserID, "err", err)
	}
	if err := s.assignments.Put(ctx, c.UserID, c.BusinessID); err != nil {
		slog.Warn("claim approval: assignment insert failed", "claim_id", claimID, "user_id", c.UserID, "err", err)
	}
	return nil
}

// Reject marks a pending claim rejected. The row is kept as audit trail and
// no longer counts toward the claimant's managed businesses.
func (s *service) Reject(ctx context.Context, actor Actor, claimID, reason string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("admin role required: %w", domain.ErrForbidden)
	}
	c, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status != domain.ClaimStatusPending {
		return fmt.Errorf("claim is already %s: %w", c.Status, domain.ErrConflict)
	}
	if err := s.claims.Update(ctx, claimID, map[string]interface{}{"status": domain.ClaimStatusRejected}); err != nil {
		slog.Error("claim rejection: status update failed", "claim_id", claimID, "err", err)
		return err
	}
	if reason != "" {
		if err := s.claims.MergeProofData(ctx, claimID, map[string]interface{}{domain.ProofDataRejectionReason: reason}); err != nil {
			slog.Warn("claim rejection: reason merge failed", "claim_id", claimID, "err", err)
		}
	}
	return nil
}

// validateSubmission enforces payload shape, the professional-contact rule
// and the per-method file requirements, reporting field-level errors.
func validateSubmission(req domain.SubmitClaimRequest, files []domain.ProofFile) error {
	if fields := validate.Struct(req); fields != nil {
		return &domain.ValidationError{Msg: "please correct the errors in the form", Fields: fields}
	}
	if req.ExistingBusinessID == "" && req.Phone == "" && req.Website == "" {
		return domain.NewValidationError("please add at least one professional contact",
			"phone", "add a business phone or a website")
	}
	for _, method := range req.ProofMethods {
		rule, ok := verification.RuleFor(method)
		if !ok {
			return domain.NewValidationError("unknown proof method", "proof_methods", method)
		}
		if rule.RequiresFile && !hasFile(files, method) {
			return domain.NewValidationError("please provide the required proof",
				method+"File", "a "+method+" is required when this method is selected")
		}
	}
	return nil
}

func requestedUpdates(req domain.SubmitClaimRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	if len(req.Amenities) > 0 {
		updates["amenities"] = req.Amenities
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Website != "" {
		updates["website"] = req.Website
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	return updates
}

func hasFile(files []domain.ProofFile, kind string) bool {
	for _, f := range files {
		if f.Kind == kind && len(f.Data) > 0 {
			return true
		}
	}
	return false
}

func businessLabel(req domain.SubmitClaimRequest) string {
	if req.BusinessName != "" {
		return req.BusinessName
	}
	return "an existing listing"
}

func policy(p config.RatePolicy) ratelimit.Policy {
	return ratelimit.Policy{Window: p.Window, MaxAttempts: p.MaxAttempts, BlockFor: p.BlockFor}
}
