package claim

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/claimdesk/claims-api/internal/config"
	"github.com/claimdesk/claims-api/internal/domain"
	"github.com/claimdesk/claims-api/internal/pkg/ratelimit"
)

type mockClaimStore struct{ mock.Mock }

func (m *mockClaimStore) Put(ctx context.Context, c *domain.Claim) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockClaimStore) Get(ctx context.Context, claimID string) (*domain.Claim, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claim), args.Error(1)
}

func (m *mockClaimStore) ListByUser(ctx context.Context, userID string) ([]domain.Claim, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Claim), args.Error(1)
}

func (m *mockClaimStore) FindApprovedByBusiness(ctx context.Context, businessID string) (*domain.Claim, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claim), args.Error(1)
}

func (m *mockClaimStore) FindPendingByUserBusiness(ctx context.Context, userID, businessID string) (*domain.Claim, error) {
	args := m.Called(ctx, userID, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claim), args.Error(1)
}

func (m *mockClaimStore) MergeProofData(ctx context.Context, claimID string, updates map[string]interface{}) error {
	return m.Called(ctx, claimID, updates).Error(0)
}

func (m *mockClaimStore) Update(ctx context.Context, claimID string, updates map[string]interface{}) error {
	return m.Called(ctx, claimID, updates).Error(0)
}

type mockBusinessStore struct{ mock.Mock }

func (m *mockBusinessStore) Put(ctx context.Context, b *domain.Business) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBusinessStore) Get(ctx context.Context, businessID string) (*domain.Business, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Business), args.Error(1)
}

func (m *mockBusinessStore) Update(ctx context.Context, businessID string, updates map[string]interface{}) error {
	return m.Called(ctx, businessID, updates).Error(0)
}

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileStore) EnsureWithIdentity(ctx context.Context, userID, fullName, email string) error {
	return m.Called(ctx, userID, fullName, email).Error(0)
}

func (m *mockProfileStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockAssignmentStore struct{ mock.Mock }

func (m *mockAssignmentStore) Put(ctx context.Context, userID, businessID string) error {
	return m.Called(ctx, userID, businessID).Error(0)
}

type mockGuard struct{ mock.Mock }

func (m *mockGuard) Enforce(ctx context.Context, userID, tier string, isAdmin bool) error {
	return m.Called(ctx, userID, tier, isAdmin).Error(0)
}

type mockUploader struct{ mock.Mock }

func (m *mockUploader) UploadMany(ctx context.Context, claimID string, files []domain.ProofFile) []domain.UploadResult {
	args := m.Called(ctx, claimID, files)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.UploadResult)
}

type mockCodeIssuer struct{ mock.Mock }

func (m *mockCodeIssuer) GenerateCode(ctx context.Context, method, claimID, contactEmail string) error {
	return m.Called(ctx, method, claimID, contactEmail).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyAdmins(ctx context.Context, alert domain.AdminAlert) {
	m.Called(ctx, alert)
}

type fixture struct {
	claims      *mockClaimStore
	businesses  *mockBusinessStore
	profiles    *mockProfileStore
	assignments *mockAssignmentStore
	guard       *mockGuard
	uploader    *mockUploader
	codes       *mockCodeIssuer
	notifier    *mockNotifier
	svc         Service

	createdBusiness *domain.Business
	createdClaim    *domain.Claim
}

func newFixture() *fixture {
	f := &fixture{
		claims:      new(mockClaimStore),
		businesses:  new(mockBusinessStore),
		profiles:    new(mockProfileStore),
		assignments: new(mockAssignmentStore),
		guard:       new(mockGuard),
		uploader:    new(mockUploader),
		codes:       new(mockCodeIssuer),
		notifier:    new(mockNotifier),
	}
	f.svc = NewService(ServiceDeps{
		ClaimRepo:      f.claims,
		BusinessRepo:   f.businesses,
		ProfileRepo:    f.profiles,
		AssignmentRepo: f.assignments,
		Guard:          f.guard,
		Uploader:       f.uploader,
		CodeIssuer:     f.codes,
		Notifier:       f.notifier,
		Limiter:        ratelimit.NewMemoryLimiter(),
		Policies: config.RateLimits{
			Submission:   config.RatePolicy{Window: time.Hour, MaxAttempts: 3, BlockFor: time.Hour},
			Verification: config.RatePolicy{Window: 15 * time.Minute, MaxAttempts: 5, BlockFor: 30 * time.Minute},
			Resend:       config.RatePolicy{Window: 15 * time.Minute, MaxAttempts: 3, BlockFor: 15 * time.Minute},
		},
	})
	return f
}

// allowHappyPath wires the mocks so a submission passes every guard and
// records the created rows on the fixture.
func (f *fixture) allowHappyPath() {
	f.profiles.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.guard.On("Enforce", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.claims.On("ListByUser", mock.Anything, mock.Anything).Return([]domain.Claim{}, nil)
	f.profiles.On("EnsureWithIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.businesses.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		f.createdBusiness = args.Get(1).(*domain.Business)
	}).Return(nil)
	f.claims.On("FindPendingByUserBusiness", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.claims.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		f.createdClaim = args.Get(1).(*domain.Claim)
	}).Return(nil)
	f.uploader.On("UploadMany", mock.Anything, mock.Anything, mock.Anything).Return([]domain.UploadResult{})
	f.codes.On("GenerateCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("NotifyAdmins", mock.Anything, mock.Anything)
}

func validNewBusinessReq() domain.SubmitClaimRequest {
	return domain.SubmitClaimRequest{
		BusinessName:  "Chez Tante Marie",
		Category:      "restaurant",
		City:          "Douala",
		Quartier:      "Akwa",
		Address:       "12 Rue Joffre",
		Phone:         "+237650000000",
		FullName:      "Marie Ngo",
		Position:      "Gérante",
		ClaimerType:   "owner",
		Email:         "marie@example.com",
		PersonalPhone: "+237651111111",
		ProofMethods:  []string{domain.MethodEmail},
	}
}

var user = Actor{UserID: "user-1", Role: domain.RoleUser}
var admin = Actor{UserID: "admin-1", Role: domain.RoleAdmin}

func TestSubmitNewBusinessHappyPath(t *testing.T) {
	f := newFixture()
	f.allowHappyPath()

	claimID, err := f.svc.Submit(context.Background(), user, validNewBusinessReq(), nil)

	require.NoError(t, err)
	require.NotEmpty(t, claimID)
	require.NotNil(t, f.createdBusiness)
	require.NotNil(t, f.createdClaim)

	assert.Equal(t, "Chez Tante Marie", f.createdBusiness.Name)
	assert.Equal(t, f.createdBusiness.BusinessID, f.createdClaim.BusinessID)
	assert.Equal(t, domain.ClaimStatusPending, f.createdClaim.Status)
	assert.Equal(t, domain.ProofStatusPending, f.createdClaim.ProofStatus[domain.MethodEmail])
	assert.Equal(t, false, f.createdClaim.ProofData[domain.ProofDataEmailVerified])
	assert.Equal(t, false, f.createdClaim.ProofData[domain.ProofDataPhoneVerified])

	f.codes.AssertCalled(t, "GenerateCode", mock.Anything, domain.MethodEmail, claimID, "marie@example.com")
	f.notifier.AssertCalled(t, "NotifyAdmins", mock.Anything, mock.Anything)
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Submit(context.Background(), Actor{}, validNewBusinessReq(), nil)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSubmitBlockedAtTierLimit(t *testing.T) {
	f := newFixture()
	f.profiles.On("Get", mock.Anything, "user-1").Return(&domain.Profile{UserID: "user-1", Tier: domain.TierStandard}, nil)
	f.guard.On("Enforce", mock.Anything, "user-1", domain.TierStandard, false).
		Return(fmt.Errorf("you already manage the maximum number of businesses allowed for your plan (1): %w", domain.ErrForbidden))

	_, err := f.svc.Submit(context.Background(), user, validNewBusinessReq(), nil)

	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Contains(t, err.Error(), "(1)")
	f.claims.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSubmitBlockedByPendingClaim(t *testing.T) {
	f := newFixture()
	f.profiles.On("Get", mock.Anything, "user-1").Return(nil, domain.ErrNotFound)
	f.guard.On("Enforce", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.claims.On("ListByUser", mock.Anything, "user-1").Return([]domain.Claim{
		{ClaimID: "c-old", UserID: "user-1", Status: domain.ClaimStatusPending},
	}, nil)

	_, err := f.svc.Submit(context.Background(), user, validNewBusinessReq(), nil)

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSubmitRejectedClaimDoesNotBlockResubmission(t *testing.T) {
	f := newFixture()
	f.allowHappyPath()
	f.claims.On("ListByUser", mock.Anything, "user-1").Unset()
	f.claims.On("ListByUser", mock.Anything, "user-1").Return([]domain.Claim{
		{ClaimID: "c-old", UserID: "user-1", BusinessID: "biz-other", Status: domain.ClaimStatusRejected},
	}, nil)

	_, err := f.svc.Submit(context.Background(), user, validNewBusinessReq(), nil)

	assert.NoError(t, err)
}

func TestSubmitValidationErrors(t *testing.T) {
	f := newFixture()
	f.profiles.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.guard.On("Enforce", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.claims.On("ListByUser", mock.Anything, mock.Anything).Return([]domain.Claim{}, nil)

	t.Run("missing required fields", func(t *testing.T) {
		req := validNewBusinessReq()
		req.FullName = ""
		req.Email = "not-an-email"

		_, err := f.svc.Submit(context.Background(), user, req, nil)

		require.ErrorIs(t, err, domain.ErrBadRequest)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "FullName")
		assert.Contains(t, ve.Fields, "Email")
	})

	t.Run("new business needs a professional contact", func(t *testing.T) {
		req := validNewBusinessReq()
		req.Phone = ""
		req.Website = ""

		_, err := f.svc.Submit(context.Background(), user, req, nil)

		require.ErrorIs(t, err, domain.ErrBadRequest)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "phone")
	})

	t.Run("document method without file", func(t *testing.T) {
		req := validNewBusinessReq()
		req.ProofMethods = []string{domain.MethodDocument}

		_, err := f.svc.Submit(context.Background(), user, req, nil)

		require.ErrorIs(t, err, domain.ErrBadRequest)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "documentFile")
	})

	t.Run("website alone satisfies the contact rule", func(t *testing.T) {
		f2 := newFixture()
		f2.allowHappyPath()
		req := validNewBusinessReq()
		req.Phone = ""
		req.Website = "https://tantemarie.example.com"

		_, err := f2.svc.Submit(context.Background(), user, req, nil)

		assert.NoError(t, err)
	})
}

func TestSubmitExistingBusinessAlreadyClaimed(t *testing.T) {
	f := newFixture()
	f.profiles.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.guard.On("Enforce", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.claims.On("ListByUser", mock.Anything, mock.Anything).Return([]domain.Claim{}, nil)
	f.profiles.On("EnsureWithIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.businesses.On("Get", mock.Anything, "biz-1").Return(&domain.Business{BusinessID: "biz-1"}, nil)
	f.claims.On("FindApprovedByBusiness", mock.Anything, "biz-1").Return(&domain.Claim{
		ClaimID: "c-winner", BusinessID: "biz-1", Status: domain.ClaimStatusApproved,
	}, nil)

	req := validNewBusinessReq()
	req.ExistingBusinessID = "biz-1"

	_, err := f.svc.Submit(context.Background(), user, req, nil)

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSubmitDuplicatePendingForSameBusiness(t *testing.T) {
	f := newFixture()
	f.profiles.On("Get", mock.Anything, mock.Anything).Return(&domain.Profile{UserID: "admin-1", Role: domain.RoleAdmin}, nil)
	f.guard.On("Enforce", mock.Anything, mock.Anything, mock.Anything, true).Return(nil)
	f.claims.On("ListByUser", mock.Anything, mock.Anything).Return([]domain.Claim{}, nil)
	f.profiles.On("EnsureWithIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.businesses.On("Get", mock.Anything, "biz-1").Return(&domain.Business{BusinessID: "biz-1"}, nil)
	f.claims.On("FindApprovedByBusiness", mock.Anything, "biz-1").Return(nil, domain.ErrNotFound)
	f.businesses.On("Update", mock.Anything, "biz-1", mock.Anything).Return(nil)
	f.claims.On("FindPendingByUserBusiness", mock.Anything, "admin-1", "biz-1").Return(&domain.Claim{
		ClaimID: "c-dup", Status: domain.ClaimStatusPending,
	}, nil)

	req := validNewBusinessReq()
	req.ExistingBusinessID = "biz-1"

	_, err := f.svc.Submit(context.Background(), admin, req, nil)

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSubmitStagesUpdatesForRegularUser(t *testing.T) {
	f := newFixture()
	f.profiles.On("Get", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.guard.On("Enforce", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.claims.On("ListByUser", mock.Anything, mock.Anything).Return([]domain.Claim{}, nil)
	f.profiles.On("EnsureWithIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.businesses.On("Get", mock.Anything, "biz-1").Return(&domain.Business{BusinessID: "biz-1"}, nil)
	f.claims.On("FindApprovedByBusiness", mock.Anything, "biz-1").Return(nil, domain.ErrNotFound)
	f.claims.On("FindPendingByUserBusiness", mock.Anything, "user-1", "biz-1").Return(nil, domain.ErrNotFound)
	var createdClaim *domain.Claim
	f.claims.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createdClaim = args.Get(1).(*domain.Claim)
	}).Return(nil)
	f.uploader.On("UploadMany", mock.Anything, mock.Anything, mock.Anything).Return([]domain.UploadResult{})
	f.codes.On("GenerateCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("NotifyAdmins", mock.Anything, mock.Anything)

	req := validNewBusinessReq()
	req.ExistingBusinessID = "biz-1"
	req.Description = "Updated description"
	req.Amenities = []string{"wifi", "parking"}

	_, err := f.svc.Submit(context.Background(), user, req, nil)

	require.NoError(t, err)
	f.businesses.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	staged, ok := createdClaim.ProofData[domain.ProofDataRequestedUpdates].(map[string]interface{})
	require.True(t, ok, "requested updates must be staged on the claim")
	assert.Equal(t, "Updated description", staged["description"])
	assert.Equal(t, []string{"wifi", "parking"}, staged["amenities"])
}

func TestSubmitAdminUpdatesApplyImmediately(t *testing.T) {
	f := newFixture()
	f.profiles.On("Get", mock.Anything, "admin-1").Return(&domain.Profile{UserID: "admin-1", Role: domain.RoleAdmin}, nil)
	f.guard.On("Enforce", mock.Anything, "admin-1", mock.Anything, true).Return(nil)
	f.claims.On("ListByUser", mock.Anything, "admin-1").Return([]domain.Claim{}, nil)
	f.profiles.On("EnsureWithIdentity", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.businesses.On("Get", mock.Anything, "biz-1").Return(&domain.Business{BusinessID: "biz-1"}, nil)
	f.claims.On("FindApprovedByBusiness", mock.Anything, "biz-1").Return(nil, domain.ErrNotFound)
	f.businesses.On("Update", mock.Anything, "biz-1", mock.Anything).Return(nil)
	f.claims.On("FindPendingByUserBusiness", mock.Anything, "admin-1", "biz-1").Return(nil, domain.ErrNotFound)
	var createdClaim *domain.Claim
	f.claims.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createdClaim = args.Get(1).(*domain.Claim)
	}).Return(nil)
	f.uploader.On("UploadMany", mock.Anything, mock.Anything, mock.Anything).Return([]domain.UploadResult{})
	f.codes.On("GenerateCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("NotifyAdmins", mock.Anything, mock.Anything)

	req := validNewBusinessReq()
	req.ExistingBusinessID = "biz-1"
	req.Description = "Official description"

	_, err := f.svc.Submit(context.Background(), admin, req, nil)

	require.NoError(t, err)
	f.businesses.AssertCalled(t, "Update", mock.Anything, "biz-1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["description"] == "Official description"
	}))
	_, staged := createdClaim.ProofData[domain.ProofDataRequestedUpdates]
	assert.False(t, staged, "admin edits must not be staged")
}

func TestSubmitDocumentFileGoesToPendingReview(t *testing.T) {
	f := newFixture()
	f.allowHappyPath()
	f.uploader.On("UploadMany", mock.Anything, mock.Anything, mock.Anything).Unset()
	f.uploader.On("UploadMany", mock.Anything, mock.Anything, mock.Anything).Return([]domain.UploadResult{
		{Kind: domain.MethodDocument, OK: true, URL: "s3://claim-proofs/claims/c1/doc.pdf"},
	})
	f.claims.On("MergeProofData", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	req := validNewBusinessReq()
	req.ProofMethods = []string{domain.MethodEmail, domain.MethodDocument}
	files := []domain.ProofFile{{Kind: domain.MethodDocument, Filename: "doc.pdf", Data: []byte("pdf")}}

	claimID, err := f.svc.Submit(context.Background(), user, req, files)

	require.NoError(t, err)
	require.NotNil(t, f.createdClaim)
	assert.Equal(t, domain.ProofStatusPending, f.createdClaim.ProofStatus[domain.MethodEmail])
	assert.Equal(t, domain.ProofStatusPendingReview, f.createdClaim.ProofStatus[domain.MethodDocument])
	assert.Equal(t, true, f.createdClaim.ProofData[domain.ProofDataDocumentUploaded])
	f.claims.AssertCalled(t, "MergeProofData", mock.Anything, claimID, mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["document_url"] == "s3://claim-proofs/claims/c1/doc.pdf"
	}))
}

func TestSubmitSurvivesUploadAndCodeFailures(t *testing.T) {
	f := newFixture()
	f.allowHappyPath()
	f.uploader.On("UploadMany", mock.Anything, mock.Anything, mock.Anything).Unset()
	f.uploader.On("UploadMany", mock.Anything, mock.Anything, mock.Anything).Return([]domain.UploadResult{
		{Kind: domain.MethodDocument, Err: errors.New("bucket unreachable")},
	})
	f.codes.On("GenerateCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Unset()
	f.codes.On("GenerateCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	req := validNewBusinessReq()
	req.ProofMethods = []string{domain.MethodEmail, domain.MethodDocument}
	files := []domain.ProofFile{{Kind: domain.MethodDocument, Filename: "doc.pdf", Data: []byte("pdf")}}

	claimID, err := f.svc.Submit(context.Background(), user, req, files)

	require.NoError(t, err)
	assert.NotEmpty(t, claimID)
}

func TestSubmitRateLimited(t *testing.T) {
	f := newFixture()
	f.allowHappyPath()

	req := validNewBusinessReq()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Submit(context.Background(), user, req, nil)
		require.NoError(t, err, "submission %d", i+1)
	}

	_, err := f.svc.Submit(context.Background(), user, req, nil)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture()
	f.claims.On("Get", mock.Anything, "c-1").Return(&domain.Claim{ClaimID: "c-1", UserID: "user-1"}, nil)

	_, err := f.svc.Get(context.Background(), Actor{UserID: "intruder", Role: domain.RoleUser}, "c-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	c, err := f.svc.Get(context.Background(), user, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ClaimID)

	c, err = f.svc.Get(context.Background(), admin, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ClaimID)
}

func TestBusinessStatusReportsClaimAndOwnClaim(t *testing.T) {
	f := newFixture()
	f.claims.On("FindApprovedByBusiness", mock.Anything, "biz-1").Return(&domain.Claim{
		ClaimID: "c-winner", BusinessID: "biz-1", Status: domain.ClaimStatusApproved,
	}, nil)
	older := domain.Claim{ClaimID: "c-old", UserID: "user-1", BusinessID: "biz-1",
		Status: domain.ClaimStatusRejected, CreatedAt: time.Now().Add(-48 * time.Hour)}
	newer := domain.Claim{ClaimID: "c-new", UserID: "user-1", BusinessID: "biz-1",
		Status: domain.ClaimStatusPending, CreatedAt: time.Now().Add(-time.Hour)}
	f.claims.On("ListByUser", mock.Anything, "user-1").Return([]domain.Claim{older, newer}, nil)

	status, err := f.svc.BusinessStatus(context.Background(), user, "biz-1")

	require.NoError(t, err)
	assert.True(t, status.Claimed)
	require.NotNil(t, status.OwnClaim)
	assert.Equal(t, "c-new", status.OwnClaim.ClaimID)
}

func TestApproveAppliesStagedUpdatesAndLinksProfile(t *testing.T) {
	f := newFixture()
	pending := &domain.Claim{
		ClaimID:    "c-1",
		UserID:     "user-1",
		BusinessID: "biz-1",
		Status:     domain.ClaimStatusPending,
		ProofData: map[string]interface{}{
			domain.ProofDataRequestedUpdates: map[string]interface{}{"description": "Fresh paint"},
		},
	}
	f.claims.On("Get", mock.Anything, "c-1").Return(pending, nil)
	f.claims.On("FindApprovedByBusiness", mock.Anything, "biz-1").Return(nil, domain.ErrNotFound)
	f.businesses.On("Update", mock.Anything, "biz-1", mock.Anything).Return(nil)
	f.claims.On("Update", mock.Anything, "c-1", mock.Anything).Return(nil)
	f.profiles.On("Update", mock.Anything, "user-1", mock.Anything).Return(nil)
	f.assignments.On("Put", mock.Anything, "user-1", "biz-1").Return(nil)

	err := f.svc.Approve(context.Background(), admin, "c-1")

	require.NoError(t, err)
	f.businesses.AssertCalled(t, "Update", mock.Anything, "biz-1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["description"] == "Fresh paint"
	}))
	f.claims.AssertCalled(t, "Update", mock.Anything, "c-1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["status"] == domain.ClaimStatusApproved
	}))
	f.profiles.AssertCalled(t, "Update", mock.Anything, "user-1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["business_id"] == "biz-1"
	}))
	f.assignments.AssertCalled(t, "Put", mock.Anything, "user-1", "biz-1")
}

func TestApproveRequiresAdmin(t *testing.T) {
	f := newFixture()

	err := f.svc.Approve(context.Background(), user, "c-1")

	assert.ErrorIs(t, err, domain.ErrForbidden)
	f.claims.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestApproveRefusesSecondApprovedClaim(t *testing.T) {
	f := newFixture()
	f.claims.On("Get", mock.Anything, "c-2").Return(&domain.Claim{
		ClaimID: "c-2", UserID: "user-2", BusinessID: "biz-1", Status: domain.ClaimStatusPending,
	}, nil)
	f.claims.On("FindApprovedByBusiness", mock.Anything, "biz-1").Return(&domain.Claim{
		ClaimID: "c-winner", BusinessID: "biz-1", Status: domain.ClaimStatusApproved,
	}, nil)

	err := f.svc.Approve(context.Background(), admin, "c-2")

	assert.ErrorIs(t, err, domain.ErrConflict)
	f.claims.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveResolvedClaimConflicts(t *testing.T) {
	f := newFixture()
	f.claims.On("Get", mock.Anything, "c-1").Return(&domain.Claim{
		ClaimID: "c-1", Status: domain.ClaimStatusRejected,
	}, nil)

	err := f.svc.Approve(context.Background(), admin, "c-1")

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRejectKeepsAuditTrail(t *testing.T) {
	f := newFixture()
	f.claims.On("Get", mock.Anything, "c-1").Return(&domain.Claim{
		ClaimID: "c-1", UserID: "user-1", BusinessID: "biz-1", Status: domain.ClaimStatusPending,
	}, nil)
	f.claims.On("Update", mock.Anything, "c-1", mock.Anything).Return(nil)
	f.claims.On("MergeProofData", mock.Anything, "c-1", mock.Anything).Return(nil)

	err := f.svc.Reject(context.Background(), admin, "c-1", "documents unreadable")

	require.NoError(t, err)
	f.claims.AssertCalled(t, "Update", mock.Anything, "c-1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["status"] == domain.ClaimStatusRejected
	}))
	f.claims.AssertCalled(t, "MergeProofData", mock.Anything, "c-1", mock.MatchedBy(func(u map[string]interface{}) bool {
		return u[domain.ProofDataRejectionReason] == "documents unreadable"
	}))
}
