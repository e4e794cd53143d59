package limits

import (
	"context"
	"errors"
	"fmt"

	"github.com/claimdesk/claims-api/internal/domain"
)

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

type claimStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Claim, error)
}

type assignmentStore interface {
	ListBusinessIDs(ctx context.Context, userID string) ([]string, error)
}

// Guard enforces the per-tier cap on concurrently managed businesses.
type Guard struct {
	profiles    profileStore
	claims      claimStore
	assignments assignmentStore
	tierLimits  map[string]int
}

func NewGuard(profiles profileStore, claims claimStore, assignments assignmentStore, tierLimits map[string]int) *Guard {
	return &Guard{profiles: profiles, claims: claims, assignments: assignments, tierLimits: tierLimits}
}

// MaxForTier returns the business cap for a tier. Unknown tiers fall back to
// the standard limit.
func (g *Guard) MaxForTier(tier string) int {
	if max, ok := g.tierLimits[tier]; ok {
		return max
	}
	return g.tierLimits[domain.TierStandard]
}

// ManagedBusinessIDs returns the distinct businesses a user currently manages:
// the profile link, approved claims, and explicit assignment rows. Rejected
// and pending claims do not count.
func (g *Guard) ManagedBusinessIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	managed := make(map[string]struct{})

	profile, err := g.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if profile != nil && profile.BusinessID != "" {
		managed[profile.BusinessID] = struct{}{}
	}

	claims, err := g.claims.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range claims {
		if c.Status == domain.ClaimStatusApproved {
			managed[c.BusinessID] = struct{}{}
		}
	}

	assigned, err := g.assignments.ListBusinessIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range assigned {
		managed[id] = struct{}{}
	}

	return managed, nil
}

// Enforce rejects users already at their tier's cap. Admins are exempt.
func (g *Guard) Enforce(ctx context.Context, userID, tier string, isAdmin bool) error {
	if isAdmin {
		return nil
	}
	managed, err := g.ManagedBusinessIDs(ctx, userID)
	if err != nil {
		return err
	}
	max := g.MaxForTier(tier)
	if len(managed) >= max {
		return fmt.Errorf("you already manage the maximum number of businesses allowed for your plan (%d): %w",
			max, domain.ErrForbidden)
	}
	return nil
}
