package auth

import (
	"context"

	"github.com/calebwray/tandem/internal/model"
)

type contextKey struct{}

// AuthContext carries the identity the session middleware resolved: which
// member profile is acting, and under which household.
type AuthContext struct {
	MemberProfileID int64
	FamilyMemberID  int64
	HouseholdID     int64
	Role            model.Role
	SessionID       int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}

func MemberProfileID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.MemberProfileID
}

func IsParent(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == model.RoleParent
}
