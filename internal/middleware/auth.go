package middleware

import (
	"net/http"

	"github.com/calebwray/tandem/internal/auth"
	"github.com/calebwray/tandem/internal/store"
)

const sessionCookieName = "tandem_session"

// RequireAuth validates the session cookie, resolves the acting member's
// profile, and populates AuthContext for downstream handlers.
func RequireAuth(sessionStore *store.SessionStore, householdStore *store.HouseholdStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			profile, err := householdStore.GetProfile(sess.MemberProfileID)
			if err != nil || profile == nil || profile.HouseholdID != sess.HouseholdID {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				MemberProfileID: profile.ID,
				FamilyMemberID:  profile.FamilyMemberID,
				HouseholdID:     sess.HouseholdID,
				Role:            profile.Role,
				SessionID:       sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent checks that the authenticated member has the parent role.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required"}`))
}
