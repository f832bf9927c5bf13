package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calebwray/tandem/internal/auth"
	"github.com/calebwray/tandem/internal/database"
	"github.com/calebwray/tandem/internal/model"
	"github.com/calebwray/tandem/internal/store"
)

func setupAuthTest(t *testing.T) (http.Handler, *store.SessionStore, *model.MemberProfile) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	households := store.NewHouseholdStore(db)
	sessions := store.NewSessionStore(db)

	h, _ := households.Create("The Wrens")
	m, _ := store.NewFamilyMemberStore(db).Create("Dana")
	p, err := households.CreateProfile(h.ID, m.ID, "Dana", model.RoleParent)
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}

	handler := RequireAuth(sessions, households)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.MemberProfileID(r.Context()) != p.ID {
			t.Error("expected profile id in context")
		}
		w.WriteHeader(http.StatusOK)
	}))
	return handler, sessions, p
}

func TestRequireAuthNoCookie(t *testing.T) {
	handler, _, _ := setupAuthTest(t)

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthBadToken(t *testing.T) {
	handler, _, _ := setupAuthTest(t)

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "bogus"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthValidSession(t *testing.T) {
	handler, sessions, p := setupAuthTest(t)

	sess, err := sessions.Create(p.ID, p.HouseholdID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireParent(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	parentCtx := auth.WithAuth(httptest.NewRequest("POST", "/", nil).Context(), auth.AuthContext{Role: model.RoleParent})
	req := httptest.NewRequest("POST", "/", nil).WithContext(parentCtx)
	rec := httptest.NewRecorder()
	RequireParent(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("parent: status = %d, want 200", rec.Code)
	}

	childCtx := auth.WithAuth(httptest.NewRequest("POST", "/", nil).Context(), auth.AuthContext{Role: model.RoleChild})
	req = httptest.NewRequest("POST", "/", nil).WithContext(childCtx)
	rec = httptest.NewRecorder()
	RequireParent(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("child: status = %d, want 403", rec.Code)
	}
}
