package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/calebwray/tandem/internal/handler"
	"github.com/calebwray/tandem/internal/link"
	"github.com/calebwray/tandem/internal/middleware"
	"github.com/calebwray/tandem/internal/store"
	syncer "github.com/calebwray/tandem/internal/sync"
	"github.com/calebwray/tandem/internal/task"
	ws "github.com/calebwray/tandem/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	memberH      *handler.MemberHandler
	taskH        *handler.TaskHandler
	routineH     *handler.RoutineHandler
	rewardH      *handler.RewardHandler
	linkH        *handler.LinkHandler
	sessionStore *store.SessionStore
	linkStore    *store.LinkStore
	linkService  *link.Service
	syncWorker   *syncer.Worker
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, sessionTTL, syncInterval time.Duration, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	familyMemberStore := store.NewFamilyMemberStore(db)
	taskStore := store.NewTaskStore(db)
	routineStore := store.NewRoutineStore(db)
	rewardStore := store.NewRewardStore(db)
	linkStore := store.NewLinkStore(db)
	linkCodeStore := store.NewLinkCodeStore(db)
	outboxStore := store.NewOutboxStore(db)
	sessionStore := store.NewSessionStore(db)

	sync := syncer.NewSynchronizer(linkStore, outboxStore, logger.With("component", "sync"))
	syncWorker := syncer.NewWorker(outboxStore, householdStore, hub, syncInterval, logger.With("component", "sync_worker"))

	taskService := task.NewService(taskStore, routineStore, rewardStore, householdStore, sync, hub, logger.With("component", "task"))
	linkService := link.NewService(linkStore, linkCodeStore, householdStore, familyMemberStore, hub, logger.With("component", "link"))

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(householdStore, familyMemberStore, sessionStore, sessionTTL, logger.With("component", "auth")),
		memberH:      handler.NewMemberHandler(householdStore, familyMemberStore, logger.With("component", "member")),
		taskH:        handler.NewTaskHandler(taskStore, taskService, logger.With("component", "task_handler")),
		routineH:     handler.NewRoutineHandler(routineStore, taskService, logger.With("component", "routine_handler")),
		rewardH:      handler.NewRewardHandler(rewardStore, taskService, logger.With("component", "reward_handler")),
		linkH:        handler.NewLinkHandler(linkService, logger.With("component", "link_handler")),
		sessionStore: sessionStore,
		linkStore:    linkStore,
		linkService:  linkService,
		syncWorker:   syncWorker,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SyncWorker returns the outbox drain worker for the caller to run.
func (s *Server) SyncWorker() *syncer.Worker {
	return s.syncWorker
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// LinkService returns the link service for cleanup tasks (expiry sweeps).
func (s *Server) LinkService() *link.Service {
	return s.linkService
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Router builds the full route table.
func (s *Server) Router() http.Handler {
	requireAuth := middleware.RequireAuth(s.sessionStore, store.NewHouseholdStore(s.db))
	loginLimit := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)

	public := http.NewServeMux()
	public.Handle("POST /api/bootstrap", loginLimit(http.HandlerFunc(s.authH.Bootstrap)))
	public.Handle("POST /api/login", loginLimit(http.HandlerFunc(s.authH.Login)))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/logout", s.authH.Logout)

	// Member profiles
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.Handle("POST /api/members", middleware.RequireParent(http.HandlerFunc(s.memberH.Create)))
	mux.Handle("POST /api/members/{id}/pin", middleware.RequireParent(http.HandlerFunc(s.memberH.SetPIN)))

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.Handle("POST /api/tasks", middleware.RequireParent(http.HandlerFunc(s.taskH.Create)))
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.taskH.Complete)
	mux.Handle("POST /api/tasks/{id}/approve", middleware.RequireParent(http.HandlerFunc(s.taskH.Approve)))

	// Routines
	mux.HandleFunc("GET /api/routines", s.routineH.List)
	mux.Handle("POST /api/routines", middleware.RequireParent(http.HandlerFunc(s.routineH.Create)))
	mux.HandleFunc("POST /api/routines/{id}/complete", s.routineH.Complete)

	// Rewards
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.Handle("POST /api/rewards", middleware.RequireParent(http.HandlerFunc(s.rewardH.Create)))
	mux.HandleFunc("POST /api/rewards/{id}/purchase", s.rewardH.Purchase)

	// Household links
	mux.Handle("POST /api/links/codes", middleware.RequireParent(http.HandlerFunc(s.linkH.IssueCode)))
	mux.Handle("POST /api/links/redeem", middleware.RequireParent(http.HandlerFunc(s.linkH.RedeemCode)))
	mux.HandleFunc("GET /api/links/{id}", s.linkH.Get)
	mux.Handle("POST /api/links/{id}/changes", middleware.RequireParent(http.HandlerFunc(s.linkH.ProposeChange)))
	mux.Handle("POST /api/links/{id}/changes/{change_id}/approve", middleware.RequireParent(http.HandlerFunc(s.linkH.ApproveChange)))
	mux.Handle("POST /api/links/{id}/changes/{change_id}/reject", middleware.RequireParent(http.HandlerFunc(s.linkH.RejectChange)))
	mux.Handle("POST /api/links/unlink", middleware.RequireParent(http.HandlerFunc(s.linkH.Unlink)))

	// Realtime events
	mux.Handle("GET /ws", ws.HandleWebSocket(s.hub))

	outer := http.NewServeMux()
	outer.Handle("/api/bootstrap", public)
	outer.Handle("/api/login", public)
	outer.Handle("/", requireAuth(mux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outer)
}
