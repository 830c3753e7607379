// Package http exposes the ledger engine as a JSON API. Identity arrives
// as explicit headers on every request; handlers build a core.Session from
// them and pass it down, so no ambient user state exists anywhere.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Vynetoob/Financeiro/internal/cache"
	"github.com/Vynetoob/Financeiro/internal/core"
	applog "github.com/Vynetoob/Financeiro/internal/log"
	"github.com/Vynetoob/Financeiro/internal/middleware/ratelimit"
	"github.com/Vynetoob/Financeiro/internal/middleware/security"
	"github.com/Vynetoob/Financeiro/internal/middleware/trace"
	"github.com/Vynetoob/Financeiro/internal/series"
	"github.com/Vynetoob/Financeiro/internal/services"
)

// The service surface the handlers call. Interfaces keep the server
// testable against in-memory fakes.
type (
	LedgerAPI interface {
		Create(ctx context.Context, session core.Session, intent series.Intent) ([]core.Transaction, error)
		Get(ctx context.Context, session core.Session, id string) (core.Transaction, error)
		List(ctx context.Context, session core.Session, f services.TransactionFilter) ([]core.Transaction, error)
		Summarize(ctx context.Context, session core.Session, ref core.Date) (services.MonthlySummary, error)
	}

	JointAPI interface {
		Create(ctx context.Context, session core.Session, intent series.Intent) (services.JointCreateResult, error)
		Get(ctx context.Context, session core.Session, id string) (core.JointTransaction, error)
	}

	MutationAPI interface {
		EditTransaction(ctx context.Context, session core.Session, id string, scope services.MutationScope, patch services.Patch) error
		SetTransactionPaid(ctx context.Context, session core.Session, id string, paid bool) error
		DeleteTransaction(ctx context.Context, session core.Session, id string, scope services.MutationScope) error
		EditJoint(ctx context.Context, session core.Session, id string, scope services.MutationScope, patch services.Patch) error
		SetJointPaid(ctx context.Context, session core.Session, id string, paid bool) error
		DeleteJoint(ctx context.Context, session core.Session, id string, scope services.MutationScope) error
	}

	CardAPI interface {
		Create(ctx context.Context, session core.Session, card core.Card) (core.Card, error)
		List(ctx context.Context, session core.Session) ([]core.Card, error)
		Update(ctx context.Context, session core.Session, card core.Card) error
		Delete(ctx context.Context, session core.Session, id string) error
		Statement(ctx context.Context, session core.Session, cardID string, asOf core.Date) (services.CardStatement, error)
	}

	ProfileAPI interface {
		Get(ctx context.Context, session core.Session) (core.Profile, error)
		SaveUsername(ctx context.Context, session core.Session, username string) (core.Profile, error)
		LinkPartner(ctx context.Context, session core.Session, partnerID string) (core.Profile, error)
		Resolve(ctx context.Context, userID string) (core.Session, error)
	}
)

// Dependencies bundles everything a Server needs.
type Dependencies struct {
	Ledger     LedgerAPI
	Joints     JointAPI
	Mutations  MutationAPI
	Cards      CardAPI
	Categories services.CategoryStore
	Profiles   ProfileAPI
	Logger     *applog.Logger
}

type Server struct {
	http.Server

	ledger     LedgerAPI
	joints     JointAPI
	mutations  MutationAPI
	cards      CardAPI
	categories services.CategoryStore
	profiles   ProfileAPI
	logger     *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector

	cacheManager   *cache.Manager
	statementCache *cache.LRUCache[services.CardStatement]
	summaryCache   *cache.LRUCache[services.MonthlySummary]

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		ledger:     deps.Ledger,
		joints:     deps.Joints,
		mutations:  deps.Mutations,
		cards:      deps.Cards,
		categories: deps.Categories,
		profiles:   deps.Profiles,
		logger:     logger.WithComponent(applog.ComponentHTTP),

		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector: security.NewDetector(),

		cacheManager:   cache.NewManager(),
		statementCache: cache.NewLRUCache[services.CardStatement](100, time.Minute),
		summaryCache:   cache.NewLRUCache[services.MonthlySummary](200, 30*time.Second),
	}
	s.cacheManager.Register(s.statementCache)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleEditTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/paid", s.handleTransactionPaid)

	mux.HandleFunc("POST /api/joint-transactions", s.handleCreateJoint)
	mux.HandleFunc("GET /api/joint-transactions/{id}", s.handleGetJoint)
	mux.HandleFunc("PATCH /api/joint-transactions/{id}", s.handleEditJoint)
	mux.HandleFunc("DELETE /api/joint-transactions/{id}", s.handleDeleteJoint)
	mux.HandleFunc("POST /api/joint-transactions/{id}/paid", s.handleJointPaid)

	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("POST /api/cards", s.handleCreateCard)
	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("PUT /api/cards/{id}", s.handleUpdateCard)
	mux.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)
	mux.HandleFunc("GET /api/cards/{id}/statement", s.handleCardStatement)

	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handleSaveUsername)
	mux.HandleFunc("POST /api/profile/partner", s.handleLinkPartner)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, nil)

	var handler http.Handler = mux
	handler = s.detectionMiddleware(handler)
	handler = limit(handler)
	handler = tracer.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = applog.Middleware(s.logger)(handler)
	return handler
}

// detectionMiddleware logs hostile-looking requests; they still get served
// unless another layer rejects them.
func (s *Server) detectionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the HTTP listener and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
