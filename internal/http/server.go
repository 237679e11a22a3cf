// Package http exposes the bookkeeping operations as a JSON API with the
// form-post endpoints the entry pages submit to.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"khata/internal/cache"
	"khata/internal/core"
	"khata/internal/middleware/ratelimit"
	"khata/internal/middleware/security"
	"khata/internal/middleware/trace"
	"khata/internal/services"
)

// ContactDirectory is the slice of the contact service the handlers use.
type ContactDirectory interface {
	Create(ctx context.Context, in core.ContactInput) (core.Contact, error)
	Edit(ctx context.Context, id int64, in core.ContactInput) (core.Contact, error)
	Delete(ctx context.Context, id int64) (int64, error)
	HasTransactions(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (core.Contact, error)
	List(ctx context.Context, contactType string) ([]services.ContactSummary, error)
	PortfolioTotals(ctx context.Context, contactType string) (services.Totals, error)
}

// Ledger is the slice of the transaction service the handlers use.
type Ledger interface {
	Add(ctx context.Context, in core.TransactionInput, receipt *services.ReceiptUpload) (core.Transaction, error)
	Update(ctx context.Context, id int64, in core.TransactionInput, receipt *services.ReceiptUpload) (core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	View(ctx context.Context, contactID int64) (services.LedgerView, error)
}

// Reports is the read-only dashboard surface.
type Reports interface {
	MonthlySummary(ctx context.Context) ([]services.MonthlySummary, error)
	TransactionSummary(ctx context.Context) ([]services.PartySummary, error)
	Recent(ctx context.Context) ([]services.RecentEntry, error)
	ContactTotals(ctx context.Context) (services.ContactCards, error)
	TotalGiven(ctx context.Context) (decimal.Decimal, error)
	TotalReceived(ctx context.Context) (decimal.Decimal, error)
	Balance(ctx context.Context) (decimal.Decimal, error)
}

type Server struct {
	http.Server

	contacts ContactDirectory
	ledger   Ledger
	reports  Reports

	limiter *ratelimit.Limiter
	caches  *cache.Manager

	// Read caches for the two hot listing queries. Every write through the
	// services purges both, since any mutation can move a balance.
	listCache   *cache.LRUCache[[]services.ContactSummary]
	totalsCache *cache.LRUCache[services.Totals]

	shutdownOnce sync.Once
}

// NewServer wires routes, middleware and read caches, returning a
// ready-to-run server. receiptsDir, when non-empty, is served read-only
// under /receipts/.
func NewServer(addr string, contacts ContactDirectory, ledger Ledger, reports Reports, receiptsDir string) *Server {
	s := &Server{
		contacts:    contacts,
		ledger:      ledger,
		reports:     reports,
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		caches:      cache.NewManager(),
		listCache:   cache.NewLRUCache[[]services.ContactSummary](8, 30*time.Second),
		totalsCache: cache.NewLRUCache[services.Totals](8, 30*time.Second),
	}
	s.caches.Register(s.listCache)
	s.caches.Register(s.totalsCache)
	s.caches.StartCleanup(10 * time.Minute)

	tracer := trace.NewMiddleware(clientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	throttle := s.limiter.Middleware(clientIP)

	r := chi.NewRouter()
	r.Use(tracer.Middleware)
	r.Use(headers.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", s.handleListContacts)
		r.Get("/totals", s.handleContactTotals)
		r.With(throttle).Post("/", s.handleCreateContact)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetContact)
			r.Get("/has-transactions", s.handleHasTransactions)
			r.With(throttle).Post("/", s.handleEditContact)
			r.With(throttle).Post("/delete", s.handleDeleteContact)
		})
	})

	r.Route("/ledger", func(r chi.Router) {
		r.Get("/", s.handleLedgerView)
		r.With(throttle).Post("/transactions", s.handleAddTransaction)
		r.Get("/transactions/{id}", s.handleGetTransaction)
		r.With(throttle).Post("/transactions/{id}", s.handleUpdateTransaction)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/monthly-summary", s.handleMonthlySummary)
		r.Get("/transaction-summary", s.handleTransactionSummary)
		r.Get("/recent-transactions", s.handleRecentTransactions)
		r.Get("/totals/contacts", s.handleTotalContacts)
		r.Get("/totals/given", s.handleTotalGiven)
		r.Get("/totals/received", s.handleTotalReceived)
		r.Get("/totals/balance", s.handleTotalBalance)
	})

	if receiptsDir != "" {
		files := http.StripPrefix("/receipts/", http.FileServer(http.Dir(receiptsDir)))
		r.With(security.StaticAssetMiddleware(3600)).
			Method(http.MethodGet, "/receipts/*", files)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the background routines, then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// invalidateReadCaches drops every cached listing. Called after each write.
func (s *Server) invalidateReadCaches() {
	s.listCache.Purge()
	s.totalsCache.Purge()
}

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
