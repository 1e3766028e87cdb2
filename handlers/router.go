package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kevinaaaquil/readlog/backend/middleware"
	"github.com/kevinaaaquil/readlog/backend/service"
	"github.com/kevinaaaquil/readlog/backend/validation"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Log      *zap.Logger
	Tokens   *service.TokenService
	Sessions *service.SessionManager
	Library  *service.LibraryManager
	Ledger   *service.ReadingLedger
	Catalog  *service.Catalog

	// Ping checks the database for /health.
	Ping func(ctx context.Context) error

	AllowedOrigins  []string
	CookieSecure    bool
	LoginRatePerMin int
}

func NewRouter(d Deps) http.Handler {
	v := validation.New()
	users := &UsersHandler{Sessions: d.Sessions, Validate: v, Log: d.Log}
	auth := &AuthHandler{Sessions: d.Sessions, Validate: v, Log: d.Log, CookieSecure: d.CookieSecure, RefreshTTL: d.Tokens.RefreshTTL()}
	books := &BooksHandler{Catalog: d.Catalog, Library: d.Library, Log: d.Log}
	library := &LibraryHandler{Library: d.Library, Validate: v, Log: d.Log}
	logs := &LogsHandler{Ledger: d.Ledger, Validate: v, Log: d.Log}
	limiter := middleware.NewIPRateLimiter(d.LoginRatePerMin)
	requireAuth := middleware.Auth(d.Tokens)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Recoverer(d.Log))
	r.Use(middleware.CORS(d.AllowedOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "welcome to readlog."})
	})
	r.Get("/health", health(d.Ping, d.Log))

	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RateLimit(limiter)).Post("/register", users.Register)
		r.With(requireAuth).Get("/me", users.Me)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter))
			r.Post("/login", auth.Login)
			r.Post("/token", auth.Token)
			r.Post("/refresh", auth.Refresh)
		})
		r.With(requireAuth).Post("/logout", auth.Logout)
	})

	r.Get("/books/{book_id}/cover", books.Cover)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/books/search", books.Search)

		r.Route("/library", func(r chi.Router) {
			r.Get("/", library.List)
			r.Post("/", library.Add)
			r.Route("/{book_id}", func(r chi.Router) {
				r.Get("/", library.Get)
				r.Patch("/", library.Update)
				r.Delete("/", library.Delete)
				r.Put("/pages", library.SetPageCount)
				r.Post("/complete", library.Complete)
				r.Put("/status", library.SetStatus)
				r.Get("/logs", logs.List)
				r.Post("/logs", logs.Add)
				r.Put("/logs/{date}", logs.Modify)
			})
		})
		r.Delete("/logs/{log_id}", logs.Remove)
	})

	return r
}

func health(ping func(ctx context.Context) error, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				log.Warn("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
