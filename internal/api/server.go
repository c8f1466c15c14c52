// Package api exposes scoring and deep research over HTTP/JSON.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/safescan/internal/jobstore"
	"github.com/sells-group/safescan/internal/model"
	"github.com/sells-group/safescan/internal/tierdb"
)

// DefaultStatusPath prefixes the check_status_url returned for new jobs.
const DefaultStatusPath = "/api/v4/job/"

const maxBodyBytes = 1 << 20

// Scorer scores one scan synchronously.
type Scorer interface {
	Score(req model.ScanRequest) (*model.ScoreResult, error)
}

// Jobs starts and reads deep research jobs.
type Jobs interface {
	Start(ctx context.Context, req model.ResearchRequest) (*model.ResearchJob, error)
	Get(ctx context.Context, id string) (*model.ResearchJob, error)
}

// Catalog is the read side of the tier database.
type Catalog interface {
	Search(name string) (entry *tierdb.Entry, matchedAs string, ok bool)
	Stats() tierdb.Stats
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Scorer         Scorer
	Jobs           Jobs
	Catalog        Catalog
	Store          jobstore.Store
	StatusPath     string
	AllowedOrigins []string
}

// Server holds the handlers.
type Server struct {
	deps Deps
}

// New returns a Server. An empty StatusPath uses DefaultStatusPath.
func New(deps Deps) *Server {
	if deps.StatusPath == "" {
		deps.StatusPath = DefaultStatusPath
	}
	if !strings.HasSuffix(deps.StatusPath, "/") {
		deps.StatusPath += "/"
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}
	return &Server{deps: deps}
}

// Routes returns the chi router with middleware and every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v4", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Post("/deep-research", s.handleDeepResearch)
		r.Get("/job/{jobID}", s.handleJob)
		r.Delete("/admin/cleanup-jobs", s.handleCleanup)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ingredient/{name}", s.handleIngredient)
		r.Get("/database/stats", s.handleStats)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("api: request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
