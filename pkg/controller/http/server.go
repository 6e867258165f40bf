package http

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model"
	"github.com/secmon-lab/riskmatrix/pkg/domain/model/config"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/secmon-lab/riskmatrix/pkg/utils/logging"
	"github.com/secmon-lab/riskmatrix/pkg/utils/metrics"
)

// AppUseCase is the application shell used by the handlers
type AppUseCase interface {
	Initialize(ctx context.Context) error
	State() types.AppState
	Err() error
	RiskCount(ctx context.Context) model.RiskCount
	HomeView(ctx context.Context) (*model.HomeView, error)
	Settings() *model.Settings
	Matrix() *config.MatrixConfig
}

// RiskUseCase serves the risk entry API
type RiskUseCase interface {
	ListRisks(ctx context.Context) ([]*model.RiskEntry, error)
	GetRisk(ctx context.Context, id types.RiskID) (*model.RiskEntry, error)
	CreateRisk(ctx context.Context, description string, category types.CategoryID, probability types.Probability, impact types.Impact) (*model.RiskEntry, error)
	UpdateAssessment(ctx context.Context, id types.RiskID, probability types.Probability, impact types.Impact) (*model.RiskEntry, error)
	BuildMatrix(ctx context.Context) (*model.Matrix, error)
}

type Server struct {
	router  *chi.Mux
	app     AppUseCase
	risk    RiskUseCase
	metrics *metrics.Metrics
	pages   *template.Template
}

type Options func(*Server)

func WithMetrics(m *metrics.Metrics) Options {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(app AppUseCase, risk RiskUseCase, opts ...Options) (*Server, error) {
	r := chi.NewRouter()

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: r,
		app:    app,
		risk:   risk,
		pages:  pages,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.homeHandler)
	r.Get("/health", s.healthHandler)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/environment", s.environmentHandler)

		r.Group(func(r chi.Router) {
			r.Use(readyMiddleware(s.app))

			r.Get("/risks", s.listRisksHandler)
			r.Post("/risks", s.createRiskHandler)
			r.Get("/risks/{id}", s.getRiskHandler)
			r.Patch("/risks/{id}", s.updateRiskHandler)
			r.Get("/matrix", s.matrixHandler)
		})
	})

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests and attaches a request scoped logger
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}
