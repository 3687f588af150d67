// internal/wire/wire.go
package wire

import (
	"context"
	"net/http"
	"time"

	"toolcart/internal/adaptor"
	"toolcart/internal/data/repository"
	"toolcart/internal/usecase"
	"toolcart/pkg/mailer"
	"toolcart/pkg/metrics"
	"toolcart/pkg/middleware"
	"toolcart/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Pinger is the readiness probe of the primary database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the infrastructure values built in main.
type Dependencies struct {
	Repo    *repository.Repository
	Gateway usecase.PaymentGateway
	Mailer  mailer.Mailer
	Metrics *metrics.Metrics
	DB      Pinger
}

// App menyimpan semua dependencies
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring menginisialisasi semua dependencies. ctx bounds background workers.
func Wiring(ctx context.Context, deps Dependencies, config *utils.Config, logger *zap.Logger) *App {
	// Initialize services dan handlers
	service := usecase.NewService(deps.Repo, deps.Gateway, deps.Mailer, config, deps.Metrics, logger)
	handler := adaptor.NewHandler(service, logger)

	// Setup router
	router := setupRouter(ctx, handler, deps, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

// setupRouter konfigurasi Chi router
func setupRouter(
	ctx context.Context,
	handler *adaptor.Handler,
	deps Dependencies,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(cors.Handler(corsOptions(config)))
	r.Use(deps.Metrics.Instrument)

	// Apply routes
	wireAuth(ctx, r, handler.Auth, deps, config)
	wirePayment(r, handler.Payment)

	r.Get("/health", health(deps.DB))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}

func corsOptions(config *utils.Config) cors.Options {
	origins := []string{"*"}
	if config.App.Origin != "" {
		origins = []string{config.App.Origin}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: config.App.Origin != "",
		MaxAge:           300,
	}
}

// health reports 503 when the database does not answer within two seconds.
func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				utils.ResponseError(w, http.StatusServiceUnavailable, "Database unavailable", "UNAVAILABLE")
				return
			}
		}
		utils.ResponseSuccess(w, "OK", map[string]string{"status": "healthy"})
	}
}
