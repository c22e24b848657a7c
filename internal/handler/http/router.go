package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/linebot-hrm/internal/handler/http/middleware"
	"github.com/cmlabs-hris/linebot-hrm/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// RouterOptions are the settings shared by both servers.
type RouterOptions struct {
	App            string
	Env            string
	AllowedOrigins []string
	LogLevel       slog.Level
}

func newBaseRouter(opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", opts.App),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: false,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Line-Signature"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// NewRegistrationRouter serves the registration form, the registration API
// and the LINE webhook. A nil adminAuth leaves the management routes open.
func NewRegistrationRouter(opts RouterOptions, adminAuth *jwtauth.JWTAuth, registrationHandler RegistrationHandler, webhookHandler WebhookHandler) *chi.Mux {
	r := newBaseRouter(opts)

	r.Get("/", registrationHandler.Index)
	r.Post("/webhook", webhookHandler.Callback)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", registrationHandler.Health)
		r.Post("/register", registrationHandler.Register)

		// Admin only
		r.Route("/registrations", func(r chi.Router) {
			r.Use(middleware.Admin(adminAuth))
			r.Get("/", registrationHandler.List)
			r.Get("/{empCode}", registrationHandler.Get)
			r.Put("/{empCode}", registrationHandler.Update)
			r.Delete("/{empCode}", registrationHandler.Delete)
		})
	})

	r.Get("/*", registrationHandler.Static)
	return r
}

// NewCheckinRouter serves the LIFF check-in API and stored photos.
func NewCheckinRouter(opts RouterOptions, checkinHandler CheckinHandler) *chi.Mux {
	r := newBaseRouter(opts)

	r.Get("/uploads/*", checkinHandler.ServeUpload)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", checkinHandler.Health)
		r.Post("/upload-photo", checkinHandler.UploadPhoto)
		r.Post("/location-from-liff", checkinHandler.LocationFromLIFF)

		r.Route("/checkins", func(r chi.Router) {
			r.Get("/", checkinHandler.List)
			r.Get("/today", checkinHandler.Today)
			r.Get("/stream", checkinHandler.Stream)
			r.Get("/employee/{code}", checkinHandler.ListByEmployee)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Endpoint not found"}`))
	})
	return r
}
