package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpupo63/vizzy-backend/config"
	"github.com/rpupo63/vizzy-backend/database"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/services"
	"github.com/rpupo63/vizzy-backend/storage"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the HTTP layer is built on
type Dependencies struct {
	Store database.Store
	Blobs storage.BlobStore
	// Pinger is optional; without it the health check does not probe the database.
	Pinger Pinger
}

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(settings *config.Settings, deps Dependencies) (Server, error) {
	if deps.Store == nil || deps.Blobs == nil {
		return Server{}, fmt.Errorf("api: store and blob store are required")
	}

	address := fmt.Sprintf("0.0.0.0:%s", settings.Server.Port) // Bind to 0.0.0.0 for external access

	// Capture startup time
	startupTime := time.Now()

	router := newRouter(deps, withSettings(settings), withStartupTime(startupTime))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  time.Duration(settings.Server.ReadTimeoutSeconds) * time.Second,  // Timeout for reading the entire request
		WriteTimeout: time.Duration(settings.Server.WriteTimeoutSeconds) * time.Second, // Timeout for writing the response
		IdleTimeout:  time.Duration(settings.Server.IdleTimeoutSeconds) * time.Second,  // Timeout for idle connections
	}

	return Server{server, startupTime}, nil
}

type router struct {
	settings    *config.Settings
	startupTime time.Time
}

func withSettings(settings *config.Settings) func(*router) {
	return func(r *router) {
		r.settings = settings
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(deps Dependencies, opts ...func(*router)) *chi.Mux {
	router := router{settings: config.DefaultSettings(), startupTime: time.Now()}
	for _, opt := range opts {
		opt(&router)
	}
	settings := router.settings

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(corsMiddleware(settings.Server.AcceptedOrigins))

	validator := services.NewUploadValidator(settings.Upload.MaxFileSize, settings.Upload.AllowedTypes)
	handlers := initializeHandlers(deps, validator, settings.Upload.MaxRequestBytes, router.startupTime)

	responder := NewResponder(log.With().Str("handlerName", "router").Logger())
	chiRouter.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responder.WriteError(w, errs.NewNotFoundError("route not found"))
	})
	chiRouter.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responder.WriteError(w, errs.NewMethodNotAllowedError(r.Method))
	})

	setupRoutes(chiRouter, handlers, newHTTPLoggingMiddleware(settings.Logging.Pretty))

	if local, ok := deps.Blobs.(*storage.LocalStore); ok {
		setupStaticRoutes(chiRouter, settings.Storage.UploadURL, local.Root())
	}

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
