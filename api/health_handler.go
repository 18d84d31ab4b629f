package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const healthPingTimeout = 2 * time.Second

type healthHandler struct {
	responder   Responder
	logger      zerolog.Logger
	pinger      Pinger
	startupTime time.Time
}

func newHealthHandler(pinger Pinger, startupTime time.Time) healthHandler {
	logger := log.With().Str("handlerName", "healthHandler").Logger()

	return healthHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		pinger:      pinger,
		startupTime: startupTime,
	}
}

// getHealth reports liveness, uptime and database reachability
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Failure 503 {object} HealthResponse "Database unreachable"
// @Router /health [get]
func (h healthHandler) getHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:        "ok",
			Database:      "unchecked",
			StartupTime:   h.startupTime.UTC().Format(time.RFC3339),
			UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		}

		status := http.StatusOK
		if h.pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
			defer cancel()
			if err := h.pinger.Ping(ctx); err != nil {
				h.logger.Warn().Err(err).Msg("database ping failed")
				response.Status = "degraded"
				response.Database = "unreachable"
				status = http.StatusServiceUnavailable
			} else {
				response.Database = "ok"
			}
		}

		h.responder.WriteJSONStatus(w, status, response)
	}
}
