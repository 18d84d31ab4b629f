package api

import (
	"net/http"

	"github.com/rpupo63/vizzy-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type storageHandler struct {
	responder Responder
	logger    zerolog.Logger
	images    *services.ImageService
}

func newStorageHandler(images *services.ImageService) storageHandler {
	logger := log.With().Str("handlerName", "storageHandler").Logger()

	return storageHandler{
		responder: NewResponder(logger),
		logger:    logger,
		images:    images,
	}
}

// getStorageUsage reports stored bytes and image count across all projects
// @Summary Get storage usage
// @Tags Storage
// @Produce json
// @Success 200 {object} models.StorageUsage "Aggregate usage"
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /storage [get]
func (h storageHandler) getStorageUsage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usage, err := h.images.Usage(r.Context())
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("compute", "storage usage", err))
			return
		}

		h.responder.WriteJSON(w, usage)
	}
}
