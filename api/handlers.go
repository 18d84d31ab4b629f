package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/services"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, validator *services.UploadValidator, maxUploadBytes int64, startupTime time.Time) *routeHandlers {
	projects := services.NewProjectService(deps.Store, deps.Blobs)
	images := services.NewImageService(deps.Store, deps.Blobs)
	deletes := services.NewDeleteCoordinator(deps.Store, deps.Blobs)
	pipeline := services.NewUploadPipeline(deps.Store, deps.Blobs, validator)

	return &routeHandlers{
		healthHandler:  newHealthHandler(deps.Pinger, startupTime),
		projectHandler: newProjectHandler(projects, deletes),
		imageHandler:   newImageHandler(images, deletes),
		uploadHandler:  newUploadHandler(pipeline, maxUploadBytes),
		storageHandler: newStorageHandler(images),
	}
}

// parseIDParam reads a UUID path parameter
func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, errs.NewBadRequestError("missing " + name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewBadRequestError("invalid " + name)
	}
	return id, nil
}
