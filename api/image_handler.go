package api

import (
	"context"
	"net/http"

	"github.com/rpupo63/vizzy-backend/models"
	"github.com/rpupo63/vizzy-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type imageHandler struct {
	responder Responder
	logger    zerolog.Logger
	images    *services.ImageService
	deletes   *services.DeleteCoordinator
}

func newImageHandler(images *services.ImageService, deletes *services.DeleteCoordinator) imageHandler {
	logger := log.With().Str("handlerName", "imageHandler").Logger()

	return imageHandler{
		responder: NewResponder(logger),
		logger:    logger,
		images:    images,
		deletes:   deletes,
	}
}

// getProjectImages lists the images of a project
// @Summary Get project images
// @Description Lists the images of a project by display order, newest upload first on ties
// @Tags Images
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} ImageListResponse "Images of the project"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid projectID"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching images"
// @Router /project/{projectID}/images [get]
func (h imageHandler) getProjectImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := parseIDParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		images, err := h.images.List(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("find", "images", err))
			return
		}

		h.responder.WriteJSON(w, ImageListResponse{Images: images})
	}
}

// updateImage applies a partial update
// @Summary Update image
// @Description Updates display order, phase and/or hero flag. A null or empty phase clears it. Setting is_hero clears it on every other image of the project.
// @Tags Images
// @Accept json
// @Produce json
// @Param imageID path string true "Image ID" format(uuid)
// @Param image body models.ImagePatch true "Fields to update"
// @Success 200 {object} ImageResponse "Updated image"
// @Failure 400 {object} ErrorResponse "Bad Request - No fields to update"
// @Failure 404 {object} ErrorResponse "Not Found - Image not found"
// @Failure 409 {object} ErrorResponse "Conflict - Invalid phase"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error updating image"
// @Router /image/{imageID} [put]
func (h imageHandler) updateImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := parseIDParam(r, "imageID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var patch models.ImagePatch
		if err := decodeJSON(w, r, &patch); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		image, err := h.images.Update(r.Context(), imageID, patch)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("update", "image", err))
			return
		}

		h.responder.WriteJSON(w, ImageResponse{Image: *image})
	}
}

// deleteImage deletes an image row and its file
// @Summary Delete image
// @Description Deletes an image. The row and the file are removed together or not at all.
// @Tags Images
// @Produce json
// @Param imageID path string true "Image ID" format(uuid)
// @Success 200 {object} StatusResponse "Success message"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid imageID"
// @Failure 404 {object} ErrorResponse "Not Found - Image not found"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error deleting image"
// @Router /image/{imageID} [delete]
func (h imageHandler) deleteImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageID, err := parseIDParam(r, "imageID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.deletes.DeleteImage(context.WithoutCancel(r.Context()), imageID); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("delete", "image", err))
			return
		}

		h.responder.WriteSuccess(w, "Image deleted successfully")
	}
}

// reorderImages assigns positions 0..n-1 to the listed images of a project
// @Summary Reorder images
// @Description Applies the complete ordered list of a project's image ids in one batch. Images left out keep their position.
// @Tags Images
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param order body ReorderRequest true "Ordered image ids"
// @Success 200 {object} StatusResponse "Success message"
// @Failure 400 {object} ErrorResponse "Bad Request - Empty, duplicate or foreign ids"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error reordering images"
// @Router /project/{projectID}/images/order [put]
func (h imageHandler) reorderImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := parseIDParam(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req ReorderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.images.Reorder(r.Context(), projectID, req.IDs); err != nil {
			h.responder.WriteError(w, wrapDatabaseError("reorder", "images", err))
			return
		}

		h.responder.WriteSuccess(w, "Image order updated")
	}
}
