package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// multipartMemory is the part of a multipart body kept in memory; the rest spills to temp files
const multipartMemory = 32 << 20

// Field names accepted for uploaded files. Browser form libraries commonly send "files[]".
var uploadFileFields = []string{"files", "files[]"}

type uploadHandler struct {
	responder       Responder
	logger          zerolog.Logger
	pipeline        *services.UploadPipeline
	maxRequestBytes int64
}

func newUploadHandler(pipeline *services.UploadPipeline, maxRequestBytes int64) uploadHandler {
	logger := log.With().Str("handlerName", "uploadHandler").Logger()

	return uploadHandler{
		responder:       NewResponder(logger),
		logger:          logger,
		pipeline:        pipeline,
		maxRequestBytes: maxRequestBytes,
	}
}

// uploadImages stores one or more images in a project
// @Summary Upload images
// @Description Validates and stores each file independently. Responds 201 when at least one file was stored, 400 otherwise; per-file failures are listed in errors.
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param project_id formData string true "Project ID" format(uuid)
// @Param files formData file true "Image files"
// @Success 201 {object} services.UploadResult "Stored images and per-file errors"
// @Failure 400 {object} ErrorResponse "Bad Request - No files uploaded or none accepted"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Failure 413 {object} ErrorResponse "Request Entity Too Large"
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /upload [post]
func (h uploadHandler) uploadImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.maxRequestBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(h.maxRequestBytes))
				return
			}
			h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		rawProjectID := strings.TrimSpace(r.FormValue("project_id"))
		if rawProjectID == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("project_id"))
			return
		}
		projectID, err := uuid.Parse(rawProjectID)
		if err != nil {
			h.responder.WriteError(w, errs.NewBadRequestErrorWithField("Valid project ID is required", "project_id", ""))
			return
		}

		files := collectUploadFiles(r.MultipartForm)

		// Per-file compensation must finish even if the client disconnects.
		result, err := h.pipeline.Upload(context.WithoutCancel(r.Context()), projectID, files)
		if err != nil {
			h.responder.WriteError(w, wrapDatabaseError("upload", "images", err))
			return
		}

		status := http.StatusCreated
		if !result.Stored() {
			status = http.StatusBadRequest
		}
		h.responder.WriteJSONStatus(w, status, result)
	}
}

func collectUploadFiles(form *multipart.Form) []services.UploadFile {
	var files []services.UploadFile
	for _, field := range uploadFileFields {
		for _, fh := range form.File[field] {
			files = append(files, services.FromFileHeader(fh))
		}
	}
	return files
}
