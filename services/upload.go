package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/database"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/models"
	"github.com/rpupo63/vizzy-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileError records why one file of an upload was not stored
type FileError struct {
	Filename string
	Reason   string
}

func (e FileError) Error() string {
	return e.Filename + ": " + e.Reason
}

// MarshalJSON renders the error as "filename: reason"
func (e FileError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Error())
}

// UploadResult lists the stored images and the files that failed. Both may be
// non-empty at once.
type UploadResult struct {
	Images []models.Image `json:"images"`
	Errors []FileError    `json:"errors,omitempty"`
}

// Stored reports whether at least one file made it into the project
func (r *UploadResult) Stored() bool {
	return len(r.Images) > 0
}

// UploadPipeline validates, stores and records uploaded files one by one.
// A failing file never affects its siblings.
type UploadPipeline struct {
	store     database.Store
	blobs     storage.BlobStore
	validator *UploadValidator
	logger    zerolog.Logger
}

func NewUploadPipeline(store database.Store, blobs storage.BlobStore, validator *UploadValidator) *UploadPipeline {
	return &UploadPipeline{
		store:     store,
		blobs:     blobs,
		validator: validator,
		logger:    log.With().Str("service", "uploadPipeline").Logger(),
	}
}

func (p *UploadPipeline) Upload(ctx context.Context, projectID uuid.UUID, files []UploadFile) (*UploadResult, error) {
	if _, err := p.store.ProjectRepo().FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errs.NewNoFilesError()
	}

	result := &UploadResult{Images: []models.Image{}}
	for _, file := range files {
		image, reason := p.uploadOne(ctx, projectID, file)
		if reason != "" {
			p.logger.Warn().
				Str("projectID", projectID.String()).
				Str("filename", file.Filename).
				Str("declaredType", file.DeclaredType).
				Str("reason", reason).
				Msg("upload rejected")
			result.Errors = append(result.Errors, FileError{Filename: file.Filename, Reason: reason})
			continue
		}
		image.URL = p.blobs.PublicURL(image.FilePath)
		result.Images = append(result.Images, *image)
	}

	p.logger.Info().
		Str("projectID", projectID.String()).
		Int("stored", len(result.Images)).
		Int("failed", len(result.Errors)).
		Msg("upload processed")
	return result, nil
}

// uploadOne returns the stored image, or the reason the file was rejected
func (p *UploadPipeline) uploadOne(ctx context.Context, projectID uuid.UUID, file UploadFile) (*models.Image, string) {
	check := p.validator.Validate(file)
	if !check.Accepted {
		return nil, check.Reason
	}

	rc, err := file.Open()
	if err != nil {
		return nil, ReasonUnreadable
	}
	defer rc.Close()

	relPath, size, err := p.blobs.Store(ctx, projectID, file.Filename, rc)
	if err != nil {
		p.logger.Error().Err(err).Str("filename", file.Filename).Msg("failed to store blob")
		return nil, "Failed to store uploaded file"
	}

	image := &models.Image{
		ProjectID: projectID,
		Filename:  file.Filename,
		FilePath:  relPath,
		FileSize:  size,
		MimeType:  check.MimeType,
	}
	err = p.store.Transaction(ctx, func(tx database.Store) error {
		if err := tx.Ordering().LockProject(ctx, projectID); err != nil {
			return err
		}
		next, err := tx.Ordering().NextImageOrder(ctx, projectID)
		if err != nil {
			return err
		}
		image.DisplayOrder = next
		return tx.ImageRepo().Add(ctx, image)
	})
	if err != nil {
		p.logger.Error().Err(err).Str("filename", file.Filename).Str("path", relPath).Msg("failed to record image, removing blob")
		if rmErr := p.blobs.Remove(context.WithoutCancel(ctx), relPath); rmErr != nil {
			p.logger.Error().Err(rmErr).Str("path", relPath).Msg("failed to remove blob after insert failure")
		}
		// The project may vanish between the lock and the insert.
		err = errs.NewDatabaseError("create", "image", err)
		if errs.IsNotFound(err) || errs.IsForeignKeyConstraintError(err) {
			return nil, "Project not found"
		}
		return nil, "Failed to save image record"
	}
	return image, ""
}
