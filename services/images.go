package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/database"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/models"
	"github.com/rpupo63/vizzy-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ImageService struct {
	store  database.Store
	blobs  storage.BlobStore
	logger zerolog.Logger
}

func NewImageService(store database.Store, blobs storage.BlobStore) *ImageService {
	return &ImageService{
		store:  store,
		blobs:  blobs,
		logger: log.With().Str("service", "imageService").Logger(),
	}
}

// List returns the images of a project by display order, newest first on ties
func (s *ImageService) List(ctx context.Context, projectID uuid.UUID) ([]models.Image, error) {
	if _, err := s.store.ProjectRepo().FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	images, err := s.store.ImageRepo().FindByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if images == nil {
		images = []models.Image{}
	}
	for i := range images {
		images[i].URL = s.blobs.PublicURL(images[i].FilePath)
	}
	return images, nil
}

// Update applies a partial update. Setting is_hero to true clears the flag on
// every other image of the project; setting it to false only clears this one.
func (s *ImageService) Update(ctx context.Context, id uuid.UUID, patch models.ImagePatch) (*models.Image, error) {
	if patch.IsEmpty() {
		return nil, errs.NewBadRequestError("No fields to update")
	}

	// phase is the only nullable column
	if patch.DisplayOrder.Null {
		return nil, errs.NewInvalidFieldError("display_order", "must not be null")
	}
	if patch.IsHero.Null {
		return nil, errs.NewInvalidFieldError("is_hero", "must not be null")
	}

	columns := map[string]any{}
	if patch.DisplayOrder.Set {
		columns["display_order"] = patch.DisplayOrder.Value
	}
	if patch.Phase.Set {
		phase, err := models.ParsePhase(patch.Phase.Value)
		if err != nil {
			return nil, errs.NewInvalidPhaseError(*patch.Phase.Value, models.PhaseNames())
		}
		columns["phase"] = phase
	}
	if patch.IsHero.Set && !patch.IsHero.Value {
		columns["is_hero"] = false
	}

	var image *models.Image
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		current, err := tx.ImageRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Ordering().LockProject(ctx, current.ProjectID); err != nil {
			return err
		}
		if len(columns) > 0 {
			if err := tx.ImageRepo().Update(ctx, id, columns); err != nil {
				return err
			}
		}
		if patch.IsHero.Set && patch.IsHero.Value {
			if err := tx.Ordering().SetHero(ctx, id); err != nil {
				return err
			}
		}
		image, err = tx.ImageRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	image.URL = s.blobs.PublicURL(image.FilePath)
	return image, nil
}

// Reorder makes the given sequence the image order of the project, positions 0..n-1
func (s *ImageService) Reorder(ctx context.Context, projectID uuid.UUID, ids []uuid.UUID) error {
	if err := s.store.Ordering().ReorderImages(ctx, projectID, ids); err != nil {
		return err
	}
	s.logger.Debug().Str("projectID", projectID.String()).Int("count", len(ids)).Msg("images reordered")
	return nil
}

// Usage aggregates stored bytes and image count across every project
func (s *ImageService) Usage(ctx context.Context) (models.StorageUsage, error) {
	return s.store.ImageRepo().Usage(ctx)
}
