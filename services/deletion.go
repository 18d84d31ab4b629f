package services

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/database"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const blobCleanupConcurrency = 4

// DeleteCoordinator removes rows together with their blobs.
//
// A single image is deleted transactionally: the blob is staged for removal
// inside the row's transaction and restored if the transaction does not commit.
// A project delete commits first and then removes its blobs best effort, since
// the cascade cannot be undone once committed.
type DeleteCoordinator struct {
	store  database.Store
	blobs  storage.BlobStore
	logger zerolog.Logger
}

func NewDeleteCoordinator(store database.Store, blobs storage.BlobStore) *DeleteCoordinator {
	return &DeleteCoordinator{
		store:  store,
		blobs:  blobs,
		logger: log.With().Str("service", "deleteCoordinator").Logger(),
	}
}

func (c *DeleteCoordinator) DeleteImage(ctx context.Context, id uuid.UUID) error {
	image, err := c.store.ImageRepo().FindByID(ctx, id)
	if err != nil {
		return err
	}

	var removal storage.Removal
	err = c.store.Transaction(ctx, func(tx database.Store) error {
		if err := tx.ImageRepo().Delete(ctx, id); err != nil {
			return err
		}
		staged, err := c.blobs.Stage(ctx, image.FilePath)
		if err != nil {
			return errs.NewStorageError("remove image file", err)
		}
		removal = staged
		return nil
	})
	if err != nil {
		if removal != nil {
			if rbErr := removal.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
				c.logger.Error().Err(rbErr).Str("imageID", id.String()).Str("path", image.FilePath).
					Msg("failed to restore blob after aborted delete")
			}
		}
		return err
	}

	if err := removal.Commit(ctx); err != nil {
		// The row is gone; a leftover staged file is reclaimed by the sweeper.
		c.logger.Warn().Err(err).Str("path", image.FilePath).Msg("failed to discard staged blob")
	}
	c.logger.Info().Str("imageID", id.String()).Str("path", image.FilePath).Msg("image deleted")
	return nil
}

func (c *DeleteCoordinator) DeleteProject(ctx context.Context, id uuid.UUID) error {
	var paths []string
	err := c.store.Transaction(ctx, func(tx database.Store) error {
		if _, err := tx.ProjectRepo().FindByID(ctx, id); err != nil {
			return err
		}
		count, err := tx.ProjectRepo().LockAll(ctx)
		if err != nil {
			return err
		}
		if count <= 1 {
			return errs.NewLastProjectError()
		}
		paths, err = tx.ImageRepo().FilePathsByProject(ctx, id)
		if err != nil {
			return err
		}
		return tx.ProjectRepo().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	c.removeBlobs(ctx, id, paths)
	return nil
}

// removeBlobs deletes the blobs of a deleted project. Failures are logged only.
func (c *DeleteCoordinator) removeBlobs(ctx context.Context, projectID uuid.UUID, paths []string) {
	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(blobCleanupConcurrency)

	for _, p := range paths {
		g.Go(func() error {
			if err := c.blobs.Remove(ctx, p); err != nil {
				failed.Add(1)
				c.logger.Error().Err(err).Str("projectID", projectID.String()).Str("path", p).
					Msg("failed to remove blob of deleted project")
			}
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Info().
		Str("projectID", projectID.String()).
		Int("blobs", len(paths)).
		Int64("failed", failed.Load()).
		Msg("project deleted")
}
