package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/database"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/models"
	"github.com/rpupo63/vizzy-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ProjectService struct {
	store  database.Store
	blobs  storage.BlobStore
	logger zerolog.Logger
}

func NewProjectService(store database.Store, blobs storage.BlobStore) *ProjectService {
	return &ProjectService{
		store:  store,
		blobs:  blobs,
		logger: log.With().Str("service", "projectService").Logger(),
	}
}

// List returns every project in display order with its image aggregates
func (s *ProjectService) List(ctx context.Context) ([]models.ProjectSummary, error) {
	projects, err := s.store.ProjectRepo().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.ProjectSummary{}
	}
	for i := range projects {
		if p := projects[i].HeroImagePath; p != nil {
			url := s.blobs.PublicURL(*p)
			projects[i].HeroImageURL = &url
		}
	}
	return projects, nil
}

// Create appends a new project after the last one
func (s *ProjectService) Create(ctx context.Context, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.NewBadRequestErrorWithField("Project name is required", "name", "")
	}

	project := &models.Project{Name: name}
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		next, err := tx.Ordering().NextProjectOrder(ctx)
		if err != nil {
			return err
		}
		project.DisplayOrder = next
		return tx.ProjectRepo().Add(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("projectID", project.ID.String()).Str("name", project.Name).Msg("project created")
	return project, nil
}

// Update applies a partial update and returns the stored project
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	if patch.IsEmpty() {
		return nil, errs.NewBadRequestError("No fields to update")
	}

	if patch.Name.Null {
		return nil, errs.NewInvalidFieldError("name", "must not be null")
	}
	if patch.DisplayOrder.Null {
		return nil, errs.NewInvalidFieldError("display_order", "must not be null")
	}

	columns := map[string]any{}
	if patch.Name.Set {
		name := strings.TrimSpace(patch.Name.Value)
		if name == "" {
			return nil, errs.NewInvalidFieldError("name", "must not be empty")
		}
		columns["name"] = name
	}
	if patch.DisplayOrder.Set {
		columns["display_order"] = patch.DisplayOrder.Value
	}

	var project *models.Project
	err := s.store.Transaction(ctx, func(tx database.Store) error {
		if err := tx.ProjectRepo().Update(ctx, id, columns); err != nil {
			return err
		}
		var err error
		project, err = tx.ProjectRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Reorder makes the given sequence the project order, positions 0..n-1
func (s *ProjectService) Reorder(ctx context.Context, ids []uuid.UUID) error {
	if err := s.store.Ordering().ReorderProjects(ctx, ids); err != nil {
		return err
	}
	s.logger.Debug().Int("count", len(ids)).Msg("projects reordered")
	return nil
}
