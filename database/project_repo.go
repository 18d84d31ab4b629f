package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type ProjectRepository interface {
	FindAll(ctx context.Context) ([]models.ProjectSummary, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Add(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, id uuid.UUID, columns map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	LockAll(ctx context.Context) (int64, error)
}

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

const projectSummaryQuery = `
SELECT p.id, p.name, p.display_order, p.created_date,
       COUNT(i.id) AS image_count,
       COALESCE(SUM(i.file_size), 0) AS total_size,
       (SELECT h.file_path
          FROM images h
         WHERE h.project_id = p.id
         ORDER BY h.is_hero DESC, h.display_order ASC, h.upload_date DESC
         LIMIT 1) AS hero_image_path
  FROM projects p
  LEFT JOIN images i ON i.project_id = p.id
 GROUP BY p.id
 ORDER BY p.display_order ASC, p.created_date ASC`

// FindAll returns every project with its image count, byte total and
// representative image path (the hero if set, else the first image by order)
func (r *ProjectRepo) FindAll(ctx context.Context) ([]models.ProjectSummary, error) {
	var projects []models.ProjectSummary
	err := r.db.WithContext(ctx).Raw(projectSummaryQuery).Scan(&projects).Error
	return projects, err
}

// FindByID returns a project by its ID, read from the primary
func (r *ProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Take(&project, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("project")
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Add inserts a new project into the database
func (r *ProjectRepo) Add(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update writes the given columns of a project
func (r *ProjectRepo) Update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("project")
	}
	return nil
}

// Delete removes a project from the database by id. Its image rows go with it
// through the ON DELETE CASCADE foreign key; blobs do not.
func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("project")
	}
	return nil
}

// Count returns the number of projects
func (r *ProjectRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Project{}).Count(&count).Error
	return count, err
}

// LockAll locks every project row until the surrounding transaction ends and
// returns how many there are. Concurrent deletions serialize on it.
func (r *ProjectRepo) LockAll(ctx context.Context) (int64, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Pluck("id", &ids).Error
	return int64(len(ids)), err
}
