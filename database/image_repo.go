package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/models"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

type ImageRepository interface {
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]models.Image, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	Add(ctx context.Context, image *models.Image) error
	Update(ctx context.Context, id uuid.UUID, columns map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	FilePathsByProject(ctx context.Context, projectID uuid.UUID) ([]string, error)
	AllFilePaths(ctx context.Context) ([]string, error)
	Usage(ctx context.Context) (models.StorageUsage, error)
}

type ImageRepo struct {
	db *gorm.DB
}

func NewImageRepo(db *gorm.DB) *ImageRepo {
	return &ImageRepo{db}
}

// FindByProject returns the images of a project in gallery order:
// display_order ascending, newest upload first among ties
func (r *ImageRepo) FindByProject(ctx context.Context, projectID uuid.UUID) ([]models.Image, error) {
	var images []models.Image
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("display_order ASC").
		Order("upload_date DESC").
		Find(&images).Error
	return images, err
}

// FindByID returns an image by its ID, read from the primary
func (r *ImageRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var image models.Image
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Take(&image, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFound("image")
	}
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// Add inserts a new image row
func (r *ImageRepo) Add(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// Update writes the given columns of an image
func (r *ImageRepo) Update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Image{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("image")
	}
	return nil
}

// Delete removes an image row
func (r *ImageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Image{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("image")
	}
	return nil
}

func (r *ImageRepo) FilePathsByProject(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Model(&models.Image{}).Where("project_id = ?", projectID).Pluck("file_path", &paths).Error
	return paths, err
}

// AllFilePaths returns the blob path of every image, read from the primary
func (r *ImageRepo) AllFilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Model(&models.Image{}).Pluck("file_path", &paths).Error
	return paths, err
}

// Usage returns the total bytes and number of images across all projects
func (r *ImageRepo) Usage(ctx context.Context) (models.StorageUsage, error) {
	var usage models.StorageUsage
	err := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Select("COALESCE(SUM(file_size), 0) AS total_bytes, COUNT(*) AS total_images").
		Scan(&usage).Error
	return usage, err
}
