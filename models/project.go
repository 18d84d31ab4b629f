package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a named collection of images with its own relative ordering
type Project struct {
	ID           uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Name         string    `json:"name" db:"name" gorm:"type:text;not null"`
	DisplayOrder int       `json:"display_order" db:"display_order" gorm:"not null;default:0;index:idx_projects_display_order"`
	CreatedDate  time.Time `json:"created_date" db:"created_date" gorm:"type:timestamptz;not null;default:now()"`
	Images       []Image   `json:"images,omitempty" gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE"`
}

// ProjectSummary is a project together with its image aggregates as shown in the project list
type ProjectSummary struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	DisplayOrder  int       `json:"display_order" db:"display_order"`
	CreatedDate   time.Time `json:"created_date" db:"created_date"`
	ImageCount    int64     `json:"image_count" db:"image_count"`
	TotalSize     int64     `json:"total_size" db:"total_size"`
	HeroImagePath *string   `json:"hero_image_path" db:"hero_image_path"`
	HeroImageURL  *string   `json:"hero_image_url,omitempty" db:"-" gorm:"-"`
}

// ProjectPatch carries the fields of a partial project update
type ProjectPatch struct {
	Name         Optional[string] `json:"name"`
	DisplayOrder Optional[int]    `json:"display_order"`
}

// IsEmpty reports whether the patch sets no field at all
func (p ProjectPatch) IsEmpty() bool {
	return !p.Name.Set && !p.DisplayOrder.Set
}

// StorageUsage aggregates blob usage across every project
type StorageUsage struct {
	TotalBytes  int64 `json:"total_bytes" db:"total_bytes"`
	TotalImages int64 `json:"total_images" db:"total_images"`
}
