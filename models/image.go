package models

import (
	"time"

	"github.com/google/uuid"
)

// Image is a stored visual asset that belongs to exactly one project
type Image struct {
	ID           uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	ProjectID    uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;not null;index:idx_images_project_order,priority:1"`
	Filename     string    `json:"filename" db:"filename" gorm:"type:text;not null"`
	FilePath     string    `json:"file_path" db:"file_path" gorm:"type:text;not null;unique"`
	FileSize     int64     `json:"file_size" db:"file_size" gorm:"not null;default:0"`
	MimeType     string    `json:"mime_type" db:"mime_type" gorm:"type:text;not null"`
	DisplayOrder int       `json:"display_order" db:"display_order" gorm:"not null;default:0;index:idx_images_project_order,priority:2"`
	Phase        *Phase    `json:"phase" db:"phase" gorm:"type:text"`
	IsHero       bool      `json:"is_hero" db:"is_hero" gorm:"not null;default:false"`
	UploadDate   time.Time `json:"upload_date" db:"upload_date" gorm:"type:timestamptz;not null;default:now()"`
	URL          string    `json:"url,omitempty" db:"-" gorm:"-"`
}

// ImagePatch carries the fields of a partial image update.
// Phase distinguishes an omitted key from an explicit null, which clears the phase.
type ImagePatch struct {
	DisplayOrder Optional[int]     `json:"display_order"`
	Phase        Optional[*string] `json:"phase"`
	IsHero       Optional[bool]    `json:"is_hero"`
}

// IsEmpty reports whether the patch sets no field at all
func (p ImagePatch) IsEmpty() bool {
	return !p.DisplayOrder.Set && !p.Phase.Set && !p.IsHero.Set
}
