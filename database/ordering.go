package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderingEngine owns the display_order space of images (per project) and of
// projects (global), and hero exclusivity within a project.
type OrderingEngine interface {
	NextProjectOrder(ctx context.Context) (int, error)
	NextImageOrder(ctx context.Context, projectID uuid.UUID) (int, error)
	LockProject(ctx context.Context, projectID uuid.UUID) error
	ReorderProjects(ctx context.Context, ids []uuid.UUID) error
	ReorderImages(ctx context.Context, projectID uuid.UUID, ids []uuid.UUID) error
	SetHero(ctx context.Context, imageID uuid.UUID) error
}

type Ordering struct {
	db *gorm.DB
}

func NewOrdering(db *gorm.DB) *Ordering {
	return &Ordering{db}
}

// NextProjectOrder returns the slot after the last project, 1 when there are none
func (o *Ordering) NextProjectOrder(ctx context.Context) (int, error) {
	var next int
	err := o.db.WithContext(ctx).
		Model(&models.Project{}).
		Select("COALESCE(MAX(display_order), 0) + 1").
		Scan(&next).Error
	return next, err
}

// NextImageOrder returns the slot after the last image of a project, 1 for an empty project
func (o *Ordering) NextImageOrder(ctx context.Context, projectID uuid.UUID) (int, error) {
	var next int
	err := o.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(MAX(display_order), 0) + 1").
		Scan(&next).Error
	return next, err
}

// LockProject takes a row lock on the project until the surrounding transaction
// ends. Writers touching the ordering or hero flag of the project's images
// serialize on it while other projects stay unblocked.
func (o *Ordering) LockProject(ctx context.Context, projectID uuid.UUID) error {
	var project models.Project
	err := o.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Take(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NewNotFound("project")
	}
	return err
}

// ReorderProjects assigns display_order = index to every listed project in one statement.
//
// Callers pass the complete ordered set. Projects left out keep their current
// display_order, which may then tie with a listed one.
func (o *Ordering) ReorderProjects(ctx context.Context, ids []uuid.UUID) error {
	if err := ValidateOrderIDs(ids); err != nil {
		return err
	}
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query, args := reorderStatement("projects", ids, "")
		res := tx.Exec(query, args...)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return errs.NewBadRequestErrorWithField("reorder list contains unknown projects", "ids",
				fmt.Sprintf("%d of %d ids matched", res.RowsAffected, len(ids)))
		}
		return nil
	})
}

// ReorderImages assigns display_order = index to every listed image of the
// project in one statement, holding the project lock.
//
// Callers pass the complete ordered set for the project. Images left out keep
// their current display_order, which may then tie with a listed one.
func (o *Ordering) ReorderImages(ctx context.Context, projectID uuid.UUID, ids []uuid.UUID) error {
	if err := ValidateOrderIDs(ids); err != nil {
		return err
	}
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := NewOrdering(tx).LockProject(ctx, projectID); err != nil {
			return err
		}
		query, args := reorderStatement("images", ids, "t.project_id = ?")
		args = append(args, projectID)
		res := tx.Exec(query, args...)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return errs.NewBadRequestErrorWithField("reorder list contains images outside the project", "ids",
				fmt.Sprintf("%d of %d ids matched", res.RowsAffected, len(ids)))
		}
		return nil
	})
}

// SetHero marks the image as its project's hero and clears the flag on every
// sibling, atomically with respect to other hero changes in the same project
func (o *Ordering) SetHero(ctx context.Context, imageID uuid.UUID) error {
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image models.Image
		err := tx.Select("id", "project_id").Take(&image, "id = ?", imageID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("image")
		}
		if err != nil {
			return err
		}

		if err := NewOrdering(tx).LockProject(ctx, image.ProjectID); err != nil {
			return err
		}

		err = tx.Model(&models.Image{}).
			Where("project_id = ? AND id <> ? AND is_hero", image.ProjectID, image.ID).
			Update("is_hero", false).Error
		if err != nil {
			return err
		}

		return tx.Model(&models.Image{}).Where("id = ?", image.ID).Update("is_hero", true).Error
	})
}

// ValidateOrderIDs rejects empty and duplicate reorder lists
func ValidateOrderIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return errs.NewMissingRequiredFieldError("ids")
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return errs.NewInvalidFieldError("ids", fmt.Sprintf("%s appears more than once", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

// reorderStatement builds a single UPDATE joining the table against a VALUES
// list of (id, position) pairs
func reorderStatement(table string, ids []uuid.UUID, extraCondition string) (string, []any) {
	tuples := make([]string, len(ids))
	args := make([]any, 0, 2*len(ids)+1)
	for i, id := range ids {
		tuples[i] = "(?::uuid, ?::integer)"
		args = append(args, id, i)
	}

	query := fmt.Sprintf(
		"UPDATE %s AS t SET display_order = v.position FROM (VALUES %s) AS v(id, position) WHERE t.id = v.id",
		table, strings.Join(tuples, ", "),
	)
	if extraCondition != "" {
		query += " AND " + extraCondition
	}
	return query, args
}
