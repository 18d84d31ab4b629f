// Package dbtest provides an in-memory database.Store for tests. It mirrors
// the constraints of the PostgreSQL schema: cascading project deletes, unique
// blob paths, the single-hero index and foreign keys.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/database"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/models"
)

// Hooks inject failures into the store
type Hooks struct {
	// BeforeImageAdd runs before an image insert; a non-nil error aborts the insert
	BeforeImageAdd func(image *models.Image) error
	// BeforeCommit runs before a transaction commits; a non-nil error rolls it back
	BeforeCommit func() error
}

// Memory is an in-memory database.Store. Transactions are serialized and
// operate on a copy of the tables that replaces the original on commit.
type Memory struct {
	mu     sync.Mutex
	tables *tables
	Hooks  Hooks
}

var _ database.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{tables: newTables()}
}

type tables struct {
	projects map[uuid.UUID]models.Project
	images   map[uuid.UUID]models.Image
	tick     int64
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTables() *tables {
	return &tables{
		projects: make(map[uuid.UUID]models.Project),
		images:   make(map[uuid.UUID]models.Image),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		projects: make(map[uuid.UUID]models.Project, len(t.projects)),
		images:   make(map[uuid.UUID]models.Image, len(t.images)),
		tick:     t.tick,
	}
	for k, v := range t.projects {
		c.projects[k] = v
	}
	for k, v := range t.images {
		c.images[k] = v
	}
	return c
}

// now returns strictly increasing timestamps so ordering by date is deterministic
func (t *tables) now() time.Time {
	t.tick++
	return epoch.Add(time.Duration(t.tick) * time.Millisecond)
}

func (m *Memory) view() *view {
	return &view{m: m}
}

func (m *Memory) ProjectRepo() database.ProjectRepository { return projectRepo{m.view()} }
func (m *Memory) ImageRepo() database.ImageRepository     { return imageRepo{m.view()} }
func (m *Memory) Ordering() database.OrderingEngine       { return ordering{m.view()} }

func (m *Memory) Transaction(ctx context.Context, fn func(tx database.Store) error) error {
	return m.view().Transaction(ctx, fn)
}

// SeedProject inserts a project directly and returns it
func (m *Memory) SeedProject(name string) models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := models.Project{ID: uuid.New(), Name: name, CreatedDate: m.tables.now()}
	p.DisplayOrder = nextProjectOrder(m.tables)
	m.tables.projects[p.ID] = p
	return p
}

// SeedImage inserts an image row directly, filling ID and upload date when unset
func (m *Memory) SeedImage(image models.Image) models.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	if image.UploadDate.IsZero() {
		image.UploadDate = m.tables.now()
	}
	m.tables.images[image.ID] = image
	return image
}

// Images returns a snapshot of every image row
func (m *Memory) Images() []models.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	images := make([]models.Image, 0, len(m.tables.images))
	for _, img := range m.tables.images {
		images = append(images, img)
	}
	return images
}

// HeroCount returns how many images of the project carry the hero flag
func (m *Memory) HeroCount(projectID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, img := range m.tables.images {
		if img.ProjectID == projectID && img.IsHero {
			count++
		}
	}
	return count
}

// view is either the auto-commit view of the store or a transaction bound to a table copy
type view struct {
	m  *Memory
	tx *tables
}

func (v *view) ProjectRepo() database.ProjectRepository { return projectRepo{v} }
func (v *view) ImageRepo() database.ImageRepository     { return imageRepo{v} }
func (v *view) Ordering() database.OrderingEngine       { return ordering{v} }

func (v *view) Transaction(ctx context.Context, fn func(tx database.Store) error) error {
	if v.tx != nil {
		return fn(v)
	}
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	working := v.m.tables.clone()
	if err := fn(&view{m: v.m, tx: working}); err != nil {
		return err
	}
	if v.m.Hooks.BeforeCommit != nil {
		if err := v.m.Hooks.BeforeCommit(); err != nil {
			return err
		}
	}
	v.m.tables = working
	return nil
}

// do runs fn against the transaction's tables, or atomically against the live tables
func (v *view) do(fn func(t *tables) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	working := v.m.tables.clone()
	if err := fn(working); err != nil {
		return err
	}
	v.m.tables = working
	return nil
}

type projectRepo struct{ v *view }

func (r projectRepo) FindAll(ctx context.Context) ([]models.ProjectSummary, error) {
	var summaries []models.ProjectSummary
	err := r.v.do(func(t *tables) error {
		for _, p := range t.projects {
			s := models.ProjectSummary{ID: p.ID, Name: p.Name, DisplayOrder: p.DisplayOrder, CreatedDate: p.CreatedDate}
			var candidates []models.Image
			for _, img := range t.images {
				if img.ProjectID == p.ID {
					s.ImageCount++
					s.TotalSize += img.FileSize
					candidates = append(candidates, img)
				}
			}
			sort.Slice(candidates, func(i, j int) bool {
				a, b := candidates[i], candidates[j]
				if a.IsHero != b.IsHero {
					return a.IsHero
				}
				if a.DisplayOrder != b.DisplayOrder {
					return a.DisplayOrder < b.DisplayOrder
				}
				return a.UploadDate.After(b.UploadDate)
			})
			if len(candidates) > 0 {
				path := candidates[0].FilePath
				s.HeroImagePath = &path
			}
			summaries = append(summaries, s)
		}
		return nil
	})
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].DisplayOrder != summaries[j].DisplayOrder {
			return summaries[i].DisplayOrder < summaries[j].DisplayOrder
		}
		return summaries[i].CreatedDate.Before(summaries[j].CreatedDate)
	})
	return summaries, err
}

func (r projectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var found *models.Project
	err := r.v.do(func(t *tables) error {
		p, ok := t.projects[id]
		if !ok {
			return errs.NewNotFound("project")
		}
		found = &p
		return nil
	})
	return found, err
}

func (r projectRepo) Add(ctx context.Context, project *models.Project) error {
	return r.v.do(func(t *tables) error {
		if project.Name == "" {
			return errors.New(`new row for relation "projects" violates check constraint "projects_name_check"`)
		}
		if project.ID == uuid.Nil {
			project.ID = uuid.New()
		}
		if project.CreatedDate.IsZero() {
			project.CreatedDate = t.now()
		}
		t.projects[project.ID] = *project
		return nil
	})
}

func (r projectRepo) Update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	return r.v.do(func(t *tables) error {
		p, ok := t.projects[id]
		if !ok {
			return errs.NewNotFound("project")
		}
		for column, value := range columns {
			switch column {
			case "name":
				p.Name = value.(string)
			case "display_order":
				p.DisplayOrder = value.(int)
			default:
				return fmt.Errorf("column %q of relation \"projects\" does not exist", column)
			}
		}
		t.projects[id] = p
		return nil
	})
}

func (r projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.v.do(func(t *tables) error {
		if _, ok := t.projects[id]; !ok {
			return errs.NewNotFound("project")
		}
		delete(t.projects, id)
		for imgID, img := range t.images {
			if img.ProjectID == id {
				delete(t.images, imgID)
			}
		}
		return nil
	})
}

func (r projectRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.v.do(func(t *tables) error {
		count = int64(len(t.projects))
		return nil
	})
	return count, err
}

func (r projectRepo) LockAll(ctx context.Context) (int64, error) {
	return r.Count(ctx)
}

type imageRepo struct{ v *view }

func (r imageRepo) FindByProject(ctx context.Context, projectID uuid.UUID) ([]models.Image, error) {
	var images []models.Image
	err := r.v.do(func(t *tables) error {
		for _, img := range t.images {
			if img.ProjectID == projectID {
				images = append(images, img)
			}
		}
		return nil
	})
	sort.Slice(images, func(i, j int) bool {
		if images[i].DisplayOrder != images[j].DisplayOrder {
			return images[i].DisplayOrder < images[j].DisplayOrder
		}
		return images[i].UploadDate.After(images[j].UploadDate)
	})
	return images, err
}

func (r imageRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var found *models.Image
	err := r.v.do(func(t *tables) error {
		img, ok := t.images[id]
		if !ok {
			return errs.NewNotFound("image")
		}
		found = &img
		return nil
	})
	return found, err
}

func (r imageRepo) Add(ctx context.Context, image *models.Image) error {
	if hook := r.v.m.Hooks.BeforeImageAdd; hook != nil {
		if err := hook(image); err != nil {
			return err
		}
	}
	return r.v.do(func(t *tables) error {
		if _, ok := t.projects[image.ProjectID]; !ok {
			return errors.New(`insert or update on table "images" violates foreign key constraint "images_project_id_fkey"`)
		}
		for _, other := range t.images {
			if other.FilePath == image.FilePath {
				return errors.New(`duplicate key value violates unique constraint "images_file_path_key"`)
			}
		}
		if image.IsHero && heroOf(t, image.ProjectID) != uuid.Nil {
			return errors.New(`duplicate key value violates unique constraint "idx_images_single_hero"`)
		}
		if image.ID == uuid.Nil {
			image.ID = uuid.New()
		}
		if image.UploadDate.IsZero() {
			image.UploadDate = t.now()
		}
		t.images[image.ID] = *image
		return nil
	})
}

func (r imageRepo) Update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	return r.v.do(func(t *tables) error {
		img, ok := t.images[id]
		if !ok {
			return errs.NewNotFound("image")
		}
		for column, value := range columns {
			switch column {
			case "display_order":
				img.DisplayOrder = value.(int)
			case "phase":
				img.Phase = value.(*models.Phase)
			case "is_hero":
				img.IsHero = value.(bool)
			default:
				return fmt.Errorf("column %q of relation \"images\" does not exist", column)
			}
		}
		if img.IsHero {
			if hero := heroOf(t, img.ProjectID); hero != uuid.Nil && hero != img.ID {
				return errors.New(`duplicate key value violates unique constraint "idx_images_single_hero"`)
			}
		}
		t.images[id] = img
		return nil
	})
}

func (r imageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.v.do(func(t *tables) error {
		if _, ok := t.images[id]; !ok {
			return errs.NewNotFound("image")
		}
		delete(t.images, id)
		return nil
	})
}

func (r imageRepo) FilePathsByProject(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	var paths []string
	err := r.v.do(func(t *tables) error {
		for _, img := range t.images {
			if img.ProjectID == projectID {
				paths = append(paths, img.FilePath)
			}
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func (r imageRepo) AllFilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.v.do(func(t *tables) error {
		for _, img := range t.images {
			paths = append(paths, img.FilePath)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func (r imageRepo) Usage(ctx context.Context) (models.StorageUsage, error) {
	var usage models.StorageUsage
	err := r.v.do(func(t *tables) error {
		for _, img := range t.images {
			usage.TotalBytes += img.FileSize
			usage.TotalImages++
		}
		return nil
	})
	return usage, err
}

type ordering struct{ v *view }

func (o ordering) NextProjectOrder(ctx context.Context) (int, error) {
	var next int
	err := o.v.do(func(t *tables) error {
		next = nextProjectOrder(t)
		return nil
	})
	return next, err
}

func (o ordering) NextImageOrder(ctx context.Context, projectID uuid.UUID) (int, error) {
	var next int
	err := o.v.do(func(t *tables) error {
		next = nextImageOrder(t, projectID)
		return nil
	})
	return next, err
}

func (o ordering) LockProject(ctx context.Context, projectID uuid.UUID) error {
	return o.v.do(func(t *tables) error {
		if _, ok := t.projects[projectID]; !ok {
			return errs.NewNotFound("project")
		}
		return nil
	})
}

func (o ordering) ReorderProjects(ctx context.Context, ids []uuid.UUID) error {
	if err := database.ValidateOrderIDs(ids); err != nil {
		return err
	}
	return o.v.do(func(t *tables) error {
		for _, id := range ids {
			if _, ok := t.projects[id]; !ok {
				return errs.NewBadRequestError("reorder list contains unknown projects")
			}
		}
		for i, id := range ids {
			p := t.projects[id]
			p.DisplayOrder = i
			t.projects[id] = p
		}
		return nil
	})
}

func (o ordering) ReorderImages(ctx context.Context, projectID uuid.UUID, ids []uuid.UUID) error {
	if err := database.ValidateOrderIDs(ids); err != nil {
		return err
	}
	return o.v.do(func(t *tables) error {
		if _, ok := t.projects[projectID]; !ok {
			return errs.NewNotFound("project")
		}
		for _, id := range ids {
			if img, ok := t.images[id]; !ok || img.ProjectID != projectID {
				return errs.NewBadRequestError("reorder list contains images outside the project")
			}
		}
		for i, id := range ids {
			img := t.images[id]
			img.DisplayOrder = i
			t.images[id] = img
		}
		return nil
	})
}

func (o ordering) SetHero(ctx context.Context, imageID uuid.UUID) error {
	return o.v.do(func(t *tables) error {
		target, ok := t.images[imageID]
		if !ok {
			return errs.NewNotFound("image")
		}
		for id, img := range t.images {
			if img.ProjectID == target.ProjectID && img.IsHero && id != imageID {
				img.IsHero = false
				t.images[id] = img
			}
		}
		target.IsHero = true
		t.images[imageID] = target
		return nil
	})
}

// nextProjectOrder mirrors COALESCE(MAX(display_order), 0) + 1
func nextProjectOrder(t *tables) int {
	max, found := 0, false
	for _, p := range t.projects {
		if !found || p.DisplayOrder > max {
			max, found = p.DisplayOrder, true
		}
	}
	return max + 1
}

func nextImageOrder(t *tables, projectID uuid.UUID) int {
	max, found := 0, false
	for _, img := range t.images {
		if img.ProjectID != projectID {
			continue
		}
		if !found || img.DisplayOrder > max {
			max, found = img.DisplayOrder, true
		}
	}
	return max + 1
}

func heroOf(t *tables, projectID uuid.UUID) uuid.UUID {
	for id, img := range t.images {
		if img.ProjectID == projectID && img.IsHero {
			return id
		}
	}
	return uuid.Nil
}
