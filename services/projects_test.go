package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/errs"
	"github.com/rpupo63/vizzy-backend/models"
)

func TestCreateProjectAppends(t *testing.T) {
	f := newFixture(t)
	f.db.SeedProject("Existing")
	svc := NewProjectService(f.db, f.blobs)

	project, err := svc.Create(context.Background(), "  Lobby  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if project.Name != "Lobby" {
		t.Errorf("name = %q, want trimmed", project.Name)
	}
	if project.DisplayOrder != 2 {
		t.Errorf("display_order = %d, want 2", project.DisplayOrder)
	}
	if project.ID == uuid.Nil {
		t.Error("no id assigned")
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	f := newFixture(t)

	_, err := NewProjectService(f.db, f.blobs).Create(context.Background(), "   ")
	if !errs.IsBadRequest(err) || err.Error() != "Project name is required" {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestUpdateProject(t *testing.T) {
	f := newFixture(t)
	project := f.db.SeedProject("Old")
	svc := NewProjectService(f.db, f.blobs)
	ctx := context.Background()

	updated, err := svc.Update(ctx, project.ID, models.ProjectPatch{Name: models.Some("New")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "New" || updated.DisplayOrder != project.DisplayOrder {
		t.Errorf("updated = %+v", updated)
	}

	updated, err = svc.Update(ctx, project.ID, models.ProjectPatch{DisplayOrder: models.Some(7)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "New" || updated.DisplayOrder != 7 {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := svc.Update(ctx, project.ID, models.ProjectPatch{Name: models.Some(" ")}); !errs.IsInvalidFieldError(err) {
		t.Errorf("blank name: err = %v, want invalid field", err)
	}
	if _, err := svc.Update(ctx, project.ID, models.ProjectPatch{}); !errs.IsBadRequest(err) {
		t.Errorf("empty patch: err = %v, want bad request", err)
	}
	if _, err := svc.Update(ctx, uuid.New(), models.ProjectPatch{Name: models.Some("X")}); !errs.IsNotFound(err) {
		t.Errorf("unknown project: err = %v, want not found", err)
	}
}

func TestReorderProjectsAndList(t *testing.T) {
	f := newFixture(t)
	a := f.db.SeedProject("A")
	b := f.db.SeedProject("B")
	c := f.db.SeedProject("C")
	svc := NewProjectService(f.db, f.blobs)
	ctx := context.Background()

	if err := svc.Reorder(ctx, []uuid.UUID{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	projects, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for i, want := range []uuid.UUID{c.ID, a.ID, b.ID} {
		if projects[i].ID != want || projects[i].DisplayOrder != i {
			t.Errorf("position %d = %s (order %d), want %s", i, projects[i].Name, projects[i].DisplayOrder, want)
		}
	}

	if err := svc.Reorder(ctx, []uuid.UUID{a.ID, uuid.New()}); !errs.IsBadRequest(err) {
		t.Errorf("unknown id: err = %v, want bad request", err)
	}
}

func TestListProjectsSummaries(t *testing.T) {
	f := newFixture(t)
	project := f.db.SeedProject("Atrium")
	empty := f.db.SeedProject("Empty")
	first := f.seedStoredImage(t, project.ID, "first.png", 1)
	hero := f.seedStoredImage(t, project.ID, "hero.png", 2)
	svc := NewProjectService(f.db, f.blobs)
	ctx := context.Background()

	projects, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if projects[0].HeroImagePath == nil || *projects[0].HeroImagePath != first.FilePath {
		t.Errorf("representative image = %v, want first by order", projects[0].HeroImagePath)
	}
	if projects[0].ImageCount != 2 || projects[0].TotalSize != first.FileSize+hero.FileSize {
		t.Errorf("aggregates = %d images, %d bytes", projects[0].ImageCount, projects[0].TotalSize)
	}
	if projects[1].ID != empty.ID || projects[1].HeroImagePath != nil || projects[1].ImageCount != 0 {
		t.Errorf("empty project summary = %+v", projects[1])
	}

	if _, err := NewImageService(f.db, f.blobs).Update(ctx, hero.ID, models.ImagePatch{IsHero: models.Some(true)}); err != nil {
		t.Fatal(err)
	}
	projects, _ = svc.List(ctx)
	if projects[0].HeroImagePath == nil || *projects[0].HeroImagePath != hero.FilePath {
		t.Errorf("representative image = %v, want hero", projects[0].HeroImagePath)
	}
	if projects[0].HeroImageURL == nil || *projects[0].HeroImageURL != "/uploads/images/"+hero.FilePath {
		t.Errorf("hero url = %v", projects[0].HeroImageURL)
	}
}

func TestUpdateProjectRejectsNull(t *testing.T) {
	f := newFixture(t)
	project := f.db.SeedProject("Atrium")
	svc := NewProjectService(f.db, f.blobs)
	ctx := context.Background()

	for _, body := range []string{`{"name":null}`, `{"display_order":null}`} {
		var patch models.ProjectPatch
		if err := json.Unmarshal([]byte(body), &patch); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Update(ctx, project.ID, patch); !errs.IsInvalidFieldError(err) {
			t.Errorf("%s: err = %v, want invalid field", body, err)
		}
	}

	stored, err := f.db.ProjectRepo().FindByID(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Name != "Atrium" || stored.DisplayOrder != project.DisplayOrder {
		t.Errorf("stored = %+v", stored)
	}
}

func TestRepresentativeImageMatchesGalleryOrder(t *testing.T) {
	f := newFixture(t)
	project := f.db.SeedProject("Atrium")
	f.seedStoredImage(t, project.ID, "older.png", 1)
	f.seedStoredImage(t, project.ID, "newer.png", 1)
	ctx := context.Background()

	images, err := NewImageService(f.db, f.blobs).List(ctx, project.ID)
	if err != nil {
		t.Fatalf("List images: %v", err)
	}
	projects, err := NewProjectService(f.db, f.blobs).List(ctx)
	if err != nil {
		t.Fatalf("List projects: %v", err)
	}
	if projects[0].HeroImagePath == nil || *projects[0].HeroImagePath != images[0].FilePath {
		t.Errorf("representative image = %v, want gallery's first %s", projects[0].HeroImagePath, images[0].FilePath)
	}
	if images[0].Filename != "newer.png" {
		t.Errorf("gallery first = %s, want newer.png", images[0].Filename)
	}
}
