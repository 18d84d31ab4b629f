package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/errs"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "/uploads/images/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return store
}

func TestGenerateFilename(t *testing.T) {
	restore := now
	now = func() time.Time { return time.Unix(1700000000, 0) }
	defer func() { now = restore }()

	tests := []struct {
		original string
		pattern  string
	}{
		{"photo.jpg", `^photo_1700000000_[0-9a-f]{8}\.jpg$`},
		{"my holiday (1).PNG", `^my_holiday__1__1700000000_[0-9a-f]{8}\.png$`},
		{"../../etc/passwd.gif", `^passwd_1700000000_[0-9a-f]{8}\.gif$`},
		{`C:\Users\me\shot.webp`, `^shot_1700000000_[0-9a-f]{8}\.webp$`},
		{"no-extension", `^no-extension_1700000000_[0-9a-f]{8}$`},
		{".jpg", `^image_1700000000_[0-9a-f]{8}\.jpg$`},
		{"café.jpeg", `^caf__1700000000_[0-9a-f]{8}\.jpeg$`},
	}

	for _, tt := range tests {
		got, err := GenerateFilename(tt.original)
		if err != nil {
			t.Fatalf("GenerateFilename(%q): %v", tt.original, err)
		}
		if !regexp.MustCompile(tt.pattern).MatchString(got) {
			t.Errorf("GenerateFilename(%q) = %q, want match for %s", tt.original, got, tt.pattern)
		}
	}
}

func TestGenerateFilenameIsUniqueForIdenticalNames(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		name, err := GenerateFilename("same.png")
		if err != nil {
			t.Fatalf("GenerateFilename: %v", err)
		}
		if seen[name] {
			t.Fatalf("duplicate name generated: %s", name)
		}
		seen[name] = true
	}
}

func TestLocalStoreStoreCreatesProjectDirectory(t *testing.T) {
	store := newTestStore(t)
	projectID := uuid.New()

	rel, size, err := store.Store(context.Background(), projectID, "cover.png", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if size != int64(len("pixels")) {
		t.Errorf("size = %d, want %d", size, len("pixels"))
	}
	if !strings.HasPrefix(rel, projectID.String()+"/cover_") {
		t.Errorf("relative path %q does not start with the project directory", rel)
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read stored blob: %v", err)
	}
	if string(data) != "pixels" {
		t.Errorf("stored content = %q", data)
	}

	entries, err := os.ReadDir(filepath.Join(store.Root(), projectID.String()))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one file in project dir, found %d", len(entries))
	}
}

func TestLocalStoreConcurrentIdenticalNames(t *testing.T) {
	store := newTestStore(t)
	projectID := uuid.New()

	const workers = 16
	paths := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rel, _, err := store.Store(context.Background(), projectID, "dup.jpg", strings.NewReader("x"))
			if err != nil {
				t.Errorf("Store: %v", err)
				return
			}
			paths[i] = rel
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, p := range paths {
		if seen[p] {
			t.Fatalf("duplicate path %s", p)
		}
		seen[p] = true
	}
}

func TestLocalStoreRemoveMissingIsNotAnError(t *testing.T) {
	store := newTestStore(t)
	if err := store.Remove(context.Background(), uuid.NewString()+"/gone.png"); err != nil {
		t.Fatalf("Remove of missing blob: %v", err)
	}
}

func TestLocalStoreRejectsEscapingPaths(t *testing.T) {
	store := newTestStore(t)
	for _, p := range []string{"", "../outside.png", "/etc/passwd", "a/../../b"} {
		err := store.Remove(context.Background(), p)
		if !errs.IsBadRequest(err) {
			t.Errorf("Remove(%q) error = %v, want a bad request", p, err)
		}
	}
}

func TestLocalStoreStageCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	projectID := uuid.New()

	rel, _, err := store.Store(ctx, projectID, "a.gif", strings.NewReader("gif"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	full := filepath.Join(store.Root(), filepath.FromSlash(rel))

	removal, err := store.Stage(ctx, rel)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Fatalf("blob still at original path after Stage")
	}
	if err := removal.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("blob not restored after Rollback: %v", err)
	}

	removal, err = store.Stage(ctx, rel)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := removal.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(full))
	if len(entries) != 0 {
		t.Errorf("expected empty project dir after Commit, found %d entries", len(entries))
	}
}

func TestLocalStoreStageMissingBlob(t *testing.T) {
	store := newTestStore(t)
	removal, err := store.Stage(context.Background(), uuid.NewString()+"/missing.png")
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := removal.Commit(context.Background()); err != nil {
		t.Errorf("Commit: %v", err)
	}
}

func TestLocalStoreWalk(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var stored []string
	for _, id := range []uuid.UUID{uuid.New(), uuid.New()} {
		rel, _, err := store.Store(ctx, id, "w.png", strings.NewReader("w"))
		if err != nil {
			t.Fatalf("Store: %v", err)
		}
		stored = append(stored, rel)
	}

	found := make(map[string]bool)
	err := store.Walk(ctx, func(b BlobInfo) error {
		found[b.Path] = true
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	for _, rel := range stored {
		if !found[rel] {
			t.Errorf("Walk did not report %s", rel)
		}
	}
}

func TestPublicURL(t *testing.T) {
	store := newTestStore(t)
	got := store.PublicURL("p/x.png")
	if got != "/uploads/images/p/x.png" {
		t.Errorf("PublicURL = %q", got)
	}
}

func TestIsReserved(t *testing.T) {
	if !IsReserved("p/.trash-x.png") || !IsReserved("p/.upload-123") {
		t.Error("staged and temporary names must be reserved")
	}
	if IsReserved("p/x.png") {
		t.Error("regular blob reported as reserved")
	}
}

func TestLocalStoreStageRefreshesModTime(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	rel, _, err := store.Store(ctx, uuid.New(), "old.png", strings.NewReader("old"))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	full := filepath.Join(store.Root(), filepath.FromSlash(rel))
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(full, old, old); err != nil {
		t.Fatal(err)
	}

	before := time.Now().Add(-time.Minute)
	if _, err := store.Stage(ctx, rel); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	var staged BlobInfo
	err = store.Walk(ctx, func(b BlobInfo) error {
		if IsReserved(b.Path) {
			staged = b
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if staged.Path == "" {
		t.Fatal("staged blob not reported by Walk")
	}
	if staged.ModTime.Before(before) {
		t.Errorf("staged blob mtime = %v, want the staging time", staged.ModTime)
	}
}

func TestStagedOriginal(t *testing.T) {
	if got, ok := StagedOriginal("p/.trash-x.png"); !ok || got != "p/x.png" {
		t.Errorf("StagedOriginal = %q, %v", got, ok)
	}
	if _, ok := StagedOriginal("p/x.png"); ok {
		t.Error("regular blob reported as staged")
	}
	if _, ok := StagedOriginal("p/.upload-123"); ok {
		t.Error("temporary write reported as staged")
	}
}
