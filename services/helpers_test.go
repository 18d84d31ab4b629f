package services

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/config"
	"github.com/rpupo63/vizzy-backend/database/dbtest"
	"github.com/rpupo63/vizzy-backend/models"
	"github.com/rpupo63/vizzy-backend/storage"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00"), make([]byte, 64)...)
	gifBytes  = append([]byte("GIF89a\x01\x00\x01\x00\x80\x00\x00"), make([]byte, 32)...)
	jpegBytes = append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01"), make([]byte, 64)...)
	webpBytes = append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 32)...)
	textBytes = []byte("this is not an image, just some notes\n")
)

func uploadFile(name string, data []byte) UploadFile {
	return UploadFile{
		Filename: name,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

type fixture struct {
	db        *dbtest.Memory
	blobs     *storage.LocalStore
	validator *UploadValidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir(), "/uploads/images/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return &fixture{
		db:        dbtest.New(),
		blobs:     blobs,
		validator: NewUploadValidator(config.DefaultMaxFileSize, config.DefaultAllowedTypes),
	}
}

// seedStoredImage writes a real blob and inserts its row
func (f *fixture) seedStoredImage(t *testing.T, projectID uuid.UUID, name string, order int) models.Image {
	t.Helper()
	relPath, size, err := f.blobs.Store(context.Background(), projectID, name, bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	return f.db.SeedImage(models.Image{
		ProjectID:    projectID,
		Filename:     name,
		FilePath:     relPath,
		FileSize:     size,
		MimeType:     "image/png",
		DisplayOrder: order,
	})
}

func (f *fixture) blobExists(t *testing.T, relPath string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(f.blobs.Root(), filepath.FromSlash(relPath)))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", relPath, err)
	}
	return err == nil
}

func (f *fixture) imageOrders(t *testing.T, projectID uuid.UUID) map[uuid.UUID]int {
	t.Helper()
	orders := make(map[uuid.UUID]int)
	for _, img := range f.db.Images() {
		if img.ProjectID == projectID {
			orders[img.ID] = img.DisplayOrder
		}
	}
	return orders
}

// faultyBlobs wraps a BlobStore and fails the configured operations
type faultyBlobs struct {
	storage.BlobStore
	storeErr  error
	removeErr error
	stageErr  error
}

func (f *faultyBlobs) Store(ctx context.Context, projectID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	if f.storeErr != nil {
		return "", 0, f.storeErr
	}
	return f.BlobStore.Store(ctx, projectID, originalName, r)
}

func (f *faultyBlobs) Remove(ctx context.Context, relPath string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.BlobStore.Remove(ctx, relPath)
}

func (f *faultyBlobs) Stage(ctx context.Context, relPath string) (storage.Removal, error) {
	if f.stageErr != nil {
		return nil, f.stageErr
	}
	return f.BlobStore.Stage(ctx, relPath)
}
