// Package storage places and removes image blobs. Blobs are addressed by a
// path relative to the store root of the form "{projectID}/{generated name}".
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore is the interface implemented by every blob backend
type BlobStore interface {
	// Store writes r under a collision-free name in the project's directory
	// and returns the relative path and the number of bytes written.
	Store(ctx context.Context, projectID uuid.UUID, originalName string, r io.Reader) (string, int64, error)
	// Remove deletes the blob. A missing blob is not an error.
	Remove(ctx context.Context, relPath string) error
	// Stage moves the blob out of reach so that the removal can still be undone.
	// A missing blob yields a Removal that does nothing.
	Stage(ctx context.Context, relPath string) (Removal, error)
	// Walk calls fn for every blob in the store, staged and temporary files included.
	Walk(ctx context.Context, fn func(BlobInfo) error) error
	// PublicURL returns the browser-facing URL of a blob
	PublicURL(relPath string) string
}

// Removal is a staged blob removal
type Removal interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// BlobInfo describes a blob found by Walk
type BlobInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Prefixes of names that never back an image row
const (
	trashPrefix = ".trash-"
	tempPrefix  = ".upload-"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
var unsafeExtChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// now is replaced in tests
var now = time.Now

// GenerateFilename derives a collision-free blob name from the client's file name:
// {sanitized base}_{unix seconds}_{8 hex chars}.{ext}
func GenerateFilename(originalName string) (string, error) {
	name := path.Base(strings.ReplaceAll(originalName, "\\", "/"))
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)

	base = unsafeNameChars.ReplaceAllString(base, "_")
	if base == "" {
		base = "image"
	}
	ext = strings.ToLower(unsafeExtChars.ReplaceAllString(strings.TrimPrefix(ext, "."), ""))

	token, err := randomToken(4)
	if err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}

	generated := fmt.Sprintf("%s_%d_%s", base, now().Unix(), token)
	if ext != "" {
		generated += "." + ext
	}
	return generated, nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IsReserved reports whether the blob name belongs to a staged removal or an
// unfinished write rather than to an image
func IsReserved(relPath string) bool {
	name := path.Base(relPath)
	return strings.HasPrefix(name, trashPrefix) || strings.HasPrefix(name, tempPrefix)
}

// StagedOriginal returns the path a staged removal restores to on rollback
func StagedOriginal(relPath string) (string, bool) {
	name := path.Base(relPath)
	if !strings.HasPrefix(name, trashPrefix) {
		return "", false
	}
	return path.Join(path.Dir(relPath), strings.TrimPrefix(name, trashPrefix)), true
}

func joinURL(prefix, relPath string) string {
	if prefix == "" {
		return relPath
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(relPath, "/")
}

type noopRemoval struct{}

func (noopRemoval) Commit(context.Context) error   { return nil }
func (noopRemoval) Rollback(context.Context) error { return nil }
