package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/vizzy-backend/errs"
)

const (
	dirMode  os.FileMode = 0o755
	fileMode os.FileMode = 0o644
)

// LocalStore keeps blobs on the local filesystem under root/{projectID}/
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore creates the root directory if needed and returns a store serving
// blob URLs below urlPrefix
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, dirMode); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", abs, err)
	}
	return &LocalStore{root: abs, urlPrefix: urlPrefix}, nil
}

// Root returns the absolute directory holding every blob
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Store(ctx context.Context, projectID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	name, err := GenerateFilename(originalName)
	if err != nil {
		return "", 0, err
	}

	dir := filepath.Join(s.root, projectID.String())
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", 0, fmt.Errorf("create project directory: %w", err)
	}

	// Write under a hidden name first so a partial file never shows up at its final path.
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", 0, fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		cleanup()
		return "", 0, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", 0, fmt.Errorf("close blob: %w", err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		cleanup()
		return "", 0, fmt.Errorf("chmod blob: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		cleanup()
		return "", 0, fmt.Errorf("move blob into place: %w", err)
	}

	return projectID.String() + "/" + name, written, nil
}

func (s *LocalStore) Remove(ctx context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", relPath, err)
	}
	return nil
}

func (s *LocalStore) Stage(ctx context.Context, relPath string) (Removal, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	staged := filepath.Join(filepath.Dir(full), trashPrefix+filepath.Base(full))
	if err := os.Rename(full, staged); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return noopRemoval{}, nil
		}
		return nil, fmt.Errorf("stage blob %s for removal: %w", relPath, err)
	}
	// Rename keeps the old mtime; the sweeper's grace period starts at staging.
	stagedAt := now()
	if err := os.Chtimes(staged, stagedAt, stagedAt); err != nil {
		if rbErr := os.Rename(staged, full); rbErr != nil {
			return nil, fmt.Errorf("touch staged blob %s: %w (restore: %v)", relPath, err, rbErr)
		}
		return nil, fmt.Errorf("touch staged blob %s: %w", relPath, err)
	}
	return &localRemoval{original: full, staged: staged}, nil
}

func (s *LocalStore) Walk(ctx context.Context, fn func(BlobInfo) error) error {
	return filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		return fn(BlobInfo{Path: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
	})
}

func (s *LocalStore) PublicURL(relPath string) string {
	return joinURL(s.urlPrefix, relPath)
}

// resolve maps a relative blob path to an absolute path inside root
func (s *LocalStore) resolve(relPath string) (string, error) {
	cleaned := path.Clean(filepath.ToSlash(relPath))
	if relPath == "" || cleaned == "." || cleaned == ".." || path.IsAbs(cleaned) || strings.HasPrefix(cleaned, "../") {
		return "", errs.NewInvalidPathError(relPath)
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

type localRemoval struct {
	original string
	staged   string
}

func (r *localRemoval) Commit(context.Context) error {
	if err := os.Remove(r.staged); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged blob: %w", err)
	}
	return nil
}

func (r *localRemoval) Rollback(context.Context) error {
	if err := os.Rename(r.staged, r.original); err != nil {
		return fmt.Errorf("restore staged blob: %w", err)
	}
	return nil
}
