// Package cleanup reclaims blobs that no image row references: leftovers of
// crashed uploads, staged removals whose discard failed and files written
// outside the application.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rpupo63/vizzy-backend/database"
	"github.com/rpupo63/vizzy-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the sweep parameters
type Config struct {
	// GracePeriod spares blobs younger than this, so an upload whose row is
	// not yet committed keeps its file
	GracePeriod time.Duration
	// DryRun only reports what would be removed
	DryRun bool
	// MaxRemovals aborts the sweep when more orphans than this are found. Zero disables the check.
	MaxRemovals int
}

func DefaultConfig() Config {
	return Config{
		GracePeriod: time.Hour,
		MaxRemovals: 10000,
	}
}

// SweepResult holds the result of one sweep
type SweepResult struct {
	Scanned      int       `json:"scanned"`
	Referenced   int       `json:"referenced"`
	Orphaned     int       `json:"orphaned"`
	Spared       int       `json:"spared"`
	Removed      int       `json:"removed"`
	Failed       int       `json:"failed"`
	DryRun       bool      `json:"dry_run"`
	ExecutedAt   time.Time `json:"executed_at"`
	RemovedPaths []string  `json:"removed_paths"`
	Errors       []string  `json:"errors,omitempty"`
}

type Sweeper struct {
	store  database.Store
	blobs  storage.BlobStore
	config Config
	now    func() time.Time
	logger zerolog.Logger
}

func NewSweeper(store database.Store, blobs storage.BlobStore, cfg Config) *Sweeper {
	return &Sweeper{
		store:  store,
		blobs:  blobs,
		config: cfg,
		now:    time.Now,
		logger: log.With().Str("component", "sweeper").Logger(),
	}
}

// Sweep removes every blob older than the grace period that no image row references
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{
		DryRun:       s.config.DryRun,
		ExecutedAt:   s.now(),
		RemovedPaths: []string{},
	}
	cutoff := result.ExecutedAt.Add(-s.config.GracePeriod)

	// Blobs are listed before rows so that a row committed in between is seen.
	var candidates []string
	var blobs []storage.BlobInfo
	err := s.blobs.Walk(ctx, func(b storage.BlobInfo) error {
		blobs = append(blobs, b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk blobs: %w", err)
	}

	paths, err := s.store.ImageRepo().AllFilePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referenced blobs: %w", err)
	}
	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}

	for _, b := range blobs {
		result.Scanned++
		if _, ok := referenced[b.Path]; ok && !storage.IsReserved(b.Path) {
			result.Referenced++
			continue
		}
		// A staged removal whose row still exists belongs to a delete in flight
		// and must stay restorable.
		if original, staged := storage.StagedOriginal(b.Path); staged {
			if _, ok := referenced[original]; ok {
				result.Referenced++
				continue
			}
		}
		result.Orphaned++
		if b.ModTime.After(cutoff) {
			result.Spared++
			continue
		}
		candidates = append(candidates, b.Path)
	}

	if s.config.MaxRemovals > 0 && len(candidates) > s.config.MaxRemovals {
		return nil, fmt.Errorf("safety check failed: %d orphaned blobs exceed max removal limit of %d",
			len(candidates), s.config.MaxRemovals)
	}

	for _, p := range candidates {
		if s.config.DryRun {
			s.logger.Info().Str("path", p).Msg("[DRY-RUN] would remove orphaned blob")
			result.RemovedPaths = append(result.RemovedPaths, p)
			result.Removed++
			continue
		}
		if err := s.blobs.Remove(ctx, p); err != nil {
			s.logger.Error().Err(err).Str("path", p).Msg("failed to remove orphaned blob")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p, err))
			result.Failed++
			continue
		}
		result.RemovedPaths = append(result.RemovedPaths, p)
		result.Removed++
	}

	s.logger.Info().
		Int("scanned", result.Scanned).
		Int("orphaned", result.Orphaned).
		Int("spared", result.Spared).
		Int("removed", result.Removed).
		Int("failed", result.Failed).
		Bool("dryRun", result.DryRun).
		Msg("blob sweep completed")
	return result, nil
}
