package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/storage"
)

const (
	TaskSessionsCleanup = "sessions_cleanup"
	TaskFilesCleanup    = "files_cleanup"
	TaskCountsRefresh   = "counts_refresh"
)

type TaskPayload struct {
	Type        string `json:"type"`
	RequestedAt string `json:"requested_at"`
}

type Processor struct {
	sessions     *repository.SessionRepository
	files        *repository.FileRepository
	categories   *repository.CategoryRepository
	store        *storage.ObjectStore
	orphanCutoff time.Duration
	logger       zerolog.Logger
}

func NewProcessor(
	sessions *repository.SessionRepository,
	files *repository.FileRepository,
	categories *repository.CategoryRepository,
	store *storage.ObjectStore,
	orphanCutoff time.Duration,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		sessions:     sessions,
		files:        files,
		categories:   categories,
		store:        store,
		orphanCutoff: orphanCutoff,
		logger:       logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case TaskSessionsCleanup:
		return p.cleanupSessions(ctx)
	case TaskFilesCleanup:
		return p.cleanupFiles(ctx)
	case TaskCountsRefresh:
		return p.refreshCounts(ctx)
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

func (p *Processor) cleanupSessions(ctx context.Context) error {
	deleted, err := p.sessions.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	p.logger.Info().Int64("deleted", deleted).Msg("expired sessions removed")
	return nil
}

// cleanupFiles removes files that have been unattached longer than the
// cutoff, object first so a failed removal leaves the record for the
// next run.
func (p *Processor) cleanupFiles(ctx context.Context) error {
	cutoff := time.Now().Add(-p.orphanCutoff)
	orphans, err := p.files.ListOrphanedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list orphaned files: %w", err)
	}

	removed := 0
	for _, file := range orphans {
		if err := p.store.Remove(ctx, file.ObjectKey); err != nil {
			p.logger.Error().Err(err).Str("object_key", file.ObjectKey).Msg("remove object failed")
			continue
		}
		if err := p.files.Delete(ctx, file.ID); err != nil {
			p.logger.Error().Err(err).Int64("file_id", file.ID).Msg("delete file record failed")
			continue
		}
		removed++
	}

	p.logger.Info().
		Int("orphans", len(orphans)).
		Int("removed", removed).
		Msg("orphaned files cleaned up")
	return nil
}

func (p *Processor) refreshCounts(ctx context.Context) error {
	if err := p.categories.RefreshCounts(ctx); err != nil {
		return fmt.Errorf("refresh category counts: %w", err)
	}
	p.logger.Info().Msg("category counts refreshed")
	return nil
}
