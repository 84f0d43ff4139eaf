package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"spanfs/pkg/log"
	"spanfs/pkg/models"
	"spanfs/pkg/planner"
	"spanfs/pkg/provider"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// uploadedChunk tracks a chunk already sent to a provider, for rollback.
type uploadedChunk struct {
	account *models.Account
	adapter provider.Adapter
	chunkID string
}

// Upload splits the stream across the user's linked accounts and records the
// placements. The stream must deliver exactly size bytes. On any failure, all
// chunks already uploaded are removed best-effort together with the metadata
// rows, so a failed upload leaves no trace.
func (e *Engine) Upload(ctx context.Context, userID, name string, size int64, data io.Reader) (int64, error) {
	candidates, err := e.pool.Snapshot(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("snapshot capacity: %w", err)
	}

	plan, err := planner.Plan(size, candidates)
	if err != nil {
		return 0, err
	}

	title, extension := splitName(name)
	fileID, err := e.meta.InsertFile(ctx, title, extension, size, userID)
	if err != nil {
		return 0, fmt.Errorf("insert file record: %w", err)
	}

	fallbacks := fallbackProviders(candidates)

	var uploaded []uploadedChunk
	for i, placement := range plan {
		account, adapter, err := e.resolvePlacement(ctx, placement)
		if err != nil {
			e.rollback(ctx, fileID, uploaded)
			return 0, err
		}

		chunkName := fmt.Sprintf("%s-%s.part%d", uuid.NewString(), name, i+1)
		chunkID, err := adapter.Upload(ctx, account, io.LimitReader(data, placement.Length), chunkName, placement.Length)
		if err != nil {
			e.rollback(ctx, fileID, uploaded)
			return 0, fmt.Errorf("upload chunk %d to %s: %w", i+1, placement.Provider, err)
		}
		uploaded = append(uploaded, uploadedChunk{account: account, adapter: adapter, chunkID: chunkID})

		_, err = e.meta.InsertChunk(ctx, &models.Chunk{
			FileID:    fileID,
			ChunkID:   chunkID,
			Provider:  placement.Provider,
			AccountID: placement.AccountID,
			Fallbacks: fallbacks[placement.Provider],
		})
		if err != nil {
			e.rollback(ctx, fileID, uploaded)
			return 0, fmt.Errorf("record chunk %d: %w", i+1, err)
		}

		log.Debug().Int64("file_id", fileID).Str("provider", string(placement.Provider)).
			Str("size", humanize.Bytes(uint64(placement.Length))).Msg("Chunk placed")
	}

	log.Info().Int64("file_id", fileID).Str("name", name).
		Str("size", humanize.Bytes(uint64(size))).Int("chunks", len(plan)).Msg("File uploaded")
	return fileID, nil
}

// resolvePlacement loads the account and adapter a placement refers to.
func (e *Engine) resolvePlacement(ctx context.Context, placement planner.Placement) (*models.Account, provider.Adapter, error) {
	account, err := e.meta.GetAccount(ctx, placement.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("load account %d: %w", placement.AccountID, err)
	}
	adapter, ok := e.pool.Adapter(placement.Provider)
	if !ok {
		return nil, nil, fmt.Errorf("no adapter for provider %s", placement.Provider)
	}
	return account, adapter, nil
}

// fallbackProviders builds, for every provider present in the snapshot, the
// ordered list of the other snapshot providers. The list is persisted with
// each chunk so downloads never have to guess.
func fallbackProviders(candidates []models.Candidate) map[models.Provider][]models.Provider {
	present := make(map[models.Provider]bool, len(candidates))
	for _, candidate := range candidates {
		present[candidate.Provider] = true
	}

	out := make(map[models.Provider][]models.Provider, len(present))
	for primary := range present {
		var others []models.Provider
		for _, providerType := range models.AllProviders {
			if providerType != primary && present[providerType] {
				others = append(others, providerType)
			}
		}
		out[primary] = others
	}
	return out
}

// rollback undoes a partial upload. Remote deletes are best-effort; metadata
// rows are always removed.
func (e *Engine) rollback(ctx context.Context, fileID int64, uploaded []uploadedChunk) {
	for _, chunk := range uploaded {
		if err := chunk.adapter.Delete(ctx, chunk.account, chunk.chunkID); err != nil && !errors.Is(err, provider.ErrChunkNotFound) {
			log.Warn().Err(err).Str("chunk_id", chunk.chunkID).
				Str("provider", string(chunk.adapter.Type())).Msg("Rollback delete failed, chunk orphaned")
		}
	}
	if err := e.meta.DeleteChunks(ctx, fileID); err != nil {
		log.Warn().Err(err).Int64("file_id", fileID).Msg("Rollback failed to delete chunk records")
	}
	if err := e.meta.DeleteFile(ctx, fileID); err != nil {
		log.Warn().Err(err).Int64("file_id", fileID).Msg("Rollback failed to delete file record")
	}
}
