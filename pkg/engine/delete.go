package engine

import (
	"context"
	"errors"
	"fmt"

	"spanfs/pkg/log"
	"spanfs/pkg/provider"
)

// Delete removes the file's chunks from their providers and then drops the
// metadata. A chunk already gone on the remote side is not an error; any other
// remote failure aborts the deletion so no recorded chunk is orphaned.
func (e *Engine) Delete(ctx context.Context, userID string, fileID int64) error {
	if _, err := e.ownedFile(ctx, userID, fileID); err != nil {
		return err
	}

	chunks, err := e.meta.ChunksByFile(ctx, fileID)
	if err != nil {
		return err
	}

	for i := range chunks {
		chunk := &chunks[i]

		account, err := e.meta.GetAccount(ctx, chunk.AccountID)
		if err != nil {
			log.Warn().Err(err).Int64("account_id", chunk.AccountID).Str("chunk_id", chunk.ChunkID).
				Msg("Chunk account missing, skipping remote delete")
			continue
		}
		adapter, ok := e.pool.Adapter(chunk.Provider)
		if !ok {
			log.Warn().Str("provider", string(chunk.Provider)).Str("chunk_id", chunk.ChunkID).
				Msg("No adapter for chunk provider, skipping remote delete")
			continue
		}

		if err := adapter.Delete(ctx, account, chunk.ChunkID); err != nil {
			if errors.Is(err, provider.ErrChunkNotFound) {
				continue
			}
			return fmt.Errorf("delete chunk %s from %s: %w", chunk.ChunkID, chunk.Provider, err)
		}
	}

	if err := e.meta.DeleteChunks(ctx, fileID); err != nil {
		return fmt.Errorf("delete chunk records: %w", err)
	}
	if err := e.meta.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}

	log.Info().Int64("file_id", fileID).Int("chunks", len(chunks)).Msg("File deleted")
	return nil
}
