package engine

import (
	"context"
	"fmt"
	"io"

	"spanfs/pkg/log"
	"spanfs/pkg/models"
)

// Download reconstructs the file by fetching its chunks in their recorded
// order and writing them to dst. When the recorded provider of a chunk fails,
// the chunk's persisted fallback providers are probed with the same chunk id
// before giving up.
func (e *Engine) Download(ctx context.Context, userID string, fileID int64, dst io.Writer) (*models.File, error) {
	file, err := e.ownedFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	chunks, err := e.meta.ChunksByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: file %d", ErrNoChunks, fileID)
	}

	for i := range chunks {
		stream, err := e.openChunk(ctx, userID, &chunks[i])
		if err != nil {
			return nil, err
		}
		_, err = io.Copy(dst, stream)
		stream.Close()
		if err != nil {
			return nil, fmt.Errorf("read chunk %s: %w", chunks[i].ChunkID, err)
		}
	}

	return file, nil
}

// openChunk opens the chunk on its recorded account, falling back to the
// chunk's stored fallback providers on failure.
func (e *Engine) openChunk(ctx context.Context, userID string, chunk *models.Chunk) (io.ReadCloser, error) {
	account, err := e.meta.GetAccount(ctx, chunk.AccountID)
	if err == nil {
		adapter, ok := e.pool.Adapter(chunk.Provider)
		if ok {
			stream, err := adapter.Download(ctx, account, chunk.ChunkID)
			if err == nil {
				return stream, nil
			}
			log.Warn().Err(err).Str("chunk_id", chunk.ChunkID).Str("provider", string(chunk.Provider)).
				Msg("Primary provider failed, probing fallbacks")
		}
	} else {
		log.Warn().Err(err).Int64("account_id", chunk.AccountID).
			Msg("Chunk account missing, probing fallbacks")
	}

	if len(chunk.Fallbacks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChunkUnavailable, chunk.ChunkID)
	}

	accounts, err := e.meta.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrChunkUnavailable, chunk.ChunkID)
	}
	byProvider := make(map[models.Provider]*models.Account, len(accounts))
	for i := range accounts {
		if _, ok := byProvider[accounts[i].Provider]; !ok {
			byProvider[accounts[i].Provider] = &accounts[i]
		}
	}

	for _, fallback := range chunk.Fallbacks {
		adapter, ok := e.pool.Adapter(fallback)
		if !ok {
			continue
		}
		fallbackAccount, ok := byProvider[fallback]
		if !ok {
			continue
		}
		stream, err := adapter.Download(ctx, fallbackAccount, chunk.ChunkID)
		if err == nil {
			log.Info().Str("chunk_id", chunk.ChunkID).Str("provider", string(fallback)).
				Msg("Chunk recovered from fallback provider")
			return stream, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrChunkUnavailable, chunk.ChunkID)
}
