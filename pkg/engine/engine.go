// Package engine implements file placement and reconstruction over a pool of
// cloud storage accounts. Files are split into chunks sized by the greedy
// planner, every chunk lands on exactly one account, and downloads stitch the
// chunks back together in their recorded order.
package engine

import (
	"context"
	"errors"
	"strings"

	"spanfs/pkg/metadata"
	"spanfs/pkg/models"
	"spanfs/pkg/pool"
)

// Engine ties the metadata store, the account pool and the placement planner
// together.
type Engine struct {
	meta *metadata.Store
	pool *pool.Pool
}

// New creates an engine over the given store and pool.
func New(meta *metadata.Store, accountPool *pool.Pool) *Engine {
	return &Engine{
		meta: meta,
		pool: accountPool,
	}
}

// Info returns the file record together with its chunk placements. Files of
// other users are reported as missing.
func (e *Engine) Info(ctx context.Context, userID string, fileID int64) (*models.FileInfoResponse, error) {
	file, err := e.ownedFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	chunks, err := e.meta.ChunksByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	return &models.FileInfoResponse{File: file, Chunks: chunks}, nil
}

// StorageInfo probes the user's linked accounts and reports per-account and
// total available space.
func (e *Engine) StorageInfo(ctx context.Context, userID string) (*models.StorageInfoResponse, error) {
	candidates, err := e.pool.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, candidate := range candidates {
		total += candidate.Available
	}

	return &models.StorageInfoResponse{Accounts: candidates, TotalAvailable: total}, nil
}

// ownedFile loads the file and hides it behind ErrFileNotFound when it belongs
// to someone else.
func (e *Engine) ownedFile(ctx context.Context, userID string, fileID int64) (*models.File, error) {
	file, err := e.meta.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, metadata.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	if file.UserID != userID {
		return nil, ErrFileNotFound
	}
	return file, nil
}

// splitName separates a file name into title and extension. The extension is
// everything after the last dot, without the dot. Names with no dot or a
// leading dot only have no extension.
func splitName(name string) (title, extension string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}
