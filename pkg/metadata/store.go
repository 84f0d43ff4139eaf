// Package metadata is the persistence boundary for accounts, file records and
// chunk placement records, backed by SQLite.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"spanfs/pkg/models"

	_ "modernc.org/sqlite"
)

// Store manages account, file and chunk metadata in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the metadata database at the given path.
func NewStore(dbPath string) (*Store, error) {
	database, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrDatabaseError, err)
	}

	ctx := context.Background()

	// Enable foreign keys
	if _, err := database.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable foreign keys: %w", ErrDatabaseError, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := database.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrDatabaseError, err)
	}

	store := &Store{db: database}
	if err := store.initialize(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %w", ErrDatabaseError, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddAccount stores a newly linked provider credential and returns its id.
func (s *Store) AddAccount(ctx context.Context, account *models.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, provider, access_token, refresh_token, expiry, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		account.UserID, string(account.Provider), account.AccessToken, account.RefreshToken, account.Expiry, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrAccountExists
		}
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	account.ID = id
	account.CreatedAt = now
	return id, nil
}

// GetAccount retrieves an account by id.
func (s *Store) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanAccount(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, access_token, refresh_token, expiry, created_at
		 FROM accounts WHERE id = ?`,
		accountID,
	))
}

// ListAccounts returns all accounts linked by a user, ordered by id.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, provider, access_token, refresh_token, expiry, created_at
		 FROM accounts WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []models.Account
	for rows.Next() {
		var (
			account  models.Account
			provider string
			expiry   sql.NullTime
		)
		err := rows.Scan(&account.ID, &account.UserID, &provider, &account.AccessToken,
			&account.RefreshToken, &expiry, &account.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		account.Provider = models.Provider(provider)
		if expiry.Valid {
			account.Expiry = expiry.Time
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return accounts, nil
}

// UpdateAccountToken persists a refreshed access token for an account.
func (s *Store) UpdateAccountToken(ctx context.Context, accountID int64, accessToken string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET access_token = ?, expiry = ? WHERE id = ?`,
		accessToken, expiry, accountID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}

	return nil
}

// InsertFile creates a file record and returns the generated file id.
func (s *Store) InsertFile(ctx context.Context, title, extension string, size int64, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO files (title, extension, size, user_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		title, extension, size, userID, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return id, nil
}

// GetFile retrieves a file record by id.
func (s *Store) GetFile(ctx context.Context, fileID int64) (*models.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file := &models.File{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, extension, size, user_id, created_at FROM files WHERE id = ?`,
		fileID,
	).Scan(&file.ID, &file.Title, &file.Extension, &file.Size, &file.UserID, &file.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return file, nil
}

// DeleteFile removes a file record.
func (s *Store) DeleteFile(ctx context.Context, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	if affected == 0 {
		return ErrFileNotFound
	}

	return nil
}

// InsertChunk appends a chunk placement record for a file. Insertion order is
// the reconstruction order.
func (s *Store) InsertChunk(ctx context.Context, chunk *models.Chunk) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chunks (file_id, chunk_id, provider, account_id, fallbacks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.FileID, chunk.ChunkID, string(chunk.Provider), chunk.AccountID,
		joinProviders(chunk.Fallbacks), time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	chunk.ID = id
	return id, nil
}

// ChunksByFile returns the chunk records of a file in insertion order.
func (s *Store) ChunksByFile(ctx context.Context, fileID int64) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, chunk_id, provider, account_id, fallbacks, created_at
		 FROM chunks WHERE file_id = ? ORDER BY id`,
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []models.Chunk
	for rows.Next() {
		var (
			chunk     models.Chunk
			provider  string
			fallbacks string
		)
		err := rows.Scan(&chunk.ID, &chunk.FileID, &chunk.ChunkID, &provider,
			&chunk.AccountID, &fallbacks, &chunk.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
		}
		chunk.Provider = models.Provider(provider)
		chunk.Fallbacks = splitProviders(fallbacks)
		chunks = append(chunks, chunk)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	return chunks, nil
}

// DeleteChunks removes every chunk record of a file.
func (s *Store) DeleteChunks(ctx context.Context, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	return nil
}

func (s *Store) scanAccount(row *sql.Row) (*models.Account, error) {
	var (
		account  models.Account
		provider string
		expiry   sql.NullTime
	)
	err := row.Scan(&account.ID, &account.UserID, &provider, &account.AccessToken,
		&account.RefreshToken, &expiry, &account.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	account.Provider = models.Provider(provider)
	if expiry.Valid {
		account.Expiry = expiry.Time
	}
	return &account, nil
}

func joinProviders(providers []models.Provider) string {
	if len(providers) == 0 {
		return ""
	}
	parts := make([]string, len(providers))
	for i, p := range providers {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func splitProviders(s string) []models.Provider {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	providers := make([]models.Provider, 0, len(parts))
	for _, p := range parts {
		providers = append(providers, models.Provider(p))
	}
	return providers
}
