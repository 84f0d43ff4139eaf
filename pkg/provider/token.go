package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"spanfs/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

// TokenStore persists refreshed credentials. The metadata store is the single
// source of truth for tokens; nothing is cached process-wide.
type TokenStore interface {
	UpdateAccountToken(ctx context.Context, accountID int64, accessToken string, expiry time.Time) error
}

// OAuthConfig identifies one provider's OAuth client and token endpoint.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Refresher exchanges refresh tokens for fresh access tokens and persists the
// result. Refreshes for the same account are serialized so two concurrent
// operations cannot race to write inconsistent tokens.
type Refresher struct {
	store  TokenStore
	client *retryablehttp.Client

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewRefresher creates a Refresher backed by the given token store.
func NewRefresher(store TokenStore, client *retryablehttp.Client) *Refresher {
	return &Refresher{
		store:  store,
		client: client,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// AccessToken returns a usable access token for the account, refreshing it
// through the provider's token endpoint first when expired. The refreshed
// token is written back to both the store and the account.
func (r *Refresher) AccessToken(ctx context.Context, account *models.Account, cfg OAuthConfig) (string, error) {
	if !account.Expired() {
		return account.AccessToken, nil
	}

	lock := r.lockFor(account.ID)
	lock.Lock()
	defer lock.Unlock()

	// Another operation may have refreshed the token while we waited.
	if !account.Expired() {
		return account.AccessToken, nil
	}

	token, expiry, err := r.refresh(ctx, account, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: refreshing token for account %d: %w", ErrUnavailable, account.ID, err)
	}

	if err := r.store.UpdateAccountToken(ctx, account.ID, token, expiry); err != nil {
		return "", fmt.Errorf("%w: persisting token for account %d: %w", ErrUnavailable, account.ID, err)
	}

	account.AccessToken = token
	account.Expiry = expiry
	return token, nil
}

func (r *Refresher) lockFor(accountID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, exists := r.locks[accountID]
	if !exists {
		lock = &sync.Mutex{}
		r.locks[accountID] = lock
	}
	return lock
}

func (r *Refresher) refresh(ctx context.Context, account *models.Account, cfg OAuthConfig) (string, time.Time, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {account.RefreshToken},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, err
	}
	if payload.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned no access token")
	}

	expiry := time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return payload.AccessToken, expiry, nil
}
