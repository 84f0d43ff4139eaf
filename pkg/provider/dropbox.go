package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"spanfs/pkg/log"
	"spanfs/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	dropboxAPIBase     = "https://api.dropboxapi.com"
	dropboxContentBase = "https://content.dropboxapi.com"
	dropboxTokenURL    = "https://api.dropbox.com/oauth2/token"
)

// Dropbox talks to the Dropbox v2 RPC and content endpoints.
type Dropbox struct {
	APIBase     string
	ContentBase string
	OAuth       OAuthConfig

	client    *retryablehttp.Client
	refresher *Refresher
}

// NewDropbox creates a Dropbox adapter using the given OAuth client.
func NewDropbox(clientID, clientSecret string, refresher *Refresher, opts ClientOptions) *Dropbox {
	return &Dropbox{
		APIBase:     dropboxAPIBase,
		ContentBase: dropboxContentBase,
		OAuth:       OAuthConfig{ClientID: clientID, ClientSecret: clientSecret, TokenURL: dropboxTokenURL},
		client:      NewClient(opts),
		refresher:   refresher,
	}
}

// Type identifies the provider.
func (d *Dropbox) Type() models.Provider {
	return models.ProviderDropbox
}

// AvailableBytes reads the account's space usage.
func (d *Dropbox) AvailableBytes(ctx context.Context, account *models.Account) (int64, error) {
	token, err := d.refresher.AccessToken(ctx, account, d.OAuth)
	if err != nil {
		return 0, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		d.APIBase+"/2/users/get_space_usage", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: space usage request returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Used       int64 `json:"used"`
		Allocation struct {
			Allocated int64 `json:"allocated"`
		} `json:"allocation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return max(payload.Allocation.Allocated-payload.Used, 0), nil
}

// Upload streams the chunk to Dropbox and returns the Dropbox file id.
func (d *Dropbox) Upload(ctx context.Context, account *models.Account, data io.Reader, name string, size int64) (string, error) {
	token, err := d.refresher.AccessToken(ctx, account, d.OAuth)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	arg, err := apiArg(map[string]any{
		"path":       "/" + name,
		"mode":       "add",
		"autorename": true,
		"mute":       false,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		d.ContentBase+"/2/files/upload", data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", arg)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: dropbox upload returned status %d", ErrUploadFailed, resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("%w: dropbox upload returned no file id", ErrUploadFailed)
	}

	log.Debug().Str("chunk_id", payload.ID).Str("name", name).Int64("size", size).Msg("Chunk uploaded to Dropbox")
	return payload.ID, nil
}

// Download opens the chunk's content stream. The recorded file id works as a
// Dropbox path argument.
func (d *Dropbox) Download(ctx context.Context, account *models.Account, chunkID string) (io.ReadCloser, error) {
	token, err := d.refresher.AccessToken(ctx, account, d.OAuth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}

	arg, err := apiArg(map[string]any{"path": chunkID})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		d.ContentBase+"/2/files/download", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", arg)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}

	if resp.StatusCode != http.StatusOK {
		drainAndClose(resp.Body)
		return nil, fmt.Errorf("%w: dropbox download returned status %d", ErrChunkNotFound, resp.StatusCode)
	}

	return resp.Body, nil
}

// Delete removes the chunk from Dropbox.
func (d *Dropbox) Delete(ctx context.Context, account *models.Account, chunkID string) error {
	token, err := d.refresher.AccessToken(ctx, account, d.OAuth)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"path": chunkID})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		d.APIBase+"/2/files/delete_v2", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		// Dropbox reports an unknown path as a 409 route error.
		return ErrChunkNotFound
	default:
		return fmt.Errorf("%w: dropbox delete returned status %d", ErrUnavailable, resp.StatusCode)
	}
}

// apiArg encodes a Dropbox-API-Arg header value. The header must be ASCII, so
// HTML-unsafe runes are escaped by the JSON encoder defaults.
func apiArg(v map[string]any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
