package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"spanfs/pkg/log"
	"spanfs/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	graphAPIBase     = "https://graph.microsoft.com"
	onedriveTokenURL = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
)

// OneDrive talks to the Microsoft Graph drive API.
type OneDrive struct {
	BaseURL string
	OAuth   OAuthConfig

	client    *retryablehttp.Client
	refresher *Refresher
}

// NewOneDrive creates a OneDrive adapter using the given OAuth client.
func NewOneDrive(clientID, clientSecret string, refresher *Refresher, opts ClientOptions) *OneDrive {
	return &OneDrive{
		BaseURL:   graphAPIBase,
		OAuth:     OAuthConfig{ClientID: clientID, ClientSecret: clientSecret, TokenURL: onedriveTokenURL},
		client:    NewClient(opts),
		refresher: refresher,
	}
}

// Type identifies the provider.
func (o *OneDrive) Type() models.Provider {
	return models.ProviderOneDrive
}

// AvailableBytes reads the drive quota for the account.
func (o *OneDrive) AvailableBytes(ctx context.Context, account *models.Account) (int64, error) {
	token, err := o.refresher.AccessToken(ctx, account, o.OAuth)
	if err != nil {
		return 0, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		o.BaseURL+"/v1.0/me/drive", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: drive quota request returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		Quota struct {
			Remaining int64 `json:"remaining"`
		} `json:"quota"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return max(payload.Quota.Remaining, 0), nil
}

// Upload streams the chunk to OneDrive via the simple upload endpoint and
// returns the Graph item id.
func (o *OneDrive) Upload(ctx context.Context, account *models.Account, data io.Reader, name string, size int64) (string, error) {
	token, err := o.refresher.AccessToken(ctx, account, o.OAuth)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut,
		o.BaseURL+"/v1.0/me/drive/root:/"+url.PathEscape(name)+":/content", data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: onedrive upload returned status %d", ErrUploadFailed, resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("%w: onedrive upload returned no item id", ErrUploadFailed)
	}

	log.Debug().Str("chunk_id", payload.ID).Str("name", name).Int64("size", size).Msg("Chunk uploaded to OneDrive")
	return payload.ID, nil
}

// Download opens the chunk's content stream. Graph answers with a redirect to
// a download URL, which the HTTP client follows.
func (o *OneDrive) Download(ctx context.Context, account *models.Account, chunkID string) (io.ReadCloser, error) {
	token, err := o.refresher.AccessToken(ctx, account, o.OAuth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		o.BaseURL+"/v1.0/me/drive/items/"+url.PathEscape(chunkID)+"/content", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}

	if resp.StatusCode != http.StatusOK {
		drainAndClose(resp.Body)
		return nil, fmt.Errorf("%w: onedrive download returned status %d", ErrChunkNotFound, resp.StatusCode)
	}

	return resp.Body, nil
}

// Delete removes the chunk from OneDrive.
func (o *OneDrive) Delete(ctx context.Context, account *models.Account, chunkID string) error {
	token, err := o.refresher.AccessToken(ctx, account, o.OAuth)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodDelete,
		o.BaseURL+"/v1.0/me/drive/items/"+url.PathEscape(chunkID), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrChunkNotFound
	default:
		return fmt.Errorf("%w: onedrive delete returned status %d", ErrUnavailable, resp.StatusCode)
	}
}
