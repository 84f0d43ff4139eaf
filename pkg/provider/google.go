package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"spanfs/pkg/log"
	"spanfs/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	googleAPIBase  = "https://www.googleapis.com"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	// Accounts whose quota is reported as unlimited are capped to a large
	// finite value so planning still terminates.
	unlimitedQuotaCap = int64(1) << 40
)

// GoogleDrive talks to the Google Drive v3 REST API.
type GoogleDrive struct {
	// BaseURL covers both the plain and the /upload API paths. Tests point it
	// at a mock server.
	BaseURL string
	OAuth   OAuthConfig

	client    *retryablehttp.Client
	refresher *Refresher
}

// NewGoogleDrive creates a Google Drive adapter using the given OAuth client.
func NewGoogleDrive(clientID, clientSecret string, refresher *Refresher, opts ClientOptions) *GoogleDrive {
	return &GoogleDrive{
		BaseURL:   googleAPIBase,
		OAuth:     OAuthConfig{ClientID: clientID, ClientSecret: clientSecret, TokenURL: googleTokenURL},
		client:    NewClient(opts),
		refresher: refresher,
	}
}

// Type identifies the provider.
func (g *GoogleDrive) Type() models.Provider {
	return models.ProviderGoogle
}

// AvailableBytes reads the drive storage quota for the account.
func (g *GoogleDrive) AvailableBytes(ctx context.Context, account *models.Account) (int64, error) {
	token, err := g.refresher.AccessToken(ctx, account, g.OAuth)
	if err != nil {
		return 0, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		g.BaseURL+"/drive/v3/about?fields=storageQuota", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: about request returned status %d", ErrUnavailable, resp.StatusCode)
	}

	// Drive reports quota values as decimal strings.
	var payload struct {
		StorageQuota struct {
			Limit string `json:"limit"`
			Usage string `json:"usage"`
		} `json:"storageQuota"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	usage, err := strconv.ParseInt(payload.StorageQuota.Usage, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad usage value %q", ErrUnavailable, payload.StorageQuota.Usage)
	}

	// No limit field means the account has unlimited storage.
	if payload.StorageQuota.Limit == "" {
		return unlimitedQuotaCap, nil
	}

	limit, err := strconv.ParseInt(payload.StorageQuota.Limit, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad limit value %q", ErrUnavailable, payload.StorageQuota.Limit)
	}

	return max(limit-usage, 0), nil
}

// Upload streams the chunk to Drive as a multipart/related upload and returns
// the Drive file id.
func (g *GoogleDrive) Upload(ctx context.Context, account *models.Account, data io.Reader, name string, size int64) (string, error) {
	token, err := g.refresher.AccessToken(ctx, account, g.OAuth)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	pipeReader, pipeWriter := io.Pipe()
	writer := multipart.NewWriter(pipeWriter)

	go func() {
		metaPart, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"application/json; charset=UTF-8"},
		})
		if err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if err := json.NewEncoder(metaPart).Encode(map[string]string{"name": name}); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}

		mediaPart, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"application/octet-stream"},
		})
		if err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if _, err := io.Copy(mediaPart, data); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}

		if err := writer.Close(); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		if closeErr := pipeWriter.Close(); closeErr != nil && !errors.Is(closeErr, io.ErrClosedPipe) {
			log.Warn().Err(closeErr).Msg("Failed to close upload pipe")
		}
	}()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		g.BaseURL+"/upload/drive/v3/files?uploadType=multipart&fields=id", pipeReader)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: drive upload returned status %d", ErrUploadFailed, resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("%w: drive upload returned no file id", ErrUploadFailed)
	}

	log.Debug().Str("chunk_id", payload.ID).Str("name", name).Int64("size", size).Msg("Chunk uploaded to Google Drive")
	return payload.ID, nil
}

// Download opens the chunk's content stream.
func (g *GoogleDrive) Download(ctx context.Context, account *models.Account, chunkID string) (io.ReadCloser, error) {
	token, err := g.refresher.AccessToken(ctx, account, g.OAuth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		g.BaseURL+"/drive/v3/files/"+url.PathEscape(chunkID)+"?alt=media", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChunkNotFound, err)
	}

	if resp.StatusCode != http.StatusOK {
		drainAndClose(resp.Body)
		return nil, fmt.Errorf("%w: drive download returned status %d", ErrChunkNotFound, resp.StatusCode)
	}

	return resp.Body, nil
}

// Delete removes the chunk from Drive.
func (g *GoogleDrive) Delete(ctx context.Context, account *models.Account, chunkID string) error {
	token, err := g.refresher.AccessToken(ctx, account, g.OAuth)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodDelete,
		g.BaseURL+"/drive/v3/files/"+url.PathEscape(chunkID), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
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
		return fmt.Errorf("%w: drive delete returned status %d", ErrUnavailable, resp.StatusCode)
	}
}
