// Package provider wraps the wire protocols of the supported cloud-storage
// services behind a uniform four-operation capability surface. Provider
// specific error shapes never leave this package; callers only see the
// sentinel errors below.
package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"spanfs/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrUnavailable is returned when an account's capacity or API call failed,
	// including when its credential could not be refreshed. Non-fatal to
	// planning; the account just contributes no capacity.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrUploadFailed is returned when a chunk's remote write failed.
	ErrUploadFailed = errors.New("upload failed")

	// ErrChunkNotFound is returned when the provider can no longer locate a
	// chunk id, or a retrieval attempt failed.
	ErrChunkNotFound = errors.New("chunk not found")
)

// Adapter is the capability contract every provider implementation satisfies.
type Adapter interface {
	// Type identifies the provider this adapter talks to.
	Type() models.Provider

	// AvailableBytes reports how many bytes the account can still store.
	AvailableBytes(ctx context.Context, account *models.Account) (int64, error)

	// Upload stores the stream under the given name and returns the
	// provider-assigned chunk id. The stream is fully consumed before return.
	Upload(ctx context.Context, account *models.Account, data io.Reader, name string, size int64) (string, error)

	// Download opens the chunk's byte stream. The caller closes it.
	Download(ctx context.Context, account *models.Account, chunkID string) (io.ReadCloser, error)

	// Delete removes the chunk from the provider.
	Delete(ctx context.Context, account *models.Account, chunkID string) error
}

// ClientOptions configures the outbound HTTP client shared by the adapters.
type ClientOptions struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// NewClient creates a retryable HTTP client for provider requests.
func NewClient(opts ClientOptions) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = nil // Disable retryablehttp logging
	// Only retry on connection/timeout errors; HTTP status errors are
	// translated into the sentinel taxonomy instead of retried.
	client.CheckRetry = retryPolicy
	return client
}

// retryPolicy retries connection/timeout errors only, never HTTP status
// errors, so provider error responses reach the translation layer intact.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	// Any response, including 4xx/5xx, is handled by the caller.
	if resp != nil {
		return false, nil
	}

	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp reports the final error itself
	}

	return false, nil
}

// drainAndClose discards any unread response body so the connection can be
// reused, then closes it.
func drainAndClose(body io.ReadCloser) {
	const maxDrain = 4 * 1024
	_, _ = io.CopyN(io.Discard, body, maxDrain)
	_ = body.Close()
}
