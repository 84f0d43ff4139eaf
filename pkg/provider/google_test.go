package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"spanfs/pkg/models"

	"github.com/stretchr/testify/suite"
)

func testClientOptions() ClientOptions {
	return ClientOptions{
		RetryMax:     1,
		RetryWaitMin: 10 * time.Millisecond,
		RetryWaitMax: 50 * time.Millisecond,
		Timeout:      5 * time.Second,
	}
}

// fakeTokenStore records refreshed tokens in memory.
type fakeTokenStore struct {
	mu      sync.Mutex
	updates map[int64]string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{updates: make(map[int64]string)}
}

func (f *fakeTokenStore) UpdateAccountToken(_ context.Context, accountID int64, accessToken string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[accountID] = accessToken
	return nil
}

func (f *fakeTokenStore) tokenFor(accountID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[accountID]
}

// GoogleDriveTestSuite tests the Google Drive adapter against a mock API.
type GoogleDriveTestSuite struct {
	suite.Suite
	server     *httptest.Server
	adapter    *GoogleDrive
	tokenStore *fakeTokenStore

	mu       sync.Mutex
	uploads  map[string][]byte
	refreshN int
}

func (s *GoogleDriveTestSuite) SetupTest() {
	s.tokenStore = newFakeTokenStore()
	s.uploads = make(map[string][]byte)
	s.refreshN = 0

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.refreshN++
		s.mu.Unlock()
		if r.FormValue("grant_type") != "refresh_token" || r.FormValue("refresh_token") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh-token", "expires_in": 3600})
	})
	mux.HandleFunc("/drive/v3/about", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer valid-token" && r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"storageQuota": map[string]string{"limit": "1000", "usage": "300"},
		})
	})
	mux.HandleFunc("/upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		mediaType := r.Header.Get("Content-Type")
		if !strings.HasPrefix(mediaType, "multipart/related") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.uploads["drive-id-1"] = body
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": "drive-id-1"})
	})
	mux.HandleFunc("/drive/v3/files/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/drive/v3/files/")
		switch r.Method {
		case http.MethodGet:
			if id == "known-chunk" {
				w.Write([]byte("chunk-bytes"))
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case http.MethodDelete:
			if id == "known-chunk" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}
	})
	s.server = httptest.NewServer(mux)

	refresher := NewRefresher(s.tokenStore, NewClient(testClientOptions()))
	s.adapter = NewGoogleDrive("client-id", "client-secret", refresher, testClientOptions())
	s.adapter.BaseURL = s.server.URL
	s.adapter.OAuth.TokenURL = s.server.URL + "/token"
}

func (s *GoogleDriveTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *GoogleDriveTestSuite) validAccount() *models.Account {
	return &models.Account{
		ID:           1,
		UserID:       "alice",
		Provider:     models.ProviderGoogle,
		AccessToken:  "valid-token",
		RefreshToken: "refresh-token",
		Expiry:       time.Now().Add(time.Hour),
	}
}

func (s *GoogleDriveTestSuite) TestAvailableBytes() {
	available, err := s.adapter.AvailableBytes(context.Background(), s.validAccount())
	s.Require().NoError(err)
	s.Equal(int64(700), available)
}

func (s *GoogleDriveTestSuite) TestAvailableBytesRefreshesExpiredToken() {
	account := s.validAccount()
	account.AccessToken = "stale-token"
	account.Expiry = time.Now().Add(-time.Minute)

	available, err := s.adapter.AvailableBytes(context.Background(), account)
	s.Require().NoError(err)
	s.Equal(int64(700), available)

	// Refreshed token was persisted and written back to the account.
	s.Equal("fresh-token", account.AccessToken)
	s.Equal("fresh-token", s.tokenStore.tokenFor(account.ID))

	s.mu.Lock()
	refreshes := s.refreshN
	s.mu.Unlock()
	s.Equal(1, refreshes)
}

func (s *GoogleDriveTestSuite) TestAvailableBytesUnreachable() {
	s.adapter.BaseURL = "http://127.0.0.1:1"

	_, err := s.adapter.AvailableBytes(context.Background(), s.validAccount())
	s.ErrorIs(err, ErrUnavailable)
}

func (s *GoogleDriveTestSuite) TestUploadRoundTrip() {
	payload := strings.Repeat("x", 4096)

	chunkID, err := s.adapter.Upload(context.Background(), s.validAccount(),
		strings.NewReader(payload), "file.part1", int64(len(payload)))
	s.Require().NoError(err)
	s.Equal("drive-id-1", chunkID)

	// The multipart body carries the chunk bytes and the name metadata.
	s.mu.Lock()
	body := string(s.uploads["drive-id-1"])
	s.mu.Unlock()
	s.Contains(body, payload)
	s.Contains(body, `"name":"file.part1"`)
}

func (s *GoogleDriveTestSuite) TestDownloadKnownChunk() {
	stream, err := s.adapter.Download(context.Background(), s.validAccount(), "known-chunk")
	s.Require().NoError(err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	s.Require().NoError(err)
	s.Equal("chunk-bytes", string(data))
}

func (s *GoogleDriveTestSuite) TestDownloadMissingChunk() {
	_, err := s.adapter.Download(context.Background(), s.validAccount(), "missing")
	s.ErrorIs(err, ErrChunkNotFound)
}

func (s *GoogleDriveTestSuite) TestDelete() {
	s.NoError(s.adapter.Delete(context.Background(), s.validAccount(), "known-chunk"))
	s.ErrorIs(s.adapter.Delete(context.Background(), s.validAccount(), "missing"), ErrChunkNotFound)
}

func TestGoogleDriveTestSuite(t *testing.T) {
	suite.Run(t, new(GoogleDriveTestSuite))
}
