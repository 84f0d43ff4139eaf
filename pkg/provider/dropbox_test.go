package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spanfs/pkg/models"

	"github.com/stretchr/testify/suite"
)

// DropboxTestSuite tests the Dropbox adapter against a mock API.
type DropboxTestSuite struct {
	suite.Suite
	server  *httptest.Server
	adapter *Dropbox
}

func (s *DropboxTestSuite) SetupTest() {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/get_space_usage", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"used":       int64(250),
			"allocation": map[string]any{"allocated": int64(1000)},
		})
	})
	mux.HandleFunc("/2/files/upload", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg); err != nil || arg.Path == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "id:dropbox-1", "path_display": arg.Path})
	})
	mux.HandleFunc("/2/files/download", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg)
		if arg.Path != "id:dropbox-1" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.Write([]byte("dropbox-chunk"))
	})
	mux.HandleFunc("/2/files/delete_v2", func(w http.ResponseWriter, r *http.Request) {
		var arg struct {
			Path string `json:"path"`
		}
		json.NewDecoder(r.Body).Decode(&arg)
		if arg.Path != "id:dropbox-1" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.Write([]byte("{}"))
	})
	s.server = httptest.NewServer(mux)

	refresher := NewRefresher(newFakeTokenStore(), NewClient(testClientOptions()))
	s.adapter = NewDropbox("client-id", "client-secret", refresher, testClientOptions())
	s.adapter.APIBase = s.server.URL
	s.adapter.ContentBase = s.server.URL
}

func (s *DropboxTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *DropboxTestSuite) account() *models.Account {
	return &models.Account{
		ID:          2,
		UserID:      "alice",
		Provider:    models.ProviderDropbox,
		AccessToken: "valid-token",
		Expiry:      time.Now().Add(time.Hour),
	}
}

func (s *DropboxTestSuite) TestAvailableBytes() {
	available, err := s.adapter.AvailableBytes(context.Background(), s.account())
	s.Require().NoError(err)
	s.Equal(int64(750), available)
}

func (s *DropboxTestSuite) TestUploadDownloadDelete() {
	ctx := context.Background()

	chunkID, err := s.adapter.Upload(ctx, s.account(), strings.NewReader("payload"), "file.part1", 7)
	s.Require().NoError(err)
	s.Equal("id:dropbox-1", chunkID)

	stream, err := s.adapter.Download(ctx, s.account(), chunkID)
	s.Require().NoError(err)
	data, err := io.ReadAll(stream)
	stream.Close()
	s.Require().NoError(err)
	s.Equal("dropbox-chunk", string(data))

	s.NoError(s.adapter.Delete(ctx, s.account(), chunkID))
}

func (s *DropboxTestSuite) TestDownloadMissingChunk() {
	_, err := s.adapter.Download(context.Background(), s.account(), "id:gone")
	s.ErrorIs(err, ErrChunkNotFound)
}

func (s *DropboxTestSuite) TestDeleteMissingChunk() {
	err := s.adapter.Delete(context.Background(), s.account(), "id:gone")
	s.ErrorIs(err, ErrChunkNotFound)
}

func TestDropboxTestSuite(t *testing.T) {
	suite.Run(t, new(DropboxTestSuite))
}
