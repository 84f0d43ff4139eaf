package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"spanfs/pkg/models"

	"github.com/stretchr/testify/suite"
)

// FileInfoTestSuite tests the file info and storage info handlers.
type FileInfoTestSuite struct {
	suite.Suite
	env *serverTestEnv
}

func (s *FileInfoTestSuite) SetupTest() {
	s.env = newServerTestEnv(s.T())
}

func (s *FileInfoTestSuite) TestFileInfoSuccess() {
	id, err := s.env.files.Upload(context.Background(), "alice", "a.txt", 2, bytes.NewReader([]byte("hi")))
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodGet, "/file/"+fmt.Sprint(id)+"/info", nil)
	req.Header.Set(userIDHeader, "alice")
	rec := httptest.NewRecorder()
	c := s.env.server.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(id))
	s.NoError(s.env.server.getFileInfo(c))
	s.Equal(http.StatusOK, rec.Code)

	var response models.FileInfoResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Equal(id, response.File.ID)
}

func (s *FileInfoTestSuite) TestFileInfoNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/file/42/info", nil)
	req.Header.Set(userIDHeader, "alice")
	rec := httptest.NewRecorder()
	c := s.env.server.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")
	s.NoError(s.env.server.getFileInfo(c))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *FileInfoTestSuite) TestStorageInfo() {
	s.env.files.storageInfo = &models.StorageInfoResponse{
		Accounts: []models.Candidate{
			{AccountID: 1, Provider: models.ProviderGoogle, Available: 100},
		},
		TotalAvailable: 100,
	}

	req := httptest.NewRequest(http.MethodGet, "/storage/info", nil)
	req.Header.Set(userIDHeader, "alice")
	rec := httptest.NewRecorder()
	c := s.env.server.echo.NewContext(req, rec)
	s.NoError(s.env.server.getStorageInfo(c))
	s.Equal(http.StatusOK, rec.Code)

	var response models.StorageInfoResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &response))
	s.Equal(int64(100), response.TotalAvailable)
	s.Require().Len(response.Accounts, 1)
}

func TestFileInfoTestSuite(t *testing.T) {
	suite.Run(t, new(FileInfoTestSuite))
}
