package pool

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"spanfs/pkg/models"
	"spanfs/pkg/provider"

	"github.com/stretchr/testify/suite"
)

type fakeLister struct {
	accounts []models.Account
	err      error
}

func (f *fakeLister) ListAccounts(_ context.Context, _ string) ([]models.Account, error) {
	return f.accounts, f.err
}

func (f *fakeLister) GetAccount(_ context.Context, accountID int64) (*models.Account, error) {
	for i := range f.accounts {
		if f.accounts[i].ID == accountID {
			return &f.accounts[i], nil
		}
	}
	return nil, errors.New("no such account")
}

// fakeAdapter reports canned capacity per account id.
type fakeAdapter struct {
	providerType models.Provider
	available    map[int64]int64
	err          error
}

func (f *fakeAdapter) Type() models.Provider {
	return f.providerType
}

func (f *fakeAdapter) AvailableBytes(_ context.Context, account *models.Account) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.available[account.ID], nil
}

func (f *fakeAdapter) Upload(_ context.Context, _ *models.Account, _ io.Reader, _ string, _ int64) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeAdapter) Download(_ context.Context, _ *models.Account, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) Delete(_ context.Context, _ *models.Account, _ string) error {
	return errors.New("not implemented")
}

type PoolTestSuite struct {
	suite.Suite
	lister *fakeLister
}

func (s *PoolTestSuite) SetupTest() {
	s.lister = &fakeLister{accounts: []models.Account{
		{ID: 1, UserID: "alice", Provider: models.ProviderGoogle},
		{ID: 2, UserID: "alice", Provider: models.ProviderDropbox},
		{ID: 3, UserID: "alice", Provider: models.ProviderOneDrive},
	}}
}

func (s *PoolTestSuite) TestSnapshotOrdersByAvailable() {
	pool := New(s.lister, []provider.Adapter{
		&fakeAdapter{providerType: models.ProviderGoogle, available: map[int64]int64{1: 100}},
		&fakeAdapter{providerType: models.ProviderDropbox, available: map[int64]int64{2: 400}},
		&fakeAdapter{providerType: models.ProviderOneDrive, available: map[int64]int64{3: 250}},
	}, time.Second)

	candidates, err := pool.Snapshot(context.Background(), "alice")
	s.Require().NoError(err)
	s.Require().Len(candidates, 3)
	s.Equal([]int64{2, 3, 1}, []int64{candidates[0].AccountID, candidates[1].AccountID, candidates[2].AccountID})
	s.Equal(int64(400), candidates[0].Available)
}

func (s *PoolTestSuite) TestSnapshotTieBreaksByAccountID() {
	pool := New(s.lister, []provider.Adapter{
		&fakeAdapter{providerType: models.ProviderGoogle, available: map[int64]int64{1: 300}},
		&fakeAdapter{providerType: models.ProviderDropbox, available: map[int64]int64{2: 300}},
		&fakeAdapter{providerType: models.ProviderOneDrive, available: map[int64]int64{3: 300}},
	}, time.Second)

	candidates, err := pool.Snapshot(context.Background(), "alice")
	s.Require().NoError(err)
	s.Require().Len(candidates, 3)
	s.Equal([]int64{1, 2, 3}, []int64{candidates[0].AccountID, candidates[1].AccountID, candidates[2].AccountID})
}

func (s *PoolTestSuite) TestSnapshotSkipsFailedProbes() {
	pool := New(s.lister, []provider.Adapter{
		&fakeAdapter{providerType: models.ProviderGoogle, available: map[int64]int64{1: 100}},
		&fakeAdapter{providerType: models.ProviderDropbox, err: provider.ErrUnavailable},
		&fakeAdapter{providerType: models.ProviderOneDrive, available: map[int64]int64{3: 250}},
	}, time.Second)

	candidates, err := pool.Snapshot(context.Background(), "alice")
	s.Require().NoError(err)
	s.Require().Len(candidates, 2)
	s.Equal(int64(3), candidates[0].AccountID)
	s.Equal(int64(1), candidates[1].AccountID)
}

func (s *PoolTestSuite) TestSnapshotSkipsUnknownProvider() {
	pool := New(s.lister, []provider.Adapter{
		&fakeAdapter{providerType: models.ProviderGoogle, available: map[int64]int64{1: 100}},
	}, time.Second)

	candidates, err := pool.Snapshot(context.Background(), "alice")
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal(int64(1), candidates[0].AccountID)
}

func (s *PoolTestSuite) TestSnapshotListError() {
	s.lister.err = errors.New("database closed")
	pool := New(s.lister, nil, time.Second)

	_, err := pool.Snapshot(context.Background(), "alice")
	s.Error(err)
}

func (s *PoolTestSuite) TestProviders() {
	pool := New(s.lister, []provider.Adapter{
		&fakeAdapter{providerType: models.ProviderOneDrive},
		&fakeAdapter{providerType: models.ProviderGoogle},
	}, time.Second)

	s.Equal([]models.Provider{models.ProviderGoogle, models.ProviderOneDrive}, pool.Providers())
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}
