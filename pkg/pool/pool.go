// Package pool aggregates the linked cloud accounts of a user into a single
// capacity view. Every account is probed concurrently so one slow provider
// does not stall the snapshot.
package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	"spanfs/pkg/log"
	"spanfs/pkg/models"
	"spanfs/pkg/provider"
)

// DefaultProbeTimeout bounds a single capacity probe.
const DefaultProbeTimeout = 15 * time.Second

// AccountLister supplies the linked accounts of a user.
type AccountLister interface {
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)
}

// Pool holds one adapter per provider type and probes accounts through them.
type Pool struct {
	accounts     AccountLister
	adapters     map[models.Provider]provider.Adapter
	probeTimeout time.Duration
}

// New creates a pool over the given adapters.
func New(accounts AccountLister, adapters []provider.Adapter, probeTimeout time.Duration) *Pool {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	byType := make(map[models.Provider]provider.Adapter, len(adapters))
	for _, adapter := range adapters {
		byType[adapter.Type()] = adapter
	}

	return &Pool{
		accounts:     accounts,
		adapters:     byType,
		probeTimeout: probeTimeout,
	}
}

// Adapter returns the adapter registered for the provider type.
func (p *Pool) Adapter(providerType models.Provider) (provider.Adapter, bool) {
	adapter, ok := p.adapters[providerType]
	return adapter, ok
}

// Providers lists the provider types with a registered adapter, in the
// canonical order.
func (p *Pool) Providers() []models.Provider {
	providers := make([]models.Provider, 0, len(p.adapters))
	for _, providerType := range models.AllProviders {
		if _, ok := p.adapters[providerType]; ok {
			providers = append(providers, providerType)
		}
	}
	return providers
}

// Snapshot probes every linked account of the user and returns the reachable
// ones ordered by available space, largest first. Accounts whose provider has
// no registered adapter or whose probe fails are skipped with a warning, never
// reported as errors. Ties are broken by account id so the order is stable.
func (p *Pool) Snapshot(ctx context.Context, userID string) ([]models.Candidate, error) {
	accounts, err := p.accounts.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		candidates []models.Candidate
	)

	for i := range accounts {
		account := accounts[i]

		adapter, ok := p.adapters[account.Provider]
		if !ok {
			log.Warn().Str("provider", string(account.Provider)).Int64("account_id", account.ID).
				Msg("No adapter registered for account provider, skipping")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
			defer cancel()

			available, err := adapter.AvailableBytes(probeCtx, &account)
			if err != nil {
				log.Warn().Err(err).Str("provider", string(account.Provider)).Int64("account_id", account.ID).
					Msg("Capacity probe failed, skipping account")
				return
			}

			mu.Lock()
			candidates = append(candidates, models.Candidate{
				AccountID: account.ID,
				Provider:  account.Provider,
				Available: available,
			})
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Available != candidates[j].Available {
			return candidates[i].Available > candidates[j].Available
		}
		return candidates[i].AccountID < candidates[j].AccountID
	})

	return candidates, nil
}

// Account fetches a single account by id.
func (p *Pool) Account(ctx context.Context, accountID int64) (*models.Account, error) {
	return p.accounts.GetAccount(ctx, accountID)
}
