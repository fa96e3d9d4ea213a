package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"opsconsole/internal/cache"
	"opsconsole/internal/zoho"
)

// LookupService serves platform reference data to the submission forms.
type LookupService interface {
	ChartOfAccounts(ctx context.Context) ([]zoho.ChartAccount, error)
	Items(ctx context.Context) ([]zoho.Item, error)
	Currencies(ctx context.Context) ([]zoho.Currency, error)
	Locations(ctx context.Context) ([]zoho.Location, error)
}

type lookupService struct {
	source zoho.Lookup
	store  cache.Store
	ttl    time.Duration
	log    *zap.Logger
}

// NewLookupService caches each list for ttl. A zero ttl disables caching.
func NewLookupService(source zoho.Lookup, store cache.Store, ttl time.Duration, log *zap.Logger) LookupService {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &lookupService{source: source, store: store, ttl: ttl, log: named(log, "lookup")}
}

func (s *lookupService) ChartOfAccounts(ctx context.Context) ([]zoho.ChartAccount, error) {
	return cachedList(ctx, s, "chartofaccounts", s.source.ListChartOfAccounts)
}

func (s *lookupService) Items(ctx context.Context) ([]zoho.Item, error) {
	return cachedList(ctx, s, "items", s.source.ListItems)
}

func (s *lookupService) Currencies(ctx context.Context) ([]zoho.Currency, error) {
	return cachedList(ctx, s, "currencies", s.source.ListCurrencies)
}

func (s *lookupService) Locations(ctx context.Context) ([]zoho.Location, error) {
	return cachedList(ctx, s, "locations", s.source.ListLocations)
}

func cachedList[T any](ctx context.Context, s *lookupService, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if s.ttl > 0 {
		var out []T
		err := cache.GetJSON(ctx, s.store, key, &out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("lookup cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	out, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	if s.ttl > 0 {
		if err := cache.SetJSON(ctx, s.store, key, out, s.ttl); err != nil {
			s.log.Warn("lookup cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
