package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opsconsole/internal/cache"
	"opsconsole/internal/zoho"
)

type fakeLookup struct {
	calls int
	err   error
}

func (f *fakeLookup) ListChartOfAccounts(context.Context) ([]zoho.ChartAccount, error) {
	f.calls++
	return []zoho.ChartAccount{{AccountID: "1", AccountName: "Sales"}}, f.err
}

func (f *fakeLookup) ListItems(context.Context) ([]zoho.Item, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeLookup) ListCurrencies(context.Context) ([]zoho.Currency, error) {
	f.calls++
	return []zoho.Currency{{CurrencyID: "c1", CurrencyCode: "USD"}}, f.err
}

func (f *fakeLookup) ListLocations(context.Context) ([]zoho.Location, error) {
	f.calls++
	return []zoho.Location{{LocationID: "l1"}}, f.err
}

func TestLookupService_Caches(t *testing.T) {
	src := &fakeLookup{}
	svc := NewLookupService(src, cache.NewMemoryStore(), time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := svc.Currencies(ctx)
		require.NoError(t, err)
		assert.Equal(t, "USD", got[0].CurrencyCode)
	}
	assert.Equal(t, 1, src.calls)

	items, err := svc.Items(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	_, err = svc.ChartOfAccounts(ctx)
	require.NoError(t, err)
	_, err = svc.Locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, src.calls)
}

func TestLookupService_NoCacheAndErrors(t *testing.T) {
	src := &fakeLookup{}
	svc := NewLookupService(src, nil, 0, zap.NewNop())
	ctx := context.Background()

	_, _ = svc.Locations(ctx)
	_, _ = svc.Locations(ctx)
	assert.Equal(t, 2, src.calls)

	src.err = &zoho.SyncError{Operation: "list locations", StatusCode: 500}
	_, err := svc.Locations(ctx)
	var syncErr *zoho.SyncError
	assert.True(t, errors.As(err, &syncErr))
}
