package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsconsole/internal/model"
)

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	tx := NewTransactionManager(db)
	repo := NewAccountRepository(db)
	audit := NewAuditRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, repo.Create(txCtx, newAccount("4000")))
		require.NoError(t, audit.Log(txCtx, &model.AuditLog{Action: model.ActionSubmit, EntityID: "x"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, total, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, total, err = audit.List(ctx, AuditFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTransactionManager_NestedCallsJoin(t *testing.T) {
	db := newTestDB(t)
	tx := NewTransactionManager(db)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	err := tx.RunInTx(ctx, func(outer context.Context) error {
		require.NoError(t, tx.RunInTx(outer, func(inner context.Context) error {
			return repo.Create(inner, newAccount("4001"))
		}))
		return errors.New("abort outer")
	})
	require.Error(t, err)

	exists, err := repo.CodeExists(ctx, "4001")
	require.NoError(t, err)
	assert.False(t, exists, "inner work is rolled back with the outer transaction")
}
