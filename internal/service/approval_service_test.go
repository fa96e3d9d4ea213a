package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsconsole/internal/apperror"
	"opsconsole/internal/cache"
	"opsconsole/internal/model"
	"opsconsole/internal/zoho"
)

func (f *fixture) newAccount(t *testing.T, code string) *model.Account {
	t.Helper()
	acc := &model.Account{
		Approval:    model.Approval{CreatedBy: f.staff.ID},
		AccountName: "Bank",
		AccountCode: code,
		AccountType: "bank",
	}
	require.NoError(t, f.accounts.Create(context.Background(), acc))
	return acc
}

func (f *fixture) newCustomer(t *testing.T, code string) *model.Customer {
	t.Helper()
	c := &model.Customer{
		Approval:        model.Approval{CreatedBy: f.staff.ID},
		ContactName:     "Globex",
		CompanyName:     "Globex Corp",
		CustomerSubType: model.CustomerBusiness,
		ContactPersons:  []model.ContactPerson{{FirstName: "Hank", LastName: "Scorpio", Email: "hank@globex.test"}},
		AccountName:     "Globex receivable",
		AccountCode:     code,
		AccountType:     "accounts_receivable",
	}
	require.NoError(t, f.customers.Create(context.Background(), c))
	return c
}

func TestDecide_ApproveAccountEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.newAccount(t, "1001")
	assert.Equal(t, model.StatusPending, acc.Status)

	got, err := f.approvals.Decide(ctx, model.KindAccount, acc.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.GetStatus())
	assert.Equal(t, "acc-1", got.GetExternalID())

	stored, err := f.accounts.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, stored.Status)
	assert.Equal(t, "acc-1", stored.GetExternalID())
	require.NotNil(t, stored.DecidedBy)
	assert.Equal(t, f.approver.ID, *stored.DecidedBy)
	assert.NotNil(t, stored.DecidedAt)

	require.Len(t, f.syncer.accounts, 1)
	assert.Equal(t, zoho.AccountPayload{AccountName: "Bank", AccountCode: "1001", AccountType: "bank"}, f.syncer.accounts[0])

	assert.Contains(t, f.auditActions(t, acc.ID.String()), model.ActionApprove)

	mails := f.mail.sent()
	require.Len(t, mails, 1)
	assert.Equal(t, "sam@example.com", mails[0].ToEmail)
	assert.Equal(t, "Account Approved: Bank", mails[0].Subject)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, model.KindAccount, f.events.events[0].Kind)
	assert.Equal(t, model.StatusApproved, f.events.events[0].Status)
}

func TestDecide_SyncFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.newAccount(t, "1001")
	f.syncer.accountErr = errUpstream

	_, err := f.approvals.Decide(ctx, model.KindAccount, acc.ID.String(), model.StatusApproved, f.approver)
	var syncErr *zoho.SyncError
	require.True(t, errors.As(err, &syncErr), "got %v", err)
	assert.Equal(t, 400, syncErr.StatusCode)

	stored, err := f.accounts.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Nil(t, stored.ExternalID)
	assert.NotContains(t, f.auditActions(t, acc.ID.String()), model.ActionApprove)
	assert.Empty(t, f.mail.sent())
	assert.Empty(t, f.events.events)
}

func TestDecide_TokenFailureLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := &model.Product{
		Approval: model.Approval{CreatedBy: f.staff.ID}, Name: "Widget", Unit: "pcs",
		AccountID: "sales", PurchaseAccountID: "cogs",
	}
	require.NoError(t, f.products.Create(ctx, p))
	f.syncer.itemErr = &zoho.UpstreamAuthError{StatusCode: 400, Reason: "invalid_code"}

	_, err := f.approvals.Decide(ctx, model.KindProduct, p.ID.String(), model.StatusApproved, f.approver)
	var authErr *zoho.UpstreamAuthError
	require.True(t, errors.As(err, &authErr))

	stored, err := f.products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestDecide_RejectNeverSyncs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.newAccount(t, "1001")

	got, err := f.approvals.Decide(ctx, model.KindAccount, acc.ID.String(), model.StatusRejected, f.approver)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.GetStatus())
	assert.Empty(t, got.GetExternalID())
	assert.Zero(t, f.syncer.calls())
	assert.Contains(t, f.auditActions(t, acc.ID.String()), model.ActionReject)

	mails := f.mail.sent()
	require.Len(t, mails, 1)
	assert.Equal(t, "Account Rejected: Bank", mails[0].Subject)
}

func TestDecide_TerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.newAccount(t, "1001")

	_, err := f.approvals.Decide(ctx, model.KindAccount, acc.ID.String(), model.StatusRejected, f.approver)
	require.NoError(t, err)

	for _, status := range []model.Status{model.StatusApproved, model.StatusRejected} {
		_, err = f.approvals.Decide(ctx, model.KindAccount, acc.ID.String(), status, f.approver)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	}
	stored, err := f.accounts.FindByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, stored.Status)
	assert.Zero(t, f.syncer.calls())
}

func TestDecide_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.newAccount(t, "1001")
	id := acc.ID.String()

	_, err := f.approvals.Decide(ctx, model.KindAccount, id, model.StatusApproved, f.staff)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.approvals.Decide(ctx, model.KindAccount, id, model.StatusApproved, model.Actor{})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.approvals.Decide(ctx, model.KindAccount, id, model.StatusPending, f.approver)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.approvals.Decide(ctx, model.Kind("invoice"), id, model.StatusApproved, f.approver)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.approvals.Decide(ctx, model.KindAccount, "not-a-uuid", model.StatusApproved, f.approver)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.approvals.Decide(ctx, model.KindAccount, uuid.NewString(), model.StatusApproved, f.approver)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	admin := f.approver
	admin.Role = "ADMIN"
	_, err = f.approvals.Decide(ctx, model.KindAccount, id, model.StatusRejected, admin)
	assert.NoError(t, err)
	assert.Zero(t, f.syncer.calls())
}

func TestDecide_LockContention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	locker := cache.NewMemoryLocker()
	deps := f.deps()
	deps.Locker = locker
	svc := NewApprovalService(deps)

	acc := f.newAccount(t, "1001")
	release, err := locker.Acquire(ctx, "approval:account:"+acc.ID.String(), time.Minute)
	require.NoError(t, err)

	_, err = svc.Decide(ctx, model.KindAccount, acc.ID.String(), model.StatusApproved, f.approver)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Zero(t, f.syncer.calls())

	release()
	_, err = svc.Decide(ctx, model.KindAccount, acc.ID.String(), model.StatusApproved, f.approver)
	assert.NoError(t, err)
}

func TestDecide_CustomerCreatesAccountThenContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newCustomer(t, "1200")

	got, err := f.approvals.Decide(ctx, model.KindCustomer, c.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)
	assert.Equal(t, "contact-1", got.GetExternalID())

	require.Len(t, f.syncer.accounts, 1)
	assert.Equal(t, "1200", f.syncer.accounts[0].AccountCode)
	require.Len(t, f.syncer.contacts, 1)
	contact := f.syncer.contacts[0]
	assert.Equal(t, "acc-1", contact.AccountID)
	assert.Equal(t, "customer", contact.ContactType)
	assert.Equal(t, "Globex Corp", contact.CompanyName)
	require.Len(t, contact.ContactPersons, 1)
	assert.True(t, contact.ContactPersons[0].IsPrimaryContact)

	stored, err := f.customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, stored.Status)
	require.NotNil(t, stored.ExternalAccountID)
	assert.Equal(t, "acc-1", *stored.ExternalAccountID)
	assert.Contains(t, f.auditActions(t, c.ID.String()), model.ActionSync)
}

func TestDecide_CustomerNestedAccountFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newCustomer(t, "1200")
	f.syncer.accountErr = errUpstream

	_, err := f.approvals.Decide(ctx, model.KindCustomer, c.ID.String(), model.StatusApproved, f.approver)
	var syncErr *zoho.SyncError
	require.True(t, errors.As(err, &syncErr))
	assert.Empty(t, f.syncer.contacts, "no contact call after the account failed")

	stored, err := f.customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Nil(t, stored.ExternalAccountID)
}

func TestDecide_CustomerRetryReusesCreatedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.newCustomer(t, "1200")
	f.syncer.contactErr = errUpstream

	_, err := f.approvals.Decide(ctx, model.KindCustomer, c.ID.String(), model.StatusApproved, f.approver)
	require.Error(t, err)

	stored, err := f.customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	require.NotNil(t, stored.ExternalAccountID)

	f.syncer.contactErr = nil
	_, err = f.approvals.Decide(ctx, model.KindCustomer, c.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)
	assert.Len(t, f.syncer.accounts, 1, "the chart account is created once")
	require.Len(t, f.syncer.contacts, 1)
	assert.Equal(t, "acc-1", f.syncer.contacts[0].AccountID)
}

func TestDecide_CustomerReusesApprovedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.newAccount(t, "1200")
	_, err := f.approvals.Decide(ctx, model.KindAccount, acc.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)

	c := f.newCustomer(t, "1200")
	_, err = f.approvals.Decide(ctx, model.KindCustomer, c.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)

	assert.Len(t, f.syncer.accounts, 1)
	require.Len(t, f.syncer.contacts, 1)
	assert.Equal(t, "acc-1", f.syncer.contacts[0].AccountID)
}

func TestDecide_CustomerWaitsForPendingAccountWithSameCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.newAccount(t, "1200")
	c := f.newCustomer(t, "1200")

	_, err := f.approvals.Decide(ctx, model.KindCustomer, c.ID.String(), model.StatusApproved, f.approver)
	assert.Contains(t, fieldErrors(t, err)["account_code"], "awaiting review")
	assert.Empty(t, f.syncer.accounts)
	assert.Empty(t, f.syncer.contacts)

	stored, err := f.customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)

	// Once the account is decided the customer goes through and reuses it.
	_, err = f.approvals.Decide(ctx, model.KindAccount, acc.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)
	_, err = f.approvals.Decide(ctx, model.KindCustomer, c.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)
	assert.Len(t, f.syncer.accounts, 1)
	require.Len(t, f.syncer.contacts, 1)
	assert.Equal(t, "acc-1", f.syncer.contacts[0].AccountID)
}

func TestDecide_ProductAndPriceListPayloads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reorder := 5
	p := &model.Product{
		Approval: model.Approval{CreatedBy: f.staff.ID},
		Name:     "Widget", Unit: "pcs",
		Rate: decimal.RequireFromString("12.50"), AccountID: "sales",
		PurchaseRate: decimal.RequireFromString("7.25"), PurchaseAccountID: "cogs",
		TrackInventory: true, InventoryAccountID: "stock", InventoryValuationMethod: model.ValuationFIFO,
		ReorderLevel: &reorder, ReturnableItem: true,
	}
	require.NoError(t, f.products.Create(ctx, p))

	got, err := f.approvals.Decide(ctx, model.KindProduct, p.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)
	assert.Equal(t, "item-1", got.GetExternalID())
	require.Len(t, f.syncer.items, 1)
	item := f.syncer.items[0]
	assert.Equal(t, 12.5, item.Rate)
	assert.Equal(t, 7.25, item.PurchaseRate)
	assert.Equal(t, "inventory", item.ItemType)
	assert.Equal(t, "stock", item.InventoryAccountID)
	assert.Equal(t, "fifo", item.InventoryValuationMethod)
	assert.True(t, item.IsReturnable)
	require.NotNil(t, item.ReorderLevel)
	assert.Equal(t, 5, *item.ReorderLevel)

	pct := decimal.NewFromInt(15)
	pl := &model.PriceList{
		Approval: model.Approval{CreatedBy: f.staff.ID},
		Name:     "Wholesale", CurrencyID: "usd", SalesOrPurchaseType: "sales",
		RoundingType: model.RoundingNone, PricebookType: model.PricebookFixedPercentage,
		Percentage: &pct,
	}
	require.NoError(t, f.lists.Create(ctx, pl))

	_, err = f.approvals.Decide(ctx, model.KindPriceList, pl.ID.String(), model.StatusApproved, f.approver)
	require.NoError(t, err)
	require.Len(t, f.syncer.books, 1)
	book := f.syncer.books[0]
	assert.Equal(t, "active", book.Status)
	require.NotNil(t, book.Percentage)
	assert.Equal(t, 15.0, *book.Percentage)
	require.NotNil(t, book.IsIncrease)
	assert.True(t, *book.IsIncrease)
	assert.Empty(t, book.PricebookItems)
}

func TestPriceBookPayloadPerItem(t *testing.T) {
	out := priceBookPayload(&model.PriceList{
		Name: "Retail", PricebookType: model.PricebookPerItem,
		PricebookItems: []model.PricebookItem{{ItemID: "i1", PricebookRate: decimal.RequireFromString("3.10")}},
	})
	assert.Nil(t, out.Percentage)
	assert.Nil(t, out.IsIncrease)
	assert.Equal(t, []zoho.PriceBookItemPayload{{ItemID: "i1", PricebookRate: 3.1}}, out.PricebookItems)
}
