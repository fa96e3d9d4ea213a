package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"opsconsole/internal/database"
	"opsconsole/internal/model"
	"opsconsole/internal/notify"
	"opsconsole/internal/repository"
	"opsconsole/internal/zoho"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// fakeSyncer records calls and returns canned results per operation.
type fakeSyncer struct {
	mu       sync.Mutex
	accounts []zoho.AccountPayload
	contacts []zoho.ContactPayload
	items    []zoho.ItemPayload
	books    []zoho.PriceBookPayload

	accountErr, contactErr, itemErr, bookErr error
}

func (f *fakeSyncer) CreateAccount(_ context.Context, p zoho.AccountPayload) (zoho.ExternalRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountErr != nil {
		return zoho.ExternalRef{}, f.accountErr
	}
	f.accounts = append(f.accounts, p)
	return zoho.ExternalRef{ID: fmt.Sprintf("acc-%d", len(f.accounts))}, nil
}

func (f *fakeSyncer) CreateCustomer(_ context.Context, p zoho.ContactPayload) (zoho.ExternalRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contactErr != nil {
		return zoho.ExternalRef{}, f.contactErr
	}
	f.contacts = append(f.contacts, p)
	return zoho.ExternalRef{ID: fmt.Sprintf("contact-%d", len(f.contacts))}, nil
}

func (f *fakeSyncer) CreateInventoryItem(_ context.Context, p zoho.ItemPayload) (zoho.ExternalRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.itemErr != nil {
		return zoho.ExternalRef{}, f.itemErr
	}
	f.items = append(f.items, p)
	return zoho.ExternalRef{ID: fmt.Sprintf("item-%d", len(f.items))}, nil
}

func (f *fakeSyncer) CreatePriceBook(_ context.Context, p zoho.PriceBookPayload) (zoho.ExternalRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bookErr != nil {
		return zoho.ExternalRef{}, f.bookErr
	}
	f.books = append(f.books, p)
	return zoho.ExternalRef{ID: fmt.Sprintf("book-%d", len(f.books))}, nil
}

func (f *fakeSyncer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accounts) + len(f.contacts) + len(f.items) + len(f.books)
}

type recordingMail struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recordingMail) Dispatch(msg notify.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recordingMail) SendNow(_ context.Context, msg notify.Message) error {
	if r.err != nil {
		return r.err
	}
	r.Dispatch(msg)
	return nil
}

func (r *recordingMail) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type recordingEvents struct {
	events []DecisionEvent
}

func (r *recordingEvents) PublishDecision(e DecisionEvent) { r.events = append(r.events, e) }

var errUpstream = &zoho.SyncError{Operation: "create", StatusCode: 400, Code: 1001, Message: "account code exists"}

// fixture wires the services over one sqlite database.
type fixture struct {
	db        *gorm.DB
	accounts  repository.AccountRepository
	customers repository.CustomerRepository
	products  repository.EntityRepository[model.Product]
	lists     repository.EntityRepository[model.PriceList]
	users     repository.UserRepository
	audit     repository.AuditRepository
	tx        repository.TransactionManager

	syncer *fakeSyncer
	mail   *recordingMail
	events *recordingEvents

	approvals ApprovalService
	staff     model.Actor
	approver  model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:        db,
		accounts:  repository.NewAccountRepository(db),
		customers: repository.NewCustomerRepository(db),
		products:  repository.NewProductRepository(db),
		lists:     repository.NewPriceListRepository(db),
		users:     repository.NewUserRepository(db),
		audit:     repository.NewAuditRepository(db),
		tx:        repository.NewTransactionManager(db),
		syncer:    &fakeSyncer{},
		mail:      &recordingMail{},
		events:    &recordingEvents{},
	}

	ctx := context.Background()
	staff := &model.User{FullName: "Sam Staff", Email: "sam@example.com", Role: model.RoleStaff}
	ceo := &model.User{FullName: "Cleo CEO", Email: "cleo@example.com", Role: model.RoleCEO}
	require.NoError(t, f.users.Create(ctx, staff))
	require.NoError(t, f.users.Create(ctx, ceo))
	f.staff = model.Actor{ID: staff.ID, Email: staff.Email, FullName: staff.FullName, Role: staff.Role}
	f.approver = model.Actor{ID: ceo.ID, Email: ceo.Email, FullName: ceo.FullName, Role: ceo.Role}

	f.approvals = NewApprovalService(f.deps())
	return f
}

func (f *fixture) deps() ApprovalDeps {
	return ApprovalDeps{
		Accounts:      f.accounts,
		Customers:     f.customers,
		Products:      f.products,
		PriceLists:    f.lists,
		Users:         f.users,
		Audit:         f.audit,
		Tx:            f.tx,
		Syncer:        f.syncer,
		Mail:          f.mail,
		Events:        f.events,
		ApproverRoles: []string{"ceo", "admin"},
		OrgName:       "Acme",
		Log:           zap.NewNop(),
	}
}

func (f *fixture) auditActions(t *testing.T, entityID string) []string {
	t.Helper()
	logs, _, err := f.audit.List(context.Background(), repository.AuditFilter{EntityID: entityID, Page: 1, Limit: 50})
	require.NoError(t, err)
	var out []string
	for _, l := range logs {
		out = append(out, l.Action)
	}
	return out
}

