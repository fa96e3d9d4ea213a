package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"opsconsole/internal/cache"
	"opsconsole/internal/database"
	"opsconsole/internal/middleware"
	"opsconsole/internal/model"
	"opsconsole/internal/notify"
	"opsconsole/internal/repository"
	"opsconsole/internal/service"
	"opsconsole/internal/session"
	"opsconsole/internal/validation"
	"opsconsole/internal/zoho"
)

func init() {
	gin.SetMode(gin.TestMode)
	binding.Validator = validation.Gin()
}

type stubSyncer struct {
	mu    sync.Mutex
	n     int
	err   error
	calls []string
}

func (s *stubSyncer) next(op string) (zoho.ExternalRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	if s.err != nil {
		return zoho.ExternalRef{}, s.err
	}
	s.n++
	return zoho.ExternalRef{ID: fmt.Sprintf("%s-%d", op, s.n)}, nil
}

func (s *stubSyncer) CreateAccount(context.Context, zoho.AccountPayload) (zoho.ExternalRef, error) {
	return s.next("acc")
}

func (s *stubSyncer) CreateCustomer(context.Context, zoho.ContactPayload) (zoho.ExternalRef, error) {
	return s.next("contact")
}

func (s *stubSyncer) CreateInventoryItem(context.Context, zoho.ItemPayload) (zoho.ExternalRef, error) {
	return s.next("item")
}

func (s *stubSyncer) CreatePriceBook(context.Context, zoho.PriceBookPayload) (zoho.ExternalRef, error) {
	return s.next("book")
}

type stubLookup struct {
	err error
}

func (l *stubLookup) ListChartOfAccounts(context.Context) ([]zoho.ChartAccount, error) {
	if l.err != nil {
		return nil, l.err
	}
	return []zoho.ChartAccount{{AccountID: "1", AccountName: "Sales", AccountType: "income"}}, nil
}

func (l *stubLookup) ListItems(context.Context) ([]zoho.Item, error) { return nil, l.err }

func (l *stubLookup) ListCurrencies(context.Context) ([]zoho.Currency, error) {
	if l.err != nil {
		return nil, l.err
	}
	return []zoho.Currency{{CurrencyID: "c1", CurrencyCode: "USD"}, {CurrencyID: "c2", CurrencyCode: "EUR"}}, nil
}

func (l *stubLookup) ListLocations(context.Context) ([]zoho.Location, error) { return nil, l.err }

type mailbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (m *mailbox) Dispatch(msg notify.Message) {
	m.mu.Lock()
	m.msgs = append(m.msgs, msg)
	m.mu.Unlock()
}

func (m *mailbox) SendNow(_ context.Context, msg notify.Message) error {
	m.Dispatch(msg)
	return nil
}

func (m *mailbox) last() notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) == 0 {
		return notify.Message{}
	}
	return m.msgs[len(m.msgs)-1]
}

type harness struct {
	router   *gin.Engine
	sessions *session.Manager
	syncer   *stubSyncer
	lookup   *stubLookup
	mail     *mailbox
	staff    *model.User
	ceo      *model.User
}

func newHarness(t *testing.T) *harness {
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

	log := zap.NewNop()
	accounts := repository.NewAccountRepository(db)
	customers := repository.NewCustomerRepository(db)
	products := repository.NewProductRepository(db)
	lists := repository.NewPriceListRepository(db)
	users := repository.NewUserRepository(db)
	codes := repository.NewLoginCodeRepository(db)
	audit := repository.NewAuditRepository(db)
	tx := repository.NewTransactionManager(db)

	h := &harness{
		sessions: session.NewManager("test-secret", time.Hour),
		syncer:   &stubSyncer{},
		lookup:   &stubLookup{},
		mail:     &mailbox{},
		staff:    &model.User{FullName: "Sam Staff", Email: "sam@example.com", Role: model.RoleStaff},
		ceo:      &model.User{FullName: "Cleo CEO", Email: "cleo@example.com", Role: model.RoleCEO},
	}
	require.NoError(t, users.Create(context.Background(), h.staff))
	require.NoError(t, users.Create(context.Background(), h.ceo))

	roles := []string{model.RoleCEO, model.RoleAdmin}
	svc := Services{
		Accounts:   service.NewAccountService(accounts, audit, tx, log),
		Customers:  service.NewCustomerService(customers, audit, tx, log),
		Products:   service.NewProductService(products, audit, tx, "sales-1", log),
		PriceLists: service.NewPriceListService(lists, audit, tx, log),
		Approvals: service.NewApprovalService(service.ApprovalDeps{
			Accounts: accounts, Customers: customers, Products: products, PriceLists: lists,
			Users: users, Audit: audit, Tx: tx,
			Syncer: h.syncer, Locker: cache.NewMemoryLocker(), Mail: h.mail,
			ApproverRoles: roles, Log: log,
		}),
		Auth:    service.NewAuthService(users, codes, audit, h.sessions, h.mail, 15*time.Minute, 3, log),
		Users:   service.NewUserService(users, audit, log),
		Lookups: service.NewLookupService(h.lookup, cache.NewMemoryStore(), time.Minute, log),
		Audit:   service.NewAuditService(audit),
	}
	h.router = NewRouter(RouterConfig{
		Log:           log,
		Gate:          middleware.NewGate(h.sessions, false),
		ApproverRoles: roles,
		Health:        map[string]Pinger{"database": sqlDB.PingContext},
	}, svc)
	return h
}

func (h *harness) token(t *testing.T, u *model.User) string {
	t.Helper()
	tok, _, err := h.sessions.Issue(u)
	require.NoError(t, err)
	return tok
}

// do sends a request as u (nil for anonymous) and returns the recorder.
func (h *harness) do(t *testing.T, method, path string, u *model.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: h.token(t, u)})
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status     string            `json:"status"`
	StatusCode int               `json:"status_code"`
	Message    string            `json:"message"`
	Data       json.RawMessage   `json:"data"`
	Count      *int64            `json:"count"`
	Errors     map[string]string `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func accountBody(code string) map[string]interface{} {
	return map[string]interface{}{
		"account_name": "Operating Bank",
		"account_code": code,
		"account_type": "bank",
	}
}
