package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opsconsole/internal/apperror"
	"opsconsole/internal/cache"
	"opsconsole/internal/model"
	"opsconsole/internal/notify"
	"opsconsole/internal/repository"
	"opsconsole/internal/zoho"
)

// DefaultLockTTL bounds how long one decision may hold its entity. It must
// outlast the slowest sync chain (two platform calls).
const DefaultLockTTL = 2 * time.Minute

// MailDispatcher queues an e-mail without waiting for delivery.
type MailDispatcher interface {
	Dispatch(msg notify.Message)
}

// EventPublisher fans a decision out to live dashboards.
type EventPublisher interface {
	PublishDecision(event DecisionEvent)
}

type DecisionEvent struct {
	Type       string       `json:"type"`
	Kind       model.Kind   `json:"kind"`
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Status     model.Status `json:"status"`
	ExternalID string       `json:"external_id,omitempty"`
	DecidedBy  string       `json:"decided_by"`
	DecidedAt  time.Time    `json:"decided_at"`
}

type ApprovalService interface {
	// Decide moves a pending entity to approved or rejected. Approval syncs the
	// entity to the platform first; if that fails nothing is written locally.
	Decide(ctx context.Context, kind model.Kind, id string, status model.Status, actor model.Actor) (model.Approvable, error)
}

type ApprovalDeps struct {
	Accounts   repository.AccountRepository
	Customers  repository.CustomerRepository
	Products   repository.EntityRepository[model.Product]
	PriceLists repository.EntityRepository[model.PriceList]
	Users      repository.UserRepository
	Audit      repository.AuditRepository
	Tx         repository.TransactionManager

	Syncer zoho.Syncer
	Locker cache.Locker
	Mail   MailDispatcher
	Events EventPublisher

	ApproverRoles []string
	LockTTL       time.Duration
	OrgName       string
	AppURL        string
	Log           *zap.Logger
	Now           func() time.Time
}

type approvalService struct {
	deps       ApprovalDeps
	approvers  map[string]bool
	strategies map[model.Kind]decider
	log        *zap.Logger
}

func NewApprovalService(deps ApprovalDeps) ApprovalService {
	if deps.Locker == nil {
		deps.Locker = cache.NewMemoryLocker()
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = DefaultLockTTL
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &approvalService{
		deps:      deps,
		approvers: make(map[string]bool, len(deps.ApproverRoles)),
		log:       named(deps.Log, "approval"),
	}
	for _, r := range deps.ApproverRoles {
		s.approvers[strings.ToLower(strings.TrimSpace(r))] = true
	}
	s.strategies = map[model.Kind]decider{
		model.KindAccount:   strategy[model.Account, *model.Account]{repo: deps.Accounts, sync: s.syncAccount},
		model.KindCustomer:  strategy[model.Customer, *model.Customer]{repo: deps.Customers, sync: s.syncCustomer},
		model.KindProduct:   strategy[model.Product, *model.Product]{repo: deps.Products, sync: s.syncProduct},
		model.KindPriceList: strategy[model.PriceList, *model.PriceList]{repo: deps.PriceLists, sync: s.syncPriceList},
	}
	return s
}

// decider is the kind-specific part of a decision.
type decider interface {
	loadPending(ctx context.Context, id uuid.UUID) (model.Approvable, error)
	push(ctx context.Context, e model.Approvable) (string, error)
	finish(ctx context.Context, id uuid.UUID, status model.Status, extra map[string]interface{}) (model.Approvable, error)
}

type strategy[T any, P interface {
	*T
	model.Approvable
}] struct {
	repo repository.EntityRepository[T]
	sync func(ctx context.Context, e P) (string, error)
}

func (s strategy[T, P]) loadPending(ctx context.Context, id uuid.UUID) (model.Approvable, error) {
	e, err := s.repo.FindPendingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return P(e), nil
}

func (s strategy[T, P]) push(ctx context.Context, e model.Approvable) (string, error) {
	return s.sync(ctx, e.(P))
}

func (s strategy[T, P]) finish(ctx context.Context, id uuid.UUID, status model.Status, extra map[string]interface{}) (model.Approvable, error) {
	e, err := s.repo.UpdateStatus(ctx, id, status, extra)
	if err != nil {
		return nil, err
	}
	return P(e), nil
}

func (s *approvalService) Decide(ctx context.Context, kind model.Kind, id string, status model.Status, actor model.Actor) (model.Approvable, error) {
	if actor.ID == uuid.Nil {
		return nil, apperror.ErrUnauthorized
	}
	if !s.approvers[strings.ToLower(actor.Role)] {
		return nil, fmt.Errorf("role %q may not decide: %w", actor.Role, apperror.ErrForbidden)
	}
	if !status.IsDecision() {
		return nil, apperror.NewValidation("status", "must be one of: approved, rejected")
	}
	st, ok := s.strategies[kind]
	if !ok {
		return nil, apperror.NewValidation("kind", "unknown entity kind")
	}
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	release, err := s.deps.Locker.Acquire(ctx, fmt.Sprintf("approval:%s:%s", kind, uid), s.deps.LockTTL)
	if errors.Is(err, cache.ErrLocked) {
		return nil, fmt.Errorf("%s %s is being decided: %w", kind, uid, apperror.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	defer release()

	entity, err := st.loadPending(ctx, uid)
	if err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.String("kind", string(kind)),
		zap.String("id", uid.String()),
		zap.String("status", string(status)),
		zap.String("actor", actor.ID.String()),
	)

	now := s.deps.Now().UTC()
	extra := map[string]interface{}{
		"decided_by": actor.ID,
		"decided_at": now,
	}
	action := model.ActionReject
	details := map[string]interface{}{"status": status}

	if status == model.StatusApproved {
		externalID, err := st.push(ctx, entity)
		if err != nil {
			log.Error("external sync failed, entity stays pending", zap.Error(err))
			return nil, err
		}
		extra["external_id"] = externalID
		details["external_id"] = externalID
		action = model.ActionApprove
	}

	var decided model.Approvable
	err = s.deps.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if decided, err = st.finish(txCtx, uid, status, extra); err != nil {
			return err
		}
		raw, _ := json.Marshal(details)
		return s.deps.Audit.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     action,
			EntityKind: string(kind),
			EntityID:   uid.String(),
			EntityName: decided.DisplayName(),
			Details:    string(raw),
		})
	})
	if err != nil {
		if details["external_id"] != nil {
			// The platform record exists but the local row was not updated.
			log.Error("decision not persisted after successful sync",
				zap.Any("external_id", details["external_id"]), zap.Error(err))
		}
		return nil, err
	}

	log.Info("decision recorded", zap.String("external_id", decided.GetExternalID()))
	s.announce(ctx, decided, actor, now)
	return decided, nil
}

// announce runs after commit. Nothing here can fail the decision.
func (s *approvalService) announce(ctx context.Context, e model.Approvable, actor model.Actor, decidedAt time.Time) {
	if s.deps.Events != nil {
		s.deps.Events.PublishDecision(DecisionEvent{
			Type:       "decision",
			Kind:       e.Kind(),
			ID:         e.GetID().String(),
			Name:       e.DisplayName(),
			Status:     e.GetStatus(),
			ExternalID: e.GetExternalID(),
			DecidedBy:  actor.FullName,
			DecidedAt:  decidedAt,
		})
	}

	if s.deps.Mail == nil || s.deps.Users == nil {
		return
	}
	creator, err := s.deps.Users.GetByID(context.WithoutCancel(ctx), e.GetCreatedBy())
	if err != nil {
		s.log.Warn("cannot notify submitter", zap.String("user_id", e.GetCreatedBy().String()), zap.Error(err))
		return
	}
	msg, err := notify.DecisionMessage(creator.FullName, creator.Email, notify.Decision{
		Status:      e.GetStatus(),
		Kind:        e.Kind(),
		ItemName:    e.DisplayName(),
		ActorName:   actor.FullName,
		SubmittedAt: e.GetCreatedAt(),
		DecidedAt:   decidedAt,
		OrgName:     s.deps.OrgName,
		AppURL:      s.deps.AppURL,
	})
	if err != nil {
		s.log.Warn("cannot render decision email", zap.Error(err))
		return
	}
	s.deps.Mail.Dispatch(msg)
}

func (s *approvalService) syncAccount(ctx context.Context, a *model.Account) (string, error) {
	ref, err := s.deps.Syncer.CreateAccount(ctx, accountPayload(a))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// syncCustomer creates the customer's chart account when needed, then the contact.
func (s *approvalService) syncCustomer(ctx context.Context, c *model.Customer) (string, error) {
	accountID, err := s.customerAccountID(ctx, c)
	if err != nil {
		return "", err
	}
	ref, err := s.deps.Syncer.CreateCustomer(ctx, contactPayload(c, accountID))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *approvalService) customerAccountID(ctx context.Context, c *model.Customer) (string, error) {
	if c.ExternalAccountID != nil && *c.ExternalAccountID != "" {
		return *c.ExternalAccountID, nil
	}

	existing, err := s.deps.Accounts.FindApprovedByCode(ctx, c.AccountCode)
	if err != nil {
		return "", fmt.Errorf("failed to look up account %s: %w", c.AccountCode, err)
	}
	if existing != nil {
		return existing.GetExternalID(), nil
	}
	// Creating the code remotely now would make the pending account fail on approval.
	pending, err := s.deps.Accounts.PendingCodeExists(ctx, c.AccountCode)
	if err != nil {
		return "", fmt.Errorf("failed to look up account %s: %w", c.AccountCode, err)
	}
	if pending {
		s.log.Warn("customer account code collides with a pending account",
			zap.String("customer_id", c.ID.String()),
			zap.String("account_code", c.AccountCode),
		)
		return "", apperror.NewValidation("account_code", "is awaiting review as an account, decide that account first")
	}

	ref, err := s.deps.Syncer.CreateAccount(ctx, customerAccountPayload(c))
	if err != nil {
		return "", err
	}
	// Record the account so a retry after a failed contact call reuses it.
	if err := s.deps.Customers.UpdatePendingFields(ctx, c.ID, map[string]interface{}{"external_account_id": ref.ID}); err != nil {
		s.log.Error("failed to record external account on customer",
			zap.String("customer_id", c.ID.String()),
			zap.String("external_account_id", ref.ID),
			zap.Error(err),
		)
	}
	c.ExternalAccountID = &ref.ID

	raw, _ := json.Marshal(map[string]string{"account_code": c.AccountCode, "external_account_id": ref.ID})
	if err := s.deps.Audit.Log(ctx, &model.AuditLog{
		Action:     model.ActionSync,
		EntityKind: string(model.KindCustomer),
		EntityID:   c.ID.String(),
		EntityName: c.AccountName,
		Details:    string(raw),
	}); err != nil {
		s.log.Warn("failed to audit nested account sync", zap.Error(err))
	}
	return ref.ID, nil
}

func (s *approvalService) syncProduct(ctx context.Context, p *model.Product) (string, error) {
	ref, err := s.deps.Syncer.CreateInventoryItem(ctx, itemPayload(p))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *approvalService) syncPriceList(ctx context.Context, pl *model.PriceList) (string, error) {
	ref, err := s.deps.Syncer.CreatePriceBook(ctx, priceBookPayload(pl))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}
