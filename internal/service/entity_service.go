package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"opsconsole/internal/apperror"
	"opsconsole/internal/model"
	"opsconsole/internal/repository"
	"opsconsole/internal/validation"
)

// EntityService handles submission and reads for one reviewable kind.
// R is the request DTO, T the stored model.
type EntityService[R any, T any] interface {
	Create(ctx context.Context, actor model.Actor, req R) (*T, error)
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, filter repository.ListFilter) ([]T, int64, error)
}

type entityService[R any, T any, P interface {
	*T
	model.Approvable
}] struct {
	repo  repository.EntityRepository[T]
	audit repository.AuditRepository
	tx    repository.TransactionManager
	log   *zap.Logger

	build func(actor model.Actor, req R) *T
	// precheck runs before insert; nil to skip.
	precheck func(ctx context.Context, req R) error
}

func (s *entityService[R, T, P]) Create(ctx context.Context, actor model.Actor, req R) (*T, error) {
	if actor.ID == uuid.Nil {
		return nil, apperror.ErrUnauthorized
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if s.precheck != nil {
		if err := s.precheck(ctx, req); err != nil {
			return nil, err
		}
	}

	entity := s.build(actor, req)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, entity); err != nil {
			return err
		}
		p := P(entity)
		details, _ := json.Marshal(map[string]interface{}{"status": p.GetStatus()})
		return s.audit.Log(txCtx, &model.AuditLog{
			UserID:     &actor.ID,
			Action:     model.ActionSubmit,
			EntityKind: string(p.Kind()),
			EntityID:   p.GetID().String(),
			EntityName: p.DisplayName(),
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	p := P(entity)
	s.log.Info("submission created",
		zap.String("kind", string(p.Kind())),
		zap.String("id", p.GetID().String()),
		zap.String("created_by", actor.ID.String()),
	)
	return entity, nil
}

func (s *entityService[R, T, P]) Get(ctx context.Context, id string) (*T, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, uid)
}

func (s *entityService[R, T, P]) List(ctx context.Context, filter repository.ListFilter) ([]T, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperror.NewValidation("status", "must be one of: pending, approved, rejected")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	return s.repo.List(ctx, filter)
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperror.NewValidation("id", "must be a valid id")
	}
	return uid, nil
}

// uniqueCode rejects an account code already used by any submission of the kind.
// The code is compared in the trimmed form it is stored in.
func uniqueCode(exists func(ctx context.Context, code string) (bool, error)) func(ctx context.Context, code string) error {
	return func(ctx context.Context, code string) error {
		taken, err := exists(ctx, strings.TrimSpace(code))
		if err != nil {
			return fmt.Errorf("failed to check account code: %w", err)
		}
		if taken {
			return apperror.NewValidation("account_code", "is already in use")
		}
		return nil
	}
}

type (
	AccountService   = EntityService[CreateAccountRequest, model.Account]
	CustomerService  = EntityService[CreateCustomerRequest, model.Customer]
	ProductService   = EntityService[CreateProductRequest, model.Product]
	PriceListService = EntityService[CreatePriceListRequest, model.PriceList]
)

func NewAccountService(repo repository.AccountRepository, audit repository.AuditRepository, tx repository.TransactionManager, log *zap.Logger) AccountService {
	check := uniqueCode(repo.CodeExists)
	return &entityService[CreateAccountRequest, model.Account, *model.Account]{
		repo: repo, audit: audit, tx: tx, log: named(log, "account"),
		build: func(actor model.Actor, req CreateAccountRequest) *model.Account { return req.toModel(actor) },
		precheck: func(ctx context.Context, req CreateAccountRequest) error {
			return check(ctx, req.AccountCode)
		},
	}
}

func NewCustomerService(repo repository.CustomerRepository, audit repository.AuditRepository, tx repository.TransactionManager, log *zap.Logger) CustomerService {
	check := uniqueCode(repo.CodeExists)
	return &entityService[CreateCustomerRequest, model.Customer, *model.Customer]{
		repo: repo, audit: audit, tx: tx, log: named(log, "customer"),
		build: func(actor model.Actor, req CreateCustomerRequest) *model.Customer { return req.toModel(actor) },
		precheck: func(ctx context.Context, req CreateCustomerRequest) error {
			return check(ctx, req.AccountCode)
		},
	}
}

// NewProductService fills account_id with salesAccountID when a request omits it.
func NewProductService(repo repository.EntityRepository[model.Product], audit repository.AuditRepository, tx repository.TransactionManager, salesAccountID string, log *zap.Logger) ProductService {
	return &entityService[CreateProductRequest, model.Product, *model.Product]{
		repo: repo, audit: audit, tx: tx, log: named(log, "product"),
		build: func(actor model.Actor, req CreateProductRequest) *model.Product {
			return req.toModel(actor, salesAccountID)
		},
		precheck: func(_ context.Context, req CreateProductRequest) error {
			if strings.TrimSpace(req.AccountID) == "" && salesAccountID == "" {
				return apperror.NewValidation("account_id", "is required")
			}
			return nil
		},
	}
}

func NewPriceListService(repo repository.EntityRepository[model.PriceList], audit repository.AuditRepository, tx repository.TransactionManager, log *zap.Logger) PriceListService {
	return &entityService[CreatePriceListRequest, model.PriceList, *model.PriceList]{
		repo: repo, audit: audit, tx: tx, log: named(log, "pricelist"),
		build: func(actor model.Actor, req CreatePriceListRequest) *model.PriceList { return req.toModel(actor) },
	}
}

func named(log *zap.Logger, name string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return log.Named(name)
}
