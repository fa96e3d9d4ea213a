package repository

import (
	"context"
	"errors"

	"opsconsole/internal/model"

	"gorm.io/gorm"
)

type AccountRepository interface {
	EntityRepository[model.Account]
	CodeExists(ctx context.Context, code string) (bool, error)
	// FindApprovedByCode returns nil, nil when no synced account carries the code.
	FindApprovedByCode(ctx context.Context, code string) (*model.Account, error)
	PendingCodeExists(ctx context.Context, code string) (bool, error)
}

type accountRepository struct {
	EntityRepository[model.Account]
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		EntityRepository: NewEntityRepository[model.Account](db, model.KindAccount),
		db:               db,
	}
}

func (r *accountRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	return codeExists(ctx, r.db, &model.Account{}, code)
}

func (r *accountRepository) FindApprovedByCode(ctx context.Context, code string) (*model.Account, error) {
	var acc model.Account
	err := GetDB(ctx, r.db).
		Where("account_code = ? AND status = ? AND external_id IS NOT NULL", code, model.StatusApproved).
		First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *accountRepository) PendingCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Account{}).
		Where("account_code = ? AND status = ?", code, model.StatusPending).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type CustomerRepository interface {
	EntityRepository[model.Customer]
	CodeExists(ctx context.Context, code string) (bool, error)
}

type customerRepository struct {
	EntityRepository[model.Customer]
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{
		EntityRepository: NewEntityRepository[model.Customer](db, model.KindCustomer),
		db:               db,
	}
}

func (r *customerRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	return codeExists(ctx, r.db, &model.Customer{}, code)
}

func codeExists(ctx context.Context, db *gorm.DB, table interface{}, code string) (bool, error) {
	var n int64
	if err := GetDB(ctx, db).Model(table).Where("account_code = ?", code).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func NewProductRepository(db *gorm.DB) EntityRepository[model.Product] {
	return NewEntityRepository[model.Product](db, model.KindProduct)
}

func NewPriceListRepository(db *gorm.DB) EntityRepository[model.PriceList] {
	return NewEntityRepository[model.PriceList](db, model.KindPriceList)
}
