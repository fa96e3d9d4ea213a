package repository

import (
	"context"
	"errors"
	"fmt"

	"opsconsole/internal/apperror"
	"opsconsole/internal/database"
	"opsconsole/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := GetDB(ctx, r.db).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", user.Email, apperror.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, userLookupErr(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", model.NormalizeEmail(email)).Error; err != nil {
		return nil, userLookupErr(err)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func userLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user: %w", apperror.ErrNotFound)
	}
	return err
}

// LoginCodeRepository stores one-time sign-in codes.
type LoginCodeRepository interface {
	// Replace drops any outstanding codes for the e-mail and stores code.
	Replace(ctx context.Context, code *model.LoginCode) error
	Latest(ctx context.Context, email string) (*model.LoginCode, error)
	// ReserveAttempt counts one verification attempt if fewer than limit were
	// made and reports whether the attempt may proceed.
	ReserveAttempt(ctx context.Context, id uuid.UUID, limit int) (bool, error)
	DeleteByEmail(ctx context.Context, email string) error
}

type loginCodeRepository struct {
	db *gorm.DB
}

func NewLoginCodeRepository(db *gorm.DB) LoginCodeRepository {
	return &loginCodeRepository{db: db}
}

func (r *loginCodeRepository) Replace(ctx context.Context, code *model.LoginCode) error {
	return NewTransactionManager(r.db).RunInTx(ctx, func(txCtx context.Context) error {
		if err := r.DeleteByEmail(txCtx, code.Email); err != nil {
			return err
		}
		return GetDB(txCtx, r.db).Create(code).Error
	})
}

func (r *loginCodeRepository) Latest(ctx context.Context, email string) (*model.LoginCode, error) {
	var code model.LoginCode
	err := GetDB(ctx, r.db).
		Where("email = ?", model.NormalizeEmail(email)).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("login code: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &code, nil
}

func (r *loginCodeRepository) ReserveAttempt(ctx context.Context, id uuid.UUID, limit int) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.LoginCode{}).
		Where("id = ? AND attempts < ?", id, limit).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *loginCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	return GetDB(ctx, r.db).
		Where("email = ?", model.NormalizeEmail(email)).
		Delete(&model.LoginCode{}).Error
}
