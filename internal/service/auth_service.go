package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"opsconsole/internal/apperror"
	"opsconsole/internal/model"
	"opsconsole/internal/notify"
	"opsconsole/internal/repository"
	"opsconsole/internal/session"
	"opsconsole/internal/validation"
)

type RequestCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type LoginResult struct {
	Token     string      `json:"-"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// CodeSender delivers sign-in codes. The call is synchronous: a code the user
// never receives must be reported.
type CodeSender interface {
	SendNow(ctx context.Context, msg notify.Message) error
}

type AuthService interface {
	RequestCode(ctx context.Context, req RequestCodeRequest) error
	VerifyCode(ctx context.Context, req VerifyCodeRequest) (*LoginResult, error)
}

type authService struct {
	users       repository.UserRepository
	codes       repository.LoginCodeRepository
	audit       repository.AuditRepository
	sessions    *session.Manager
	mail        CodeSender
	codeTTL     time.Duration
	maxAttempts int
	log         *zap.Logger
	now         func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	codes repository.LoginCodeRepository,
	audit repository.AuditRepository,
	sessions *session.Manager,
	mail CodeSender,
	codeTTL time.Duration,
	maxAttempts int,
	log *zap.Logger,
) AuthService {
	if codeTTL <= 0 {
		codeTTL = 15 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &authService{
		users: users, codes: codes, audit: audit, sessions: sessions, mail: mail,
		codeTTL: codeTTL, maxAttempts: maxAttempts,
		log: named(log, "auth"), now: time.Now,
	}
}

var errInvalidCredential = apperror.NewValidation("email", "invalid credential")

func (s *authService) RequestCode(ctx context.Context, req RequestCodeRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	email := model.NormalizeEmail(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return errInvalidCredential
		}
		return err
	}

	code, err := randomCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}
	if err := s.codes.Replace(ctx, &model.LoginCode{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: s.now().Add(s.codeTTL),
	}); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	msg, err := notify.CodeMessage(email, code, s.codeTTL)
	if err != nil {
		return err
	}
	if err := s.mail.SendNow(ctx, msg); err != nil {
		return fmt.Errorf("failed to send code: %w", err)
	}
	s.log.Info("login code sent", zap.String("email", email))
	return nil
}

func (s *authService) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*LoginResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	email := model.NormalizeEmail(req.Email)

	lc, err := s.codes.Latest(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NewValidation("code", "no active code, request a new one")
	}
	if err != nil {
		return nil, err
	}
	if !s.now().Before(lc.ExpiresAt) {
		_ = s.codes.DeleteByEmail(ctx, email)
		return nil, apperror.NewValidation("code", "code has expired")
	}
	// The attempt is counted before the hash is compared.
	ok, err := s.codes.ReserveAttempt(ctx, lc.ID, s.maxAttempts)
	if err != nil {
		return nil, err
	}
	if !ok {
		_ = s.codes.DeleteByEmail(ctx, email)
		return nil, apperror.NewValidation("code", "too many attempts, request a new code")
	}
	if bcrypt.CompareHashAndPassword([]byte(lc.CodeHash), []byte(req.Code)) != nil {
		return nil, apperror.NewValidation("code", "invalid code")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredential
		}
		return nil, err
	}
	if err := s.codes.DeleteByEmail(ctx, email); err != nil {
		return nil, err
	}

	token, exp, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.audit.Log(ctx, &model.AuditLog{
		UserID:     &user.ID,
		Action:     model.ActionLogin,
		EntityKind: "user",
		EntityID:   user.ID.String(),
		EntityName: user.FullName,
	}); err != nil {
		s.log.Warn("failed to audit login", zap.Error(err))
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

// randomCode returns six decimal digits from crypto/rand.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
