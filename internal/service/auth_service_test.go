package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"opsconsole/internal/apperror"
	"opsconsole/internal/model"
	"opsconsole/internal/repository"
	"opsconsole/internal/session"
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func newAuthFixture(t *testing.T) (*fixture, *authService, *session.Manager) {
	t.Helper()
	f := newFixture(t)
	sessions := session.NewManager("test-secret", time.Hour)
	svc := NewAuthService(f.users, repository.NewLoginCodeRepository(f.db), f.audit, sessions, f.mail, 15*time.Minute, 3, zap.NewNop())
	return f, svc.(*authService), sessions
}

func sentCode(t *testing.T, f *fixture) string {
	t.Helper()
	mails := f.mail.sent()
	require.NotEmpty(t, mails)
	m := codePattern.FindStringSubmatch(mails[len(mails)-1].Body)
	require.Len(t, m, 2)
	return m[1]
}

func TestAuth_RequestAndVerify(t *testing.T) {
	f, svc, sessions := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestCode(ctx, RequestCodeRequest{Email: "Sam@Example.com"}))
	mails := f.mail.sent()
	require.Len(t, mails, 1)
	assert.Equal(t, "sam@example.com", mails[0].ToEmail)
	assert.Equal(t, "Your Verification Code", mails[0].Subject)
	code := sentCode(t, f)

	res, err := svc.VerifyCode(ctx, VerifyCodeRequest{Email: "sam@example.com", Code: code})
	require.NoError(t, err)
	assert.Equal(t, f.staff.ID, res.User.ID)

	claims, err := sessions.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, "Sam Staff", claims.FullName)

	// A code is single use.
	_, err = svc.VerifyCode(ctx, VerifyCodeRequest{Email: "sam@example.com", Code: code})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAuth_UnknownEmail(t *testing.T) {
	f, svc, _ := newAuthFixture(t)
	err := svc.RequestCode(context.Background(), RequestCodeRequest{Email: "nobody@example.com"})
	assert.Equal(t, "invalid credential", fieldErrors(t, err)["email"])
	assert.Empty(t, f.mail.sent())
}

func TestAuth_AttemptLimit(t *testing.T) {
	f, svc, _ := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.RequestCode(ctx, RequestCodeRequest{Email: "sam@example.com"}))
	code := sentCode(t, f)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		_, err := svc.VerifyCode(ctx, VerifyCodeRequest{Email: "sam@example.com", Code: wrong})
		assert.Equal(t, "invalid code", fieldErrors(t, err)["code"])
	}
	_, err := svc.VerifyCode(ctx, VerifyCodeRequest{Email: "sam@example.com", Code: code})
	assert.Equal(t, "too many attempts, request a new code", fieldErrors(t, err)["code"])
}

func TestAuth_ConcurrentGuessesShareTheLimit(t *testing.T) {
	f, svc, _ := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.RequestCode(ctx, RequestCodeRequest{Email: "sam@example.com"}))
	code := sentCode(t, f)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		evaluated int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.VerifyCode(ctx, VerifyCodeRequest{Email: "sam@example.com", Code: wrong})
			var verr *apperror.ValidationError
			if errors.As(err, &verr) && verr.Fields["code"] == "invalid code" {
				mu.Lock()
				evaluated++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, evaluated, 3)
	var stored []model.LoginCode
	require.NoError(t, f.db.Where("email = ?", "sam@example.com").Find(&stored).Error)
	for _, lc := range stored {
		assert.LessOrEqual(t, lc.Attempts, 3)
	}
}

func TestAuth_Expiry(t *testing.T) {
	f, svc, _ := newAuthFixture(t)
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	require.NoError(t, svc.RequestCode(ctx, RequestCodeRequest{Email: "sam@example.com"}))
	code := sentCode(t, f)

	now = now.Add(16 * time.Minute)
	_, err := svc.VerifyCode(ctx, VerifyCodeRequest{Email: "sam@example.com", Code: code})
	assert.Equal(t, "code has expired", fieldErrors(t, err)["code"])
}

func TestAuth_MailFailureIsReported(t *testing.T) {
	f, svc, _ := newAuthFixture(t)
	f.mail.err = errors.New("relay down")
	err := svc.RequestCode(context.Background(), RequestCodeRequest{Email: "sam@example.com"})
	assert.ErrorContains(t, err, "relay down")
}

func TestAuth_VerifyValidatesInput(t *testing.T) {
	_, svc, _ := newAuthFixture(t)
	_, err := svc.VerifyCode(context.Background(), VerifyCodeRequest{Email: "sam@example.com", Code: "12ab"})
	assert.Contains(t, fieldErrors(t, err), "code")
}

func TestRandomCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		c, err := randomCode()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, c)
	}
}
