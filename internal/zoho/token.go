package zoho

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TokenSource hands out a bearer token for the platform API.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	// Invalidate drops the cached token so the next call refreshes.
	Invalidate()
}

// TokenProvider exchanges the long-lived refresh token for access tokens and
// caches the result in process. Concurrent refreshes share one request.
type TokenProvider struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
	now        func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func NewTokenProvider(cfg Config, log *zap.Logger) (*TokenProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.Named("zoho.token"),
		now:        time.Now,
	}, nil
}

func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	// The refresh is detached from the caller so one cancelled request does
	// not fail everyone waiting on the same flight.
	ch := p.group.DoChan("refresh", func() (interface{}, error) {
		if tok, ok := p.cached(); ok {
			return tok, nil
		}
		return p.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", &UpstreamAuthError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

func (p *TokenProvider) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token == "" || !p.now().Add(p.cfg.RefreshSkew).Before(p.expiresAt) {
		return "", false
	}
	return p.token, true
}

func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("refresh_token", p.cfg.RefreshToken)
	q.Set("client_id", p.cfg.ClientID)
	q.Set("client_secret", p.cfg.ClientSecret)
	q.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.AccountsURL+"/oauth/v2/token?"+q.Encode(), nil)
	if err != nil {
		return "", &UpstreamAuthError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := p.now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamAuthError{Reason: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return "", &UpstreamAuthError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamAuthError{StatusCode: resp.StatusCode, Reason: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &UpstreamAuthError{StatusCode: resp.StatusCode, Reason: "malformed token response", Err: err}
	}
	// Zoho reports grant failures with a 200 and an error field.
	if tr.Error != "" {
		return "", &UpstreamAuthError{StatusCode: resp.StatusCode, Reason: tr.Error}
	}
	if tr.AccessToken == "" {
		return "", &UpstreamAuthError{StatusCode: resp.StatusCode, Reason: "empty access token"}
	}

	expiresAt := start.Add(time.Duration(tr.ExpiresIn) * time.Second)
	p.mu.Lock()
	p.token = tr.AccessToken
	p.expiresAt = expiresAt
	p.mu.Unlock()

	p.log.Info("access token refreshed",
		zap.Time("expires_at", expiresAt),
		zap.Duration("latency", p.now().Sub(start)),
	)
	return tr.AccessToken, nil
}

var _ TokenSource = (*TokenProvider)(nil)
