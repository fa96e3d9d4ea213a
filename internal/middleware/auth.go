package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"opsconsole/internal/model"
	"opsconsole/internal/session"
	"opsconsole/pkg/response"
)

const (
	ctxClaimsKey = "claims"
	ctxActorKey  = "actor"
)

// Gate authenticates requests with the session token.
type Gate struct {
	sessions *session.Manager
	secure   bool
}

func NewGate(sessions *session.Manager, secureCookie bool) *Gate {
	return &Gate{sessions: sessions, secure: secureCookie}
}

// SetSessionCookie writes the HTTP-only session cookie.
func (g *Gate) SetSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	g.cookie(c, token, int(ttl.Seconds()))
}

// ClearSessionCookie expires the session cookie.
func (g *Gate) ClearSessionCookie(c *gin.Context) {
	g.cookie(c, "", -1)
}

func (g *Gate) cookie(c *gin.Context, value string, maxAge int) {
	// Cross-site deployments need SameSite=None, which browsers only accept with Secure.
	sameSite := http.SameSiteLaxMode
	if g.secure {
		sameSite = http.SameSiteNoneMode
	}
	c.SetSameSite(sameSite)
	c.SetCookie(session.CookieName, value, maxAge, "/", "", g.secure, true)
}

// Authenticate rejects requests without a valid session. API routes get a 401
// JSON body, page routes a redirect to the sign-in page.
func (g *Gate) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, fromCookie := tokenFrom(c)
		claims, err := g.sessions.Parse(token)
		if err == nil {
			var actor model.Actor
			if actor, err = claims.Actor(); err == nil {
				c.Set(ctxClaimsKey, claims)
				c.Set(ctxActorKey, actor)
				if fromCookie {
					g.SetSessionCookie(c, token, time.Until(claims.ExpiresAt.Time))
				}
				c.Next()
				return
			}
		}

		if fromCookie && !errors.Is(err, session.ErrMissing) {
			g.ClearSessionCookie(c)
		}
		g.reject(c, err)
	}
}

func (g *Gate) reject(c *gin.Context, err error) {
	reason := "invalid"
	switch {
	case errors.Is(err, session.ErrMissing):
		reason = "missing"
	case errors.Is(err, session.ErrExpired):
		reason = "expired"
	}

	if isAPI(c) {
		msg := "Unauthorized"
		if reason == "expired" {
			msg = "TokenExpired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, msg))
		return
	}

	q := url.Values{}
	q.Set("next", c.Request.URL.RequestURI())
	q.Set("reason", reason)
	c.Redirect(http.StatusFound, "/?"+q.Encode())
	c.Abort()
}

// RequireRole allows only callers holding one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = true
	}
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Unauthorized"))
			return
		}
		if !allowed[strings.ToLower(actor.Role)] {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the caller stored by Authenticate.
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ctxActorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

// ClaimsFrom returns the verified token claims.
func ClaimsFrom(c *gin.Context) (*session.Claims, bool) {
	v, ok := c.Get(ctxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*session.Claims)
	return claims, ok
}

// tokenFrom prefers the cookie and falls back to a Bearer header. Browsers
// cannot set headers on a WebSocket handshake, so /ws also accepts ?token=.
func tokenFrom(c *gin.Context) (string, bool) {
	if tok, err := c.Cookie(session.CookieName); err == nil && tok != "" {
		return tok, true
	}
	h := c.GetHeader("Authorization")
	if parts := strings.SplitN(h, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1]), false
	}
	if c.Request.URL.Path == "/ws" {
		return c.Query("token"), false
	}
	return "", false
}

func isAPI(c *gin.Context) bool {
	p := c.Request.URL.Path
	return p == "/api" || strings.HasPrefix(p, "/api/") || p == "/ws"
}
