package zoho

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAccountsURL = "https://accounts.zoho.com"
	DefaultAPIBaseURL  = "https://www.zohoapis.com"
	DefaultTimeout     = 15 * time.Second
	DefaultRefreshSkew = 60 * time.Second

	// MaxResponseSize caps how much of an upstream body is read.
	MaxResponseSize = 4 << 20
)

var (
	ErrMissingOrganizationID = errors.New("zoho: organization id is required")
	ErrMissingClientID       = errors.New("zoho: client id is required")
	ErrMissingClientSecret   = errors.New("zoho: client secret is required")
	ErrMissingRefreshToken   = errors.New("zoho: refresh token is required")
	ErrInvalidURL            = errors.New("zoho: invalid base url")
)

// Config holds the credentials and endpoints of one Zoho organization.
type Config struct {
	OrganizationID string
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	AccountsURL    string
	APIBaseURL     string
	Timeout        time.Duration
	RefreshSkew    time.Duration
}

// Validate fills defaults and checks required fields.
func (c *Config) Validate() error {
	if c.OrganizationID == "" {
		return ErrMissingOrganizationID
	}
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	if c.RefreshToken == "" {
		return ErrMissingRefreshToken
	}
	if c.AccountsURL == "" {
		c.AccountsURL = DefaultAccountsURL
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	for _, raw := range []string{c.AccountsURL, c.APIBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidURL
		}
	}
	c.AccountsURL = strings.TrimRight(c.AccountsURL, "/")
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RefreshSkew < 0 {
		c.RefreshSkew = 0
	}
	return nil
}
