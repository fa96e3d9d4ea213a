package zoho

import "context"

// staticToken is a TokenSource that always returns the same value.
type staticToken string

func (s staticToken) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", &UpstreamAuthError{Reason: "no static token configured"}
	}
	return string(s), nil
}

func (staticToken) Invalidate() {}

var _ TokenSource = staticToken("")
