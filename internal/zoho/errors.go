package zoho

import (
	"fmt"
)

// UpstreamAuthError means no access token could be obtained.
type UpstreamAuthError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *UpstreamAuthError) Error() string {
	msg := "zoho: token refresh failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamAuthError) Unwrap() error { return e.Err }

// SyncError means the platform rejected or failed a call. StatusCode is zero
// when the request never got a response.
type SyncError struct {
	Operation  string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("zoho: %s failed", e.Operation)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d, code %d)", msg, e.StatusCode, e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Err }
