package auth

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultInterval is used when the provider does not send a polling interval.
	DefaultInterval = 5 * time.Second
	// DefaultDeviceCodeLifetime is GitHub's fixed device code lifetime.
	DefaultDeviceCodeLifetime = 15 * time.Minute
	// DefaultMaxTransportRetries bounds consecutive transport failures while polling.
	DefaultMaxTransportRetries = 3

	slowDownIncrement = 5 * time.Second
	deviceGrantType   = "urn:ietf:params:oauth:grant-type:device_code"
	defaultScope      = "repo"
)

var (
	ErrInvalidClientID     = errors.New("invalid client id: GitHub does not know this app")
	ErrAuthorizationDenied = errors.New("authorization was denied on GitHub")
	ErrSessionExpired      = errors.New("device code expired before authorization completed, run gh-scoped-creds again")
)

// Session is the state of one device authorization. It only lives for the
// duration of a single flow.
type Session struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	Interval        time.Duration
	ExpiresIn       time.Duration
	CreatedAt       time.Time
}

// Deadline is the instant after which the device code can no longer be
// exchanged.
func (s *Session) Deadline() time.Time {
	return s.CreatedAt.Add(s.ExpiresIn)
}

// AccessToken is the result of a successful flow. ExpiresIn is zero for
// tokens that do not expire.
type AccessToken struct {
	Token     string
	ExpiresIn time.Duration
}

// String never returns the full token.
func (t AccessToken) String() string {
	return Redact(t.Token)
}

func (t AccessToken) GoString() string {
	return fmt.Sprintf("auth.AccessToken{Token:%q, ExpiresIn:%s}", Redact(t.Token), t.ExpiresIn)
}

// Redact keeps the token type prefix (e.g. "ghu_") and hides the rest.
func Redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****"
}

// ProviderError is an error reported by GitHub in the "error" field of a
// response that is not one of the well-known device flow codes.
type ProviderError struct {
	Op          string
	Code        string
	Description string
	Raw         string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: GitHub returned %s: %s", e.Op, e.Code, e.Description)
	}
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return fmt.Sprintf("%s: GitHub returned %s (response: %s)", e.Op, e.Code, raw)
}

// TransportError means GitHub could not be reached or answered with something
// that is not a device flow response.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
