package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"k8s.io/utils/clock"

	"github.com/telekom/gh-scoped-creds/pkg/metrics"
	"github.com/telekom/gh-scoped-creds/pkg/version"
)

// Presenter is the display surface used to hand the user code to the operator.
type Presenter interface {
	Show(msg string)
	// Tick marks one poll that is still waiting for the user.
	Tick()
	CopyToClipboard(text string) error
	ConfirmAndOpen(url string) (bool, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Config struct {
	ClientID string
	// Endpoint defaults to github.Endpoint. Only DeviceAuthURL and TokenURL are used.
	Endpoint oauth2.Endpoint
	// Scopes defaults to "repo".
	Scopes     []string
	HTTPClient *http.Client
	Presenter  Presenter
	Logger     *zap.SugaredLogger
	Clock      clock.PassiveClock
	Sleep      SleepFunc
	// MaxTransportRetries is the number of consecutive transport failures
	// tolerated while polling. Zero selects DefaultMaxTransportRetries and a
	// negative value disables retries.
	MaxTransportRetries int
}

type Authenticator struct {
	clientID   string
	endpoint   oauth2.Endpoint
	scope      string
	http       *resty.Client
	presenter  Presenter
	log        *zap.SugaredLogger
	clock      clock.PassiveClock
	sleep      SleepFunc
	maxRetries int
}

type providerResponse struct {
	DeviceCode       string `json:"device_code"`
	UserCode         string `json:"user_code"`
	VerificationURI  string `json:"verification_uri"`
	Interval         int    `json:"interval"`
	ExpiresIn        int    `json:"expires_in"`
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`

	raw string
}

func NewAuthenticator(cfg Config) (*Authenticator, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errors.New("client id is required")
	}
	endpoint := cfg.Endpoint
	if endpoint.DeviceAuthURL == "" && endpoint.TokenURL == "" {
		endpoint = github.Endpoint
	}
	if endpoint.DeviceAuthURL == "" || endpoint.TokenURL == "" {
		return nil, errors.New("device authorization and token endpoints are required")
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{defaultScope}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	retries := cfg.MaxTransportRetries
	switch {
	case retries == 0:
		retries = DefaultMaxTransportRetries
	case retries < 0:
		retries = 0
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	client := resty.NewWithClient(httpClient).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent()).
		SetLogger(log)

	return &Authenticator{
		clientID:   clientID,
		endpoint:   endpoint,
		scope:      strings.Join(scopes, " "),
		http:       client,
		presenter:  cfg.Presenter,
		log:        log,
		clock:      clk,
		sleep:      sleep,
		maxRetries: retries,
	}, nil
}

// Authenticate runs the whole flow: Initiate, Present, then Poll.
func (a *Authenticator) Authenticate(ctx context.Context) (*AccessToken, error) {
	session, err := a.Initiate(ctx)
	if err != nil {
		return nil, err
	}
	a.Present(session)
	return a.Poll(ctx, session)
}

// Initiate requests a device and user code. It never retries.
func (a *Authenticator) Initiate(ctx context.Context) (*Session, error) {
	const op = "device code request"
	payload, err := a.post(ctx, op, a.endpoint.DeviceAuthURL, map[string]string{
		"client_id": a.clientID,
		"scope":     a.scope,
	})
	if err != nil {
		return nil, err
	}
	if payload.Error != "" {
		if payload.Error == "Not found" {
			return nil, ErrInvalidClientID
		}
		return nil, &ProviderError{Op: op, Code: payload.Error, Description: payload.ErrorDescription, Raw: payload.raw}
	}
	if payload.DeviceCode == "" || payload.UserCode == "" || payload.VerificationURI == "" {
		return nil, &ProviderError{Op: op, Code: "incomplete_response", Raw: payload.raw}
	}

	session := &Session{
		DeviceCode:      payload.DeviceCode,
		UserCode:        payload.UserCode,
		VerificationURI: payload.VerificationURI,
		Interval:        time.Duration(payload.Interval) * time.Second,
		ExpiresIn:       time.Duration(payload.ExpiresIn) * time.Second,
		CreatedAt:       a.clock.Now(),
	}
	if session.Interval <= 0 {
		session.Interval = DefaultInterval
	}
	if session.ExpiresIn <= 0 {
		session.ExpiresIn = DefaultDeviceCodeLifetime
	}
	a.log.Debugw("Device code issued",
		"verificationURI", session.VerificationURI,
		"interval", session.Interval.String(),
		"expiresIn", session.ExpiresIn.String())
	return session, nil
}

// Present shows the verification URI and user code. It is a no-op without a
// presenter.
func (a *Authenticator) Present(session *Session) {
	if a.presenter == nil || session == nil {
		return
	}
	minutes := int(session.ExpiresIn.Round(time.Minute) / time.Minute)
	if err := a.presenter.CopyToClipboard(session.UserCode); err == nil {
		a.presenter.Show(fmt.Sprintf("The code %s was sent to your terminal clipboard.", session.UserCode))
		a.presenter.Show(fmt.Sprintf("You have %d minutes to go to %s and paste it there, or enter the code: %s", minutes, session.VerificationURI, session.UserCode))
	} else {
		a.log.Debugw("Clipboard not available", "error", err)
		a.presenter.Show(fmt.Sprintf("You have %d minutes to go to %s and enter the code: %s", minutes, session.VerificationURI, session.UserCode))
	}
	opened, err := a.presenter.ConfirmAndOpen(session.VerificationURI)
	if err != nil {
		a.log.Warnw("Could not open browser", "error", err)
	} else if opened {
		a.log.Debugw("Opened verification URI in browser", "url", session.VerificationURI)
	}
	a.presenter.Show("Waiting for authorization...")
}

// Poll exchanges the device code for an access token. The first request is
// sent right away and every following one waits for the current interval.
func (a *Authenticator) Poll(ctx context.Context, session *Session) (*AccessToken, error) {
	if session == nil {
		return nil, errors.New("device flow session is nil")
	}
	interval := session.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := session.Deadline()
	breaker := a.newBreaker()
	log := a.log.With("userCode", session.UserCode)

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			// never sleep past the deadline
			wait := interval
			if remaining := deadline.Sub(a.clock.Now()); remaining < wait {
				wait = remaining
			}
			if wait > 0 {
				if err := a.sleep(ctx, wait); err != nil {
					return nil, a.finish(session, "cancelled", err)
				}
			}
		} else if err := ctx.Err(); err != nil {
			return nil, a.finish(session, "cancelled", err)
		}
		if !a.clock.Now().Before(deadline) {
			log.Debugw("Local device code deadline reached", "deadline", deadline.UTC().Format(time.RFC3339))
			return nil, a.finish(session, "expired", ErrSessionExpired)
		}

		payload, err := a.requestToken(ctx, breaker, session)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, a.finish(session, "cancelled", ctxErr)
			}
			metrics.DeviceFlowPolls.WithLabelValues("transport_error").Inc()
			if breaker.State() == gobreaker.StateOpen {
				return nil, a.finish(session, "transport_error", err)
			}
			log.Warnw("Token poll failed, retrying",
				"error", err,
				"consecutiveFailures", breaker.Counts().ConsecutiveFailures,
				"maxRetries", a.maxRetries)
			continue
		}

		if payload.AccessToken != "" {
			metrics.DeviceFlowPolls.WithLabelValues("success").Inc()
			token := &AccessToken{
				Token:     payload.AccessToken,
				ExpiresIn: time.Duration(payload.ExpiresIn) * time.Second,
			}
			log.Debugw("Device flow authorized", "token", token.String(), "expiresIn", token.ExpiresIn.String(), "polls", attempt+1)
			return token, a.finish(session, "success", nil)
		}

		switch payload.Error {
		case "authorization_pending", "":
			metrics.DeviceFlowPolls.WithLabelValues("pending").Inc()
			log.Debugw("Authorization pending", "attempt", attempt+1)
			a.tick()
		case "slow_down":
			metrics.DeviceFlowPolls.WithLabelValues("slow_down").Inc()
			next := interval + slowDownIncrement
			if provided := time.Duration(payload.Interval) * time.Second; provided > next {
				next = provided
			}
			log.Debugw("Provider asked to slow down", "previous", interval.String(), "next", next.String())
			interval = next
			a.tick()
		case "expired_token":
			metrics.DeviceFlowPolls.WithLabelValues("expired").Inc()
			return nil, a.finish(session, "expired", ErrSessionExpired)
		case "access_denied":
			metrics.DeviceFlowPolls.WithLabelValues("denied").Inc()
			return nil, a.finish(session, "denied", ErrAuthorizationDenied)
		default:
			metrics.DeviceFlowPolls.WithLabelValues("error").Inc()
			return nil, a.finish(session, "error", &ProviderError{
				Op:          "token poll",
				Code:        payload.Error,
				Description: payload.ErrorDescription,
				Raw:         payload.raw,
			})
		}
	}
}

func (a *Authenticator) requestToken(ctx context.Context, breaker *gobreaker.CircuitBreaker, session *Session) (*providerResponse, error) {
	result, err := breaker.Execute(func() (interface{}, error) {
		return a.post(ctx, "token poll", a.endpoint.TokenURL, map[string]string{
			"client_id":   a.clientID,
			"device_code": session.DeviceCode,
			"grant_type":  deviceGrantType,
		})
	})
	if err != nil {
		return nil, err
	}
	payload, ok := result.(*providerResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected token poll result type %T", result)
	}
	return payload, nil
}

// newBreaker opens once more than maxRetries consecutive polls fail on the
// transport level. Provider error codes are successful responses here.
func (a *Authenticator) newBreaker() *gobreaker.CircuitBreaker {
	limit := uint32(a.maxRetries)
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "github-token-poll",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > limit
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			a.log.Debugw("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// post sends a form request and decodes the JSON answer. A body carrying an
// "error" field is a provider answer even on non-2xx status codes.
func (a *Authenticator) post(ctx context.Context, op, endpoint string, form map[string]string) (*providerResponse, error) {
	resp, err := a.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(endpoint)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	var payload providerResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: fmt.Errorf("decoding response: %w", err)}
	}
	payload.raw = resp.String()
	if payload.Error == "" && !resp.IsSuccess() {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode(), Err: errors.New("unexpected response status")}
	}
	return &payload, nil
}

func (a *Authenticator) tick() {
	if a.presenter != nil {
		a.presenter.Tick()
	}
}

func (a *Authenticator) finish(session *Session, result string, err error) error {
	metrics.DeviceFlowResults.WithLabelValues(result).Inc()
	metrics.DeviceFlowDuration.Observe(a.clock.Since(session.CreatedAt).Seconds())
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
