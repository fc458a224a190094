package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// loginRequest is the body of POST /login.
type loginRequest struct {
	APIKey   string `json:"apikey"`
	Username string `json:"username"`
	UserKey  string `json:"userkey"`
}

// loginResponse is either a token or an Error message.
type loginResponse struct {
	Token string `json:"token"`
	Error string `json:"Error"`
}

// authenticator holds the bearer token for one client. All state changes
// happen under mu, so concurrent fetches never log in twice.
type authenticator struct {
	mu         sync.Mutex
	token      string
	authorized bool

	httpClient *http.Client
	loginURL   string
	creds      loginRequest
	probe      CacheProbe
	logger     zerolog.Logger
}

func newAuthenticator(httpClient *http.Client, baseURL string, creds loginRequest, probe CacheProbe, logger zerolog.Logger) *authenticator {
	return &authenticator{
		httpClient: httpClient,
		loginURL:   strings.TrimRight(baseURL, "/") + "/login",
		creds:      creds,
		probe:      probe,
		logger:     logger,
	}
}

// ensureAuthorized logs in unless a token is already held or the GET for url
// can be answered from the response cache.
func (a *authenticator) ensureAuthorized(ctx context.Context, url, language string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.authorized {
		return nil
	}

	if a.cached(ctx, url, language) {
		a.logger.Debug().Str("url", url).Msg("Response cached, skipping login")
		return nil
	}

	return a.login(ctx, language)
}

// cached reports whether the probe has an entry for the GET of url. Any
// failure to answer counts as a miss.
func (a *authenticator) cached(ctx context.Context, url, language string) bool {
	if a.probe == nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	if language != "" {
		req.Header.Set("Accept-Language", language)
	}

	key, err := CacheKey(req)
	if err != nil {
		return false
	}

	ok, err := a.probe.Has(key)
	if err != nil {
		a.logger.Debug().Err(err).Msg("Cache probe failed")
		return false
	}
	return ok
}

// authorize performs the login round-trip unconditionally.
func (a *authenticator) authorize(ctx context.Context, language string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.login(ctx, language)
}

// login must be called with mu held.
func (a *authenticator) login(ctx context.Context, language string) error {
	payload, err := json.Marshal(a.creds)
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.loginURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if language != "" {
		req.Header.Set("Accept-Language", language)
	}

	a.logger.Debug().Str("url", a.loginURL).Msg("Logging in")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Message: "login request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{StatusCode: resp.StatusCode, Message: "failed to read login response", Err: err}
	}

	var result loginResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			return ErrNotAuthorized
		}
		return &ProviderError{StatusCode: resp.StatusCode, Message: "failed to parse login response", Err: err}
	}

	if result.Error != "" {
		if strings.EqualFold(result.Error, "not authorized") {
			return ErrNotAuthorized
		}
		return &ProviderError{StatusCode: resp.StatusCode, Message: result.Error}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrNotAuthorized
	}
	if result.Token == "" {
		return &ProviderError{StatusCode: resp.StatusCode, Message: "login response carried no token"}
	}

	a.token = result.Token
	a.authorized = true
	a.logger.Debug().Msg("Login succeeded")

	return nil
}

// apply sets the bearer header when a token is held.
func (a *authenticator) apply(req *http.Request) {
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// isAuthorized reports whether a login has succeeded.
func (a *authenticator) isAuthorized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authorized
}
