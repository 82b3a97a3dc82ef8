// Package reddit implements the outbound client for Reddit's OAuth2-protected
// data API. Requests travel through a chain of http.RoundTrippers: the rate
// limiting transport on the outside, the authenticating transport beneath it,
// and the bare network transport at the bottom. The Client walks the paginated
// "new" listing of a subreddit through that chain.
//
// OAuth2 flow per https://github.com/reddit-archive/reddit/wiki/OAuth2-Quick-Start-Example.
package reddit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpirationBuffer is subtracted from the server-declared token lifetime
// so we refresh before Reddit actually starts rejecting the token.
const tokenExpirationBuffer = 600 * time.Second

// Credentials holds everything needed to authenticate against the Reddit API
// as a script-type application.
type Credentials struct {
	// AuthorizationURL is the token endpoint, e.g.
	// "https://www.reddit.com/api/v1/access_token".
	AuthorizationURL string

	// ClientID and ClientSecret identify the registered Reddit app.
	ClientID     string
	ClientSecret string

	// Username and Password belong to the Reddit user running the app.
	Username string
	Password string

	// AppName and AppVersion form the User-Agent identity required by
	// Reddit's API usage policy. Requests without it may be rejected
	// independently of authentication.
	AppName    string
	AppVersion string
}

// UserAgent returns the identity string attached to every request, in the
// "{name}/{version} by {username}" format Reddit asks for.
func (c Credentials) UserAgent() string {
	return fmt.Sprintf("%s/%s by %s", c.AppName, c.AppVersion, c.Username)
}

// authTransport is an http.RoundTripper that guarantees every forwarded
// request carries a valid bearer token and the User-Agent identity header.
// The token cache is shared by all concurrent callers; a single mutex admits
// one refresher at a time, and freshness is re-checked after the lock is
// acquired so callers that were blocked behind a refresh do not refresh again.
type authTransport struct {
	inner  http.RoundTripper
	creds  Credentials
	logger *slog.Logger

	// now is replaceable in tests.
	now func() time.Time

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

func newAuthTransport(inner http.RoundTripper, creds Credentials, logger *slog.Logger) *authTransport {
	return &authTransport{
		inner:  inner,
		creds:  creds,
		logger: logger,
		now:    time.Now,
	}
}

// RoundTrip attaches authorization and identity headers to a copy of the
// request and forwards it to the inner transport. The request itself is not
// mutated, per the RoundTripper contract.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.freshToken(req)
	if err != nil {
		return nil, err
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", t.creds.UserAgent())

	return t.inner.RoundTrip(req)
}

// freshToken returns the cached token, refreshing it first if it is absent or
// past its buffered expiry.
func (t *authTransport) freshToken(req *http.Request) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Re-check under the lock: another caller may have refreshed the token
	// while this one was blocked waiting for the mutex.
	if t.token != "" && t.now().Before(t.tokenExpiresAt) {
		return t.token, nil
	}

	if err := t.refreshToken(req); err != nil {
		return "", err
	}
	return t.token, nil
}

// refreshToken fetches a new access token from the authorization endpoint.
// Must be called with t.mu held. The refresh request goes straight to the
// inner transport; it never loops back through the rate limiter above us.
func (t *authTransport) refreshToken(orig *http.Request) error {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {t.creds.Username},
		"password":   {t.creds.Password},
	}

	req, err := http.NewRequestWithContext(
		orig.Context(), http.MethodPost, t.creds.AuthorizationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: build token request: %v", ErrAuthenticationFailed, err)
	}
	req.SetBasicAuth(t.creds.ClientID, t.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", t.creds.UserAgent())

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: authorization endpoint returned %d", ErrAuthenticationFailed, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return fmt.Errorf("%w: decode token payload: %v", ErrAuthenticationFailed, err)
	}
	if payload.AccessToken == "" {
		return fmt.Errorf("%w: token payload missing access_token", ErrAuthenticationFailed)
	}

	expiresAt := t.now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenExpirationBuffer)
	t.token = payload.AccessToken
	t.tokenExpiresAt = expiresAt
	tokenRefreshesTotal.Inc()

	t.logger.Info("access token refreshed",
		slog.Time("expires_at", expiresAt))

	return nil
}
