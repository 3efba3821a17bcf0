package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notedrop/service/internal/store"
)

// TokenSource supplies the bearer credential for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed personal access or fine-grained token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", store.E(store.KindConfiguration, "github.Token", "GITHUB_TOKEN is not set")
	}
	return string(t), nil
}

// refreshMargin is how long before expiry a cached installation token is
// replaced.
const refreshMargin = 5 * time.Minute

// AppTokenSource mints installation tokens for a GitHub App. Each token is
// reused until shortly before it expires.
type AppTokenSource struct {
	appID          string
	installationID string
	key            *rsa.PrivateKey
	apiBase        string
	http           *http.Client
	now            func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// AppOption configures an AppTokenSource.
type AppOption func(*AppTokenSource)

func WithAppAPIBase(base string) AppOption {
	return func(s *AppTokenSource) { s.apiBase = strings.TrimRight(base, "/") }
}

func WithAppHTTPClient(c *http.Client) AppOption {
	return func(s *AppTokenSource) { s.http = c }
}

func WithAppClock(now func() time.Time) AppOption {
	return func(s *AppTokenSource) { s.now = now }
}

// NewAppTokenSource parses the PEM encoded App private key.
func NewAppTokenSource(appID, installationID string, privateKeyPEM []byte, opts ...AppOption) (*AppTokenSource, error) {
	if appID == "" || installationID == "" {
		return nil, store.E(store.KindConfiguration, "github.NewAppTokenSource", "GitHub App id and installation id are required")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse app private key: %w", err)
	}

	s := &AppTokenSource{
		appID:          appID,
		installationID: installationID,
		key:            key,
		apiBase:        DefaultAPIBase,
		http:           &http.Client{Timeout: 30 * time.Second},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Token returns a valid installation token, minting a new one if needed.
func (s *AppTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(refreshMargin).Before(s.expires) {
		return s.token, nil
	}

	token, expires, err := s.exchange(ctx)
	if err != nil {
		return "", err
	}
	s.token, s.expires = token, expires
	return token, nil
}

// appJWT signs the short-lived App assertion. GitHub caps its lifetime at
// ten minutes and tolerates little clock drift, hence the backdated iat.
func (s *AppTokenSource) appJWT() (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"iss": s.appID,
		"iat": now.Add(-30 * time.Second).Unix(),
		"exp": now.Add(9 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.key)
}

type installationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *AppTokenSource) exchange(ctx context.Context) (string, time.Time, error) {
	const op = "github.AppTokenSource"

	assertion, err := s.appJWT()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign app jwt: %w", err)
	}

	endpoint := s.apiBase + "/app/installations/" + s.installationID + "/access_tokens"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", time.Time{}, store.Wrap(store.KindProtocol, op, "GitHub token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		return "", time.Time{}, store.Wrap(store.FromStatus(resp.StatusCode), op, "could not obtain a GitHub installation token", cause)
	}

	var out installationToken
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", time.Time{}, store.Wrap(store.KindProtocol, op, "unexpected GitHub response", err)
	}
	if out.Token == "" {
		return "", time.Time{}, store.E(store.KindProtocol, op, "GitHub returned an empty installation token")
	}
	return out.Token, out.ExpiresAt, nil
}
