package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultTokenURL is the IBM Cloud IAM token endpoint.
const DefaultTokenURL = "https://iam.cloud.ibm.com/identity/token"

const iamGrantType = "urn:ibm:params:oauth:grant-type:apikey"

// IAMConfig configures an APIKeyProvider.
type IAMConfig struct {
	// APIKey is the IBM Cloud API key to exchange for bearer tokens.
	// Empty means unconfigured: HasSession reports false and
	// OpenSession returns ErrNoCredentials.
	APIKey string

	// TokenURL is the IAM token endpoint. Default: DefaultTokenURL.
	TokenURL string

	// Channel is stamped into issued sessions. Default: ChannelCloud.
	Channel string

	// Instance is stamped into issued sessions.
	Instance string

	// RefreshHeadroom renews sessions this close to expiry.
	// Default: 60 seconds.
	RefreshHeadroom time.Duration

	// Timeout is the HTTP request timeout for exchanges.
	// Default: 10 seconds.
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// Logger defaults to a no-op logger.
	Logger zerolog.Logger
}

// APIKeyProvider exchanges an API key for bearer sessions at the IAM
// token endpoint. Sessions are cached until close to expiry and
// concurrent refreshes are coalesced, so callers can open sessions
// freely.
type APIKeyProvider struct {
	cfg        IAMConfig
	httpClient *http.Client
	log        zerolog.Logger
	group      singleflight.Group

	mu     sync.RWMutex
	cur    *Session
	failed bool
}

var _ Provider = (*APIKeyProvider)(nil)

// NewAPIKeyProvider creates an APIKeyProvider, applying defaults for
// unset config fields.
func NewAPIKeyProvider(cfg IAMConfig) *APIKeyProvider {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Channel == "" {
		cfg.Channel = ChannelCloud
	}
	if cfg.RefreshHeadroom == 0 {
		cfg.RefreshHeadroom = 60 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &APIKeyProvider{
		cfg:        cfg,
		httpClient: httpClient,
		log:        cfg.Logger.With().Str("component", "credentials").Logger(),
	}
}

// HasSession reports whether an API key is configured and a session is
// either cached or not yet attempted. After a failed exchange it
// reports false until an explicit OpenSession succeeds.
func (p *APIKeyProvider) HasSession(context.Context) bool {
	if p.cfg.APIKey == "" {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cur.ValidFor(p.cfg.RefreshHeadroom) {
		return true
	}
	return !p.failed
}

// OpenSession returns the cached session when it is still comfortably
// valid and exchanges the API key for a fresh one otherwise. Exactly
// one exchange runs at a time; concurrent callers share its result.
func (p *APIKeyProvider) OpenSession(ctx context.Context) (*Session, error) {
	if p.cfg.APIKey == "" {
		return nil, ErrNoCredentials
	}
	if s := p.cached(); s != nil {
		return s, nil
	}

	v, err, _ := p.group.Do("session", func() (any, error) {
		if s := p.cached(); s != nil {
			return s, nil
		}

		s, err := p.exchange(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.failed = true
			return nil, err
		}
		p.failed = false
		p.cur = s

		p.log.Debug().
			Str("channel", s.Channel).
			Time("expiry", s.Expiry).
			Msg("opened session")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (p *APIKeyProvider) cached() *Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cur.ValidFor(p.cfg.RefreshHeadroom) {
		return p.cur
	}
	return nil
}

// iamTokenResponse is the IAM token endpoint response shape.
type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

func (p *APIKeyProvider) exchange(ctx context.Context) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", iamGrantType)
	form.Set("apikey", p.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrDenied, resp.StatusCode)
	default:
		return nil, fmt.Errorf("token exchange: status %d", resp.StatusCode)
	}

	var tr iamTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("token exchange: decode: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token exchange: empty access token")
	}

	var expiry time.Time
	if exp, ok := tokenExpiry(tr.AccessToken); ok {
		expiry = exp
	} else if tr.Expiration > 0 {
		expiry = time.Unix(tr.Expiration, 0)
	} else if tr.ExpiresIn > 0 {
		expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	return &Session{
		Token:    tr.AccessToken,
		Expiry:   expiry,
		Channel:  p.cfg.Channel,
		Instance: p.cfg.Instance,
	}, nil
}

// tokenExpiry reads the exp claim from a JWT access token. The parse
// is unverified: the client holds no verification keys and the service
// re-checks every request, so only the expiry is taken, for refresh
// scheduling.
func tokenExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
