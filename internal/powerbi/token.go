package powerbi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

const (
	// tokenExpirySlack refreshes the AAD token this long before it
	// actually expires.
	tokenExpirySlack = 60 * time.Second

	defaultAuthorityURL = "https://login.microsoftonline.com"
	tokenScope          = "https://analysis.windows.net/powerbi/api/.default"
)

// TokenError is returned when the AAD token endpoint rejects a request.
type TokenError struct {
	StatusCode int
	Body       string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token request failed with status %d: %s", e.StatusCode, e.Body)
}

// TokenManager acquires and caches Azure AD access tokens via the
// client credentials flow. Concurrent refreshes collapse into a single
// request.
type TokenManager struct {
	tenantID     string
	clientID     string
	clientSecret string
	authorityURL string // configurable for testing

	httpClient *http.Client
	clock      clockwork.Clock
	group      singleflight.Group

	mu          sync.RWMutex
	accessToken string
	expiry      time.Time
}

func NewTokenManager(tenantID, clientID, clientSecret string) *TokenManager {
	return &TokenManager{
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		authorityURL: defaultAuthorityURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		clock:        clockwork.NewRealClock(),
	}
}

// Token returns a valid access token, acquiring a fresh one when the
// cached token is missing or about to expire.
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.RLock()
	token, expiry := tm.accessToken, tm.expiry
	tm.mu.RUnlock()

	if token != "" && tm.clock.Now().Add(tokenExpirySlack).Before(expiry) {
		return token, nil
	}

	result, err, _ := tm.group.Do("token", func() (any, error) {
		return tm.acquire(ctx)
	})
	if err != nil {
		metrics.PowerBITokenRefreshes.WithLabelValues("error").Inc()
		return "", err
	}

	metrics.PowerBITokenRefreshes.WithLabelValues("success").Inc()
	return result.(string), nil
}

// Invalidate drops the cached token so the next call re-acquires, e.g.
// after a 401 from the Power BI API.
func (tm *TokenManager) Invalidate() {
	tm.mu.Lock()
	tm.accessToken = ""
	tm.expiry = time.Time{}
	tm.mu.Unlock()
}

func (tm *TokenManager) acquire(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", tm.clientID)
	data.Set("client_secret", tm.clientSecret)
	data.Set("scope", tokenScope)

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", tm.authorityURL, tm.tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &TokenError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	tm.mu.Lock()
	tm.accessToken = result.AccessToken
	tm.expiry = tm.clock.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	tm.mu.Unlock()

	return result.AccessToken, nil
}
