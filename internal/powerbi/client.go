// Package powerbi wraps the Power BI REST API for workspace discovery,
// embed token generation and dataset refresh management.
package powerbi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Subaashini27/precision-marketing-intelligence/internal/metrics"
)

const defaultBaseURL = "https://api.powerbi.com/v1.0/myorg"

// APIError is returned when the Power BI API responds with a
// non-success status.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("powerbi %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client calls the Power BI REST API. All calls run through a circuit
// breaker so a broken upstream fails fast instead of stacking up.
type Client struct {
	tokens     *TokenManager
	httpClient *http.Client
	baseURL    string // configurable for testing
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(tokens *TokenManager) *Client {
	settings := gobreaker.Settings{
		Name:        "powerbi",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.TotalFailures*10 >= counts.Requests*6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name,
				"from", from.String(), "to", to.String())
			metrics.PowerBICircuitState.Set(breakerStateValue(to))
		},
	}

	return &Client{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// doJSON performs an authenticated request and decodes the JSON
// response into out (out may be nil for empty-body operations).
// wantStatus is the expected success status code.
func (c *Client) doJSON(ctx context.Context, operation, method, path string, payload, out any, wantStatus int) error {
	start := time.Now()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.request(ctx, operation, method, path, payload, out, wantStatus)
	})

	metrics.PowerBIRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PowerBIRequestsTotal.WithLabelValues(operation, "error").Inc()
		return err
	}
	metrics.PowerBIRequestsTotal.WithLabelValues(operation, "success").Inc()
	return nil
}

func (c *Client) request(ctx context.Context, operation, method, path string, payload, out any, wantStatus int) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked; force re-acquisition next call
		c.tokens.Invalidate()
	}
	if resp.StatusCode != wantStatus {
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ListWorkspaces returns all workspaces the service principal can see.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	var result struct {
		Value []Workspace `json:"value"`
	}
	err := c.doJSON(ctx, "list_workspaces", http.MethodGet, "/groups", nil, &result, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// ListReports returns the reports in a workspace.
func (c *Client) ListReports(ctx context.Context, workspaceID string) ([]Report, error) {
	var result struct {
		Value []Report `json:"value"`
	}
	path := fmt.Sprintf("/groups/%s/reports", workspaceID)
	if err := c.doJSON(ctx, "list_reports", http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// GetReport returns a single report.
func (c *Client) GetReport(ctx context.Context, workspaceID, reportID string) (*Report, error) {
	var report Report
	path := fmt.Sprintf("/groups/%s/reports/%s", workspaceID, reportID)
	if err := c.doJSON(ctx, "get_report", http.MethodGet, path, nil, &report, http.StatusOK); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListDatasets returns the datasets in a workspace.
func (c *Client) ListDatasets(ctx context.Context, workspaceID string) ([]Dataset, error) {
	var result struct {
		Value []Dataset `json:"value"`
	}
	path := fmt.Sprintf("/groups/%s/datasets", workspaceID)
	if err := c.doJSON(ctx, "list_datasets", http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// ListPages returns the pages of a report.
func (c *Client) ListPages(ctx context.Context, workspaceID, reportID string) ([]Page, error) {
	var result struct {
		Value []Page `json:"value"`
	}
	path := fmt.Sprintf("/groups/%s/reports/%s/pages", workspaceID, reportID)
	if err := c.doJSON(ctx, "list_pages", http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// GenerateEmbedToken creates a view-scoped embed token for a report,
// optionally constrained by row-level security identities.
func (c *Client) GenerateEmbedToken(ctx context.Context, workspaceID, reportID string, identities []EffectiveIdentity) (*EmbedToken, error) {
	payload := map[string]any{
		"accessLevel": "View",
	}
	if len(identities) > 0 {
		payload["identities"] = identities
	}

	var token EmbedToken
	path := fmt.Sprintf("/groups/%s/reports/%s/GenerateToken", workspaceID, reportID)
	if err := c.doJSON(ctx, "generate_token", http.MethodPost, path, payload, &token, http.StatusOK); err != nil {
		return nil, err
	}
	return &token, nil
}

// GetEmbedConfig resolves a report and bundles it with a fresh embed
// token.
func (c *Client) GetEmbedConfig(ctx context.Context, workspaceID, reportID string, identities []EffectiveIdentity) (*EmbedConfig, error) {
	report, err := c.GetReport(ctx, workspaceID, reportID)
	if err != nil {
		return nil, err
	}

	token, err := c.GenerateEmbedToken(ctx, workspaceID, reportID, identities)
	if err != nil {
		return nil, err
	}

	return &EmbedConfig{
		ReportID:    report.ID,
		ReportName:  report.Name,
		EmbedURL:    report.EmbedURL,
		AccessToken: token.Token,
		TokenID:     token.TokenID,
		Expiration:  token.Expiration,
	}, nil
}

// RefreshDataset triggers an asynchronous dataset refresh. Power BI
// answers 202 Accepted on success.
func (c *Client) RefreshDataset(ctx context.Context, workspaceID, datasetID string) error {
	payload := map[string]any{"notifyOption": "NoNotification"}
	path := fmt.Sprintf("/groups/%s/datasets/%s/refreshes", workspaceID, datasetID)
	return c.doJSON(ctx, "refresh_dataset", http.MethodPost, path, payload, nil, http.StatusAccepted)
}

// GetRefreshHistory returns the most recent refreshes of a dataset.
func (c *Client) GetRefreshHistory(ctx context.Context, workspaceID, datasetID string, top int) ([]Refresh, error) {
	var result struct {
		Value []Refresh `json:"value"`
	}
	path := fmt.Sprintf("/groups/%s/datasets/%s/refreshes?$top=%d", workspaceID, datasetID, top)
	if err := c.doJSON(ctx, "refresh_history", http.MethodGet, path, nil, &result, http.StatusOK); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// Status probes connectivity by listing workspaces and reports how
// many are visible.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	workspaces, err := c.ListWorkspaces(ctx)
	if err != nil {
		return map[string]any{"connected": false, "error": err.Error()}, err
	}
	return map[string]any{
		"connected":  true,
		"workspaces": len(workspaces),
	}, nil
}
