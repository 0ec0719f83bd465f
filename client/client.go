package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	v1 "rollout/pkg/api/v1"
)

// Client is a thin HTTP client for the rollout administration API. It carries
// an access token obtained elsewhere; it does not refresh it.
type Client struct {
	addr       string
	token      string
	httpClient *http.Client
}

func New(addr, token string) *Client {
	return &Client{
		addr:       addr,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type successResponse struct {
	Success bool `json:"success"`
}

type optedInResponse struct {
	OptedIn bool `json:"opted_in"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListMyFeatures returns the effective status of every catalog feature for the
// token's user.
func (c *Client) ListMyFeatures(ctx context.Context) ([]v1.FeatureStatus, error) {
	var features []v1.FeatureStatus
	if err := c.do(ctx, http.MethodGet, "/v1/features/me", nil, &features); err != nil {
		return nil, err
	}
	return features, nil
}

// SetMyFeature toggles a feature override for the token's user.
func (c *Client) SetMyFeature(ctx context.Context, slug string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	var out successResponse
	return c.do(ctx, http.MethodPut, "/v1/features/me/"+slug, body, &out)
}

// EligibleOptIns returns the opt-in features currently offerable to the
// token's user, in priority order.
func (c *Client) EligibleOptIns(ctx context.Context) ([]v1.EligibleOptInFeature, error) {
	var features []v1.EligibleOptInFeature
	if err := c.do(ctx, http.MethodGet, "/v1/opt-ins/eligible", nil, &features); err != nil {
		return nil, err
	}
	return features, nil
}

// HasOptedIn reports whether the token's user holds an enabled override.
func (c *Client) HasOptedIn(ctx context.Context, slug string) (bool, error) {
	var out optedInResponse
	if err := c.do(ctx, http.MethodGet, "/v1/opt-ins/"+slug, nil, &out); err != nil {
		return false, err
	}
	return out.OptedIn, nil
}

// OptIn enables the feature for the token's user. The server rejects slugs
// outside the opt-in allowlist.
func (c *Client) OptIn(ctx context.Context, slug string) error {
	var out successResponse
	return c.do(ctx, http.MethodPost, "/v1/opt-ins/"+slug, nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.addr+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, e.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
