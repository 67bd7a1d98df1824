// Package gamma implements the REST client for the Polymarket Gamma API,
// which provides event and market metadata for discovery.
package gamma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// Client is the Gamma API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetEventBySlug returns a single event looked up by its URL slug, including
// any embedded markets. It tries the path form /events/{slug} first and falls
// back to the query form /events?slug= which some Gamma deployments require.
func (c *Client) GetEventBySlug(ctx context.Context, slug string) (APIEvent, error) {
	body, err := c.doGet(ctx, "/events/"+url.PathEscape(slug))
	if err == nil {
		var event APIEvent
		if jsonErr := json.Unmarshal(body, &event); jsonErr == nil && event.Slug != "" {
			return event, nil
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return APIEvent{}, fmt.Errorf("gamma: get event %s: %w", slug, err)
	}

	params := url.Values{}
	params.Set("slug", slug)
	params.Set("limit", "1")

	body, err = c.doGet(ctx, "/events?"+params.Encode())
	if err != nil {
		return APIEvent{}, fmt.Errorf("gamma: get event by slug %s: %w", slug, err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return APIEvent{}, fmt.Errorf("gamma: decode events: %w", err)
	}
	if len(events) == 0 {
		return APIEvent{}, fmt.Errorf("gamma: %w: event slug=%s", domain.ErrNotFound, slug)
	}

	return events[0], nil
}

// GetMarketsForEvent returns the event identified by slug together with its
// markets. Markets embedded in the event response are preferred; when absent,
// the global /markets endpoint is queried by event slug.
func (c *Client) GetMarketsForEvent(ctx context.Context, slug string) (APIEvent, []APIMarket, error) {
	event, err := c.GetEventBySlug(ctx, slug)
	if err != nil {
		return APIEvent{}, nil, err
	}

	if len(event.Markets) > 0 {
		return event, event.Markets, nil
	}

	params := url.Values{}
	params.Set("eventSlug", slug)
	params.Set("limit", "500")

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return APIEvent{}, nil, fmt.Errorf("gamma: get markets for event %s: %w", slug, err)
	}

	var markets []APIMarket
	if err := json.Unmarshal(body, &markets); err != nil {
		return APIEvent{}, nil, fmt.Errorf("gamma: decode markets: %w", err)
	}

	return event, markets, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode >= 500, statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrSourceUnavailable, statusCode, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// classifyTransportErr wraps network-level failures as ErrSourceUnavailable
// so callers can retry the identical request.
func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return fmt.Errorf("http request: %w", err)
}
