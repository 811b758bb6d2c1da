package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub001/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides paginated market discovery.
//
// Every request passes through the shared Limiter before it is issued; the
// enforced inter-request delay is what keeps the upstream from throttling a
// long discovery scan.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    domain.Limiter
	retry      RetryPolicy
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, limiter domain.Limiter, retry RetryPolicy, timeout time.Duration) *GammaClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		retry:   retry,
	}
}

// GetMarkets returns one page of markets. closedOnly narrows the scan to
// resolved markets, which is what historical collection wants.
func (g *GammaClient) GetMarkets(ctx context.Context, limit, offset int, closedOnly bool) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if closedOnly {
		params.Set("closed", "true")
	}

	path := "/markets?" + params.Encode()

	var apiMarkets []APIMarket
	err := g.retry.do(ctx, func() error {
		body, err := g.doGet(ctx, path)
		if err != nil {
			return err
		}
		apiMarkets = apiMarkets[:0]
		if err := json.Unmarshal(body, &apiMarkets); err != nil {
			return &parseError{err: err}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets offset=%d: %w", offset, err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		if apiMarkets[i].ID == "" {
			continue
		}
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}
	return markets, nil
}

// GetMarket returns a single market by its ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(id))

	var apiMarket APIMarket
	err := g.retry.do(ctx, func() error {
		body, err := g.doGet(ctx, path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &apiMarket); err != nil {
			return &parseError{err: err}
		}
		return nil
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}
	if apiMarket.ID == "" {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: %w: market %s", domain.ErrNotFound, id)
	}
	return apiMarket.ToDomainMarket(), nil
}

// doGet waits on the limiter, then sends one unauthenticated GET request.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, "gamma"); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
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

// checkHTTPStatus maps non-2xx status codes to errors the retry classifier
// understands: 429 and 5xx are transient, other 4xx are permanent.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrBadRequest, bodyStr)
	case http.StatusTooManyRequests:
		return &httpError{status: statusCode, body: bodyStr}
	default:
		return &httpError{status: statusCode, body: bodyStr}
	}
}
