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

// ClobClient is the REST client for the Polymarket CLOB API, used here only
// for the unauthenticated prices-history endpoint.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    domain.Limiter
	retry      RetryPolicy
}

// NewClobClient creates a new CLOB API client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string, limiter domain.Limiter, retry RetryPolicy, timeout time.Duration) *ClobClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		retry:   retry,
	}
}

// GetPriceHistory fetches the full available price history for one CLOB
// token. interval selects the server-side range ("max" for everything);
// fidelity is the sampling resolution in minutes.
func (c *ClobClient) GetPriceHistory(ctx context.Context, tokenID, interval string, fidelity int) (APIHistory, error) {
	if tokenID == "" {
		return APIHistory{}, fmt.Errorf("polymarket/clob: %w: empty token id", domain.ErrInvalidInput)
	}

	params := url.Values{}
	params.Set("market", tokenID)
	if interval != "" {
		params.Set("interval", interval)
	}
	if fidelity > 0 {
		params.Set("fidelity", strconv.Itoa(fidelity))
	}

	path := "/prices-history?" + params.Encode()

	var history APIHistory
	err := c.retry.do(ctx, func() error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		history = APIHistory{}
		if err := json.Unmarshal(body, &history); err != nil {
			return &parseError{err: err}
		}
		return nil
	})
	if err != nil {
		return APIHistory{}, fmt.Errorf("polymarket/clob: price history for token %s: %w", tokenID, err)
	}
	return history, nil
}

// doGet waits on the limiter, then sends one unauthenticated GET request.
func (c *ClobClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "clob"); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
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
