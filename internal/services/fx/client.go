package fx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"taxfolio/internal/domain"
	"taxfolio/internal/errs"
)

// DefaultBaseURL points at the Frankfurter historical rates API.
const DefaultBaseURL = "https://api.frankfurter.dev/v1"

const (
	maxAttempts     = 3
	maxRetryBackoff = 5 * time.Second
	requestTimeout  = 10 * time.Second
)

// Client fetches historical GBP/ZAR fixes over HTTP. Transient failures are
// retried with exponential backoff here, at the transport edge; callers never
// retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given API base URL; empty means the
// default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type ratesResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// RateOn fetches the GBP to ZAR rate for the given day.
func (c *Client) RateOn(ctx context.Context, day domain.CivilDate) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s?base=GBP&symbols=ZAR", c.baseURL, day)

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = maxRetryBackoff

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			sleep := backoffCfg.NextBackOff()
			select {
			case <-ctx.Done():
				return decimal.Decimal{}, errs.Upstream(ctx.Err(), "fx lookup for %s cancelled", day)
			case <-time.After(sleep):
			}
		}

		rate, retryable, err := c.fetch(ctx, url)
		if err == nil {
			return rate, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return decimal.Decimal{}, errs.Upstream(lastErr, "fx rate for %s unavailable", day)
}

func (c *Client) fetch(ctx context.Context, url string) (decimal.Decimal, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Decimal{}, true, err
	}
	if resp.StatusCode >= 500 {
		return decimal.Decimal{}, true, errors.Errorf("fx provider answered %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, false, errors.Errorf("fx provider answered %d", resp.StatusCode)
	}

	var parsed ratesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Decimal{}, false, errors.Wrap(err, "decode fx response")
	}
	rate, ok := parsed.Rates["ZAR"]
	if !ok || !rate.IsPositive() {
		return decimal.Decimal{}, false, errors.New("no ZAR rate in fx response")
	}
	return rate, false, nil
}
