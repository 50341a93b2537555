package geoclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fmillerrzero/odcv-app/internal/bbl"
	"github.com/fmillerrzero/odcv-app/internal/resilience"
)

// DefaultBaseURL is the public Geoclient v1 endpoint.
const DefaultBaseURL = "https://api.cityofnewyork.us/geoclient/v1"

// SourceGeoclient marks locations resolved by the Geoclient API.
const SourceGeoclient = "geoclient"

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetry sets the retry policy for transient failures (429, 5xx,
// timeouts).
func WithRetry(p resilience.RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithBreaker replaces the circuit breaker guarding the API.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) {
		if b != nil {
			c.breaker = b
		}
	}
}

// Client resolves addresses with the Geoclient "address" function.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	appKey     string
	limiter    *rate.Limiter
	retry      resilience.RetryPolicy
	breaker    *resilience.Breaker
}

// NewClient creates a Geoclient resolver authenticated with the given app
// id and key.
func NewClient(appID, appKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		appID:      appID,
		appKey:     appKey,
		limiter:    rate.NewLimiter(10, 10),
		retry:      resilience.DefaultRetryPolicy(),
		breaker:    resilience.NewBreaker("geoclient", 5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type addressResponse struct {
	Address addressResult `json:"address"`
}

type addressResult struct {
	BBL                       string          `json:"bbl"`
	HouseNumber               string          `json:"houseNumber"`
	FirstStreetNameNormalized string          `json:"firstStreetNameNormalized"`
	FirstBoroughName          string          `json:"firstBoroughName"`
	ZipCode                   string          `json:"zipCode"`
	BuildingIdentification    string          `json:"buildingIdentificationNumber"`
	Latitude                  json.RawMessage `json:"latitude"`
	Longitude                 json.RawMessage `json:"longitude"`
	Message                   string          `json:"message"`
}

// Resolve looks up one address. An empty or malformed BBL in the response
// counts as unresolved.
func (c *Client) Resolve(ctx context.Context, address, boroughHint string) (*Location, bool, error) {
	street, borough := SplitBorough(address, boroughHint)
	house, name := SplitHouseNumber(street)
	if name == "" {
		return nil, false, nil
	}

	params := url.Values{
		"houseNumber": {house},
		"street":      {name},
		"borough":     {borough},
		"app_id":      {c.appID},
		"app_key":     {c.appKey},
	}
	body, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.Retry(ctx, c.retry, "geoclient.address", func(ctx context.Context) ([]byte, error) {
			return c.get(ctx, "/address.json?"+params.Encode())
		})
	})
	if err != nil {
		return nil, false, err
	}

	var ar addressResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, false, eris.Wrap(err, "geoclient: parse response")
	}

	r := ar.Address
	key, err := bbl.Normalize(r.BBL)
	if err != nil {
		zap.L().Debug("geoclient: address not resolved",
			zap.String("address", street),
			zap.String("borough", borough),
			zap.String("message", r.Message),
		)
		return nil, false, nil
	}

	return &Location{
		BBL:       key,
		Address:   strings.TrimSpace(r.HouseNumber + " " + r.FirstStreetNameNormalized),
		Borough:   r.FirstBoroughName,
		ZipCode:   r.ZipCode,
		BIN:       r.BuildingIdentification,
		Latitude:  parseCoord(r.Latitude),
		Longitude: parseCoord(r.Longitude),
		Source:    SourceGeoclient,
	}, true, nil
}

// get performs one rate-limited request and returns the body. Throttling and
// server errors come back as transient.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geoclient: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geoclient: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geoclient: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("geoclient: returned status %d", resp.StatusCode)
		if resilience.IsTransientStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geoclient: read body")
	}
	return body, nil
}

// parseCoord accepts a coordinate sent either as a JSON number or a string.
func parseCoord(raw json.RawMessage) *float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
