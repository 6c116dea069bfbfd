package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/placeshare/placeshare/internal/config"
	"github.com/placeshare/placeshare/internal/usecase"
)

const DefaultBaseURL = "https://maps.googleapis.com"

const unresolvable = "Could not find location for the specified address."

// Client resolves addresses through the Google Geocoding API.
// implements usecase.Geocoder
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRate limits outbound calls to rps requests per second.
func WithRate(rps int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Second,
		},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NewFromEnv() *Client {
	return New(
		config.GetEnv(config.ENV_KEY_GEOCODING_API_KEY, ""),
		WithBaseURL(config.GetEnv(config.ENV_KEY_GEOCODING_BASE_URL, DefaultBaseURL)),
		WithTimeout(config.GetEnvDuration(config.ENV_KEY_GEOCODING_TIMEOUT, 5*time.Second)),
		WithRate(config.GetEnvInt(config.ENV_KEY_GEOCODING_RPS, 10)),
	)
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func geocodingErr(cause error) error {
	return usecase.NewError(usecase.KindGeocoding, "address_not_resolved", unresolvable, cause)
}

// Resolve returns the coordinates of the first match for address.
func (c *Client) Resolve(ctx context.Context, address string) (usecase.Location, error) {
	if strings.TrimSpace(address) == "" {
		return usecase.Location{}, geocodingErr(fmt.Errorf("empty address"))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return usecase.Location{}, geocodingErr(err)
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/maps/api/geocode/json?"+q.Encode(), nil)
	if err != nil {
		return usecase.Location{}, geocodingErr(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return usecase.Location{}, geocodingErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return usecase.Location{}, geocodingErr(fmt.Errorf("geocoding api: status %d", resp.StatusCode))
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return usecase.Location{}, geocodingErr(fmt.Errorf("decode response: %w", err))
	}

	if body.Status != "OK" || len(body.Results) == 0 {
		return usecase.Location{}, geocodingErr(fmt.Errorf("geocoding api: %s %s", body.Status, body.ErrorMessage))
	}

	loc := body.Results[0].Geometry.Location
	return usecase.Location{Lat: loc.Lat, Lng: loc.Lng}, nil
}
