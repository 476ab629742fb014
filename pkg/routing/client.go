// Package routing wraps the external routing/geocoding provider. The
// provider is treated as rate-limited and occasionally failing; callers must
// tolerate partial results.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://routing.importiq.example/v2"

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MatrixElement is one origin-to-destination result. OK is false when the
// provider could not route that pair; the other fields are then meaningless.
type MatrixElement struct {
	Destination     Point
	DurationMinutes float64
	FreeFlowMinutes float64
	DistanceKm      float64
	OK              bool
}

// Route is a full route with geometry.
type Route struct {
	DurationMinutes float64
	FreeFlowMinutes float64
	DistanceKm      float64
	Geometry        string
}

// Client performs routing provider operations. DistanceMatrix queries are
// traffic-aware driving durations.
type Client interface {
	DistanceMatrix(ctx context.Context, origin Point, destinations []Point) ([]MatrixElement, error)
	Route(ctx context.Context, origin, destination Point) (*Route, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBatchSize caps destinations per matrix request. The provider rejects
// oversized batches, so the client splits and reassembles transparently.
func WithBatchSize(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between consecutive matrix batches.
func WithBatchDelay(d time.Duration) Option {
	return func(c *httpClient) {
		c.batchDelay = d
	}
}

// WithRateLimit caps requests per second across all operations.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	batchSize  int
	batchDelay time.Duration
	limiter    *rate.Limiter
}

// NewClient creates a routing provider client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		batchSize:  25,
		batchDelay: 200 * time.Millisecond,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type matrixRequest struct {
	Origin       Point   `json:"origin"`
	Destinations []Point `json:"destinations"`
	Mode         string  `json:"mode"`
	Traffic      bool    `json:"traffic"`
}

type matrixResponse struct {
	Elements []matrixElement `json:"elements"`
}

type matrixElement struct {
	Status          string  `json:"status"`
	DurationMinutes float64 `json:"durationMinutes"`
	FreeFlowMinutes float64 `json:"freeFlowMinutes"`
	DistanceKm      float64 `json:"distanceKm"`
}

// DistanceMatrix returns one element per destination, in input order. The
// destination list is split into provider-sized batches with a fixed delay
// between them.
func (c *httpClient) DistanceMatrix(ctx context.Context, origin Point, destinations []Point) ([]MatrixElement, error) {
	out := make([]MatrixElement, 0, len(destinations))
	for start := 0; start < len(destinations); start += c.batchSize {
		end := start + c.batchSize
		if end > len(destinations) {
			end = len(destinations)
		}
		batch := destinations[start:end]

		elems, err := c.matrixBatch(ctx, origin, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, elems...)

		if end < len(destinations) && c.batchDelay > 0 {
			select {
			case <-time.After(c.batchDelay):
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "routing: batch delay")
			}
		}
	}
	return out, nil
}

func (c *httpClient) matrixBatch(ctx context.Context, origin Point, batch []Point) ([]MatrixElement, error) {
	var resp matrixResponse
	req := matrixRequest{Origin: origin, Destinations: batch, Mode: "driving", Traffic: true}
	if err := c.post(ctx, "/distance-matrix", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Elements) != len(batch) {
		return nil, eris.Errorf("routing: got %d elements for %d destinations", len(resp.Elements), len(batch))
	}

	elems := make([]MatrixElement, len(batch))
	for i, e := range resp.Elements {
		elems[i] = MatrixElement{
			Destination:     batch[i],
			DurationMinutes: e.DurationMinutes,
			FreeFlowMinutes: e.FreeFlowMinutes,
			DistanceKm:      e.DistanceKm,
			OK:              e.Status == "OK",
		}
	}
	return elems, nil
}

type routeRequest struct {
	Origin      Point  `json:"origin"`
	Destination Point  `json:"destination"`
	Mode        string `json:"mode"`
	Traffic     bool   `json:"traffic"`
}

type routeResponse struct {
	Status          string  `json:"status"`
	DurationMinutes float64 `json:"durationMinutes"`
	FreeFlowMinutes float64 `json:"freeFlowMinutes"`
	DistanceKm      float64 `json:"distanceKm"`
	Geometry        string  `json:"geometry"`
}

// Route fetches the traffic-aware route between two points.
func (c *httpClient) Route(ctx context.Context, origin, destination Point) (*Route, error) {
	var resp routeResponse
	req := routeRequest{Origin: origin, Destination: destination, Mode: "driving", Traffic: true}
	if err := c.post(ctx, "/route", req, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		return nil, eris.Errorf("routing: route status %q", resp.Status)
	}
	return &Route{
		DurationMinutes: resp.DurationMinutes,
		FreeFlowMinutes: resp.FreeFlowMinutes,
		DistanceKm:      resp.DistanceKm,
		Geometry:        resp.Geometry,
	}, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "routing: rate limit wait")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "routing: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "routing: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "routing: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "routing: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("routing: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return eris.Wrap(err, "routing: unmarshal response")
	}
	return nil
}
