// Package pricingclient lets consumers of the pricing API preview fares
// locally with the same arithmetic the server uses.
package pricingclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/httpclient"
	"github.com/chalosawari/chalo-sawari/pkg/resilience"
	"github.com/google/uuid"
)

const (
	snapshotPath = "/api/v1/pricing/snapshot"
	farePath     = "/api/v1/pricing/fare"
)

// ErrPricingUnavailable means the server has no pricing for the query
var ErrPricingUnavailable = errors.New("pricing not configured")

// Query selects the pricing record to price against
type Query struct {
	Category     fare.Category `json:"category"`
	VehicleType  string        `json:"vehicle_type"`
	VehicleModel string        `json:"vehicle_model,omitempty"`
	TripType     fare.TripType `json:"trip_type"`
}

// Snapshot is the server's pricing snapshot for a query
type Snapshot struct {
	RecordID uuid.UUID     `json:"record_id"`
	Snapshot fare.Snapshot `json:"snapshot"`
	TaxRate  float64       `json:"tax_rate"`
	Currency string        `json:"currency"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the pricing API
type Client struct {
	http *httpclient.Client
}

// New creates a client for the API at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = 100 * time.Millisecond
	retry.MaxBackoff = time.Second
	return &Client{http: httpclient.NewClient(baseURL, timeout).WithRetry(retry)}
}

// FetchSnapshot fetches the snapshot clients compute previews from
func (c *Client) FetchSnapshot(ctx context.Context, q Query) (*Snapshot, error) {
	values := url.Values{}
	values.Set("category", string(q.Category))
	values.Set("vehicle_type", q.VehicleType)
	values.Set("trip_type", string(q.TripType))
	if q.VehicleModel != "" {
		values.Set("vehicle_model", q.VehicleModel)
	}

	body, err := c.http.Get(ctx, snapshotPath+"?"+values.Encode(), nil)
	if err != nil {
		return nil, mapError(err)
	}

	var snap Snapshot
	if err := decode(body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Preview prices a trip locally from a freshly fetched snapshot
func (c *Client) Preview(ctx context.Context, q Query, distanceKm float64, includeTax bool) (*fare.Quote, error) {
	snap, err := c.FetchSnapshot(ctx, q)
	if err != nil {
		return nil, err
	}
	quote, err := PreviewFromSnapshot(snap, distanceKm, includeTax)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// PreviewFromSnapshot prices a trip from an already fetched snapshot. A
// snapshot with no usable rate is unavailable rather than a fare of 0, as
// it is on the server.
func PreviewFromSnapshot(snap *Snapshot, distanceKm float64, includeTax bool) (fare.Quote, error) {
	if snap == nil || !fare.Priced(snap.Snapshot, distanceKm) {
		return fare.Quote{}, ErrPricingUnavailable
	}
	return fare.NewQuote(snap.Snapshot, distanceKm, snap.TaxRate, includeTax), nil
}

// ServerQuote asks the server to price the trip
func (c *Client) ServerQuote(ctx context.Context, q Query, distanceKm float64, includeTax bool) (*fare.Quote, error) {
	req := struct {
		Query
		DistanceKm float64 `json:"distance_km"`
		IncludeTax bool    `json:"include_tax"`
	}{q, distanceKm, includeTax}

	body, err := c.http.Post(ctx, farePath, req, nil)
	if err != nil {
		return nil, mapError(err)
	}

	var resp struct {
		Quote fare.Quote `json:"quote"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	return &resp.Quote, nil
}

func decode(body []byte, dest interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		if env.Error != nil {
			return fmt.Errorf("pricing api error %s: %s", env.Error.Code, env.Error.Message)
		}
		return errors.New("pricing api error")
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func mapError(err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrPricingUnavailable, httpErr.Body)
	}
	return err
}
