package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bus-tracker/internal/transit"
)

// APIError is returned for non-2xx responses from the fleet service.
type APIError struct {
	Status int
	URL    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fleet service returned %d for %s", e.Status, e.URL)
}

// Location is the wire shape of a vehicle location as served and accepted by
// the fleet service.
type Location struct {
	VehicleID string  `json:"vehicleId,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	SpeedKmh  float64 `json:"speedKmh,omitempty"`
	Status    string  `json:"status,omitempty"`
}

// Client talks to the remote fleet service over HTTP. Every request carries a
// bounded timeout so a slow network can never stack in-flight requests behind
// a poll ticker.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewClient(baseURL, authToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchVehicle returns vehicle metadata including its route assignment.
func (c *Client) FetchVehicle(ctx context.Context, vehicleID string) (transit.Vehicle, error) {
	var v transit.Vehicle
	err := c.getJSON(ctx, fmt.Sprintf("%s/vehicles/%s", c.baseURL, vehicleID), &v)
	return v, err
}

// FetchLocation returns the current position of a vehicle.
func (c *Client) FetchLocation(ctx context.Context, vehicleID string) (Location, error) {
	var loc Location
	err := c.getJSON(ctx, fmt.Sprintf("%s/buses/location/%s", c.baseURL, vehicleID), &loc)
	return loc, err
}

// FetchRoute returns the route assigned to a vehicle, with its ordered stops.
func (c *Client) FetchRoute(ctx context.Context, vehicleID string) (transit.Route, error) {
	var r transit.Route
	err := c.getJSON(ctx, fmt.Sprintf("%s/routes/vehicle/%s", c.baseURL, vehicleID), &r)
	return r, err
}

// PushLocation reports a driver-side position to the fleet service.
func (c *Client) PushLocation(ctx context.Context, loc Location) error {
	body, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/buses/location", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, URL: url}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &APIError{Status: resp.StatusCode, URL: url}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}
