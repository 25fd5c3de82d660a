// Package places talks to the Google Places and Directions web services.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/twpayne/go-polyline"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

var ErrMissingAPIKey = errors.New("google api key not configured")

// Client implements ports.PlaceFinder and ports.Router.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var (
	_ ports.PlaceFinder = (*Client)(nil)
	_ ports.Router      = (*Client)(nil)
)

func NewClient(cfg Config, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{baseURL: strings.TrimRight(cfg.BaseURL, "/"), apiKey: cfg.APIKey, http: client}
}

type apiStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (s apiStatus) err(api string) error {
	if s.ErrorMessage != "" {
		return fmt.Errorf("%s status %s: %s", api, s.Status, s.ErrorMessage)
	}
	return fmt.Errorf("%s status %s", api, s.Status)
}

type nearbyResponse struct {
	apiStatus
	Results []struct {
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Rating   float64  `json:"rating"`
		Types    []string `json:"types"`
		Geometry struct {
			Location domain.Coordinate `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Nearby runs a nearbysearch. ZERO_RESULTS is an empty slice, not an error.
func (c *Client) Nearby(ctx context.Context, q ports.PlaceQuery) ([]domain.POI, error) {
	params := url.Values{}
	params.Set("location", q.Center.String())
	params.Set("radius", strconv.Itoa(q.RadiusMeters))
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}

	var resp nearbyResponse
	if err := c.getJSON(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, fmt.Errorf("places nearby: %w", err)
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []domain.POI{}, nil
	default:
		return nil, resp.err("places nearby")
	}

	out := make([]domain.POI, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, domain.POI{
			Name:     r.Name,
			Address:  r.Vicinity,
			Rating:   r.Rating,
			Location: r.Geometry.Location,
			Types:    r.Types,
		})
	}
	return out, nil
}

type directionsResponse struct {
	apiStatus
	Routes []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

// Route returns the decoded overview polyline of the first driving route.
// A non-nil waypoint is passed as a "via:" point so it adds no stopover.
func (c *Client) Route(ctx context.Context, origin, destination domain.Coordinate, waypoint *domain.Coordinate) ([]domain.Coordinate, error) {
	params := url.Values{}
	params.Set("origin", origin.String())
	params.Set("destination", destination.String())
	params.Set("mode", "driving")
	if waypoint != nil {
		params.Set("waypoints", "via:"+waypoint.String())
	}

	var resp directionsResponse
	if err := c.getJSON(ctx, "/directions/json", params, &resp); err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []domain.Coordinate{}, nil
	default:
		return nil, resp.err("directions")
	}
	if len(resp.Routes) == 0 {
		return []domain.Coordinate{}, nil
	}

	return DecodePolyline(resp.Routes[0].OverviewPolyline.Points)
}

// DecodePolyline turns an encoded polyline into coordinates.
func DecodePolyline(points string) ([]domain.Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(points))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	out := make([]domain.Coordinate, 0, len(coords))
	for _, c := range coords {
		out = append(out, domain.Coordinate{Lat: c[0], Lng: c[1]})
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return redactKey(err, c.apiKey)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	return json.NewDecoder(res.Body).Decode(out)
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	msg := err.Error()
	if !strings.Contains(msg, key) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, key, "REDACTED"))
}
