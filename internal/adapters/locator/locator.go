// Package locator resolves the driver's approximate position from the public
// IP address of the vehicle's uplink.
package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

var ErrInvalidLocation = errors.New("invalid location payload")

// HTTPLocator queries ipinfo.io or ipapi.co.
type HTTPLocator struct {
	provider string
	baseURL  string
	token    string
	http     *http.Client
}

var _ ports.Locator = (*HTTPLocator)(nil)

func NewHTTPLocator(cfg Config, client *http.Client) *HTTPLocator {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPLocator{
		provider: cfg.Provider,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		http:     client,
	}
}

// New builds the locator named by cfg.Provider.
func New(cfg Config, client *http.Client) ports.Locator {
	if cfg.Provider == ProviderStatic {
		return Static{Location: domain.Location{Coordinate: cfg.Static}}
	}
	return NewHTTPLocator(cfg, client)
}

func (l *HTTPLocator) CurrentLocation(ctx context.Context) (domain.Location, error) {
	if l.provider == ProviderIPAPI {
		return l.ipapi(ctx)
	}
	return l.ipinfo(ctx)
}

type ipinfoResponse struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Loc     string `json:"loc"`
}

func (l *HTTPLocator) ipinfo(ctx context.Context) (domain.Location, error) {
	var resp ipinfoResponse
	if err := l.getJSON(ctx, "/json", &resp); err != nil {
		return domain.Location{}, fmt.Errorf("ipinfo: %w", err)
	}
	coord, err := parseLoc(resp.Loc)
	if err != nil {
		return domain.Location{}, fmt.Errorf("ipinfo: %w", err)
	}
	return domain.Location{Coordinate: coord, City: resp.City, Region: resp.Region, Country: resp.Country}, nil
}

type ipapiResponse struct {
	City      string   `json:"city"`
	Region    string   `json:"region"`
	Country   string   `json:"country_name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

func (l *HTTPLocator) ipapi(ctx context.Context) (domain.Location, error) {
	var resp ipapiResponse
	if err := l.getJSON(ctx, "/json/", &resp); err != nil {
		return domain.Location{}, fmt.Errorf("ipapi: %w", err)
	}
	if resp.Error {
		return domain.Location{}, fmt.Errorf("ipapi: %s", resp.Reason)
	}
	if resp.Latitude == nil || resp.Longitude == nil {
		return domain.Location{}, fmt.Errorf("ipapi: %w: missing coordinates", ErrInvalidLocation)
	}
	return domain.Location{
		Coordinate: domain.Coordinate{Lat: *resp.Latitude, Lng: *resp.Longitude},
		City:       resp.City,
		Region:     resp.Region,
		Country:    resp.Country,
	}, nil
}

// parseLoc reads ipinfo's "lat,lon" field.
func parseLoc(loc string) (domain.Coordinate, error) {
	lat, lng, ok := strings.Cut(loc, ",")
	if !ok {
		return domain.Coordinate{}, fmt.Errorf("%w: loc %q", ErrInvalidLocation, loc)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: latitude %q", ErrInvalidLocation, lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: longitude %q", ErrInvalidLocation, lng)
	}
	return domain.Coordinate{Lat: la, Lng: lo}, nil
}

func (l *HTTPLocator) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	res, err := l.http.Do(req)
	if err != nil {
		return err
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

// Static always reports the same location.
type Static struct {
	Location domain.Location
}

func (s Static) CurrentLocation(context.Context) (domain.Location, error) {
	return s.Location, nil
}
