// Package geo resolves location names to coordinates via the Open-Meteo
// geocoding API and provides great-circle distance math shared by the travel
// services.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tripmesh/tripmesh/cache"
	"github.com/tripmesh/tripmesh/logging"
)

const (
	// DefaultBaseURL is the Open-Meteo geocoding endpoint.
	DefaultBaseURL = "https://geocoding-api.open-meteo.com/v1/search"

	// EarthRadiusKm is the mean Earth radius used for haversine distances.
	EarthRadiusKm = 6371.0

	defaultTimeout = 30 * time.Second
	cacheTTL       = 24 * time.Hour
)

// ErrNotFound indicates the geocoder returned no results for a name.
var ErrNotFound = errors.New("location not found")

// Location is a resolved place.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
}

// Client geocodes location names. Results are cached by normalized name.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      cache.Cache
	limiter    *rate.Limiter
	logger     logging.Logger
}

// ClientOptions customizes a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	Cache      cache.Cache
	Limiter    *rate.Limiter
	Logger     logging.Logger
}

// NewClient creates a geocoding client with a no-op cache and a modest
// request rate unless overridden.
func NewClient(optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		BaseURL:    DefaultBaseURL,
		Cache:      cache.NoOp{},
		Limiter:    rate.NewLimiter(rate.Limit(10), 10),
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		cache:      opts.Cache,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
}

// Geocode resolves a location name to its top-ranked coordinates.
func (c *Client) Geocode(ctx context.Context, location string) (Location, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Location{}, fmt.Errorf("empty location name")
	}

	key := "geo:" + strings.ToLower(location)
	if data, ok := c.cache.Get(ctx, key); ok {
		var loc Location
		if err := json.Unmarshal(data, &loc); err == nil {
			return loc, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Location{}, err
	}

	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Location{}, fmt.Errorf("build geocoding request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Location{}, fmt.Errorf("geocoding: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Results []Location `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("decode geocoding response: %w", err)
	}
	if len(payload.Results) == 0 {
		return Location{}, fmt.Errorf("%q: %w", location, ErrNotFound)
	}

	loc := payload.Results[0]
	if data, err := json.Marshal(loc); err == nil {
		c.cache.Set(ctx, key, data, cacheTTL)
	}

	c.logger.Debug("geo.resolved", "location", location, "lat", loc.Latitude, "lon", loc.Longitude)
	return loc, nil
}

// Haversine returns the great-circle distance in kilometers between two
// points, rounded to two decimals.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return math.Round(EarthRadiusKm*c*100) / 100
}

// ValidCoordinates reports whether lat/lon form a real coordinate pair.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
