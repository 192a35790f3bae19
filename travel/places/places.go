// Package places provides POI search around a location, weather-aware
// category recommendations and distance categorization, backed by an
// OpenTripMap-compatible API.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tripmesh/tripmesh/cache"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/travel/geo"
)

const (
	// DefaultBaseURL is the OpenTripMap API root.
	DefaultBaseURL = "https://api.opentripmap.com"

	// DefaultRadiusMeters is the search radius when the caller gives none.
	DefaultRadiusMeters = 10000
	// MinRadiusMeters and MaxRadiusMeters bound the search radius.
	MinRadiusMeters = 100
	MaxRadiusMeters = 50000

	// DefaultLimit is the result count when the caller gives none.
	DefaultLimit = 20
	// MaxLimit caps a single search.
	MaxLimit = 500

	// weatherSearchLimit is the per-category cap in weather recommendations.
	weatherSearchLimit = 5

	defaultTimeout = 30 * time.Second
	searchTTL      = time.Hour
)

// weatherPlaceMapping selects place categories that suit a weather condition.
var weatherPlaceMapping = map[string][]string{
	"sunny":  {"beaches", "view_points", "natural", "sport", "water_sports"},
	"rainy":  {"museums", "cultural", "theatres_and_entertainments", "shops", "churches"},
	"cloudy": {"architecture", "historic", "monuments_and_memorials", "interesting_places"},
	"snowy":  {"winter_sports", "skiing", "museums", "cultural"},
	"windy":  {"sport", "water_sports", "view_points", "lighthouses"},
}

// categories is the catalogue of searchable place kinds.
var categories = []string{
	"accomodations",
	"amusements",
	"architecture",
	"beaches",
	"churches",
	"cultural",
	"foods",
	"historic",
	"interesting_places",
	"lighthouses",
	"monuments_and_memorials",
	"museums",
	"natural",
	"shops",
	"skiing",
	"sport",
	"theatres_and_entertainments",
	"view_points",
	"water_sports",
	"winter_sports",
}

// Place is one point of interest.
type Place struct {
	XID        string  `json:"xid"`
	Name       string  `json:"name"`
	Kinds      string  `json:"kinds"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Rate       int     `json:"rate"`
	DistanceKm float64 `json:"distance_km"`
	Distance   string  `json:"distance_category"`
}

// Details is the full record for one place.
type Details struct {
	XID         string  `json:"xid"`
	Name        string  `json:"name"`
	Kinds       string  `json:"kinds"`
	Address     string  `json:"address"`
	Description string  `json:"description"`
	Wikipedia   string  `json:"wikipedia"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Rate        string  `json:"rate"`
}

// SearchOptions bound a POI search. Zero values take the defaults.
type SearchOptions struct {
	RadiusMeters int
	Limit        int
	Category     string
}

// Service is the places domain service.
type Service struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	geocoder   *geo.Client
	cache      cache.Cache
	limiter    *rate.Limiter
	logger     logging.Logger
}

// ServiceOptions customizes a Service.
type ServiceOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Geocoder   *geo.Client
	Cache      cache.Cache
	Limiter    *rate.Limiter
	Logger     logging.Logger
}

// NewService creates a places service.
func NewService(optFns ...func(o *ServiceOptions)) *Service {
	opts := ServiceOptions{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		BaseURL:    DefaultBaseURL,
		Cache:      cache.NoOp{},
		Limiter:    rate.NewLimiter(rate.Limit(10), 10),
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Geocoder == nil {
		opts.Geocoder = geo.NewClient()
	}
	return &Service{
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		geocoder:   opts.Geocoder,
		cache:      opts.Cache,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
}

// Categories returns the searchable category catalogue.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// WeatherConditions returns the conditions RecommendByWeather accepts.
func WeatherConditions() []string {
	out := make([]string, 0, len(weatherPlaceMapping))
	for c := range weatherPlaceMapping {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// DistanceCategory buckets a distance in meters into a coarse label.
func DistanceCategory(meters float64) string {
	switch {
	case meters < 500:
		return "very_close"
	case meters < 2000:
		return "close"
	case meters < 10000:
		return "nearby"
	case meters < 25000:
		return "far"
	default:
		return "very_far"
	}
}

// Search finds places around a named location, deduped by name and sorted by
// distance ascending.
func (s *Service) Search(ctx context.Context, location string, opts SearchOptions) ([]Place, error) {
	loc, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}
	return s.SearchAt(ctx, loc.Latitude, loc.Longitude, opts)
}

// SearchAt finds places around coordinates.
func (s *Service) SearchAt(ctx context.Context, lat, lon float64, opts SearchOptions) ([]Place, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("invalid coordinates (%v, %v)", lat, lon)
	}
	opts = normalizeSearch(opts)
	if opts.Category != "" && !validCategory(opts.Category) {
		return nil, fmt.Errorf("unknown category %q, available: %s", opts.Category, strings.Join(categories, ", "))
	}

	key := fmt.Sprintf("places:radius:%.5f,%.5f:%d:%d:%s", lat, lon, opts.RadiusMeters, opts.Limit, opts.Category)
	if data, ok := s.cache.Get(ctx, key); ok {
		var out []Place
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	}

	q := url.Values{}
	q.Set("radius", strconv.Itoa(opts.RadiusMeters))
	q.Set("lat", strconv.FormatFloat(lat, 'f', 5, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 5, 64))
	q.Set("limit", strconv.Itoa(opts.Limit))
	q.Set("format", "geojson")
	if opts.Category != "" {
		q.Set("kinds", opts.Category)
	}

	var payload featureCollection
	if err := s.get(ctx, "/0.1/en/places/radius", q, &payload); err != nil {
		return nil, err
	}

	out := placesFrom(payload, lat, lon)
	if data, err := json.Marshal(out); err == nil {
		s.cache.Set(ctx, key, data, searchTTL)
	}
	return out, nil
}

// RecommendByWeather suggests places that fit the given weather condition.
// Each mapped category contributes a handful of results; the merged set is
// deduped and sorted by distance.
func (s *Service) RecommendByWeather(ctx context.Context, location, condition string) ([]Place, error) {
	cats, ok := weatherPlaceMapping[strings.ToLower(strings.TrimSpace(condition))]
	if !ok {
		return nil, fmt.Errorf("unknown weather condition %q, available: %s",
			condition, strings.Join(WeatherConditions(), ", "))
	}

	loc, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	merged := []Place{}
	for _, cat := range cats {
		found, err := s.SearchAt(ctx, loc.Latitude, loc.Longitude, SearchOptions{
			Category: cat,
			Limit:    weatherSearchLimit,
		})
		if err != nil {
			s.logger.Warn("places.category_search_failed", "category", cat, "error", err)
			continue
		}
		merged = append(merged, found...)
	}

	merged = dedupeByName(merged)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].DistanceKm < merged[j].DistanceKm })
	return merged, nil
}

// Describe fetches the full record for one place by its xid.
func (s *Service) Describe(ctx context.Context, xid string) (*Details, error) {
	xid = strings.TrimSpace(xid)
	if xid == "" {
		return nil, fmt.Errorf("empty place id")
	}

	var payload struct {
		XID     string `json:"xid"`
		Name    string `json:"name"`
		Kinds   string `json:"kinds"`
		Rate    string `json:"rate"`
		Address struct {
			Road    string `json:"road"`
			City    string `json:"city"`
			Country string `json:"country"`
		} `json:"address"`
		Wikipedia         string `json:"wikipedia"`
		WikipediaExtracts struct {
			Text string `json:"text"`
		} `json:"wikipedia_extracts"`
		Point struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"point"`
	}
	if err := s.get(ctx, "/0.1/en/places/xid/"+url.PathEscape(xid), url.Values{}, &payload); err != nil {
		return nil, err
	}

	addr := []string{}
	for _, part := range []string{payload.Address.Road, payload.Address.City, payload.Address.Country} {
		if part != "" {
			addr = append(addr, part)
		}
	}

	return &Details{
		XID:         payload.XID,
		Name:        payload.Name,
		Kinds:       payload.Kinds,
		Address:     strings.Join(addr, ", "),
		Description: payload.WikipediaExtracts.Text,
		Wikipedia:   payload.Wikipedia,
		Latitude:    payload.Point.Lat,
		Longitude:   payload.Point.Lon,
		Rate:        payload.Rate,
	}, nil
}

// featureCollection mirrors the GeoJSON radius response.
type featureCollection struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			XID   string  `json:"xid"`
			Name  string  `json:"name"`
			Kinds string  `json:"kinds"`
			Rate  int     `json:"rate"`
			Dist  float64 `json:"dist"`
		} `json:"properties"`
	} `json:"features"`
}

func (s *Service) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if s.apiKey != "" {
		q.Set("apikey", s.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build places request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode places response: %w", err)
	}
	return nil
}

func placesFrom(payload featureCollection, originLat, originLon float64) []Place {
	out := make([]Place, 0, len(payload.Features))
	for _, f := range payload.Features {
		if f.Properties.Name == "" || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
		km := geo.Haversine(originLat, originLon, lat, lon)
		out = append(out, Place{
			XID:        f.Properties.XID,
			Name:       f.Properties.Name,
			Kinds:      f.Properties.Kinds,
			Latitude:   lat,
			Longitude:  lon,
			Rate:       f.Properties.Rate,
			DistanceKm: km,
			Distance:   DistanceCategory(km * 1000),
		})
	}
	out = dedupeByName(out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

func dedupeByName(in []Place) []Place {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, p := range in {
		k := strings.ToLower(p.Name)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

func normalizeSearch(opts SearchOptions) SearchOptions {
	switch {
	case opts.RadiusMeters <= 0:
		opts.RadiusMeters = DefaultRadiusMeters
	case opts.RadiusMeters < MinRadiusMeters:
		opts.RadiusMeters = MinRadiusMeters
	case opts.RadiusMeters > MaxRadiusMeters:
		opts.RadiusMeters = MaxRadiusMeters
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = DefaultLimit
	case opts.Limit > MaxLimit:
		opts.Limit = MaxLimit
	}
	opts.Category = strings.ToLower(strings.TrimSpace(opts.Category))
	return opts
}

func validCategory(cat string) bool {
	for _, c := range categories {
		if c == cat {
			return true
		}
	}
	return false
}
