// Package booking provides the Booking.com Demand API client: accommodation
// search, availability, details, reviews and city lookup, with strict input
// validation ahead of every upstream call.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tripmesh/tripmesh/logging"
)

const (
	// DefaultBaseURL is the Booking.com Demand API root.
	DefaultBaseURL = "https://demandapi.booking.com/3.1"

	// Search defaults.
	DefaultPlatform = "desktop"
	DefaultCountry  = "us"
	DefaultCurrency = "USD"
	DefaultAdults   = 2
	DefaultRooms    = 1
	DefaultRows     = 20
	MinRows         = 10
	MaxRows         = 100

	// Date constraints.
	MaxAdvanceDays = 500
	MaxStayNights  = 90

	defaultTimeout = 30 * time.Second
	dateLayout     = "2006-01-02"
)

// ErrNoAPIKey indicates the service was used without a Demand API key.
var ErrNoAPIKey = errors.New("booking: API key not configured")

// ValidationError reports rejected search input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Reason)
}

// accommodationTypeIDs maps friendly type names to Booking type IDs.
var accommodationTypeIDs = map[string]int{
	"hotel":             204,
	"apartment":         201,
	"resort":            219,
	"villa":             212,
	"hostel":            203,
	"bed_and_breakfast": 202,
	"guesthouse":        216,
}

// AccommodationTypeID resolves a friendly type name to its Booking type ID.
func AccommodationTypeID(name string) (int, bool) {
	id, ok := accommodationTypeIDs[name]
	return id, ok
}

// SearchParams describe an accommodation search. Zero values take the
// defaults.
type SearchParams struct {
	City     string
	CityID   int
	Checkin  string
	Checkout string
	Adults   int
	Children []int
	Rooms    int
	Rows     int

	// Optional filters.
	MinStars int
	MaxStars int
	MinPrice float64
	MaxPrice float64
	Type     string

	Platform string
	Country  string
	Currency string
}

// Accommodation is one search result.
type Accommodation struct {
	ID          int     `json:"hotel_id"`
	Name        string  `json:"name"`
	Stars       float64 `json:"star_rating"`
	Type        string  `json:"accommodation_type_name"`
	Currency    string  `json:"currency"`
	Price       float64 `json:"price"`
	City        string  `json:"city"`
	Address     string  `json:"address"`
	ReviewScore float64 `json:"review_score"`
}

// City is one location lookup result.
type City struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Service is the booking domain service.
type Service struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     logging.Logger
	now        func() time.Time
}

// ServiceOptions customizes a Service.
type ServiceOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Limiter    *rate.Limiter
	Logger     logging.Logger

	// Now overrides the clock for date validation. Tests only.
	Now func() time.Time
}

// NewService creates a booking service.
func NewService(optFns ...func(o *ServiceOptions)) *Service {
	opts := ServiceOptions{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		BaseURL:    DefaultBaseURL,
		Limiter:    rate.NewLimiter(rate.Limit(10), 10),
		Logger:     logging.NoOpLogger{},
		Now:        time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{
		httpClient: opts.HTTPClient,
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Configured reports whether an API key is set.
func (s *Service) Configured() bool { return s.apiKey != "" }

// Search finds accommodations for the given stay.
func (s *Service) Search(ctx context.Context, params SearchParams) ([]Accommodation, error) {
	params = normalizeSearch(params)
	if err := s.validateSearch(params); err != nil {
		return nil, err
	}

	body := map[string]any{
		"booker": map[string]any{
			"platform": params.Platform,
			"country":  params.Country,
		},
		"checkin":  params.Checkin,
		"checkout": params.Checkout,
		"currency": params.Currency,
		"guests": map[string]any{
			"number_of_adults": params.Adults,
			"number_of_rooms":  params.Rooms,
		},
		"rows":   params.Rows,
		"extras": []string{"extra_charges", "products"},
	}
	if len(params.Children) > 0 {
		body["guests"].(map[string]any)["children"] = params.Children
	}
	if params.CityID != 0 {
		body["city"] = params.CityID
	}

	filters := map[string]any{}
	if params.MinStars > 0 || params.MaxStars > 0 {
		filters["stars"] = map[string]int{"minimum": params.MinStars, "maximum": params.MaxStars}
	}
	if params.MaxPrice > 0 {
		filters["price"] = map[string]float64{"minimum": params.MinPrice, "maximum": params.MaxPrice}
	}
	if params.Type != "" {
		id, _ := AccommodationTypeID(params.Type)
		filters["accommodation_types"] = []int{id}
	}
	if len(filters) > 0 {
		body["filters"] = filters
	}

	var payload struct {
		Data []struct {
			ID                    int     `json:"id"`
			Name                  string  `json:"name"`
			StarRating            float64 `json:"star_rating"`
			AccommodationTypeName string  `json:"accommodation_type_name"`
			City                  string  `json:"city"`
			Address               string  `json:"address"`
			ReviewScore           float64 `json:"review_score"`
			Price                 struct {
				Currency string  `json:"currency"`
				Total    float64 `json:"total"`
			} `json:"price"`
		} `json:"data"`
	}
	if err := s.post(ctx, "/accommodations/search", body, &payload); err != nil {
		return nil, err
	}

	out := make([]Accommodation, 0, len(payload.Data))
	for _, a := range payload.Data {
		out = append(out, Accommodation{
			ID:          a.ID,
			Name:        a.Name,
			Stars:       a.StarRating,
			Type:        a.AccommodationTypeName,
			Currency:    a.Price.Currency,
			Price:       a.Price.Total,
			City:        a.City,
			Address:     a.Address,
			ReviewScore: a.ReviewScore,
		})
	}
	return out, nil
}

// Availability checks live availability for specific accommodations.
func (s *Service) Availability(ctx context.Context, ids []int, checkin, checkout string) (json.RawMessage, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "accommodations", Reason: "at least one id required"}
	}
	if err := s.validateDates(checkin, checkout); err != nil {
		return nil, err
	}
	body := map[string]any{
		"accommodations": ids,
		"checkin":        checkin,
		"checkout":       checkout,
		"currency":       DefaultCurrency,
		"guests": map[string]any{
			"number_of_adults": DefaultAdults,
			"number_of_rooms":  DefaultRooms,
		},
	}
	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := s.post(ctx, "/accommodations/availability", body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// Details fetches full records for specific accommodations.
func (s *Service) Details(ctx context.Context, ids []int) (json.RawMessage, error) {
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "accommodations", Reason: "at least one id required"}
	}
	body := map[string]any{
		"accommodations": ids,
		"extras":         []string{"description", "facilities", "photos"},
	}
	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := s.post(ctx, "/accommodations/details", body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// Reviews fetches guest reviews for one accommodation.
func (s *Service) Reviews(ctx context.Context, id int, rows int) (json.RawMessage, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "accommodation", Reason: "id required"}
	}
	if rows <= 0 {
		rows = DefaultRows
	}
	body := map[string]any{
		"accommodation": id,
		"rows":          rows,
	}
	var payload struct {
		Data json.RawMessage `json:"data"`
	}
	if err := s.post(ctx, "/accommodations/reviews", body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// SearchCities resolves a city name to Booking city IDs.
func (s *Service) SearchCities(ctx context.Context, name, country string) ([]City, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "city name required"}
	}
	body := map[string]any{"name": name}
	if country != "" {
		body["country"] = country
	}
	var payload struct {
		Data []City `json:"data"`
	}
	if err := s.post(ctx, "/common/locations/cities", body, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (s *Service) post(ctx context.Context, path string, body any, out any) error {
	if s.apiKey == "" {
		return ErrNoAPIKey
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode booking request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build booking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("booking request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("booking: unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode booking response: %w", err)
	}
	return nil
}

func normalizeSearch(p SearchParams) SearchParams {
	if p.Platform == "" {
		p.Platform = DefaultPlatform
	}
	if p.Country == "" {
		p.Country = DefaultCountry
	}
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	if p.Adults <= 0 {
		p.Adults = DefaultAdults
	}
	if p.Rooms <= 0 {
		p.Rooms = DefaultRooms
	}
	switch {
	case p.Rows <= 0:
		p.Rows = DefaultRows
	case p.Rows < MinRows:
		p.Rows = MinRows
	case p.Rows > MaxRows:
		p.Rows = MaxRows
	}
	if p.Checkin != "" && p.Checkout == "" {
		// Default stay is one night.
		if in, err := time.Parse(dateLayout, p.Checkin); err == nil {
			p.Checkout = in.AddDate(0, 0, 1).Format(dateLayout)
		}
	}
	return p
}

func (s *Service) validateSearch(p SearchParams) error {
	if err := s.validateDates(p.Checkin, p.Checkout); err != nil {
		return err
	}
	if p.MinStars != 0 || p.MaxStars != 0 {
		if p.MinStars < 1 || p.MaxStars > 5 || p.MinStars > p.MaxStars {
			return &ValidationError{Field: "stars", Reason: "ratings must be within 1..5 with minimum <= maximum"}
		}
	}
	if p.MinPrice != 0 || p.MaxPrice != 0 {
		if p.MinPrice < 0 || p.MaxPrice > 10000 || p.MinPrice >= p.MaxPrice {
			return &ValidationError{Field: "price", Reason: "range must be within 0..10000 with minimum < maximum"}
		}
	}
	if p.Type != "" {
		if _, ok := AccommodationTypeID(p.Type); !ok {
			return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown accommodation type %q", p.Type)}
		}
	}
	return nil
}

func (s *Service) validateDates(checkin, checkout string) error {
	in, err := time.Parse(dateLayout, checkin)
	if err != nil {
		return &ValidationError{Field: "checkin", Reason: "date must be YYYY-MM-DD"}
	}
	out, err := time.Parse(dateLayout, checkout)
	if err != nil {
		return &ValidationError{Field: "checkout", Reason: "date must be YYYY-MM-DD"}
	}

	today := s.now().Truncate(24 * time.Hour)
	if in.Before(today) {
		return &ValidationError{Field: "checkin", Reason: "date is in the past"}
	}
	if !out.After(in) {
		return &ValidationError{Field: "checkout", Reason: "must be after checkin"}
	}
	if in.Sub(today) > MaxAdvanceDays*24*time.Hour {
		return &ValidationError{Field: "checkin", Reason: fmt.Sprintf("more than %d days in the future", MaxAdvanceDays)}
	}
	if out.Sub(in) > MaxStayNights*24*time.Hour {
		return &ValidationError{Field: "checkout", Reason: fmt.Sprintf("stay longer than %d nights", MaxStayNights)}
	}
	return nil
}
