// Package weather provides the Open-Meteo backed weather service: current
// conditions, multi-day forecasts, travel-day scoring and severe-event
// detection.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tripmesh/tripmesh/cache"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/travel/geo"
)

const (
	// DefaultBaseURL is the Open-Meteo forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	// DefaultForecastDays is used when the caller does not specify a horizon.
	DefaultForecastDays = 3

	// MaxForecastDays is the Open-Meteo API limit.
	MaxForecastDays = 16

	defaultTimeout = 30 * time.Second
	forecastTTL    = 15 * time.Minute
)

// Current holds present conditions at a location.
type Current struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feels_like"`
	Humidity      float64 `json:"humidity"`
	Precipitation float64 `json:"precipitation"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"`
}

// Day is one forecast day.
type Day struct {
	Date        string  `json:"date"`
	MaxTemp     float64 `json:"max_temp"`
	MinTemp     float64 `json:"min_temp"`
	PrecipSum   float64 `json:"precipitation_sum"`
	PrecipProb  float64 `json:"precipitation_probability"`
	WindMax     float64 `json:"wind_max"`
	Code        int     `json:"weather_code"`
	Description string  `json:"description"`
}

// ScoredDay is a forecast day with its travel suitability score.
type ScoredDay struct {
	Day
	Score   int    `json:"score"`
	Quality string `json:"quality"`
}

// SevereEvent flags one hazardous hour in the forecast.
type SevereEvent struct {
	Time  string `json:"time"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Report combines current conditions with the upcoming days.
type Report struct {
	Location geo.Location `json:"location"`
	Current  Current      `json:"current"`
	Upcoming []Day        `json:"upcoming"`
}

// Service is the weather domain service.
type Service struct {
	httpClient *http.Client
	baseURL    string
	geocoder   *geo.Client
	cache      cache.Cache
	limiter    *rate.Limiter
	logger     logging.Logger
}

// ServiceOptions customizes a Service.
type ServiceOptions struct {
	HTTPClient *http.Client
	BaseURL    string
	Geocoder   *geo.Client
	Cache      cache.Cache
	Limiter    *rate.Limiter
	Logger     logging.Logger
}

// NewService creates a weather service. A default geocoder and no-op cache
// are used unless overridden.
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
		geocoder:   opts.Geocoder,
		cache:      opts.Cache,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
}

// apiResponse mirrors Open-Meteo's parallel-array JSON layout.
type apiResponse struct {
	Current struct {
		Time          string  `json:"time"`
		Temperature   float64 `json:"temperature_2m"`
		Humidity      float64 `json:"relative_humidity_2m"`
		FeelsLike     float64 `json:"apparent_temperature"`
		Precipitation float64 `json:"precipitation"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
	} `json:"current"`
	Daily struct {
		Time       []string  `json:"time"`
		MaxTemp    []float64 `json:"temperature_2m_max"`
		MinTemp    []float64 `json:"temperature_2m_min"`
		PrecipSum  []float64 `json:"precipitation_sum"`
		PrecipProb []float64 `json:"precipitation_probability_max"`
		WindMax    []float64 `json:"wind_speed_10m_max"`
		Code       []int     `json:"weather_code"`
	} `json:"daily"`
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature   []float64 `json:"temperature_2m"`
		Precipitation []float64 `json:"precipitation"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
		Code          []int     `json:"weather_code"`
	} `json:"hourly"`
}

// Current returns present conditions plus a short outlook.
func (s *Service) Current(ctx context.Context, location string) (*Report, error) {
	loc, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("latitude", formatCoord(loc.Latitude))
	q.Set("longitude", formatCoord(loc.Longitude))
	q.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,wind_speed_10m,wind_direction_10m")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max,weather_code")
	q.Set("forecast_days", strconv.Itoa(DefaultForecastDays))
	q.Set("timezone", "auto")

	var data apiResponse
	if err := s.fetch(ctx, q, &data); err != nil {
		return nil, err
	}

	report := &Report{
		Location: loc,
		Current: Current{
			Time:          data.Current.Time,
			Temperature:   data.Current.Temperature,
			FeelsLike:     data.Current.FeelsLike,
			Humidity:      data.Current.Humidity,
			Precipitation: data.Current.Precipitation,
			WindSpeed:     data.Current.WindSpeed,
			WindDirection: data.Current.WindDirection,
		},
		Upcoming: daysFrom(data),
	}
	return report, nil
}

// Forecast returns the daily forecast for a named location. Days defaults to
// DefaultForecastDays and is clamped to the API range.
func (s *Service) Forecast(ctx context.Context, location string, days int) ([]Day, error) {
	loc, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}
	return s.ForecastAt(ctx, loc.Latitude, loc.Longitude, days)
}

// ForecastAt returns the daily forecast for coordinates. Used directly by the
// trip planner, which already holds a geocoded location.
func (s *Service) ForecastAt(ctx context.Context, lat, lon float64, days int) ([]Day, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("invalid coordinates (%v, %v)", lat, lon)
	}
	days = clampDays(days)

	key := fmt.Sprintf("weather:forecast:%s,%s:%d", formatCoord(lat), formatCoord(lon), days)
	if cached, ok := s.cache.Get(ctx, key); ok {
		var out []Day
		if err := json.Unmarshal(cached, &out); err == nil {
			return out, nil
		}
	}

	q := url.Values{}
	q.Set("latitude", formatCoord(lat))
	q.Set("longitude", formatCoord(lon))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,wind_speed_10m_max,weather_code")
	q.Set("forecast_days", strconv.Itoa(days))
	q.Set("timezone", "auto")

	var data apiResponse
	if err := s.fetch(ctx, q, &data); err != nil {
		return nil, err
	}

	out := daysFrom(data)
	if encoded, err := json.Marshal(out); err == nil {
		s.cache.Set(ctx, key, encoded, forecastTTL)
	}
	return out, nil
}

// TripRecommendation scores each forecast day and returns them ordered best
// first.
func (s *Service) TripRecommendation(ctx context.Context, location string, days int) ([]ScoredDay, error) {
	if days <= 0 {
		days = 7
	}
	forecast, err := s.Forecast(ctx, location, days)
	if err != nil {
		return nil, err
	}
	return RankDays(forecast), nil
}

// SevereEvents scans the hourly forecast for hazardous conditions.
func (s *Service) SevereEvents(ctx context.Context, location string, days int) ([]SevereEvent, error) {
	loc, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}
	days = clampDays(days)

	q := url.Values{}
	q.Set("latitude", formatCoord(loc.Latitude))
	q.Set("longitude", formatCoord(loc.Longitude))
	q.Set("hourly", "temperature_2m,precipitation,weather_code,wind_speed_10m")
	q.Set("forecast_days", strconv.Itoa(days))
	q.Set("timezone", "auto")

	var data apiResponse
	if err := s.fetch(ctx, q, &data); err != nil {
		return nil, err
	}

	return detectSevereEvents(data), nil
}

func (s *Service) fetch(ctx context.Context, q url.Values, out *apiResponse) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build weather request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("weather: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode weather response: %w", err)
	}
	return nil
}

func daysFrom(data apiResponse) []Day {
	d := data.Daily
	out := make([]Day, 0, len(d.Time))
	for i := range d.Time {
		day := Day{Date: d.Time[i]}
		if i < len(d.MaxTemp) {
			day.MaxTemp = d.MaxTemp[i]
		}
		if i < len(d.MinTemp) {
			day.MinTemp = d.MinTemp[i]
		}
		if i < len(d.PrecipSum) {
			day.PrecipSum = d.PrecipSum[i]
		}
		if i < len(d.PrecipProb) {
			day.PrecipProb = d.PrecipProb[i]
		}
		if i < len(d.WindMax) {
			day.WindMax = d.WindMax[i]
		}
		if i < len(d.Code) {
			day.Code = d.Code[i]
		}
		day.Description = Describe(day.Code)
		out = append(out, day)
	}
	return out
}

func detectSevereEvents(data apiResponse) []SevereEvent {
	h := data.Hourly
	events := []SevereEvent{}
	for i := range h.Time {
		var precip, wind float64
		var code int
		if i < len(h.Precipitation) {
			precip = h.Precipitation[i]
		}
		if i < len(h.WindSpeed) {
			wind = h.WindSpeed[i]
		}
		if i < len(h.Code) {
			code = h.Code[i]
		}

		if precip >= heavyRainMmPerHour {
			events = append(events, SevereEvent{Time: h.Time[i], Type: "heavy_rain", Value: fmt.Sprintf("%.1fmm", precip)})
		}
		if wind >= strongWindKmh {
			events = append(events, SevereEvent{Time: h.Time[i], Type: "strong_wind", Value: fmt.Sprintf("%.0fkm/h", wind)})
		}
		if code >= thunderstormCode {
			events = append(events, SevereEvent{Time: h.Time[i], Type: "thunderstorm", Value: Describe(code)})
		} else if code >= snowCode {
			events = append(events, SevereEvent{Time: h.Time[i], Type: "snow", Value: Describe(code)})
		}
	}
	return events
}

func clampDays(days int) int {
	if days <= 0 {
		return DefaultForecastDays
	}
	if days > MaxForecastDays {
		return MaxForecastDays
	}
	return days
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}
