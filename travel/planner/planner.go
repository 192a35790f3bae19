// Package planner builds day-by-day trip itineraries by composing the
// weather, places and booking services: it scores a forecast window to pick
// travel dates, fills morning/afternoon/evening slots with places that match
// the trip style and the day's weather, and suggests accommodation for the
// selected dates.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/travel/booking"
	"github.com/tripmesh/tripmesh/travel/geo"
	"github.com/tripmesh/tripmesh/travel/places"
	"github.com/tripmesh/tripmesh/travel/weather"
)

const (
	// MinTripDays and MaxTripDays bound a trip duration.
	MinTripDays = 1
	MaxTripDays = 30

	// DefaultTripDays is used when no duration is given.
	DefaultTripDays = 3

	// dateWindowDays is the forecast horizon scanned for optimal dates.
	dateWindowDays = 14

	// poolPerCategory caps how many places each preferred category
	// contributes to the itinerary pool.
	poolPerCategory = 10

	dateLayout = "2006-01-02"
)

// Typed planning failures.
var (
	ErrNoWeatherData   = errors.New("no weather data available for the destination")
	ErrNoPlacesFound   = errors.New("no places found for the destination")
	ErrNoAccommodation = errors.New("no accommodation available for the selected dates")
	ErrInvalidDates    = errors.New("invalid trip dates")
)

// tripDurations maps preset names to day counts.
var tripDurations = map[string]int{
	"weekend":  2,
	"short":    3,
	"week":     7,
	"extended": 14,
	"month":    30,
}

// Style tunes how packed a day is and how far from the center to roam.
type Style struct {
	Name               string   `json:"name"`
	ActivitiesPerDay   int      `json:"activities_per_day"`
	TravelRadiusMeters int      `json:"travel_radius_meters"`
	PreferredPlaces    []string `json:"preferred_places"`
}

// Budget is a daily spending tier.
type Budget struct {
	Name          string   `json:"name"`
	DailyUSD      float64  `json:"daily_usd"`
	ActivityFocus []string `json:"activity_focus"`
}

var tripStyles = map[string]Style{
	"relaxed": {
		Name:               "relaxed",
		ActivitiesPerDay:   2,
		TravelRadiusMeters: 10000,
		PreferredPlaces:    []string{"foods", "natural", "museums", "beaches"},
	},
	"balanced": {
		Name:               "balanced",
		ActivitiesPerDay:   3,
		TravelRadiusMeters: 15000,
		PreferredPlaces:    []string{"interesting_places", "foods", "museums", "natural", "shops"},
	},
	"adventure": {
		Name:               "adventure",
		ActivitiesPerDay:   4,
		TravelRadiusMeters: 25000,
		PreferredPlaces:    []string{"interesting_places", "amusements", "natural", "sport"},
	},
	"cultural": {
		Name:               "cultural",
		ActivitiesPerDay:   3,
		TravelRadiusMeters: 20000,
		PreferredPlaces:    []string{"museums", "cultural", "churches", "interesting_places", "foods"},
	},
	"food_focused": {
		Name:               "food_focused",
		ActivitiesPerDay:   4,
		TravelRadiusMeters: 15000,
		PreferredPlaces:    []string{"foods", "shops", "cultural", "interesting_places"},
	},
}

var budgets = map[string]Budget{
	"budget": {
		Name:          "budget",
		DailyUSD:      50,
		ActivityFocus: []string{"free attractions", "parks", "markets", "self-guided walks"},
	},
	"mid_range": {
		Name:          "mid_range",
		DailyUSD:      150,
		ActivityFocus: []string{"museums", "guided tours", "local restaurants"},
	},
	"luxury": {
		Name:          "luxury",
		DailyUSD:      500,
		ActivityFocus: []string{"fine dining", "private tours", "spas", "premium experiences"},
	},
}

// slotSuggestions describe what fits each part of the day per weather
// condition. Conditions follow weather.Condition.
var slotSuggestions = map[string]struct {
	Morning   string
	Afternoon string
	Evening   string
}{
	"sunny":  {"outdoor sightseeing while it is cool", "beach, park or viewpoint time", "dinner outdoors or a sunset spot"},
	"cloudy": {"city walk and architecture", "museums or covered markets", "restaurant and live music"},
	"rainy":  {"museum or gallery morning", "indoor attractions and shopping", "cozy restaurant or theatre"},
	"snowy":  {"late start with a warm cafe", "winter sports or indoor culture", "hearty dinner near the hotel"},
	"windy":  {"sheltered old-town wander", "indoor attractions or a viewpoint (hold your hat)", "dinner away from the waterfront"},
}

// ParseDuration turns a duration expression (integer string or preset name)
// into a day count within MinTripDays..MaxTripDays. Empty input takes the
// default.
func ParseDuration(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTripDays, nil
	}
	if days, ok := tripDurations[s]; ok {
		return days, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q: expected a day count or one of %s", s, strings.Join(durationNames(), ", "))
	}
	if days < MinTripDays || days > MaxTripDays {
		return 0, fmt.Errorf("duration must be between %d and %d days", MinTripDays, MaxTripDays)
	}
	return days, nil
}

// StyleByName resolves a trip style, defaulting to balanced.
func StyleByName(name string) (Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "balanced"
	}
	style, ok := tripStyles[name]
	if !ok {
		return Style{}, fmt.Errorf("unknown trip style %q, available: %s", name, strings.Join(styleNames(), ", "))
	}
	return style, nil
}

// BudgetByName resolves a budget tier, defaulting to mid_range.
func BudgetByName(name string) (Budget, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "mid_range"
	}
	b, ok := budgets[name]
	if !ok {
		return Budget{}, fmt.Errorf("unknown budget %q, available: %s", name, strings.Join(budgetNames(), ", "))
	}
	return b, nil
}

// Styles returns the trip style catalogue ordered by name.
func Styles() []Style {
	out := make([]Style, 0, len(tripStyles))
	for _, name := range styleNames() {
		out = append(out, tripStyles[name])
	}
	return out
}

// Budgets returns the budget tier catalogue ordered by name.
func Budgets() []Budget {
	out := make([]Budget, 0, len(budgets))
	for _, name := range budgetNames() {
		out = append(out, budgets[name])
	}
	return out
}

func durationNames() []string { return sortedKeys(tripDurations) }
func styleNames() []string    { return sortedKeys(tripStyles) }
func budgetNames() []string   { return sortedKeys(budgets) }

func sortedKeys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Service is the trip planning service.
type Service struct {
	geocoder *geo.Client
	weather  *weather.Service
	places   *places.Service
	booking  *booking.Service
	logger   logging.Logger
	now      func() time.Time
}

// ServiceOptions customizes a Service.
type ServiceOptions struct {
	Geocoder *geo.Client
	Weather  *weather.Service
	Places   *places.Service
	Booking  *booking.Service
	Logger   logging.Logger

	// Now overrides the clock for date math. Tests only.
	Now func() time.Time
}

// NewService creates a planner over the given domain services.
func NewService(optFns ...func(o *ServiceOptions)) *Service {
	opts := ServiceOptions{
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Geocoder == nil {
		opts.Geocoder = geo.NewClient()
	}
	if opts.Weather == nil {
		opts.Weather = weather.NewService(func(o *weather.ServiceOptions) { o.Geocoder = opts.Geocoder })
	}
	if opts.Places == nil {
		opts.Places = places.NewService(func(o *places.ServiceOptions) { o.Geocoder = opts.Geocoder })
	}
	if opts.Booking == nil {
		opts.Booking = booking.NewService()
	}
	return &Service{
		geocoder: opts.Geocoder,
		weather:  opts.Weather,
		places:   opts.Places,
		booking:  opts.Booking,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Geocode resolves a destination through the planner's shared geocoder.
func (s *Service) Geocode(ctx context.Context, location string) (geo.Location, error) {
	return s.geocoder.Geocode(ctx, location)
}

// scoreTravelDay rates a forecast day for date selection. Unlike
// weather.ScoreDay it is not clamped; only relative order matters here.
func scoreTravelDay(d weather.Day) float64 {
	score := 100.0

	if d.MaxTemp > 35 || d.MaxTemp < 5 {
		score -= 30
	} else if d.MaxTemp > 30 || d.MaxTemp < 10 {
		score -= 15
	}
	if d.MinTemp < 0 {
		score -= 20
	} else if d.MinTemp < 5 {
		score -= 10
	}

	score -= d.PrecipSum * 10
	score -= d.PrecipProb / 2

	if d.WindMax > 50 {
		score -= 25
	} else if d.WindMax > 30 {
		score -= 10
	}

	switch {
	case d.Code >= 95:
		score -= 30
	case d.Code >= 71:
		score -= 25
	case d.Code >= 61:
		score -= 20
	case d.Code >= 51:
		score -= 10
	}

	return score
}

// SelectOptimalDates scans a 14-day forecast window and returns the
// consecutive run of duration days with the best total weather score. With no
// usable forecast it falls back to a run starting tomorrow.
func (s *Service) SelectOptimalDates(ctx context.Context, lat, lon float64, duration int) ([]weather.Day, error) {
	if duration < MinTripDays || duration > MaxTripDays {
		return nil, fmt.Errorf("%w: duration %d out of range", ErrInvalidDates, duration)
	}

	forecast, err := s.weather.ForecastAt(ctx, lat, lon, dateWindowDays)
	if err != nil {
		s.logger.Warn("planner.forecast_failed", "error", err)
		forecast = nil
	}

	if len(forecast) < duration {
		return s.fallbackDates(duration), nil
	}

	bestStart, bestTotal := 0, -1.0e9
	for start := 0; start+duration <= len(forecast); start++ {
		total := 0.0
		for i := start; i < start+duration; i++ {
			total += scoreTravelDay(forecast[i])
		}
		if total > bestTotal {
			bestStart, bestTotal = start, total
		}
	}
	return forecast[bestStart : bestStart+duration], nil
}

// fallbackDates builds a run of blank forecast days starting tomorrow.
func (s *Service) fallbackDates(duration int) []weather.Day {
	out := make([]weather.Day, duration)
	start := s.now().AddDate(0, 0, 1)
	for i := range out {
		out[i] = weather.Day{Date: start.AddDate(0, 0, i).Format(dateLayout)}
	}
	return out
}
