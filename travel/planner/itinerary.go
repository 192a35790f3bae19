package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tripmesh/tripmesh/travel/booking"
	"github.com/tripmesh/tripmesh/travel/geo"
	"github.com/tripmesh/tripmesh/travel/places"
	"github.com/tripmesh/tripmesh/travel/weather"
)

// PlanRequest describes the trip to build.
type PlanRequest struct {
	Destination string
	Duration    string // day count or preset name
	Style       string
	Budget      string
}

// Activity is one itinerary slot.
type Activity struct {
	Suggestion string        `json:"suggestion"`
	Place      *places.Place `json:"place,omitempty"`
}

// DayPlan is one itinerary day.
type DayPlan struct {
	Date      string      `json:"date"`
	Weather   weather.Day `json:"weather"`
	Condition string      `json:"condition"`
	Morning   Activity    `json:"morning"`
	Afternoon []Activity  `json:"afternoon"`
	Evening   Activity    `json:"evening"`
}

// Plan is a complete itinerary.
type Plan struct {
	Destination   string                 `json:"destination"`
	Location      geo.Location           `json:"location"`
	Style         Style                  `json:"style"`
	Budget        Budget                 `json:"budget"`
	Days          []DayPlan              `json:"days"`
	Accommodation *booking.Accommodation `json:"accommodation,omitempty"`
	EstimatedUSD  float64                `json:"estimated_usd"`
	Warnings      []string               `json:"warnings,omitempty"`
}

// PlanTrip builds a full itinerary: optimal dates from the forecast, a place
// pool within the style radius, day plans with weather-appropriate slots, and
// an accommodation suggestion when the booking service is configured.
func (s *Service) PlanTrip(ctx context.Context, req PlanRequest) (*Plan, error) {
	duration, err := ParseDuration(req.Duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDates, err)
	}
	style, err := StyleByName(req.Style)
	if err != nil {
		return nil, err
	}
	budget, err := BudgetByName(req.Budget)
	if err != nil {
		return nil, err
	}

	loc, err := s.geocoder.Geocode(ctx, req.Destination)
	if err != nil {
		return nil, err
	}

	days, err := s.SelectOptimalDates(ctx, loc.Latitude, loc.Longitude, duration)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, ErrNoWeatherData
	}

	pool, err := s.placePool(ctx, loc, style)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: near %s", ErrNoPlacesFound, req.Destination)
	}

	plan := &Plan{
		Destination:  req.Destination,
		Location:     loc,
		Style:        style,
		Budget:       budget,
		EstimatedUSD: float64(duration) * budget.DailyUSD,
	}

	next := 0
	for _, day := range days {
		plan.Days = append(plan.Days, s.planDay(day, style, pool, &next))
	}

	if s.booking.Configured() {
		stay, err := s.suggestAccommodation(ctx, req.Destination, days)
		if err != nil {
			s.logger.Warn("planner.accommodation_failed", "error", err)
			plan.Warnings = append(plan.Warnings, ErrNoAccommodation.Error())
		} else {
			plan.Accommodation = stay
		}
	}

	s.logger.Info("planner.plan_built",
		"destination", req.Destination, "days", len(plan.Days), "style", style.Name)
	return plan, nil
}

// placePool gathers candidate places for every preferred category within the
// style radius, deduped and nearest first.
func (s *Service) placePool(ctx context.Context, loc geo.Location, style Style) ([]places.Place, error) {
	seen := map[string]struct{}{}
	pool := []places.Place{}
	var lastErr error

	for _, cat := range style.PreferredPlaces {
		found, err := s.places.SearchAt(ctx, loc.Latitude, loc.Longitude, places.SearchOptions{
			Category:     cat,
			RadiusMeters: style.TravelRadiusMeters,
			Limit:        poolPerCategory,
		})
		if err != nil {
			s.logger.Warn("planner.place_search_failed", "category", cat, "error", err)
			lastErr = err
			continue
		}
		for _, p := range found {
			key := strings.ToLower(p.Name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pool = append(pool, p)
		}
	}

	if len(pool) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return pool, nil
}

// planDay fills the three slots of one day, advancing through the pool so
// consecutive days do not repeat places. Evenings prefer a food place.
func (s *Service) planDay(day weather.Day, style Style, pool []places.Place, next *int) DayPlan {
	condition := weather.Condition(day)
	slots, ok := slotSuggestions[condition]
	if !ok {
		slots = slotSuggestions["cloudy"]
	}

	plan := DayPlan{
		Date:      day.Date,
		Weather:   day,
		Condition: condition,
		Morning:   Activity{Suggestion: slots.Morning, Place: takePlace(pool, next)},
		Evening:   Activity{Suggestion: slots.Evening, Place: takeFoodPlace(pool, next)},
	}

	afternoonCount := style.ActivitiesPerDay - 1
	if afternoonCount < 1 {
		afternoonCount = 1
	}
	for i := 0; i < afternoonCount; i++ {
		plan.Afternoon = append(plan.Afternoon, Activity{
			Suggestion: slots.Afternoon,
			Place:      takePlace(pool, next),
		})
	}
	return plan
}

func takePlace(pool []places.Place, next *int) *places.Place {
	if len(pool) == 0 {
		return nil
	}
	p := pool[*next%len(pool)]
	*next++
	return &p
}

// takeFoodPlace scans forward for a food place; any place serves as fallback.
func takeFoodPlace(pool []places.Place, next *int) *places.Place {
	for i := 0; i < len(pool); i++ {
		p := pool[(*next+i)%len(pool)]
		if strings.Contains(p.Kinds, "foods") {
			*next += i + 1
			return &p
		}
	}
	return takePlace(pool, next)
}

// suggestAccommodation searches a short list of stays for the selected dates
// and returns the first hit.
func (s *Service) suggestAccommodation(ctx context.Context, destination string, days []weather.Day) (*booking.Accommodation, error) {
	cities, err := s.booking.SearchCities(ctx, destination, "")
	if err != nil {
		return nil, err
	}
	if len(cities) == 0 {
		return nil, ErrNoAccommodation
	}

	checkin := days[0].Date
	start, err := time.Parse(dateLayout, checkin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDates, err)
	}
	checkout := start.AddDate(0, 0, len(days)).Format(dateLayout)

	found, err := s.booking.Search(ctx, booking.SearchParams{
		CityID:   cities[0].ID,
		Checkin:  checkin,
		Checkout: checkout,
		Rows:     10,
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNoAccommodation
	}
	return &found[0], nil
}
