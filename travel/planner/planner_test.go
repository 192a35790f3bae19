package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/tripmesh/travel/booking"
	"github.com/tripmesh/tripmesh/travel/geo"
	"github.com/tripmesh/tripmesh/travel/places"
	"github.com/tripmesh/tripmesh/travel/weather"
)

var testNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

// fixtures wires all upstream fakes into one planner service.
type fixtures struct {
	planner *Service

	forecastPayload map[string]any
	placesByKind    map[string][]string // kind -> feature JSON fragments
	bookingDown     bool
}

func feature(xid, name, kinds string, lat, lon float64) string {
	return fmt.Sprintf(`{"type":"Feature","geometry":{"type":"Point","coordinates":[%f,%f]},"properties":{"xid":%q,"name":%q,"kinds":%q}}`,
		lon, lat, xid, name, kinds)
}

// goodStretchForecast has rain up front and a clear stretch at days 5-7.
func goodStretchForecast() map[string]any {
	times := make([]string, 14)
	maxT := make([]float64, 14)
	minT := make([]float64, 14)
	precip := make([]float64, 14)
	prob := make([]float64, 14)
	wind := make([]float64, 14)
	code := make([]int, 14)
	for i := 0; i < 14; i++ {
		times[i] = testNow.AddDate(0, 0, i+1).Format("2006-01-02")
		maxT[i], minT[i] = 22, 14
		precip[i], prob[i], wind[i], code[i] = 5, 90, 20, 63
	}
	for _, i := range []int{5, 6, 7} {
		precip[i], prob[i], code[i] = 0, 5, 0
	}
	return map[string]any{"daily": map[string]any{
		"time":                          times,
		"temperature_2m_max":            maxT,
		"temperature_2m_min":            minT,
		"precipitation_sum":             precip,
		"precipitation_probability_max": prob,
		"wind_speed_10m_max":            wind,
		"weather_code":                  code,
	}}
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	f := &fixtures{
		forecastPayload: goodStretchForecast(),
		placesByKind: map[string][]string{
			"interesting_places": {
				feature("P1", "Old Town Square", "interesting_places", 38.7140, -9.1335),
				feature("P2", "River Walk", "interesting_places,natural", 38.7080, -9.1365),
			},
			"foods": {
				feature("F1", "Mercado Central", "foods,shops", 38.7170, -9.1400),
			},
			"museums": {
				feature("M1", "City Museum", "museums,cultural", 38.7125, -9.1300),
			},
		},
	}

	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "Lisbon":
			w.Write([]byte(`{"results":[{"name":"Lisbon","latitude":38.71667,"longitude":-9.13333,"country":"Portugal"}]}`))
		default:
			w.Write([]byte(`{"results":[]}`))
		}
	}))
	t.Cleanup(geoSrv.Close)
	geocoder := geo.NewClient(func(o *geo.ClientOptions) { o.BaseURL = geoSrv.URL })

	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(f.forecastPayload))
	}))
	t.Cleanup(weatherSrv.Close)

	placesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feats := f.placesByKind[r.URL.Query().Get("kinds")]
		fmt.Fprintf(w, `{"features":[%s]}`, joinFragments(feats))
	}))
	t.Cleanup(placesSrv.Close)

	bookingSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.bookingDown {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/common/locations/cities":
			w.Write([]byte(`{"data":[{"id":-2167973,"name":"Lisbon","country":"pt"}]}`))
		case "/accommodations/search":
			w.Write([]byte(`{"data":[{"id":111,"name":"Hotel Avenida","star_rating":4,"price":{"currency":"USD","total":160}}]}`))
		default:
			t.Fatalf("unexpected booking path %s", r.URL.Path)
		}
	}))
	t.Cleanup(bookingSrv.Close)

	f.planner = NewService(func(o *ServiceOptions) {
		o.Geocoder = geocoder
		o.Weather = weather.NewService(func(wo *weather.ServiceOptions) {
			wo.BaseURL = weatherSrv.URL
			wo.Geocoder = geocoder
		})
		o.Places = places.NewService(func(po *places.ServiceOptions) {
			po.BaseURL = placesSrv.URL
			po.Geocoder = geocoder
		})
		o.Booking = booking.NewService(func(bo *booking.ServiceOptions) {
			bo.BaseURL = bookingSrv.URL
			bo.APIKey = "test-key"
			bo.Now = func() time.Time { return testNow }
		})
		o.Now = func() time.Time { return testNow }
	})
	return f
}

func joinFragments(frags []string) string {
	out := ""
	for i, fr := range frags {
		if i > 0 {
			out += ","
		}
		out += fr
	}
	return out
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 3, false},
		{"weekend", 2, false},
		{"Week", 7, false},
		{"month", 30, false},
		{"5", 5, false},
		{"0", 0, true},
		{"31", 0, true},
		{"fortnight", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseDuration(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestStyleAndBudgetLookups(t *testing.T) {
	style, err := StyleByName("")
	require.NoError(t, err)
	assert.Equal(t, "balanced", style.Name)
	assert.Equal(t, 3, style.ActivitiesPerDay)

	style, err = StyleByName("Adventure")
	require.NoError(t, err)
	assert.Equal(t, 25000, style.TravelRadiusMeters)

	_, err = StyleByName("lazy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relaxed")

	b, err := BudgetByName("")
	require.NoError(t, err)
	assert.Equal(t, 150.0, b.DailyUSD)

	_, err = BudgetByName("free")
	require.Error(t, err)
}

func TestSelectOptimalDatesPicksClearStretch(t *testing.T) {
	f := newFixtures(t)

	days, err := f.planner.SelectOptimalDates(context.Background(), 38.71667, -9.13333, 3)
	require.NoError(t, err)
	require.Len(t, days, 3)

	// The clear stretch sits at offsets 5-7 (dates 6-8 days out).
	assert.Equal(t, testNow.AddDate(0, 0, 6).Format("2006-01-02"), days[0].Date)
	assert.Equal(t, 0, days[0].Code)
}

func TestSelectOptimalDatesFallsBackToTomorrow(t *testing.T) {
	f := newFixtures(t)
	f.forecastPayload = map[string]any{"daily": map[string]any{"time": []string{}}}

	days, err := f.planner.SelectOptimalDates(context.Background(), 38.71667, -9.13333, 2)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-08-24", days[0].Date)
	assert.Equal(t, "2026-08-25", days[1].Date)
}

func TestSelectOptimalDatesRejectsBadDuration(t *testing.T) {
	f := newFixtures(t)
	_, err := f.planner.SelectOptimalDates(context.Background(), 38.7, -9.1, 99)
	require.ErrorIs(t, err, ErrInvalidDates)
}

func TestScoreTravelDay(t *testing.T) {
	clear := weather.Day{MaxTemp: 22, MinTemp: 14, Code: 0}
	rainy := weather.Day{MaxTemp: 22, MinTemp: 14, PrecipSum: 5, PrecipProb: 90, Code: 63}
	frosty := weather.Day{MaxTemp: 4, MinTemp: -2, Code: 71}

	assert.Greater(t, scoreTravelDay(clear), scoreTravelDay(rainy))
	assert.Greater(t, scoreTravelDay(rainy), scoreTravelDay(frosty))
}

func TestPlanTrip(t *testing.T) {
	f := newFixtures(t)

	plan, err := f.planner.PlanTrip(context.Background(), PlanRequest{
		Destination: "Lisbon",
		Duration:    "short",
		Style:       "balanced",
		Budget:      "mid_range",
	})
	require.NoError(t, err)

	assert.Equal(t, "Lisbon", plan.Location.Name)
	assert.Equal(t, "balanced", plan.Style.Name)
	assert.Equal(t, 450.0, plan.EstimatedUSD)
	require.Len(t, plan.Days, 3)

	for _, day := range plan.Days {
		assert.Equal(t, "sunny", day.Condition)
		require.NotNil(t, day.Morning.Place)
		assert.NotEmpty(t, day.Morning.Suggestion)
		assert.Len(t, day.Afternoon, 2)
		require.NotNil(t, day.Evening.Place)
	}

	// Evenings prefer food places.
	assert.Contains(t, plan.Days[0].Evening.Place.Kinds, "foods")

	require.NotNil(t, plan.Accommodation)
	assert.Equal(t, "Hotel Avenida", plan.Accommodation.Name)
	assert.Empty(t, plan.Warnings)
}

func TestPlanTripUnknownDestination(t *testing.T) {
	f := newFixtures(t)
	_, err := f.planner.PlanTrip(context.Background(), PlanRequest{Destination: "Atlantis"})
	require.ErrorIs(t, err, geo.ErrNotFound)
}

func TestPlanTripNoPlaces(t *testing.T) {
	f := newFixtures(t)
	f.placesByKind = map[string][]string{}

	_, err := f.planner.PlanTrip(context.Background(), PlanRequest{Destination: "Lisbon"})
	require.ErrorIs(t, err, ErrNoPlacesFound)
}

func TestPlanTripBookingFailureIsWarning(t *testing.T) {
	f := newFixtures(t)
	f.bookingDown = true

	plan, err := f.planner.PlanTrip(context.Background(), PlanRequest{Destination: "Lisbon"})
	require.NoError(t, err)
	assert.Nil(t, plan.Accommodation)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "accommodation")
}

func TestPlanTripWithoutBookingKeySkipsAccommodation(t *testing.T) {
	f := newFixtures(t)
	f.planner.booking = booking.NewService()

	plan, err := f.planner.PlanTrip(context.Background(), PlanRequest{Destination: "Lisbon"})
	require.NoError(t, err)
	assert.Nil(t, plan.Accommodation)
	assert.Empty(t, plan.Warnings)
}

func TestPlanTripInvalidDuration(t *testing.T) {
	f := newFixtures(t)
	_, err := f.planner.PlanTrip(context.Background(), PlanRequest{Destination: "Lisbon", Duration: "99"})
	require.ErrorIs(t, err, ErrInvalidDates)
}

func TestPlanDayRainyUsesIndoorSuggestions(t *testing.T) {
	f := newFixtures(t)
	for i := range f.forecastPayload["daily"].(map[string]any)["weather_code"].([]int) {
		f.forecastPayload["daily"].(map[string]any)["weather_code"].([]int)[i] = 63
		f.forecastPayload["daily"].(map[string]any)["precipitation_sum"].([]float64)[i] = 4
	}

	plan, err := f.planner.PlanTrip(context.Background(), PlanRequest{Destination: "Lisbon", Duration: "1"})
	require.NoError(t, err)
	require.Len(t, plan.Days, 1)
	assert.Equal(t, "rainy", plan.Days[0].Condition)
	assert.Contains(t, plan.Days[0].Morning.Suggestion, "useum")
}
