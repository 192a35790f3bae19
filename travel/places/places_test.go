package places

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmesh/tripmesh/travel/geo"
)

func testGeocoder(t *testing.T) *geo.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "Lisbon":
			w.Write([]byte(`{"results":[{"name":"Lisbon","latitude":38.71667,"longitude":-9.13333,"country":"Portugal"}]}`))
		default:
			w.Write([]byte(`{"results":[]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return geo.NewClient(func(o *geo.ClientOptions) { o.BaseURL = srv.URL })
}

func feature(xid, name, kinds string, lat, lon float64) string {
	return fmt.Sprintf(`{"type":"Feature","geometry":{"type":"Point","coordinates":[%f,%f]},"properties":{"xid":%q,"name":%q,"kinds":%q,"rate":3}}`,
		lon, lat, xid, name, kinds)
}

func TestSearch(t *testing.T) {
	var gotRadius, gotLimit, gotKinds string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/0.1/en/places/radius", r.URL.Path)
		gotRadius = r.URL.Query().Get("radius")
		gotLimit = r.URL.Query().Get("limit")
		gotKinds = r.URL.Query().Get("kinds")
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))

		// Belem Tower is farther from the city center than the castle.
		fmt.Fprintf(w, `{"type":"FeatureCollection","features":[%s,%s,%s]}`,
			feature("W1", "Belem Tower", "historic,architecture", 38.6916, -9.2160),
			feature("W2", "Castelo de S. Jorge", "historic", 38.7139, -9.1335),
			feature("W3", "castelo de s. jorge", "historic", 38.7139, -9.1335))
	}))
	t.Cleanup(srv.Close)

	svc := NewService(func(o *ServiceOptions) {
		o.BaseURL = srv.URL
		o.APIKey = "secret"
		o.Geocoder = testGeocoder(t)
	})

	found, err := svc.Search(context.Background(), "Lisbon", SearchOptions{Category: "historic"})
	require.NoError(t, err)
	assert.Equal(t, "10000", gotRadius)
	assert.Equal(t, "20", gotLimit)
	assert.Equal(t, "historic", gotKinds)

	// Duplicate name dropped, nearest first.
	require.Len(t, found, 2)
	assert.Equal(t, "Castelo de S. Jorge", found[0].Name)
	assert.Equal(t, "Belem Tower", found[1].Name)
	assert.Less(t, found[0].DistanceKm, found[1].DistanceKm)
	assert.Equal(t, "very_close", found[0].Distance)
}

func TestSearchClampsBounds(t *testing.T) {
	var gotRadius, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRadius = r.URL.Query().Get("radius")
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"features":[]}`))
	}))
	t.Cleanup(srv.Close)

	svc := NewService(func(o *ServiceOptions) {
		o.BaseURL = srv.URL
		o.Geocoder = testGeocoder(t)
	})

	_, err := svc.SearchAt(context.Background(), 38.7, -9.1, SearchOptions{RadiusMeters: 99999, Limit: 9000})
	require.NoError(t, err)
	assert.Equal(t, "50000", gotRadius)
	assert.Equal(t, "500", gotLimit)

	_, err = svc.SearchAt(context.Background(), 38.7, -9.1, SearchOptions{RadiusMeters: 10})
	require.NoError(t, err)
	assert.Equal(t, "100", gotRadius)
}

func TestSearchRejectsUnknownCategory(t *testing.T) {
	svc := NewService(func(o *ServiceOptions) { o.Geocoder = testGeocoder(t) })
	_, err := svc.SearchAt(context.Background(), 38.7, -9.1, SearchOptions{Category: "volcanoes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volcanoes")
	assert.Contains(t, err.Error(), "museums")
}

func TestSearchRejectsBadCoordinates(t *testing.T) {
	svc := NewService()
	_, err := svc.SearchAt(context.Background(), 100, 0, SearchOptions{})
	require.Error(t, err)
}

func TestRecommendByWeather(t *testing.T) {
	var mu sync.Mutex
	var kinds []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		k := r.URL.Query().Get("kinds")
		mu.Lock()
		kinds = append(kinds, k)
		mu.Unlock()
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		switch k {
		case "museums":
			fmt.Fprintf(w, `{"features":[%s,%s]}`,
				feature("M1", "National Museum", "museums", 38.7100, -9.1400),
				feature("M2", "Tile Museum", "museums", 38.7249, -9.1138))
		case "cultural":
			// Same museum reappears under a broader kind.
			fmt.Fprintf(w, `{"features":[%s]}`,
				feature("M1", "National Museum", "museums,cultural", 38.7100, -9.1400))
		default:
			w.Write([]byte(`{"features":[]}`))
		}
	}))
	t.Cleanup(srv.Close)

	svc := NewService(func(o *ServiceOptions) {
		o.BaseURL = srv.URL
		o.Geocoder = testGeocoder(t)
	})

	found, err := svc.RecommendByWeather(context.Background(), "Lisbon", "Rainy")
	require.NoError(t, err)
	assert.Equal(t, []string{"museums", "cultural", "theatres_and_entertainments", "shops", "churches"}, kinds)

	require.Len(t, found, 2)
	assert.Equal(t, "National Museum", found[0].Name)
	assert.Equal(t, "Tile Museum", found[1].Name)
}

func TestRecommendByWeatherUnknownCondition(t *testing.T) {
	svc := NewService(func(o *ServiceOptions) { o.Geocoder = testGeocoder(t) })
	_, err := svc.RecommendByWeather(context.Background(), "Lisbon", "hailing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hailing")
	assert.Contains(t, err.Error(), "sunny")
}

func TestDescribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/0.1/en/places/xid/W123", r.URL.Path)
		w.Write([]byte(`{
			"xid":"W123","name":"Belem Tower","kinds":"historic,architecture","rate":"3h",
			"address":{"road":"Av. Brasilia","city":"Lisbon","country":"Portugal"},
			"wikipedia":"https://en.wikipedia.org/wiki/Belem_Tower",
			"wikipedia_extracts":{"text":"A 16th-century fortification."},
			"point":{"lat":38.6916,"lon":-9.2160}
		}`))
	}))
	t.Cleanup(srv.Close)

	svc := NewService(func(o *ServiceOptions) { o.BaseURL = srv.URL })

	d, err := svc.Describe(context.Background(), "W123")
	require.NoError(t, err)
	assert.Equal(t, "Belem Tower", d.Name)
	assert.Equal(t, "Av. Brasilia, Lisbon, Portugal", d.Address)
	assert.Equal(t, "A 16th-century fortification.", d.Description)
	assert.InDelta(t, 38.6916, d.Latitude, 0.0001)
}

func TestDescribeEmptyID(t *testing.T) {
	svc := NewService()
	_, err := svc.Describe(context.Background(), "  ")
	require.Error(t, err)
}

func TestDistanceCategory(t *testing.T) {
	assert.Equal(t, "very_close", DistanceCategory(0))
	assert.Equal(t, "very_close", DistanceCategory(499))
	assert.Equal(t, "close", DistanceCategory(500))
	assert.Equal(t, "nearby", DistanceCategory(5000))
	assert.Equal(t, "far", DistanceCategory(12000))
	assert.Equal(t, "very_far", DistanceCategory(30000))
}

func TestCategoriesIsACopy(t *testing.T) {
	cats := Categories()
	require.NotEmpty(t, cats)
	cats[0] = "mutated"
	assert.NotEqual(t, "mutated", Categories()[0])
}

func TestWeatherConditions(t *testing.T) {
	assert.Equal(t, []string{"cloudy", "rainy", "snowy", "sunny", "windy"}, WeatherConditions())
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	svc := NewService(func(o *ServiceOptions) { o.BaseURL = srv.URL })
	_, err := svc.SearchAt(context.Background(), 38.7, -9.1, SearchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
