package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tripmesh/tripmesh/cache"
	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/mcpserver"
	"github.com/tripmesh/tripmesh/travel/booking"
	"github.com/tripmesh/tripmesh/travel/geo"
	"github.com/tripmesh/tripmesh/travel/places"
	"github.com/tripmesh/tripmesh/travel/planner"
	"github.com/tripmesh/tripmesh/travel/weather"
)

// deps holds the domain services shared by the MCP servers and the planner.
type deps struct {
	logger  *logging.ZapAdapter
	redis   *redis.Client
	cache   cache.Cache
	geo     *geo.Client
	weather *weather.Service
	booking *booking.Service
	places  *places.Service
	planner *planner.Service
}

// buildDeps wires the domain services: one shared geocoder and cache, the
// booking/places upstream keys from config, and the planner composing the
// other three.
func buildDeps(cfg config.Config) (*deps, error) {
	logger, err := logging.NewZapProduction("tripmesh")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	d := &deps{logger: logger, cache: cache.NoOp{}}

	if cfg.RedisAddr != "" {
		d.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		d.cache = cache.NewRedisCache(d.redis, func(o *cache.RedisCacheOptions) {
			o.Logger = logger
		})
	}

	d.geo = geo.NewClient(func(o *geo.ClientOptions) {
		o.Cache = d.cache
		o.Logger = logger
	})
	d.weather = weather.NewService(func(o *weather.ServiceOptions) {
		o.Geocoder = d.geo
		o.Cache = d.cache
		o.Logger = logger
	})
	d.booking = booking.NewService(func(o *booking.ServiceOptions) {
		o.APIKey = cfg.BookingAPIKey
		o.Logger = logger
	})
	d.places = places.NewService(func(o *places.ServiceOptions) {
		o.APIKey = cfg.PlacesAPIKey
		o.Geocoder = d.geo
		o.Cache = d.cache
		o.Logger = logger
	})
	d.planner = planner.NewService(func(o *planner.ServiceOptions) {
		o.Geocoder = d.geo
		o.Weather = d.weather
		o.Places = d.places
		o.Booking = d.booking
		o.Logger = logger
	})

	return d, nil
}

// Close flushes the logger and releases the Redis connection.
func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	_ = d.logger.Sync()
}

func (d *deps) server(cfg config.Config, which string) (*mcpserver.Server, error) {
	switch which {
	case "weather":
		return mcpserver.NewWeatherServer(d.weather, mcpserver.Options{Addr: cfg.Weather.Addr, Logger: d.logger}), nil
	case "booking":
		return mcpserver.NewBookingServer(d.booking, mcpserver.Options{Addr: cfg.Booking.Addr, Logger: d.logger}), nil
	case "places":
		return mcpserver.NewPlacesServer(d.places, mcpserver.Options{Addr: cfg.Places.Addr, Logger: d.logger}), nil
	case "planner":
		return mcpserver.NewPlannerServer(d.planner, mcpserver.Options{Addr: cfg.Planner.Addr, Logger: d.logger}), nil
	default:
		return nil, fmt.Errorf("unknown server %q", which)
	}
}

func (d *deps) allServers(cfg config.Config) []*mcpserver.Server {
	return []*mcpserver.Server{
		mcpserver.NewWeatherServer(d.weather, mcpserver.Options{Addr: cfg.Weather.Addr, Logger: d.logger}),
		mcpserver.NewBookingServer(d.booking, mcpserver.Options{Addr: cfg.Booking.Addr, Logger: d.logger}),
		mcpserver.NewPlacesServer(d.places, mcpserver.Options{Addr: cfg.Places.Addr, Logger: d.logger}),
		mcpserver.NewPlannerServer(d.planner, mcpserver.Options{Addr: cfg.Planner.Addr, Logger: d.logger}),
	}
}
