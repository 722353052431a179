package geo

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"

	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/logger"
)

// Locator supplies device position. Current is a one-shot fix; Watch delivers
// fixes until the returned stop function is called.
type Locator interface {
	Current(ctx context.Context) (Coordinate, error)
	Watch(ctx context.Context, fn func(Coordinate)) (stop func(), err error)
}

// StaticLocator always reports the same point. It terminates the fallback
// chain and doubles as the test locator.
type StaticLocator struct {
	Point Coordinate
}

func (s StaticLocator) Current(ctx context.Context) (Coordinate, error) {
	return s.Point, nil
}

func (s StaticLocator) Watch(ctx context.Context, fn func(Coordinate)) (func(), error) {
	fn(s.Point)
	return func() {}, nil
}

// GeoIPLocator resolves a coarse city-level position from the client's public
// IP using a local GeoLite2 database.
type GeoIPLocator struct {
	DatabasePath string
	PublicIP     string
}

func (g GeoIPLocator) Current(ctx context.Context) (Coordinate, error) {
	db, err := geoip2.Open(g.DatabasePath)
	if err != nil {
		return Coordinate{}, errors.WrapCode(errors.CodeGeo, err, "open geoip database")
	}
	defer db.Close()

	ip := net.ParseIP(g.PublicIP)
	if ip == nil {
		return Coordinate{}, errors.WithCode(errors.CodeGeo, "invalid public ip: "+g.PublicIP)
	}
	city, err := db.City(ip)
	if err != nil {
		return Coordinate{}, errors.WrapCode(errors.CodeGeo, err, "geoip city lookup")
	}
	if city.Location.Latitude == 0 && city.Location.Longitude == 0 {
		return Coordinate{}, errors.WithCode(errors.CodeGeo, "no location for ip")
	}
	return Coordinate{Lat: city.Location.Latitude, Lng: city.Location.Longitude}, nil
}

func (g GeoIPLocator) Watch(ctx context.Context, fn func(Coordinate)) (func(), error) {
	c, err := g.Current(ctx)
	if err != nil {
		return nil, err
	}
	fn(c)
	return func() {}, nil
}

// ChainLocator tries each source in order and falls back to the next on
// failure. A chain ending in a StaticLocator never fails.
type ChainLocator struct {
	Sources []Locator
}

// NewDefaultChain builds the standard fallback order: the device source if
// given, then GeoIP if configured, then the fixed default coordinate.
func NewDefaultChain(device Locator, geoIPDatabase, publicIP string) *ChainLocator {
	var sources []Locator
	if device != nil {
		sources = append(sources, device)
	}
	if geoIPDatabase != "" && publicIP != "" {
		sources = append(sources, GeoIPLocator{DatabasePath: geoIPDatabase, PublicIP: publicIP})
	}
	sources = append(sources, StaticLocator{Point: DefaultCoordinate})
	return &ChainLocator{Sources: sources}
}

func (c *ChainLocator) Current(ctx context.Context) (Coordinate, error) {
	var lastErr error
	for _, src := range c.Sources {
		point, err := src.Current(ctx)
		if err == nil {
			return point, nil
		}
		logger.Warn("position source failed, falling back", zap.Error(err))
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.WithCode(errors.CodeGeo, "no position sources configured")
	}
	return Coordinate{}, lastErr
}

// Watch delegates to the first source that accepts the watch. Sources without
// continuous fixes deliver one fix and stop.
func (c *ChainLocator) Watch(ctx context.Context, fn func(Coordinate)) (func(), error) {
	var lastErr error
	for _, src := range c.Sources {
		stop, err := src.Watch(ctx, fn)
		if err == nil {
			return stop, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.WithCode(errors.CodeGeo, "no position sources configured")
	}
	return nil, lastErr
}

// PollingLocator adapts a one-shot source into a continuous one by polling.
type PollingLocator struct {
	Source   Locator
	Interval time.Duration
}

func (p PollingLocator) Current(ctx context.Context) (Coordinate, error) {
	return p.Source.Current(ctx)
}

func (p PollingLocator) Watch(ctx context.Context, fn func(Coordinate)) (func(), error) {
	first, err := p.Source.Current(ctx)
	if err != nil {
		return nil, err
	}
	fn(first)

	interval := p.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				point, err := p.Source.Current(ctx)
				if err != nil {
					logger.Warn("position poll failed", zap.Error(err))
					continue
				}
				fn(point)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}, nil
}
