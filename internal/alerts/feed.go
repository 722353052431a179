package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"JevanRaksha/internal/geo"
	"JevanRaksha/pkg/cache"
	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/logger"
	"JevanRaksha/pkg/metrics"
	"JevanRaksha/pkg/scheduler"
)

// apiAlert is one element of the public alert API response.
type apiAlert struct {
	Identifier         string `json:"identifier"`
	DisasterType       string `json:"disaster_type"`
	SeverityLevel      string `json:"severity_level"`
	SeverityColor      string `json:"severity_color"`
	AreaDescription    string `json:"area_description"`
	WarningMessage     string `json:"warning_message"`
	EffectiveStartTime string `json:"effective_start_time"`
	AffectedPopulation string `json:"affected_population"`
	AlertSource        string `json:"alert_source"`
	Centroid           string `json:"centroid"`
}

// Alert is an enriched, display-ready disaster alert.
type Alert struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Severity    string          `json:"severity"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	Timestamp   string          `json:"timestamp"`
	Affected    string          `json:"affected"`
	Icon        string          `json:"icon"`
	Source      string          `json:"source"`
	Coordinate  *geo.Coordinate `json:"coordinates,omitempty"`

	// DistanceKm is nil when the alert has no usable centroid or the caller
	// position is unknown.
	DistanceKm *int `json:"distance,omitempty"`
}

// Config sizes the alert feed service.
type Config struct {
	URL      string
	RadiusKm int
	Refresh  time.Duration
	Timeout  time.Duration
}

const (
	snapshotCacheKey = "alerts:last-good"

	// a stale snapshot is still better than none while the api is down
	snapshotCacheTTL = 24 * time.Hour
)

// Service fetches the public disaster alert feed and turns it into
// enriched, radius-filtered, distance-sorted snapshots.
type Service struct {
	cfg    Config
	client *http.Client
	cache  cache.Cache
	met    *metrics.Metrics
}

func NewService(cfg Config, c cache.Cache, met *metrics.Metrics) *Service {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 200
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 5 * time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		cache:  c,
		met:    met,
	}
}

// Snapshot fetches and processes the current alert set. It never returns an
// error: a failed fetch yields the single synthetic connection-error entry,
// and the last good snapshot stays cached for callers that want it.
func (s *Service) Snapshot(ctx context.Context, at *geo.Coordinate) []Alert {
	raw, err := s.fetch(ctx)
	if s.met != nil {
		s.met.IncAlertFetch(err)
	}
	if err != nil {
		logger.Error("alert feed fetch failed", zap.Error(err))
		return []Alert{fallbackAlert()}
	}

	result := s.process(raw, at, time.Now())
	if s.met != nil {
		s.met.SetAlertsInRadius(len(result))
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, snapshotCacheKey, result, snapshotCacheTTL)
	}
	return result
}

// LastGood returns the most recent successful snapshot, if one is cached.
func (s *Service) LastGood(ctx context.Context) ([]Alert, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(ctx, snapshotCacheKey)
	if !ok {
		if s.met != nil {
			s.met.IncCacheMiss()
		}
		return nil, false
	}
	if s.met != nil {
		s.met.IncCacheHit()
	}
	snapshot, ok := v.([]Alert)
	return snapshot, ok
}

// Start schedules the fixed periodic refresh. The position function is
// re-evaluated on every tick so a moving caller filters against fresh
// coordinates.
func (s *Service) Start(cr *scheduler.Cron, position func() *geo.Coordinate) error {
	_, err := cr.AddWithCtx("@every "+s.cfg.Refresh.String(), func(ctx context.Context) {
		s.Snapshot(ctx, position())
	})
	return err
}

func (s *Service) fetch(ctx context.Context) ([]apiAlert, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeAlertAPI, err, "build alert request")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeAlertAPI, err, "alert api unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithCode(errors.CodeAlertAPI, "alert api status: "+resp.Status)
	}

	var raw []apiAlert
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.WrapCode(errors.CodeAlertAPI, err, "decode alert response")
	}
	return raw, nil
}

// process transforms, enriches, filters and sorts one API response. With no
// caller position the input passes through unfiltered in input order.
func (s *Service) process(raw []apiAlert, at *geo.Coordinate, now time.Time) []Alert {
	alerts := make([]Alert, 0, len(raw))
	for _, a := range raw {
		alerts = append(alerts, s.transform(a, at, now))
	}

	if at == nil {
		return alerts
	}

	inRadius := alerts[:0]
	for _, a := range alerts {
		if a.DistanceKm != nil && *a.DistanceKm <= s.cfg.RadiusKm {
			inRadius = append(inRadius, a)
		}
	}
	alerts = inRadius

	sort.SliceStable(alerts, func(i, j int) bool {
		di, dj := alerts[i].DistanceKm, alerts[j].DistanceKm
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return *di < *dj
	})
	return alerts
}

func (s *Service) transform(a apiAlert, at *geo.Coordinate, now time.Time) Alert {
	out := Alert{
		ID:          a.Identifier,
		Type:        orDefault(a.DisasterType, "Unknown Disaster"),
		Severity:    Severity(a.SeverityLevel, a.SeverityColor),
		Location:    orDefault(a.AreaDescription, "Location not specified"),
		Description: orDefault(a.WarningMessage, orDefault(a.DisasterType, "No description available")),
		Timestamp:   TimeAgo(a.EffectiveStartTime, now),
		Affected:    orDefault(a.AffectedPopulation, "Not specified"),
		Icon:        Icon(a.DisasterType),
		Source:      orDefault(a.AlertSource, "NDMA"),
	}

	if a.Centroid != "" {
		point, err := geo.ParseCentroid(a.Centroid)
		if err != nil {
			logger.Warn("unparseable alert centroid",
				zap.String("alert", a.Identifier), zap.Error(err))
		} else {
			out.Coordinate = &point
			if at != nil {
				d := geo.Distance(*at, point)
				out.DistanceKm = &d
			}
		}
	}
	return out
}

// fallbackAlert is the single synthetic entry shown when the feed cannot be
// reached.
func fallbackAlert() Alert {
	return Alert{
		ID:          "fallback-1",
		Type:        "API Connection Error",
		Severity:    SeverityMedium,
		Location:    "System Status",
		Description: "Unable to fetch live disaster data. Please check your connection or try again later.",
		Timestamp:   "Just now",
		Affected:    "N/A",
		Icon:        "🔌",
		Source:      "System",
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
