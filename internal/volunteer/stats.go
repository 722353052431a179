package volunteer

import (
	"context"
	"time"

	"JevanRaksha/internal/models"
	"JevanRaksha/pkg/cache"
	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/store"
)

const statsCacheTTL = 10 * time.Minute

// StatsService recomputes volunteer stats from assignment rows and caches
// the result between periodic refreshes.
type StatsService struct {
	st    store.Store
	cache cache.Cache
}

func NewStatsService(st store.Store, c cache.Cache) *StatsService {
	return &StatsService{st: st, cache: c}
}

// Recompute reads the volunteer's completed assignments and refreshes the
// cached stats record.
func (s *StatsService) Recompute(ctx context.Context, volunteerID string) (Stats, error) {
	rows, err := s.st.Select(ctx, "volunteer_assignments",
		store.Where(
			store.Eq("volunteer_id", volunteerID),
			store.Eq("status", models.AssignmentCompleted),
		), nil)
	if err != nil {
		return Stats{}, errors.Wrap(err, "count completed assignments")
	}

	stats := Stats{MissionsCompleted: len(rows)}
	if s.cache != nil {
		_ = s.cache.Set(ctx, statsKey(volunteerID), stats, statsCacheTTL)
	}
	return stats, nil
}

// Cached returns the last computed stats for a volunteer.
func (s *StatsService) Cached(ctx context.Context, volunteerID string) (Stats, bool) {
	if s.cache == nil {
		return Stats{}, false
	}
	v, ok := s.cache.Get(ctx, statsKey(volunteerID))
	if !ok {
		return Stats{}, false
	}
	stats, ok := v.(Stats)
	return stats, ok
}

func statsKey(volunteerID string) string {
	return "volunteer:stats:" + volunteerID
}
