package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"JevanRaksha/internal/geo"
	"JevanRaksha/internal/models"
	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/feed"
	"JevanRaksha/pkg/logger"
	"JevanRaksha/pkg/metrics"
	"JevanRaksha/pkg/store"
)

// LocationSyncer mirrors the user's single user_locations row and writes
// position updates back to the store.
type LocationSyncer struct {
	*Hook[models.UserLocation]
	st       store.Store
	userID   string
	userType string
}

func NewLocationSyncer(st store.Store, f feed.Feed, met *metrics.Metrics, userID, userType string) *LocationSyncer {
	return &LocationSyncer{
		Hook:     NewHook(f, met, locationScope(st, userID)),
		st:       st,
		userID:   userID,
		userType: userType,
	}
}

func locationScope(st store.Store, userID string) Scope[models.UserLocation] {
	return Scope[models.UserLocation]{
		Name:    "location",
		Channel: "user_location_" + userID,
		Filter: feed.ChangeFilter{
			Event:  feed.EventAll,
			Table:  "user_locations",
			Filter: "user_id=eq." + userID,
		},
		// zero rows is a valid snapshot: the user has no stored position yet
		Fetch: func(ctx context.Context) ([]models.UserLocation, error) {
			rows, err := st.Select(ctx, "user_locations",
				store.Where(store.Eq("user_id", userID)), nil)
			if err != nil {
				return nil, err
			}
			return decodeRows[models.UserLocation](rows)
		},
	}
}

// Current returns the stored location row, if any.
func (s *LocationSyncer) Current() (models.UserLocation, bool) {
	rows := s.Snapshot()
	if len(rows) == 0 {
		return models.UserLocation{}, false
	}
	return rows[0], true
}

// UpdateLocation writes a position in two steps: an upsert of the
// user_locations row keyed by user_id, then a denormalized copy onto the
// profile. Both writes are attempted; a profile failure is surfaced without
// rolling back the first write, so readers of either table converge on the
// next update.
func (s *LocationSyncer) UpdateLocation(ctx context.Context, coords geo.Coordinate) error {
	active := true
	row := models.UserLocation{
		UserID:      s.userID,
		UserType:    s.userType,
		Location:    &coords,
		LastUpdated: time.Now().UTC(),
		IsActive:    &active,
	}
	if _, err := s.st.Upsert(ctx, "user_locations", row, "user_id"); err != nil {
		return errors.Wrap(err, "upsert user location")
	}

	patch := map[string]interface{}{"location": coords}
	if _, err := s.st.Update(ctx, "profiles",
		store.Where(store.Eq("id", s.userID)), patch); err != nil {
		return errors.Wrap(err, "update profile location")
	}
	return nil
}

// Tracker feeds continuous position fixes into a LocationSyncer until
// stopped.
type Tracker struct {
	stop func()
}

// StartTracker begins watching the locator and pushing each fix through
// UpdateLocation. Stop the tracker before closing the syncer.
func StartTracker(ctx context.Context, syncer *LocationSyncer, locator geo.Locator) (*Tracker, error) {
	stop, err := locator.Watch(ctx, func(c geo.Coordinate) {
		if err := syncer.UpdateLocation(ctx, c); err != nil {
			logger.Warn("location update failed",
				zap.String("user", syncer.userID), zap.Error(err))
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "watch position")
	}
	return &Tracker{stop: stop}, nil
}

// Stop ends the position watch. Safe to call more than once.
func (t *Tracker) Stop() {
	if t.stop != nil {
		t.stop()
	}
}
