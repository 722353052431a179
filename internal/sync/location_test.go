package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JevanRaksha/internal/geo"
	"JevanRaksha/internal/models"
	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/store"
)

func TestLocationFetchToleratesNoRows(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()

	s := NewLocationSyncer(st, f, nil, "u1", models.UserTypeVictim)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	assert.Equal(t, StateReady, s.State())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestUpdateLocationWritesBothTables(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()

	s := NewLocationSyncer(st, f, nil, "u1", models.UserTypeVolunteer)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	coords := geo.Coordinate{Lat: 22.57, Lng: 88.36}
	require.NoError(t, s.UpdateLocation(context.Background(), coords))

	upserts := st.callsFor("upsert", "user_locations")
	require.Len(t, upserts, 1)
	assert.Equal(t, "user_id", upserts[0].onConflict)
	row, ok := upserts[0].body.(models.UserLocation)
	require.True(t, ok)
	assert.Equal(t, "u1", row.UserID)
	assert.Equal(t, models.UserTypeVolunteer, row.UserType)
	require.NotNil(t, row.Location)
	assert.Equal(t, coords, *row.Location)
	require.NotNil(t, row.IsActive)
	assert.True(t, *row.IsActive)
	assert.False(t, row.LastUpdated.IsZero())

	updates := st.callsFor("update", "profiles")
	require.Len(t, updates, 1)
	assert.Equal(t, store.Where(store.Eq("id", "u1")), updates[0].filter)
}

func TestUpdateLocationProfileFailureSurfacedNotRolledBack(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()
	st.setErr("update", "profiles", errors.New("permission denied"))

	s := NewLocationSyncer(st, f, nil, "u1", models.UserTypeVictim)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	err := s.UpdateLocation(context.Background(), geo.Coordinate{Lat: 1, Lng: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update profile location")

	// the first write stands: exactly one upsert, no compensation
	assert.Len(t, st.callsFor("upsert", "user_locations"), 1)
	assert.Len(t, st.callsFor("update", "user_locations"), 0)
}

func TestUpdateLocationUpsertFailureSkipsProfileWrite(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()
	st.setErr("upsert", "user_locations", errors.New("conflict"))

	s := NewLocationSyncer(st, f, nil, "u1", models.UserTypeVictim)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	err := s.UpdateLocation(context.Background(), geo.Coordinate{Lat: 1, Lng: 2})
	require.Error(t, err)
	assert.Len(t, st.callsFor("update", "profiles"), 0)
}

func TestTrackerFeedsFixesIntoSyncer(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()

	s := NewLocationSyncer(st, f, nil, "u1", models.UserTypeVolunteer)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	locator := geo.StaticLocator{Point: geo.Coordinate{Lat: 22.57, Lng: 88.36}}
	tracker, err := StartTracker(context.Background(), s, locator)
	require.NoError(t, err)

	assert.Len(t, st.callsFor("upsert", "user_locations"), 1)

	tracker.Stop()
	tracker.Stop() // idempotent
}
