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

func TestActiveEmergencySyncerScope(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()
	st.setRows("select", "emergency_alerts",
		map[string]interface{}{"id": "a1", "user_id": "u1", "emergency_type": "flood",
			"description": "water rising", "status": "active"})

	s := NewActiveEmergencySyncer(st, f, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	alerts := s.Snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertStatusActive, alerts[0].Status)

	calls := st.callsFor("select", "emergency_alerts")
	require.Len(t, calls, 1)
	assert.Equal(t, store.Where(store.Eq("status", "active")), calls[0].filter)

	// table-wide subscription: no server-side row predicate
	sub := f.subs["emergency_changes"]
	require.NotNil(t, sub)
	assert.Empty(t, sub.filter.Filter)
}

func TestMissionSyncerScope(t *testing.T) {
	st := newFakeStore()
	f := newFakeFeed()

	s := NewMissionSyncer(st, f, nil, "v1")
	require.NoError(t, s.Start(context.Background()))
	defer s.Close()

	calls := st.callsFor("select", "emergency_alerts")
	require.Len(t, calls, 1)
	assert.Equal(t, store.Where(
		store.Eq("volunteer_id", "v1"),
		store.Eq("status", "in_progress"),
	), calls[0].filter)

	sub := f.subs["mission_changes"]
	require.NotNil(t, sub)
	assert.Equal(t, "volunteer_id=eq.v1", sub.filter.Filter)
}

func TestRaiseInsertsActiveAlertAndRequestsAssignment(t *testing.T) {
	st := newFakeStore()
	st.setRows("insert", "emergency_alerts",
		map[string]interface{}{"id": "a1", "user_id": "u1", "emergency_type": "flood",
			"description": "water rising", "status": "active",
			"location": map[string]float64{"lat": 22.57, "lng": 88.36}})

	svc := NewEmergencyService(st)
	at := &geo.Coordinate{Lat: 22.57, Lng: 88.36}
	alert, err := svc.Raise(context.Background(), "u1", "flood", "water rising", at)
	require.NoError(t, err)
	assert.Equal(t, "a1", alert.ID)
	assert.Equal(t, models.AlertStatusActive, alert.Status)

	inserts := st.callsFor("insert", "emergency_alerts")
	require.Len(t, inserts, 1)
	body := inserts[0].body.(map[string]interface{})
	assert.Equal(t, "active", body["status"])
	assert.Equal(t, at, body["location"])

	calls := st.callsFor("call", "rpc")
	require.Len(t, calls, 1)
	assert.Equal(t, "assign_volunteer_to_alert", calls[0].fn)
}

func TestRaiseWithoutCoordinateOrDescription(t *testing.T) {
	st := newFakeStore()
	st.setRows("insert", "emergency_alerts",
		map[string]interface{}{"id": "a2", "user_id": "u1", "emergency_type": "fire",
			"description": "fire emergency alert", "status": "active"})

	svc := NewEmergencyService(st)
	alert, err := svc.Raise(context.Background(), "u1", "fire", "", nil)
	require.NoError(t, err)
	assert.Nil(t, alert.Location)

	body := st.callsFor("insert", "emergency_alerts")[0].body.(map[string]interface{})
	assert.Equal(t, "fire emergency alert", body["description"])
	assert.Nil(t, body["location"])
}

func TestRaiseSucceedsWhenAssignmentCallFails(t *testing.T) {
	st := newFakeStore()
	st.setRows("insert", "emergency_alerts",
		map[string]interface{}{"id": "a3", "user_id": "u1", "emergency_type": "flood",
			"description": "d", "status": "active"})
	st.setErr("call", "rpc", errors.New("function missing"))

	svc := NewEmergencyService(st)
	alert, err := svc.Raise(context.Background(), "u1", "flood", "d", nil)
	require.NoError(t, err)
	assert.Equal(t, "a3", alert.ID)
}

func TestAcceptMovesAlertInProgressAndRecordsAssignment(t *testing.T) {
	st := newFakeStore()
	svc := NewEmergencyService(st)

	require.NoError(t, svc.Accept(context.Background(), "a1", "v1"))

	updates := st.callsFor("update", "emergency_alerts")
	require.Len(t, updates, 1)
	assert.Equal(t, store.Where(store.Eq("id", "a1")), updates[0].filter)
	patch := updates[0].body.(map[string]interface{})
	assert.Equal(t, "in_progress", patch["status"])
	assert.Equal(t, "v1", patch["volunteer_id"])

	inserts := st.callsFor("insert", "volunteer_assignments")
	require.Len(t, inserts, 1)
	row := inserts[0].body.(map[string]interface{})
	assert.Equal(t, "a1", row["alert_id"])
	assert.Equal(t, "v1", row["volunteer_id"])
	assert.Equal(t, "in_progress", row["status"])
}

func TestAcceptFailureSkipsAssignmentInsert(t *testing.T) {
	st := newFakeStore()
	st.setErr("update", "emergency_alerts", errors.New("gone"))
	svc := NewEmergencyService(st)

	require.Error(t, svc.Accept(context.Background(), "a1", "v1"))
	assert.Len(t, st.callsFor("insert", "volunteer_assignments"), 0)
}

func TestCompleteClosesAlertAndAssignment(t *testing.T) {
	st := newFakeStore()
	svc := NewEmergencyService(st)

	require.NoError(t, svc.Complete(context.Background(), "a1"))

	alertPatch := st.callsFor("update", "emergency_alerts")[0].body.(map[string]interface{})
	assert.Equal(t, "completed", alertPatch["status"])

	updates := st.callsFor("update", "volunteer_assignments")
	require.Len(t, updates, 1)
	assert.Equal(t, store.Where(store.Eq("alert_id", "a1")), updates[0].filter)
	assert.Equal(t, "completed", updates[0].body.(map[string]interface{})["status"])
}
