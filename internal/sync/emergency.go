package sync

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"JevanRaksha/internal/geo"
	"JevanRaksha/internal/models"
	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/feed"
	"JevanRaksha/pkg/logger"
	"JevanRaksha/pkg/metrics"
	"JevanRaksha/pkg/store"
)

// ActiveEmergencySyncer mirrors every active emergency alert, newest first.
// The subscription is table-wide: any change to emergency_alerts can move a
// row in or out of the active set.
type ActiveEmergencySyncer struct {
	*Hook[models.EmergencyAlert]
}

func NewActiveEmergencySyncer(st store.Store, f feed.Feed, met *metrics.Metrics) *ActiveEmergencySyncer {
	scope := Scope[models.EmergencyAlert]{
		Name:    "active-emergencies",
		Channel: "emergency_changes",
		Filter: feed.ChangeFilter{
			Event: feed.EventAll,
			Table: "emergency_alerts",
		},
		Fetch: func(ctx context.Context) ([]models.EmergencyAlert, error) {
			rows, err := st.Select(ctx, "emergency_alerts",
				store.Where(store.Eq("status", models.AlertStatusActive)),
				&store.Order{Column: "created_at", Ascending: false})
			if err != nil {
				return nil, err
			}
			return decodeRows[models.EmergencyAlert](rows)
		},
	}
	return &ActiveEmergencySyncer{Hook: NewHook(f, met, scope)}
}

// MissionSyncer mirrors the alerts a volunteer is currently working,
// newest first.
type MissionSyncer struct {
	*Hook[models.EmergencyAlert]
	st store.Store
}

func NewMissionSyncer(st store.Store, f feed.Feed, met *metrics.Metrics, volunteerID string) *MissionSyncer {
	return &MissionSyncer{
		Hook: NewHook(f, met, missionScope(st, volunteerID)),
		st:   st,
	}
}

// SetVolunteer rebinds the mission list to another volunteer.
func (s *MissionSyncer) SetVolunteer(volunteerID string) error {
	return s.Rescope(missionScope(s.st, volunteerID))
}

func missionScope(st store.Store, volunteerID string) Scope[models.EmergencyAlert] {
	return Scope[models.EmergencyAlert]{
		Name:    "missions",
		Channel: "mission_changes",
		Filter: feed.ChangeFilter{
			Event:  feed.EventAll,
			Table:  "emergency_alerts",
			Filter: "volunteer_id=eq." + volunteerID,
		},
		Fetch: func(ctx context.Context) ([]models.EmergencyAlert, error) {
			rows, err := st.Select(ctx, "emergency_alerts",
				store.Where(
					store.Eq("volunteer_id", volunteerID),
					store.Eq("status", models.AlertStatusInProgress),
				),
				&store.Order{Column: "created_at", Ascending: false})
			if err != nil {
				return nil, err
			}
			return decodeRows[models.EmergencyAlert](rows)
		},
	}
}

// EmergencyService performs the alert lifecycle writes. Status transitions
// are monotonic: active -> in_progress -> completed, never reverted by the
// client.
type EmergencyService struct {
	st store.Store
}

func NewEmergencyService(st store.Store) *EmergencyService {
	return &EmergencyService{st: st}
}

// Raise creates an active alert with a best-effort position; a nil
// coordinate is stored as an unknown location, never an error. The server's
// auto-assignment function is invoked best-effort afterwards.
func (s *EmergencyService) Raise(ctx context.Context, userID, emergencyType, description string, at *geo.Coordinate) (*models.EmergencyAlert, error) {
	if description == "" {
		description = emergencyType + " emergency alert"
	}
	row := map[string]interface{}{
		"user_id":        userID,
		"emergency_type": emergencyType,
		"description":    description,
		"location":       at,
		"status":         models.AlertStatusActive,
	}
	rows, err := s.st.Insert(ctx, "emergency_alerts", row)
	if err != nil {
		return nil, errors.Wrap(err, "raise emergency")
	}
	if len(rows) == 0 {
		return nil, errors.New("store returned no alert row")
	}
	var alert models.EmergencyAlert
	if err := json.Unmarshal(rows[0], &alert); err != nil {
		return nil, errors.Wrap(err, "decode alert row")
	}

	if _, err := s.st.Call(ctx, "assign_volunteer_to_alert",
		map[string]interface{}{"alert_id": alert.ID}); err != nil {
		logger.Warn("volunteer auto-assignment failed",
			zap.String("alert", alert.ID), zap.Error(err))
	}
	return &alert, nil
}

// Accept moves an alert to in_progress under the volunteer and records the
// assignment row.
func (s *EmergencyService) Accept(ctx context.Context, alertID, volunteerID string) error {
	patch := map[string]interface{}{
		"status":       models.AlertStatusInProgress,
		"volunteer_id": volunteerID,
	}
	if _, err := s.st.Update(ctx, "emergency_alerts",
		store.Where(store.Eq("id", alertID)), patch); err != nil {
		return errors.Wrap(err, "accept mission")
	}

	assignment := map[string]interface{}{
		"alert_id":     alertID,
		"volunteer_id": volunteerID,
		"status":       models.AssignmentInProgress,
	}
	if _, err := s.st.Insert(ctx, "volunteer_assignments", assignment); err != nil {
		return errors.Wrap(err, "record assignment")
	}
	return nil
}

// Complete closes out an alert and its assignment.
func (s *EmergencyService) Complete(ctx context.Context, alertID string) error {
	if _, err := s.st.Update(ctx, "emergency_alerts",
		store.Where(store.Eq("id", alertID)),
		map[string]interface{}{"status": models.AlertStatusCompleted}); err != nil {
		return errors.Wrap(err, "complete mission")
	}
	if _, err := s.st.Update(ctx, "volunteer_assignments",
		store.Where(store.Eq("alert_id", alertID)),
		map[string]interface{}{"status": models.AssignmentCompleted}); err != nil {
		return errors.Wrap(err, "complete assignment")
	}
	return nil
}
