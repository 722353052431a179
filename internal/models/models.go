package models

import (
	"encoding/json"
	"time"

	"JevanRaksha/internal/geo"
)

// User roles as stored in profiles.user_type.
const (
	UserTypeVictim    = "victim"
	UserTypeVolunteer = "volunteer"
)

// Emergency alert lifecycle states. Transitions are monotonic on the client:
// active -> in_progress -> completed/resolved, never back.
const (
	AlertStatusActive     = "active"
	AlertStatusInProgress = "in_progress"
	AlertStatusCompleted  = "completed"
	AlertStatusResolved   = "resolved"
)

// Volunteer assignment states.
const (
	AssignmentAssigned   = "assigned"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
)

// Profile is a row of the profiles table.
type Profile struct {
	ID          string          `json:"id"`
	Email       string          `json:"email,omitempty"`
	FullName    string          `json:"full_name,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	UserType    string          `json:"user_type"`
	IsAvailable *bool           `json:"is_available,omitempty"`
	Location    *geo.Coordinate `json:"location,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

// ChatMessage is a row of the chat_messages table, the inbox-level record.
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	AlertID    string    `json:"alert_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	ReadAt     time.Time `json:"read_at,omitempty"`

	// Sender is present only when the read expanded the sender relation.
	Sender SenderRef `json:"sender,omitempty"`
}

// Message is a row of the per-alert messages table.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Message   string    `json:"message"`
	MediaURL  string    `json:"media_url,omitempty"`
	AlertID   string    `json:"alert_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EmergencyAlert is a row of the emergency_alerts table.
type EmergencyAlert struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	EmergencyType string          `json:"emergency_type"`
	Description   string          `json:"description"`
	Location      *geo.Coordinate `json:"location,omitempty"`
	Status        string          `json:"status"`
	VolunteerID   string          `json:"volunteer_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}

// UserLocation is a row of the user_locations table, keyed by user_id.
type UserLocation struct {
	ID          string          `json:"id,omitempty"`
	UserID      string          `json:"user_id"`
	UserType    string          `json:"user_type,omitempty"`
	Location    *geo.Coordinate `json:"location,omitempty"`
	LastUpdated time.Time       `json:"last_updated,omitempty"`
	EmergencyID string          `json:"emergency_id,omitempty"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

// VolunteerAssignment is a row of the volunteer_assignments table.
type VolunteerAssignment struct {
	ID          string    `json:"id,omitempty"`
	AlertID     string    `json:"alert_id"`
	VolunteerID string    `json:"volunteer_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// SenderRef is the sender field of an inbox record. The store returns either
// an expanded profile object, a bare identifier string, or nothing; display
// code needs to tell the three apart.
type SenderRef struct {
	Profile *SenderProfile
	Raw     string
}

// SenderProfile is the subset of profile columns expanded into inbox reads.
type SenderProfile struct {
	ID       string `json:"id,omitempty"`
	FullName string `json:"full_name"`
	UserType string `json:"user_type"`
}

func (s *SenderRef) UnmarshalJSON(data []byte) error {
	s.Profile = nil
	s.Raw = ""
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &s.Raw)
	}
	var p SenderProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.Profile = &p
	return nil
}

func (s SenderRef) MarshalJSON() ([]byte, error) {
	if s.Profile != nil {
		return json.Marshal(s.Profile)
	}
	if s.Raw != "" {
		return json.Marshal(s.Raw)
	}
	return []byte("null"), nil
}

// DisplayName resolves the name to show for a sender: the expanded profile
// name, else the raw identifier, else "Unknown".
func (s SenderRef) DisplayName() string {
	if s.Profile != nil && s.Profile.FullName != "" {
		return s.Profile.FullName
	}
	if s.Raw != "" {
		return s.Raw
	}
	return "Unknown"
}
