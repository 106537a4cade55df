package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event emitted after a committed state change.
// Events are advisory: handlers may fail without affecting the operation
// that produced them.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	CompanyID int64                  `json:"company_id"`
	ActorID   int64                  `json:"actor_id"`
	UnitID    int64                  `json:"unit_id,omitempty"`
	ClaimID   int64                  `json:"claim_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// New creates a domain event with a generated ID and timestamp.
func New(eventType Type, companyID, actorID int64, payload map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		CompanyID: companyID,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// ForUnit returns the event with the unit entry reference set.
func (e *Event) ForUnit(unitID int64) *Event {
	e.UnitID = unitID
	return e
}

// ForClaim returns the event with the claim reference set.
func (e *Event) ForClaim(claimID int64) *Event {
	e.ClaimID = claimID
	return e
}

// PayloadString retrieves a string value from the payload.
func (e *Event) PayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// PayloadInt retrieves an int64 value from the payload.
func (e *Event) PayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
