package models

import "time"

// Trigger binds a named business event to a definition. Higher priority is evaluated first.
type Trigger struct {
	ID           string    `json:"id"`
	EventName    string    `json:"event_name"    validate:"required"`
	DefinitionID string    `json:"definition_id" validate:"required"`
	Enabled      bool      `json:"enabled"`
	Priority     int       `json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
}
