package models

import (
	"time"
)

// Team is a participant unit. The ID comes from external identity
// provisioning; the service never issues it.
type Team struct {
	ID string `json:"id"`
	// Name is the participant-chosen display name. Uniqueness is not
	// enforced; colliding names are a known open issue.
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}
