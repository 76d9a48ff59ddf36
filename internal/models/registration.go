package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Registration records one user attending one event. At most one row may
// exist per (event, user) pair; the store enforces this with a unique index.
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	EventID          int64     `bun:"event_id,notnull" json:"eventId"`
	UserID           string    `bun:"user_id,notnull" json:"userId"`
	RegistrationDate time.Time `bun:"registration_date,notnull" json:"registrationDate"`
}
