package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description" json:"description"`
	EventDate   time.Time `bun:"event_date,notnull" json:"eventDate"`
	Capacity    int       `bun:"capacity,notnull,default:0" json:"capacity"`
	IsPrivate   bool      `bun:"is_private,notnull,default:false" json:"isPrivate"`
	Address     string    `bun:"address,nullzero" json:"address,omitempty"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
	CreatedByID string    `bun:"created_by_id,notnull" json:"createdById"`
}

// EventSummary is the API projection of an event: the raw row plus the
// derived fields the clients render (creator name, registration count,
// categories, whether the current viewer is registered).
type EventSummary struct {
	ID                 int64             `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	EventDate          time.Time         `json:"eventDate"`
	Capacity           int               `json:"capacity"`
	IsPrivate          bool              `json:"isPrivate"`
	Address            string            `json:"address,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	CreatedByID        string            `json:"createdById"`
	CreatedByName      string            `json:"createdByName"`
	RegistrationsCount int               `json:"registrationsCount"`
	Categories         []CategorySummary `json:"categories"`
	IsRegistered       bool              `json:"isRegistered"`
}

// PaginatedEvents pairs one page of summaries with the total size of the
// filtered set. TotalCount is computed before pagination is applied, so
// every page of the same filter reports the same total.
type PaginatedEvents struct {
	Items      []EventSummary `json:"items"`
	TotalCount int            `json:"totalCount"`
}

// CreateEventInput carries the fields of a create request. CreatedByID is
// an optional explicit owner override; when empty the authenticated viewer
// becomes the owner.
type CreateEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"eventDate"`
	Capacity    int       `json:"capacity"`
	IsPrivate   bool      `json:"isPrivate"`
	Address     string    `json:"address"`
	CategoryIDs []int64   `json:"categoryIds"`
	CreatedByID string    `json:"createdById,omitempty"`
}
