package models

import "github.com/uptrace/bun"

type Category struct {
	bun.BaseModel `bun:"table:categories"`

	ID    int64  `bun:"id,pk,autoincrement" json:"id"`
	Name  string `bun:"name,notnull" json:"name"`
	Color string `bun:"color" json:"color"`
	Icon  string `bun:"icon" json:"icon"`
}

// EventCategory links events and categories many-to-many. The pair is the
// primary key; rows have no lifecycle of their own beyond their event.
type EventCategory struct {
	bun.BaseModel `bun:"table:event_categories"`

	EventID    int64 `bun:"event_id,pk" json:"eventId"`
	CategoryID int64 `bun:"category_id,pk" json:"categoryId"`
}

type CategorySummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (c Category) Summary() CategorySummary {
	return CategorySummary{ID: c.ID, Name: c.Name, Color: c.Color, Icon: c.Icon}
}
