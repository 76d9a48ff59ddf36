package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"events-system/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// EventFilter narrows an event page query. When CreatedByID is set the query
// is a creator listing and the visibility predicate is not applied; otherwise
// Viewer drives visibility and CategoryID (if non-zero) requires at least one
// matching event_categories row.
type EventFilter struct {
	Viewer      models.Identity
	CategoryID  int64
	CreatedByID string
}

// ---------------- EVENTS ----------------

// SelectEventPage returns one page of events matching the filter plus the
// total count of the full filtered set. The count runs against the same
// predicate before LIMIT/OFFSET are applied, so it never depends on the page.
func (d *DB) SelectEventPage(ctx context.Context, f EventFilter, page, pageSize int) ([]models.Event, int, error) {
	var events []models.Event
	q := d.Bun.NewSelect().Model(&events)

	if f.CreatedByID != "" {
		q = q.Where("created_by_id = ?", f.CreatedByID)
	} else if f.Viewer.IsAnonymous() {
		q = q.Where("is_private = ?", false)
	} else {
		viewerID := f.Viewer.UserID()
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("is_private = ?", false).
				WhereOr("created_by_id = ?", viewerID).
				WhereOr("EXISTS (SELECT 1 FROM registrations r WHERE r.event_id = event.id AND r.user_id = ?)", viewerID)
		})
	}

	if f.CategoryID != 0 {
		q = q.Where("EXISTS (SELECT 1 FROM event_categories ec WHERE ec.event_id = event.id AND ec.category_id = ?)", f.CategoryID)
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	err = q.
		Order("event_date DESC", "id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// GetEventByID fetches one event, returning (nil, nil) when it does not exist.
func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) InsertEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

func (d *DB) InsertEventCategories(ctx context.Context, eventID int64, categoryIDs []int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	links := make([]models.EventCategory, len(categoryIDs))
	for i, categoryID := range categoryIDs {
		links[i] = models.EventCategory{EventID: eventID, CategoryID: categoryID}
	}
	_, err := d.Bun.NewInsert().Model(&links).Exec(ctx)
	return err
}

// DeleteEvent removes an event together with its registrations and category
// links in one transaction. Returns false when no event row matched.
func (d *DB) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Registration)(nil)).
			Where("event_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*models.EventCategory)(nil)).
			Where("event_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = rows > 0
		return nil
	})
	return deleted, err
}

// ---------------- CATEGORIES ----------------

func (d *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := d.Bun.NewSelect().
		Model(&categories).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// CategoriesByEvent returns the category summaries of every given event,
// keyed by event id. Events without categories are simply absent from the map.
func (d *DB) CategoriesByEvent(ctx context.Context, eventIDs []int64) (map[int64][]models.CategorySummary, error) {
	if len(eventIDs) == 0 {
		return map[int64][]models.CategorySummary{}, nil
	}

	var rows []struct {
		EventID int64  `bun:"event_id"`
		ID      int64  `bun:"id"`
		Name    string `bun:"name"`
		Color   string `bun:"color"`
		Icon    string `bun:"icon"`
	}
	err := d.Bun.NewSelect().
		Table("event_categories").
		ColumnExpr("event_categories.event_id, c.id, c.name, c.color, c.icon").
		Join("JOIN categories c ON c.id = event_categories.category_id").
		Where("event_categories.event_id IN (?)", bun.In(eventIDs)).
		Order("c.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	byEvent := make(map[int64][]models.CategorySummary, len(eventIDs))
	for _, row := range rows {
		byEvent[row.EventID] = append(byEvent[row.EventID], models.CategorySummary{
			ID:    row.ID,
			Name:  row.Name,
			Color: row.Color,
			Icon:  row.Icon,
		})
	}
	return byEvent, nil
}

// ---------------- REGISTRATIONS ----------------

// InsertRegistration attempts the unregistered→registered transition for the
// pair. The insert is conditional in a single statement: it only fires when no
// registration exists for (event, user) and the event still has room
// (capacity <= 0 means unlimited). A unique index on (event_id, user_id)
// backs it up; a concurrent duplicate that slips past the NOT EXISTS check
// hits the index and is reported as a plain rejection, not an error.
func (d *DB) InsertRegistration(ctx context.Context, eventID int64, userID string, at time.Time) (bool, error) {
	res, err := d.Bun.ExecContext(ctx, `
		INSERT INTO registrations (event_id, user_id, registration_date)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM registrations WHERE event_id = ? AND user_id = ?
		) AND (
			(SELECT capacity FROM events WHERE id = ?) <= 0
			OR (SELECT count(*) FROM registrations WHERE event_id = ?) < (SELECT capacity FROM events WHERE id = ?)
		)`,
		eventID, userID, at,
		eventID, userID,
		eventID,
		eventID, eventID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// DeleteRegistration removes the registration for (event, user), reporting
// whether one existed.
func (d *DB) DeleteRegistration(ctx context.Context, eventID int64, userID string) (bool, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Registration)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (d *DB) GetRegistration(ctx context.Context, eventID int64, userID string) (*models.Registration, error) {
	var registration models.Registration
	err := d.Bun.NewSelect().
		Model(&registration).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &registration, nil
}

// CountRegistrations returns registration counts for the given events, keyed
// by event id. Events with no registrations are absent from the map.
func (d *DB) CountRegistrations(ctx context.Context, eventIDs []int64) (map[int64]int, error) {
	if len(eventIDs) == 0 {
		return map[int64]int{}, nil
	}

	var rows []struct {
		EventID int64 `bun:"event_id"`
		Count   int   `bun:"count"`
	}
	err := d.Bun.NewSelect().
		Table("registrations").
		ColumnExpr("event_id, count(*) AS count").
		Where("event_id IN (?)", bun.In(eventIDs)).
		GroupExpr("event_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.EventID] = row.Count
	}
	return counts, nil
}

// RegisteredEventIDs reports which of the given events the user is registered
// on.
func (d *DB) RegisteredEventIDs(ctx context.Context, eventIDs []int64, userID string) (map[int64]bool, error) {
	if len(eventIDs) == 0 || userID == "" {
		return map[int64]bool{}, nil
	}

	var ids []int64
	err := d.Bun.NewSelect().
		Column("event_id").
		Table("registrations").
		Where("event_id IN (?)", bun.In(eventIDs)).
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}

	registered := make(map[int64]bool, len(ids))
	for _, id := range ids {
		registered[id] = true
	}
	return registered, nil
}

// ---------------- USERS ----------------

// UsersByID fetches the given users keyed by id, for creator-name hydration.
func (d *DB) UsersByID(ctx context.Context, ids []string) (map[string]models.User, error) {
	if len(ids) == 0 {
		return map[string]models.User{}, nil
	}

	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	return byID, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// sqliteshim surfaces constraint failures as plain errors
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
