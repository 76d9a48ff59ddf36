package events

import (
	"context"
	"fmt"
	"time"

	"events-system/internal/events/db"
	"events-system/internal/logger"
	"events-system/internal/models"
)

// DBLayer is the storage surface the catalog service needs. *db.DB is the
// production implementation; tests substitute mocks.
type DBLayer interface {
	SelectEventPage(ctx context.Context, f db.EventFilter, page, pageSize int) ([]models.Event, int, error)
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	InsertEvent(ctx context.Context, event *models.Event) error
	InsertEventCategories(ctx context.Context, eventID int64, categoryIDs []int64) error
	DeleteEvent(ctx context.Context, id int64) (bool, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoriesByEvent(ctx context.Context, eventIDs []int64) (map[int64][]models.CategorySummary, error)
	InsertRegistration(ctx context.Context, eventID int64, userID string, at time.Time) (bool, error)
	DeleteRegistration(ctx context.Context, eventID int64, userID string) (bool, error)
	GetRegistration(ctx context.Context, eventID int64, userID string) (*models.Registration, error)
	CountRegistrations(ctx context.Context, eventIDs []int64) (map[int64]int, error)
	RegisteredEventIDs(ctx context.Context, eventIDs []int64, userID string) (map[int64]bool, error)
	UsersByID(ctx context.Context, ids []string) (map[string]models.User, error)
}

// Publisher streams catalog lifecycle events to the message bus. Publish
// failures never fail the request; they are logged and dropped.
type Publisher interface {
	PublishEventCreated(event models.EventSummary) error
	PublishEventDeleted(eventID int64) error
	PublishRegistrationCreated(registration models.Registration) error
	PublishRegistrationCancelled(eventID int64, userID string) error
}

// CatalogCache is an optional read-through cache for the category list and
// per-event registration counts. Counts are invalidated on register,
// unregister and delete; cache failures degrade to the store, never fail the
// request.
type CatalogCache interface {
	GetCategories(ctx context.Context) ([]models.Category, error)
	SetCategories(ctx context.Context, categories []models.Category) error
	GetRegistrationCounts(ctx context.Context, eventIDs []int64) (map[int64]int, []int64, error)
	SetRegistrationCounts(ctx context.Context, counts map[int64]int) error
	InvalidateRegistrationCount(ctx context.Context, eventID int64) error
}

// Service owns the catalog business rules: visibility, pagination,
// registration capacity, creation and creator-only deletion.
type Service struct {
	DB     DBLayer
	Bus    Publisher
	Cache  CatalogCache
	Logger *logger.Logger
}

func NewService(dbLayer DBLayer, bus Publisher, cache CatalogCache, log *logger.Logger) *Service {
	return &Service{DB: dbLayer, Bus: bus, Cache: cache, Logger: log}
}

// ListEvents returns one page of events the viewer may see, newest event
// date first. An event is visible iff it is public, created by the viewer,
// or the viewer is registered on it.
func (s *Service) ListEvents(ctx context.Context, viewer models.Identity, page, pageSize int) (*models.PaginatedEvents, error) {
	return s.listPage(ctx, db.EventFilter{Viewer: viewer}, viewer, page, pageSize)
}

// ListEventsByCategory is ListEvents narrowed to events carrying the given
// category.
func (s *Service) ListEventsByCategory(ctx context.Context, categoryID int64, viewer models.Identity, page, pageSize int) (*models.PaginatedEvents, error) {
	return s.listPage(ctx, db.EventFilter{Viewer: viewer, CategoryID: categoryID}, viewer, page, pageSize)
}

// ListEventsByUser returns the events created by targetUserID. The filter is
// the creator match only; private events of the target are included whoever
// asks.
func (s *Service) ListEventsByUser(ctx context.Context, targetUserID string, viewer models.Identity, page, pageSize int) (*models.PaginatedEvents, error) {
	return s.listPage(ctx, db.EventFilter{CreatedByID: targetUserID}, viewer, page, pageSize)
}

func (s *Service) listPage(ctx context.Context, f db.EventFilter, viewer models.Identity, page, pageSize int) (*models.PaginatedEvents, error) {
	events, total, err := s.DB.SelectEventPage(ctx, f, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	items, err := s.hydrate(ctx, events, viewer)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedEvents{Items: items, TotalCount: total}, nil
}

// GetEventByID returns the summary of one event, or nil when the event does
// not exist or is private and the viewer is neither its creator nor
// registered on it.
func (s *Service) GetEventByID(ctx context.Context, id int64, viewer models.Identity) (*models.EventSummary, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	if event == nil {
		return nil, nil
	}

	if event.IsPrivate && event.CreatedByID != viewer.UserID() {
		if viewer.IsAnonymous() {
			return nil, nil
		}
		registration, err := s.DB.GetRegistration(ctx, id, viewer.UserID())
		if err != nil {
			return nil, err
		}
		if registration == nil {
			return nil, nil
		}
	}

	items, err := s.hydrate(ctx, []models.Event{*event}, viewer)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// ListCategories returns every category, insertion order. Reads go through
// the cache when one is configured; cache failures fall back to the store.
func (s *Service) ListCategories(ctx context.Context) ([]models.CategorySummary, error) {
	var categories []models.Category

	if s.Cache != nil {
		cached, err := s.Cache.GetCategories(ctx)
		if err != nil {
			s.logWarn("CACHE", fmt.Sprintf("category cache read failed: %v", err))
		}
		categories = cached
	}

	if categories == nil {
		var err error
		categories, err = s.DB.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		if s.Cache != nil {
			if err := s.Cache.SetCategories(ctx, categories); err != nil {
				s.logWarn("CACHE", fmt.Sprintf("category cache write failed: %v", err))
			}
		}
	}

	summaries := make([]models.CategorySummary, len(categories))
	for i, category := range categories {
		summaries[i] = category.Summary()
	}
	return summaries, nil
}

// CreateEvent persists a new event with its category links and returns it as
// the viewer would fetch it. The owner is the explicit CreatedByID when the
// request carries one, else the viewer, else "anonymous". Category ids are
// linked as given; the store's foreign keys are the only referential check.
func (s *Service) CreateEvent(ctx context.Context, input models.CreateEventInput, viewer models.Identity) (*models.EventSummary, error) {
	createdByID := input.CreatedByID
	if createdByID == "" {
		createdByID = viewer.UserID()
	}
	if createdByID == "" {
		createdByID = "anonymous"
	}

	event := &models.Event{
		Title:       input.Title,
		Description: input.Description,
		EventDate:   input.EventDate,
		Capacity:    input.Capacity,
		IsPrivate:   input.IsPrivate,
		Address:     input.Address,
		CreatedAt:   time.Now().UTC(),
		CreatedByID: createdByID,
	}

	if err := s.DB.InsertEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	if err := s.DB.InsertEventCategories(ctx, event.ID, input.CategoryIDs); err != nil {
		return nil, fmt.Errorf("link categories: %w", err)
	}

	summary, err := s.GetEventByID(ctx, event.ID, viewer)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		// Unreachable under correct sequencing unless the event was created
		// private on behalf of another user.
		return nil, fmt.Errorf("event %d not readable after create", event.ID)
	}

	if s.Bus != nil {
		if err := s.Bus.PublishEventCreated(*summary); err != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish event created: %v", err))
		}
	}

	return summary, nil
}

// RegisterForEvent fires the unregistered→registered transition for the
// acting user. It reports false, without a reason, when no acting user can
// be resolved, the event does not exist, the user is already registered, or
// the event is at capacity (capacity <= 0 never fills up).
func (s *Service) RegisterForEvent(ctx context.Context, eventID int64, requestedUserID string, viewer models.Identity) (bool, error) {
	userID := requestedUserID
	if userID == "" {
		userID = viewer.UserID()
	}
	if userID == "" {
		return false, nil
	}

	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("get event %d: %w", eventID, err)
	}
	if event == nil {
		s.logWarn("EVENTS", fmt.Sprintf("registration attempt for non-existent event %d", eventID))
		return false, nil
	}

	at := time.Now().UTC()
	ok, err := s.DB.InsertRegistration(ctx, eventID, userID, at)
	if err != nil {
		return false, fmt.Errorf("insert registration: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.invalidateCount(ctx, eventID)

	if s.Bus != nil {
		registration := models.Registration{EventID: eventID, UserID: userID, RegistrationDate: at}
		if err := s.Bus.PublishRegistrationCreated(registration); err != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish registration created: %v", err))
		}
	}
	return true, nil
}

// UnregisterFromEvent removes the registration for (event, user). Reports
// false when none exists; registering again afterwards is always allowed.
func (s *Service) UnregisterFromEvent(ctx context.Context, eventID int64, userID string) (bool, error) {
	ok, err := s.DB.DeleteRegistration(ctx, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.invalidateCount(ctx, eventID)

	if s.Bus != nil {
		if err := s.Bus.PublishRegistrationCancelled(eventID, userID); err != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish registration cancelled: %v", err))
		}
	}
	return true, nil
}

// DeleteEvent removes an event and everything hanging off it. Only the
// creator may delete; anyone else gets a plain false.
func (s *Service) DeleteEvent(ctx context.Context, eventID int64, requestingUserID string) (bool, error) {
	event, err := s.DB.GetEventByID(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("get event %d: %w", eventID, err)
	}
	if event == nil || event.CreatedByID != requestingUserID {
		return false, nil
	}

	ok, err := s.DB.DeleteEvent(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("delete event %d: %w", eventID, err)
	}
	if ok {
		s.invalidateCount(ctx, eventID)
	}
	if ok && s.Bus != nil {
		if err := s.Bus.PublishEventDeleted(eventID); err != nil {
			s.logWarn("KAFKA", fmt.Sprintf("publish event deleted: %v", err))
		}
	}
	return ok, nil
}

// GetRegistration exposes the raw registration row for (event, user), nil
// when absent. The pass endpoint uses it to refuse passes to non-registrants.
func (s *Service) GetRegistration(ctx context.Context, eventID int64, userID string) (*models.Registration, error) {
	return s.DB.GetRegistration(ctx, eventID, userID)
}

// hydrate turns raw event rows into summaries, batching the lookups for
// registration counts, categories, creators and the viewer's registrations
// off the page's event ids.
func (s *Service) hydrate(ctx context.Context, events []models.Event, viewer models.Identity) ([]models.EventSummary, error) {
	if len(events) == 0 {
		return []models.EventSummary{}, nil
	}

	eventIDs := make([]int64, len(events))
	creatorIDs := make([]string, 0, len(events))
	seenCreators := make(map[string]bool, len(events))
	for i, event := range events {
		eventIDs[i] = event.ID
		if !seenCreators[event.CreatedByID] {
			seenCreators[event.CreatedByID] = true
			creatorIDs = append(creatorIDs, event.CreatedByID)
		}
	}

	counts, err := s.registrationCounts(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	categories, err := s.DB.CategoriesByEvent(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	creators, err := s.DB.UsersByID(ctx, creatorIDs)
	if err != nil {
		return nil, fmt.Errorf("load creators: %w", err)
	}

	registered := map[int64]bool{}
	if !viewer.IsAnonymous() {
		registered, err = s.DB.RegisteredEventIDs(ctx, eventIDs, viewer.UserID())
		if err != nil {
			return nil, fmt.Errorf("load viewer registrations: %w", err)
		}
	}

	summaries := make([]models.EventSummary, len(events))
	for i, event := range events {
		eventCategories := categories[event.ID]
		if eventCategories == nil {
			eventCategories = []models.CategorySummary{}
		}
		summaries[i] = models.EventSummary{
			ID:                 event.ID,
			Title:              event.Title,
			Description:        event.Description,
			EventDate:          event.EventDate,
			Capacity:           event.Capacity,
			IsPrivate:          event.IsPrivate,
			Address:            event.Address,
			CreatedAt:          event.CreatedAt,
			CreatedByID:        event.CreatedByID,
			CreatedByName:      creators[event.CreatedByID].DisplayName(),
			RegistrationsCount: counts[event.ID],
			Categories:         eventCategories,
			IsRegistered:       registered[event.ID],
		}
	}
	return summaries, nil
}

// registrationCounts resolves per-event counts through the cache when one is
// configured. Only the ids the cache misses hit the store, and an id with
// zero registrations is cached as 0 so absent rows do not force a re-query.
func (s *Service) registrationCounts(ctx context.Context, eventIDs []int64) (map[int64]int, error) {
	if s.Cache == nil {
		return s.DB.CountRegistrations(ctx, eventIDs)
	}

	counts, missing, err := s.Cache.GetRegistrationCounts(ctx, eventIDs)
	if err != nil {
		s.logWarn("CACHE", fmt.Sprintf("registration count cache read failed: %v", err))
		return s.DB.CountRegistrations(ctx, eventIDs)
	}
	if len(missing) == 0 {
		return counts, nil
	}

	fresh, err := s.DB.CountRegistrations(ctx, missing)
	if err != nil {
		return nil, err
	}

	toStore := make(map[int64]int, len(missing))
	for _, id := range missing {
		toStore[id] = fresh[id]
		counts[id] = fresh[id]
	}
	if err := s.Cache.SetRegistrationCounts(ctx, toStore); err != nil {
		s.logWarn("CACHE", fmt.Sprintf("registration count cache write failed: %v", err))
	}
	return counts, nil
}

func (s *Service) invalidateCount(ctx context.Context, eventID int64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateRegistrationCount(ctx, eventID); err != nil {
		s.logWarn("CACHE", fmt.Sprintf("registration count invalidation failed for event %d: %v", eventID, err))
	}
}

func (s *Service) logWarn(category, message string) {
	if s.Logger != nil {
		s.Logger.Warn(category, message)
	}
}
