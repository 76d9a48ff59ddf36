package event_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"events-system/internal/auth"
	"events-system/internal/events"
	eventdb "events-system/internal/events/db"
	"events-system/internal/events/event_api"
	"events-system/internal/events/pass"
	"events-system/internal/logger"
	"events-system/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// stubVerifier accepts any bearer token and uses it verbatim as the user id,
// so tests authenticate with "Bearer u1".
type stubVerifier struct{}

func (stubVerifier) Verify(rawToken string) (string, error) {
	if rawToken == "" {
		return "", errors.New("empty token")
	}
	return rawToken, nil
}

func setupRouter(t *testing.T) (chi.Router, *eventdb.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.Category)(nil),
		(*models.Event)(nil),
		(*models.Registration)(nil),
		(*models.EventCategory)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}
	t.Cleanup(func() { bunDB.Close() })

	storage := &eventdb.DB{Bun: bunDB}
	log := logger.NewLogger()
	t.Cleanup(func() { log.Close() })

	handler := &event_api.Handler{
		EventService: events.NewService(storage, nil, nil, log),
		Passes:       pass.NewGenerator("test-secret"),
		Logger:       log,
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.Optional(stubVerifier{}))
		handler.RegisterPublicRoutes(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(stubVerifier{}))
		handler.RegisterProtectedRoutes(r)
	})
	return r, storage
}

func doRequest(t *testing.T, r chi.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func seedEvent(t *testing.T, storage *eventdb.DB, event models.Event) models.Event {
	t.Helper()
	require.NoError(t, storage.InsertEvent(context.Background(), &event))
	return event
}

func TestListEvents_AnonymousSeesOnlyPublic(t *testing.T) {
	r, storage := setupRouter(t)
	date := time.Now().Add(24 * time.Hour)

	seedEvent(t, storage, models.Event{Title: "Public", EventDate: date, CreatedByID: "u1"})
	seedEvent(t, storage, models.Event{Title: "Private", EventDate: date, IsPrivate: true, CreatedByID: "u1"})

	rec := doRequest(t, r, http.MethodGet, "/api/events", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedEvents
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalCount)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Public", page.Items[0].Title)
}

func TestListEvents_AuthenticatedViewerSeesOwnPrivate(t *testing.T) {
	r, storage := setupRouter(t)
	date := time.Now().Add(24 * time.Hour)

	seedEvent(t, storage, models.Event{Title: "Private", EventDate: date, IsPrivate: true, CreatedByID: "u1"})

	rec := doRequest(t, r, http.MethodGet, "/api/events", "u1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedEvents
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalCount)
}

func TestListEvents_Pagination(t *testing.T) {
	r, storage := setupRouter(t)

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		seedEvent(t, storage, models.Event{
			Title:       fmt.Sprintf("Event %d", i),
			EventDate:   base.Add(time.Duration(i) * time.Hour),
			CreatedByID: "u1",
		})
	}

	rec := doRequest(t, r, http.MethodGet, "/api/events?page=3&pageSize=10", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedEvents
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 25, page.TotalCount)
	assert.Len(t, page.Items, 5)
}

func TestGetEvent_NotFound(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/api/events/999", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetEvent_PrivateHiddenFromStranger(t *testing.T) {
	r, storage := setupRouter(t)

	event := seedEvent(t, storage, models.Event{Title: "Private", EventDate: time.Now(), IsPrivate: true, CreatedByID: "u1"})

	rec := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/events/%d", event.ID), "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/events/%d", event.ID), "u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetEvent_HydratesSummary(t *testing.T) {
	r, storage := setupRouter(t)
	ctx := context.Background()

	users := []models.User{{ID: "u1", Email: "john@test.com", FirstName: "John", LastName: "Doe", PasswordHash: "x", CreatedAt: time.Now()}}
	_, err := storage.Bun.NewInsert().Model(&users).Exec(ctx)
	require.NoError(t, err)

	categories := []models.Category{{Name: "Technology", Color: "#3B82F6"}}
	_, err = storage.Bun.NewInsert().Model(&categories).Exec(ctx)
	require.NoError(t, err)

	event := seedEvent(t, storage, models.Event{Title: "Conf", EventDate: time.Now(), Capacity: 10, CreatedByID: "u1"})
	require.NoError(t, storage.InsertEventCategories(ctx, event.ID, []int64{categories[0].ID}))

	ok, err := storage.InsertRegistration(ctx, event.ID, "u2", time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	rec := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/events/%d", event.ID), "u2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary models.EventSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "John Doe", summary.CreatedByName)
	assert.Equal(t, 1, summary.RegistrationsCount)
	assert.True(t, summary.IsRegistered)
	require.Len(t, summary.Categories, 1)
	assert.Equal(t, "Technology", summary.Categories[0].Name)
}

func TestListCategories(t *testing.T) {
	r, storage := setupRouter(t)

	categories := []models.Category{{Name: "Sports", Color: "#F97316"}}
	_, err := storage.Bun.NewInsert().Model(&categories).Exec(context.Background())
	require.NoError(t, err)

	rec := doRequest(t, r, http.MethodGet, "/api/events/categories", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.CategorySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Sports", listed[0].Name)
}

func TestListEventsByCategory(t *testing.T) {
	r, storage := setupRouter(t)
	ctx := context.Background()
	date := time.Now().Add(24 * time.Hour)

	tagged := seedEvent(t, storage, models.Event{Title: "Tagged", EventDate: date, CreatedByID: "u1"})
	seedEvent(t, storage, models.Event{Title: "Untagged", EventDate: date, CreatedByID: "u1"})
	require.NoError(t, storage.InsertEventCategories(ctx, tagged.ID, []int64{7}))

	rec := doRequest(t, r, http.MethodGet, "/api/events/categories/7", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedEvents
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.TotalCount)
}

func TestCreateEvent_RequiresAuth(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/events", "", models.CreateEventInput{Title: "Nope"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateEvent(t *testing.T) {
	r, _ := setupRouter(t)

	input := models.CreateEventInput{
		Title:     "Launch Party",
		EventDate: time.Now().Add(48 * time.Hour),
		Capacity:  50,
	}
	rec := doRequest(t, r, http.MethodPost, "/api/events", "u1", input)

	require.Equal(t, http.StatusCreated, rec.Code)
	var summary models.EventSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "Launch Party", summary.Title)
	assert.Equal(t, "u1", summary.CreatedByID)
	assert.NotZero(t, summary.ID)
}

func TestDeleteEvent_CreatorOnly(t *testing.T) {
	r, storage := setupRouter(t)

	event := seedEvent(t, storage, models.Event{Title: "Mine", EventDate: time.Now(), CreatedByID: "u1"})
	path := fmt.Sprintf("/api/events/%d", event.ID)

	rec := doRequest(t, r, http.MethodDelete, path, "u2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, r, http.MethodDelete, path, "u1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, r, http.MethodGet, path, "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegister_DuplicateRejected(t *testing.T) {
	r, storage := setupRouter(t)

	event := seedEvent(t, storage, models.Event{Title: "Meetup", EventDate: time.Now(), Capacity: 10, CreatedByID: "u1"})
	path := fmt.Sprintf("/api/events/%d/register", event.ID)

	rec := doRequest(t, r, http.MethodPost, path, "u2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodPost, path, "u2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_CapacityFull(t *testing.T) {
	r, storage := setupRouter(t)

	event := seedEvent(t, storage, models.Event{Title: "Tiny", EventDate: time.Now(), Capacity: 1, CreatedByID: "u1"})
	path := fmt.Sprintf("/api/events/%d/register", event.ID)

	rec := doRequest(t, r, http.MethodPost, path, "u2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodPost, path, "u3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_MissingEvent(t *testing.T) {
	r, _ := setupRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/api/events/999/register", "u2", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnregister(t *testing.T) {
	r, storage := setupRouter(t)

	event := seedEvent(t, storage, models.Event{Title: "Meetup", EventDate: time.Now(), Capacity: 10, CreatedByID: "u1"})
	registerPath := fmt.Sprintf("/api/events/%d/register", event.ID)

	rec := doRequest(t, r, http.MethodPost, registerPath, "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodDelete, registerPath, "u2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodDelete, registerPath, "u2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPass(t *testing.T) {
	r, storage := setupRouter(t)

	event := seedEvent(t, storage, models.Event{Title: "Gala", EventDate: time.Now(), Capacity: 10, CreatedByID: "u1"})
	passPath := fmt.Sprintf("/api/events/%d/pass", event.ID)

	rec := doRequest(t, r, http.MethodGet, passPath, "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	registerPath := fmt.Sprintf("/api/events/%d/register", event.ID)
	rec = doRequest(t, r, http.MethodPost, registerPath, "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodGet, passPath, "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}
