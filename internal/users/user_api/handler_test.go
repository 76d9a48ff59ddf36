package user_api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"events-system/internal/events"
	eventdb "events-system/internal/events/db"
	"events-system/internal/logger"
	"events-system/internal/models"
	"events-system/internal/users/user_api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

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

	handler := &user_api.Handler{
		EventService: events.NewService(storage, nil, nil, log),
		Logger:       log,
	}

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, storage
}

func TestListUserEvents_IncludesPrivateOfTarget(t *testing.T) {
	r, storage := setupRouter(t)
	ctx := context.Background()
	date := time.Now().Add(24 * time.Hour)

	for _, event := range []models.Event{
		{Title: "Public", EventDate: date, CreatedByID: "u1"},
		{Title: "Private", EventDate: date, IsPrivate: true, CreatedByID: "u1"},
		{Title: "Someone Else", EventDate: date, CreatedByID: "u2"},
	} {
		require.NoError(t, storage.InsertEvent(ctx, &event))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/u1/events", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedEvents
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.TotalCount)
	for _, item := range page.Items {
		assert.Equal(t, "u1", item.CreatedByID)
	}
}

func TestListUserEvents_Pagination(t *testing.T) {
	r, storage := setupRouter(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		event := models.Event{
			Title:       fmt.Sprintf("Event %d", i),
			EventDate:   base.Add(time.Duration(i) * time.Hour),
			CreatedByID: "u1",
		}
		require.NoError(t, storage.InsertEvent(ctx, &event))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users/u1/events?page=2&pageSize=5", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedEvents
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 7, page.TotalCount)
	assert.Len(t, page.Items, 2)
}

func TestListUserEvents_UnknownUserIsEmpty(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/nobody/events", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.PaginatedEvents
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 0, page.TotalCount)
	assert.Empty(t, page.Items)
}
