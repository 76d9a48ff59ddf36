package auth_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"events-system/internal/auth"
	"events-system/internal/logger"
	"events-system/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupHandler(t *testing.T) *auth.Handler {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.User)(nil)))
	t.Cleanup(func() { bunDB.Close() })

	log := logger.NewLogger()
	t.Cleanup(func() { log.Close() })

	return &auth.Handler{
		Repo:   &auth.Repository{Bun: bunDB},
		Tokens: auth.NewTokenService("test-secret", time.Hour),
		Logger: log,
	}
}

func postJSON(t *testing.T, handlerFunc http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handlerFunc(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	h := setupHandler(t)

	rec := postJSON(t, h.Register, "/api/auth/register", auth.RegisterRequest{
		Email:     "john@test.com",
		Password:  "Password123!",
		FirstName: "John",
		LastName:  "Doe",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var registered auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &registered))
	assert.NotEmpty(t, registered.UserID)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "john@test.com", registered.Email)

	rec = postJSON(t, h.Login, "/api/auth/login", auth.LoginRequest{
		Email:    "john@test.com",
		Password: "Password123!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var logged auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logged))
	assert.Equal(t, registered.UserID, logged.UserID)

	userID, err := h.Tokens.Verify(logged.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, userID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := setupHandler(t)

	body := auth.RegisterRequest{Email: "jane@test.com", Password: "Password123!"}
	rec := postJSON(t, h.Register, "/api/auth/register", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h.Register, "/api/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_MissingFields(t *testing.T) {
	h := setupHandler(t)

	rec := postJSON(t, h.Register, "/api/auth/register", auth.RegisterRequest{Email: "x@test.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.Register, "/api/auth/register", auth.RegisterRequest{Password: "secret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := setupHandler(t)

	rec := postJSON(t, h.Register, "/api/auth/register", auth.RegisterRequest{
		Email:    "bob@test.com",
		Password: "Password123!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h.Login, "/api/auth/login", auth.LoginRequest{
		Email:    "bob@test.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, h.Login, "/api/auth/login", auth.LoginRequest{
		Email:    "nobody@test.com",
		Password: "Password123!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
