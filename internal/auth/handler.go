package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"events-system/internal/logger"
	"events-system/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest is the body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the auth response with the issued JWT.
type LoginResponse struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Token     string `json:"token"`
}

// Handler serves registration and login.
type Handler struct {
	Repo   *Repository
	Tokens *TokenService
	Logger *logger.Logger
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	existing, err := h.Repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Register: user lookup failed: %v", err))
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "Email already registered", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Register: password hash failed: %v", err))
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Repo.CreateUser(r.Context(), user); err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Register: insert failed: %v", err))
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	h.Logger.Info("AUTH", fmt.Sprintf("New user registered: %s", user.Email))
	h.respondWithToken(w, *user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.Logger.Info("AUTH", fmt.Sprintf("Login attempt for %s", req.Email))

	user, err := h.Repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Login: user lookup failed: %v", err))
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}
	if user == nil {
		h.Logger.Warn("AUTH", fmt.Sprintf("Login failed for %s: user not found", req.Email))
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.Logger.Warn("AUTH", fmt.Sprintf("Login failed for %s", req.Email))
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.Logger.Info("AUTH", fmt.Sprintf("Successful login for %s", req.Email))
	h.respondWithToken(w, *user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, user models.User) {
	token, err := h.Tokens.Generate(user)
	if err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Token generation failed: %v", err))
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LoginResponse{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Token:     token,
	}); err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Failed to encode auth response: %v", err))
	}
}
