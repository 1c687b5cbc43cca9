package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/bazaar-kiosk/api/internal/auth"
	"github.com/bazaar-kiosk/api/internal/enum"
	"github.com/go-chi/chi/v5"
)

// PinVerifier checks a role PIN. Satisfied by *auth.PinBook.
type PinVerifier interface {
	Verify(role, pin string) bool
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	pins      PinVerifier
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(pins PinVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{pins: pins, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/pin-login", h.PinLogin)
}

// --- Request / Response types ---

type pinLoginRequest struct {
	Role string `json:"role"`
	Pin  string `json:"pin"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
}

// --- Handlers ---

// PinLogin handles role + PIN authentication for the kiosk screens.
func (h *AuthHandler) PinLogin(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" || req.Pin == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role and pin are required"})
		return
	}
	if !enum.IsRole(role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	if !h.pins.Verify(role, req.Pin) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(h.jwtSecret, role)
	if err != nil {
		log.Printf("ERROR: generate token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, Role: role})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
