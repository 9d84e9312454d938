package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OperatorLoginRequest is the request body for POST /api/operator/login.
type OperatorLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OperatorMeResponse is the response for GET /api/operator/me.
type OperatorMeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func handleOperatorLogin(ops OperatorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OperatorLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		operatorID, passwordHash, err := ops.OperatorByEmail(r.Context(), req.Email)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		sessionID, err := ops.CreateOperatorSession(r.Context(), operatorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     operatorCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(7 * 24 * time.Hour / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, OperatorMeResponse{
			ID:    operatorID,
			Email: req.Email,
		})
	}
}

func handleOperatorMe(ops OperatorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := operatorFromRequest(r, ops)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, OperatorMeResponse{
			ID:    sess.OperatorID,
			Email: sess.Email,
		})
	}
}
