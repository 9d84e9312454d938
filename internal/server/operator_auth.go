package server

import (
	"errors"
	"net/http"
)

type operatorSession struct {
	OperatorID string
	Email      string
}

var errNoOperatorSession = errors.New("no valid operator session")

const operatorCookieName = "operator_session"

// operatorFromRequest reads the operator_session cookie and looks up the
// session.
func operatorFromRequest(r *http.Request, ops OperatorStore) (operatorSession, error) {
	cookie, err := r.Cookie(operatorCookieName)
	if err != nil || cookie.Value == "" {
		return operatorSession{}, errNoOperatorSession
	}
	return ops.OperatorFromSession(r.Context(), cookie.Value)
}

func operatorAuthMiddleware(ops OperatorStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := operatorFromRequest(r, ops); err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
