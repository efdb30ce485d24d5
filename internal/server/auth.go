package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const userHeader = "X-User-ID"

var errUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves the user a request acts for.
type Authenticator interface {
	UserID(r *http.Request) (string, error)
}

// HeaderAuthenticator trusts the X-User-ID header. Browsers cannot set
// headers on WebSocket upgrades, so the userId query parameter is accepted
// as well.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) UserID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(userHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("userId"))
	}
	if id == "" {
		return "", errUnauthenticated
	}
	return id, nil
}

type userKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.UserID(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": http.StatusText(http.StatusUnauthorized)})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, id)))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}
