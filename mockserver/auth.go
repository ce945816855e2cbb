package mockserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const (
	clientKey ctxKey = iota
	userKey
)

// IssueToken signs an HS256 token for user with the given expiry, the way the login
// endpoint does.
func (s *Server) IssueToken(user string, exp time.Time) (string, error) {
	now := s.cfg.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user":   user,
		"client": s.cfg.DefaultClient,
		"exp":    exp.Unix(),
		"iat":    now.Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return signed, nil
}

func (s *Server) validateToken(raw string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.cfg.Now),
	)
	token, err := parser.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	if user, ok := claims["user"].(string); ok {
		return user, nil
	}
	return "unknown", nil
}

// clientValidation resolves the tenant from the path, the X-Client-Id header or the
// client query parameter, in that order, and rejects unknown tenants.
func (s *Server) clientValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := extractClientID(r)
		if clientID == "" {
			clientID = s.cfg.DefaultClient
		}
		if _, ok := s.cfg.Tenants[clientID]; !ok {
			writeError(w, http.StatusBadRequest, "Invalid client: "+clientID)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey, clientID)))
	})
}

func extractClientID(r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) >= 4 && parts[0] == "api" && parts[1] == "files" && (parts[2] == "list" || parts[2] == "search") {
		return parts[3]
	}
	if id := r.Header.Get("X-Client-Id"); id != "" {
		return id
	}
	return r.URL.Query().Get("client")
}

func (s *Server) jwtAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := clientFrom(r)
		if tenant := s.cfg.Tenants[clientID]; !tenant.RequiresAuth {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Authentication token required")
			return
		}
		user, err := s.validateToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func clientFrom(r *http.Request) string {
	id, _ := r.Context().Value(clientKey).(string)
	return id
}
