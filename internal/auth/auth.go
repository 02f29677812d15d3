// Package auth resolves the local signed-in identity from a JWT token file.
// Sessions run fine without one; durable artifact upload is what requires it.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified subject of the local token.
type Identity struct {
	ID   string
	Name string
}

// FileTokenSource verifies an HS256 token stored on disk.
type FileTokenSource struct {
	path   string
	secret []byte
	logger *slog.Logger
}

// NewFileTokenSource constructs a token source for the given path and secret.
func NewFileTokenSource(path, secret string, logger *slog.Logger) *FileTokenSource {
	return &FileTokenSource{path: path, secret: []byte(secret), logger: logger}
}

// Identity returns the verified identity, or false when no valid token exists.
// Every failure mode is "signed out", never an error: an interview must not
// abort because the token is missing or stale.
func (s *FileTokenSource) Identity(_ context.Context) (Identity, bool) {
	if s == nil || s.path == "" || len(s.secret) == 0 {
		return Identity{}, false
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		s.logDebug("identity token unreadable", "path", s.path, "error", err.Error())
		return Identity{}, false
	}

	identity, err := verifyToken(strings.TrimSpace(string(raw)), s.secret)
	if err != nil {
		s.logDebug("identity token rejected", "error", err.Error())
		return Identity{}, false
	}
	return identity, true
}

// verifyToken parses and validates one compact HS256 token.
func verifyToken(compact string, secret []byte) (Identity, error) {
	if compact == "" {
		return Identity{}, fmt.Errorf("empty token")
	}

	token, err := jwt.Parse(compact, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}

	identity := Identity{ID: subject}
	if name, ok := claims["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}

func (s *FileTokenSource) logDebug(message string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Debug(message, args...)
}
