// Package identity supplies the authenticated user and their bearer
// credential to the deposit engine. The credential is read fresh for every
// backend call rather than cached, so an expired token is never forwarded.
package identity

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned when no identity is attached to the context.
var ErrUnauthenticated = errors.New("identity: not authenticated")

// User represents the authenticated account
type User struct {
	ID    string
	Email string
}

// TokenSource yields the current user and a fresh bearer token per call
type TokenSource interface {
	CurrentUser(ctx context.Context) (*User, error)
	Token(ctx context.Context) (string, error)
}

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// WithIdentity attaches an authenticated user and their raw bearer token to
// the context.
func WithIdentity(ctx context.Context, user *User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}

// UserFromContext returns the authenticated user attached to the context
func UserFromContext(ctx context.Context) (*User, error) {
	user, ok := ctx.Value(userKey).(*User)
	if !ok || user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// TokenFromContext returns the raw bearer token attached to the context
func TokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(tokenKey).(string)
	if !ok || token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

// ContextSource is a TokenSource backed by request-scoped context values set
// by the auth middleware.
type ContextSource struct{}

func (ContextSource) CurrentUser(ctx context.Context) (*User, error) {
	return UserFromContext(ctx)
}

func (ContextSource) Token(ctx context.Context) (string, error) {
	return TokenFromContext(ctx)
}

// StaticSource is a TokenSource with fixed values, used in tests
type StaticSource struct {
	User        *User
	BearerToken string
}

func (s StaticSource) CurrentUser(ctx context.Context) (*User, error) {
	if s.User == nil {
		return nil, ErrUnauthenticated
	}
	return s.User, nil
}

func (s StaticSource) Token(ctx context.Context) (string, error) {
	if s.BearerToken == "" {
		return "", ErrUnauthenticated
	}
	return s.BearerToken, nil
}
