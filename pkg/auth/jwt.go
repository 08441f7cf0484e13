package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const userKey ctxKey = 1

// Identity is the authenticated principal carried through requests.
type Identity struct {
	UserID string
	Name   string
}

// WithUser adds an identity to the context
func WithUser(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, userKey, id)
}

// User extracts the identity from the context; ok is false for
// unauthenticated requests.
func User(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(userKey).(Identity)
	return v, ok
}

// JWT wraps a signing secret for issuing/verifying tokens
type JWT struct{ secret []byte }

// New creates a new JWT signer/verifier.
func New(secret string) *JWT { return &JWT{secret: []byte(secret)} }

// Verify checks a token and returns the identity claims
func (j *JWT) Verify(tok string) (Identity, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	uid, _ := claims["sub"].(string)
	if uid == "" {
		return Identity{}, errors.New("no sub")
	}
	name, _ := claims["name"].(string)
	return Identity{UserID: uid, Name: name}, nil
}

// Sign creates a token for the identity with the given TTL
func (j *JWT) Sign(id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", errors.New("empty uid")
	}
	claims := jwt.MapClaims{
		"sub":  id.UserID,
		"name": id.Name,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(j.secret)
}
