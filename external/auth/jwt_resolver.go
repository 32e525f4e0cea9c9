package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Eotel/live-graphic-recorder/internal/auth"
)

// JWTResolver verifies HMAC-signed bearer tokens. WebSocket clients cannot
// set headers from the browser, so a "token" query parameter is accepted as
// a fallback.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) auth.Resolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (j *JWTResolver) Resolve(r *http.Request) (string, error) {
	raw := bearerToken(r)
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return "", auth.ErrUnauthorized
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return "", auth.ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", auth.ErrUnauthorized
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
