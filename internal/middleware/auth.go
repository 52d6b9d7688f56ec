package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/taxi-explorer-go/internal/service"
	"github.com/jengzang/taxi-explorer-go/pkg/response"
)

// ContextSession is the gin context key the resolved session is stored under.
const ContextSession = "session"

// IssueSessionToken signs a bearer token whose subject is the session id.
func IssueSessionToken(secret, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken verifies a bearer token and returns the session id.
func ParseSessionToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return claims.Subject, nil
}

// SessionAuth validates the bearer token and resolves the live session,
// storing it in the request context for handlers.
func SessionAuth(secret string, sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Error(c, 401, "missing bearer token", nil)
			c.Abort()
			return
		}

		id, err := ParseSessionToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Error(c, 401, "invalid session token", err)
			c.Abort()
			return
		}

		session, err := sessions.Get(id)
		if err != nil {
			response.Error(c, 401, "session expired", err)
			c.Abort()
			return
		}

		c.Set(ContextSession, session)
		c.Next()
	}
}

// SessionFrom returns the session resolved by SessionAuth.
func SessionFrom(c *gin.Context) *service.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	session, _ := v.(*service.Session)
	return session
}
