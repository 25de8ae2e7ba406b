// Package middleware provides gin middleware for authentication and
// rate limiting.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwtv4 "github.com/golang-jwt/jwt/v4"

	"github.com/kart-io/logger"
	jwtopts "github.com/kart-io/providentia/pkg/options/jwt"
)

// userIDKey is the gin context key holding the authenticated user identity.
const userIDKey = "middleware.user_id"

const authScheme = "Bearer"

// UserID returns the authenticated user identity set by Auth. Empty when the
// request did not pass through the middleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// Auth verifies the Bearer token and injects the token subject as the user
// identity. Requests without a valid token are rejected with 401.
func Auth(opts *jwtopts.Options) gin.HandlerFunc {
	keyFunc := func(token *jwtv4.Token) (any, error) {
		if _, ok := token.Method.(*jwtv4.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if token.Method.Alg() != opts.SigningMethod {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(opts.Key), nil
	}

	parser := jwtv4.NewParser(
		jwtv4.WithValidMethods([]string{opts.SigningMethod}),
		jwtv4.WithLeeway(opts.Leeway),
	)

	return func(c *gin.Context) {
		tokenString := extractBearerToken(c)
		if tokenString == "" {
			abortUnauthorized(c, "missing authentication token")
			return
		}

		claims := &jwtv4.RegisteredClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
		if err != nil || !token.Valid {
			logAuthFailure(c, err)
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		if opts.Issuer != "" && !claims.VerifyIssuer(opts.Issuer, true) {
			logAuthFailure(c, fmt.Errorf("issuer mismatch: %q", claims.Issuer))
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		if claims.Subject == "" {
			abortUnauthorized(c, "token has no subject")
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, authScheme+" ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, authScheme+" "))
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}

// logAuthFailure records failed verification attempts for security audit.
func logAuthFailure(c *gin.Context, err error) {
	msg := "unknown"
	if err != nil {
		msg = err.Error()
	}
	logger.Warnw("authentication failed",
		"error", msg,
		"remote_addr", c.Request.RemoteAddr,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
}
