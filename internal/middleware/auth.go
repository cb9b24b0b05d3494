package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "bingo-service/pkg/auth"
	"bingo-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextOperatorIDKey = "operatorID"
	ContextAdminIDKey    = "adminID"
)

// OperatorAuthRequired admits operator-scoped tokens and stores the operator
// id under ContextOperatorIDKey. Every tenant-owned route sits behind it.
func OperatorAuthRequired() gin.HandlerFunc {
	return scopedAuth(pkgAuth.ParseOperatorToken, ContextOperatorIDKey)
}

func AdminAuthRequired() gin.HandlerFunc {
	return scopedAuth(pkgAuth.ParseAdminToken, ContextAdminIDKey)
}

func scopedAuth(parse func(string) (*pkgAuth.Claims, error), key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := parse(token)
		if err != nil || claims.SubjectID <= 0 {
			response.Abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(key, claims.SubjectID)
		c.Next()
	}
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(token), nil
}
