package auth

import (
	"errors"
	"time"

	"bingo-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongScope   = errors.New("token scope not allowed")
)

const (
	ScopeOperator = "operator"
	ScopeAdmin    = "admin"
)

type Claims struct {
	SubjectID int64  `json:"subjectId"`
	Scope     string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateOperatorToken issues a token scoped to one operator's pools and games.
func GenerateOperatorToken(operatorID int64) (string, error) {
	return generateToken(operatorID, ScopeOperator)
}

func GenerateAdminToken(adminID int64) (string, error) {
	return generateToken(adminID, ScopeAdmin)
}

func generateToken(subjectID int64, scope string) (string, error) {
	duration := time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour
	claims := Claims{
		SubjectID: subjectID,
		Scope:     scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   scope,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GlobalConfig.JWT.Secret))
}

func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.GlobalConfig.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func ParseOperatorToken(tokenString string) (*Claims, error) {
	return parseScoped(tokenString, ScopeOperator)
}

func ParseAdminToken(tokenString string) (*Claims, error) {
	return parseScoped(tokenString, ScopeAdmin)
}

func parseScoped(tokenString, scope string) (*Claims, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != scope || claims.SubjectID <= 0 {
		return nil, ErrWrongScope
	}
	return claims, nil
}
