package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecretOnce sync.Once
	jwtSecretVal  []byte
)

func jwtSecret() []byte {
	jwtSecretOnce.Do(func() {
		jwtSecretVal = []byte(os.Getenv("JWT_SECRET"))
	})
	return jwtSecretVal
}

// MustInitJWTSecret fails fast at startup rather than on the first request.
func MustInitJWTSecret() {
	if len(jwtSecret()) == 0 {
		panic("JWT_SECRET environment variable is not set")
	}
}

// Claims identify the operator calling the public API. Clients of the bank
// are data, not principals.
type Claims struct {
	OperatorID string `json:"operatorId"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			RespondWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1])
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("operatorId", claims.OperatorID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// ParseToken validates an HS256 token signed with JWT_SECRET.
func ParseToken(tokenString string) (*Claims, error) {
	secret := jwtSecret()
	if len(secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// IssueToken signs an operator token valid for ttl.
func IssueToken(operatorID, role string, ttl time.Duration) (string, error) {
	secret := jwtSecret()
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	if operatorID == "" {
		return "", errors.New("operator id is required")
	}
	now := time.Now()
	claims := Claims{
		OperatorID: operatorID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// RefreshToken re-issues the token of the authenticated operator. It must run
// behind AuthMiddleware.
func RefreshToken(ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorID, ok := GetOperatorID(c)
		if !ok {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}
		token, err := IssueToken(operatorID, c.GetString("role"), ttl)
		if err != nil {
			_ = c.Error(err)
			RespondWithError(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "expiresIn": int64(ttl.Seconds())})
	}
}

func GetOperatorID(c *gin.Context) (string, bool) {
	operatorID, exists := c.Get("operatorId")
	if !exists {
		return "", false
	}
	id, ok := operatorID.(string)
	return id, ok
}
