package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/venkateshh-srs/ZLearn-sub000/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const SessionCookieName = "token"

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

func ValidateJWT(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token is required")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// TokenFromRequest pulls the credential from the Authorization header or,
// failing that, the session cookie.
func TokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return header[7:]
	}
	if header != "" {
		return header
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		return cookie
	}
	return ""
}

func GetClaimsFromRequest(c *gin.Context) (*Claims, error) {
	tokenString := TokenFromRequest(c)
	if tokenString == "" {
		return nil, errors.New("missing credential")
	}
	return ValidateJWT(tokenString)
}

func GenerateJWT(userID string) (string, string, error) {
	tokenID := uuid.NewString()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    config.AppConfig.ServiceName,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		return "", "", err
	}
	return signed, tokenID, nil
}
