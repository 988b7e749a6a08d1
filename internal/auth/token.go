package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecret []byte
	jwtTTL    = 72 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// InitJWT sets the signing secret and token lifetime for the process.
// Called once at startup from the loaded configuration.
func InitJWT(secret string, expireHours int) {
	jwtSecret = []byte(secret)
	if expireHours > 0 {
		jwtTTL = time.Duration(expireHours) * time.Hour
	}
}

// SignToken issues an HS256 token carrying the user id and role.
func SignToken(userID, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(jwtTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

// ParseToken validates a bearer token and returns its user id and role.
func ParseToken(tokenStr string) (userID, role string, err error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrInvalidToken
	}
	userID, _ = claims["user_id"].(string)
	role, _ = claims["role"].(string)
	if userID == "" {
		return "", "", ErrInvalidToken
	}
	return userID, role, nil
}
