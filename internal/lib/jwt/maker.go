// Package jwt реализует генерацию и парсинг JWT токенов с пользовательскими
// claim полями: UID, имя и роль пользователя.
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Maker создает и проверяет JWT токены.
type Maker struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewMaker возвращает Maker с заданным секретным ключом и временем жизни токена.
func NewMaker(secretKey string, tokenTTL time.Duration) *Maker {
	return &Maker{secretKey: secretKey, tokenTTL: tokenTTL}
}

// GenerateToken создает JWT токен для пользователя, подписывая его секретным ключом.
func (j *Maker) GenerateToken(userUID, username, role string) (string, error) {
	claims := CustomClaims{
		UserUID:  userUID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken проверяет подпись и срок действия токена и возвращает CustomClaims.
func (j *Maker) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
