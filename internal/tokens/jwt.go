package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessExpiry читает claim exp из access-токена БЕЗ проверки подписи.
// Результат годится только для отображения и диагностики: решение о том,
// валиден ли токен, принимает бэкенд (ответом 401).
func AccessExpiry(access string) (time.Time, bool) {
	if access == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time.UTC(), true
}
