// Package middleware содержит HTTP middleware коммерческого сервиса.
package middleware

import (
	"context"
	"crypto/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const currentUserKey contextKey = "currentUser"

// CurrentUser содержит данные аутентифицированного пользователя из токена.
type CurrentUser struct {
	UserID  int64
	IsAdmin bool
}

type tokenClaims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin"`
}

// AuthMiddleware выполняет проверку аутентификации по bearer-токену в заголовке Authorization.
type AuthMiddleware struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным
// ключом и временем жизни токена.
func NewAuthMiddleware(secret string, tokenTTL time.Duration) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}

	return &AuthMiddleware{
		secretKey: key,
		tokenTTL:  tokenTTL,
	}
}

// IssueToken выпускает подписанный access-токен для указанного пользователя.
func (a *AuthMiddleware) IssueToken(userID int64, isAdmin bool) (string, error) {
	now := time.Now()

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		IsAdmin: isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secretKey)
}

// Middleware проверяет bearer-токен и добавляет данные пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		user, ok := a.parseToken(strings.TrimPrefix(header, "Bearer "))
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin пропускает дальше только администраторов. Используется после Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetCurrentUser(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if !user.IsAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *AuthMiddleware) parseToken(tokenString string) (CurrentUser, bool) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secretKey, nil
	})
	if err != nil || !token.Valid {
		return CurrentUser{}, false
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return CurrentUser{}, false
	}

	return CurrentUser{UserID: userID, IsAdmin: claims.IsAdmin}, true
}

// GetCurrentUser извлекает данные пользователя из контекста запроса.
func GetCurrentUser(ctx context.Context) (CurrentUser, bool) {
	user, ok := ctx.Value(currentUserKey).(CurrentUser)
	return user, ok
}
