package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Freeeeeet/lecture_booking/internal/model"
	"github.com/Freeeeeet/lecture_booking/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims access-токена: sub - id пользователя, role - его роль.
// Токены выпускает сервис аккаунтов.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth проверяет Bearer-токен (HS256) и кладёт инициатора в контекст запроса
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := &Claims{}
			tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !tok.Valid {
				return unauthorized(c, "invalid token")
			}

			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || userID <= 0 {
				return unauthorized(c, "invalid subject claim")
			}
			role, ok := model.ParseRole(claims.Role)
			if !ok {
				return unauthorized(c, "invalid role claim")
			}

			ctx := service.WithCaller(c.Request().Context(), service.Caller{ID: userID, Role: role})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error": echo.Map{"code": "unauthorized", "message": msg},
	})
}
