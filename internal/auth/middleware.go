package auth

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"club_access/internal/checkin"
	"club_access/internal/handlers"
	"club_access/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware проверяет валидность access токена
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "Требуется авторизация",
			})
			c.Abort()
			return
		}

		userID, ok := parseBearer(c, authHeader)
		if !ok {
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// ScanAuthMiddleware аутентифицирует запрос сканирования: либо
// предразделённый ключ сканера в X-Scanner-Key, либо Bearer токен
// сотрудника. Ровно один из двух должен пройти; иначе запрос
// отклоняется до какой-либо работы с журналом.
func ScanAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-Scanner-Key"); key != "" {
			expected := os.Getenv("SCANNER_API_KEY")
			if expected != "" && subtle.ConstantTimeCompare([]byte(key), []byte(expected)) == 1 {
				c.Set("authSource", checkin.SourceScanner)
				c.Next()
				return
			}
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "Неверный ключ сканера",
			})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "Требуется ключ сканера или авторизация",
			})
			c.Abort()
			return
		}

		userID, ok := parseBearer(c, authHeader)
		if !ok {
			return
		}

		c.Set("userID", userID)
		c.Set("authSource", checkin.SourceAdmin)
		c.Next()
	}
}

// parseBearer разбирает Bearer токен; при ошибке пишет ответ и
// прерывает цепочку.
func parseBearer(c *gin.Context, authHeader string) (uint, bool) {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return handlers.AccessSecret, nil
	})

	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "INVALID_TOKEN",
			Message: "Неверный или просроченный токен",
		})
		c.Abort()
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "INVALID_TOKEN",
			Message: "Невозможно прочитать claims токена",
		})
		c.Abort()
		return 0, false
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "INVALID_TOKEN",
			Message: "Невозможно извлечь user_id",
		})
		c.Abort()
		return 0, false
	}

	return uint(userID), true
}
