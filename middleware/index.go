package middleware

import (
	"errors"
	"fmt"
	"strings"

	"cinema_booking/model"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const customerIdKey = "customerId"

type customerClaims struct {
	model.TokenClaim
	jwt.RegisteredClaims
}

// OptionalJWT đọc Bearer token nếu có. Token sai hoặc hết hạn thì coi như khách vãng lai.
func OptionalJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(customerIdKey, uint(0))

		authHeader := c.Get("Authorization")
		if secret == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Next()
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		var claims customerClaims
		token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return c.Next()
		}

		c.Locals(customerIdKey, claims.CustomerId)
		return c.Next()
	}
}

// CustomerId trả về 0 với khách chưa đăng nhập.
func CustomerId(c *fiber.Ctx) uint {
	id, _ := c.Locals(customerIdKey).(uint)
	return id
}

// HolderId: khách đăng nhập là USER_<id>, khách vãng lai dùng session id gửi lên
// hoặc được cấp GUEST_<uuid> mới.
func HolderId(c *fiber.Ctx, guestSessionId string) string {
	if id := CustomerId(c); id > 0 {
		return fmt.Sprintf("USER_%d", id)
	}
	if guestSessionId != "" {
		return guestSessionId
	}
	return "GUEST_" + uuid.New().String()
}
