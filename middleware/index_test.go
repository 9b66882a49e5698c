package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinema_booking/model"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, customerId uint, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, customerClaims{
		TokenClaim:       model.TokenClaim{CustomerId: customerId, Username: "khach"},
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	})
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func holderOf(t *testing.T, authHeader, guest string) string {
	t.Helper()
	app := fiber.New()
	app.Get("/", OptionalJWT(secret), func(c *fiber.Ctx) error {
		return c.SendString(HolderId(c, guest))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHolderId(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(secret), 42, time.Now().Add(time.Hour))
	expired := signToken(t, jwt.SigningMethodHS256, []byte(secret), 42, time.Now().Add(-time.Hour))
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), 42, time.Now().Add(time.Hour))

	assert.Equal(t, "USER_42", holderOf(t, "Bearer "+valid, "GUEST_abc"))
	assert.Equal(t, "GUEST_abc", holderOf(t, "Bearer "+expired, "GUEST_abc"))
	assert.Equal(t, "GUEST_abc", holderOf(t, "Bearer "+wrongKey, "GUEST_abc"))
	assert.Equal(t, "GUEST_abc", holderOf(t, "", "GUEST_abc"))

	generated := holderOf(t, "Basic Zm9vOmJhcg==", "")
	assert.True(t, strings.HasPrefix(generated, "GUEST_"))
	assert.Len(t, generated, len("GUEST_")+36)
}
