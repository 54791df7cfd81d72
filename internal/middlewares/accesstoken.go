package middlewares

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopmate/sentinel/params"
)

const localsKeyUserID = "userId"

type accessTokenClaims struct {
	jwt.RegisteredClaims
}

// GenerateAccessToken issues an HS256 admin API token for the given subject.
func GenerateAccessToken(masterKey string, subject string) (string, error) {
	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(params.AccessTokenExpiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(masterKey))
}

// RequireAccessToken guards the admin API with a bearer token signed by the
// master key. The token subject lands in ctx locals as the acting user.
func RequireAccessToken(masterKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenStr == "" {
			return fiber.ErrUnauthorized
		}
		var claims accessTokenClaims
		token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(masterKey), nil
		})
		if err != nil || !token.Valid {
			return fiber.ErrUnauthorized
		}
		c.Locals(localsKeyUserID, claims.Subject)
		return c.Next()
	}
}
