package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

type SessionProvider interface {
	Rdb() *redis.Client
	CookieName() string
	JWTSecret() []byte
}

// AuthSession accepts either the redis-backed session cookie (browser
// clients) or a Bearer JWT (API clients) and stores the user id in Locals.
func AuthSession(reg SessionProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies(reg.CookieName()); sid != "" {
			val, err := reg.Rdb().Get(context.Background(), "sess:"+sid).Result()
			if err == nil {
				uid, _ := strconv.ParseInt(val, 10, 64)
				c.Locals("userID", uid)
				return c.Next()
			}
		}

		if uid, ok := bearerUserID(c.Get("Authorization"), reg.JWTSecret()); ok {
			c.Locals("userID", uid)
			return c.Next()
		}

		return c.Status(401).SendString("unauthorized")
	}
}

func bearerUserID(header string, secret []byte) (int64, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return 0, false
	}
	tok, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return 0, false
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return 0, false
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || uid == 0 {
		return 0, false
	}
	return uid, true
}
