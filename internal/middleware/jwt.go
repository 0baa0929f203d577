package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-crosscheck-api/internal/utils"
)

var errUnsupportedSubject = errors.New("unsupported subject type")

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID uint
	Role   string
}

// JWTProtected returns a middleware that validates HMAC signed bearer tokens and
// stores the caller in the user_id and user_role locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		identity, err := parseIdentity(parser, key, tokenString)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals("user_id", identity.UserID)
		if identity.Role != "" {
			c.Locals("user_role", identity.Role)
		}

		return c.Next()
	}
}

func bearerToken(authorization string) (string, error) {
	if authorization == "" {
		return "", errors.New("authorization header missing")
	}

	const bearer = "bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization header")
	}

	token := strings.TrimSpace(authorization[len(bearer):])
	if token == "" {
		return "", errors.New("invalid token")
	}
	return token, nil
}

func parseIdentity(parser *jwt.Parser, key []byte, tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("token not valid")
	}

	userID, ok := userIDFromClaims(claims)
	if !ok {
		return Identity{}, errors.New("token has no user")
	}

	return Identity{UserID: userID, Role: roleFromClaims(claims)}, nil
}

func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil && normalized > 0 {
				return normalized, true
			}
		}
	}

	return 0, false
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, errUnsupportedSubject
	}
}

// roleFromClaims prefers the first known role when the token carries several.
func roleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if role := strings.ToLower(strings.TrimSpace(v)); role != "" {
				return role
			}
		case []interface{}:
			first := ""
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					continue
				}
				role := strings.ToLower(strings.TrimSpace(str))
				if isKnownRole(role) {
					return role
				}
				if first == "" {
					first = role
				}
			}
			if first != "" {
				return first
			}
		}
	}
	return ""
}
