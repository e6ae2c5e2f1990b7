package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const claimsContextKey = "claims"

// Claims carried by admin tokens. Only the seeding operator mints these.
type Claims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// MakeAdminToken mints an HS256 admin token; exposed for ops tooling and tests.
func MakeAdminToken(secretKey []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// adminJWT guards admin routes: a valid bearer token with the admin claim is
// required.
func adminJWT(secretKey []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				return errUnauthorized
			}

			claims := new(Claims)
			token, err := jwt.ParseWithClaims(header[len(prefix):], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secretKey, nil
			})
			if err != nil || !token.Valid {
				return errUnauthorized
			}
			if !claims.IsAdmin {
				return errHttpForbidden
			}
			ctx.Set(claimsContextKey, claims)
			return next(ctx)
		}
	}
}
