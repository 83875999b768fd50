package session

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/JssMedrano/aqualab-go/internal/portal"
)

// Claims is what the client reads out of the portal's token payload. The
// signature is the server's business; only the payload is decoded here.
type Claims struct {
	UserID string
	Role   portal.Role
	Year   int
}

// DecodeToken extracts the payload claims without verifying the signature.
// Any malformed token yields zero Claims, never an error: callers must
// tolerate a missing user id.
func DecodeToken(token string) Claims {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}
	}

	var c Claims
	if sub, ok := mc["sub"].(string); ok && sub != "" {
		c.UserID = sub
	} else if id, ok := mc["id"].(string); ok {
		c.UserID = id
	}
	if role, ok := mc["role"].(string); ok {
		c.Role = portal.Role(role)
	}
	if year, ok := mc["year"].(float64); ok {
		c.Year = int(year)
	}
	return c
}
