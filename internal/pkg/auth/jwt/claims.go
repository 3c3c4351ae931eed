package jwt

import (
	"github.com/golang-jwt/jwt"

	"wprchat/internal/app/user"
)

// UserData carries the identity claims embedded by the token issuer under
// the "data" key. Field names follow the issuer's snake_case convention.
type UserData struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url"`
	IsGuest     bool   `json:"is_guest"`
}

// Payload defines the structure of the JSON Web Token (JWT) claims consumed
// at the websocket handshake. It combines the standard claims required for
// validity checks (Exp, Iat, Iss, Sub) with the issuer's identity data.
type Payload struct {
	jwt.StandardClaims

	// Data holds the identity claims. Issuers that omit it still produce a
	// usable guest-like identity through the fallbacks in Identity.
	Data UserData `json:"data"`
}

// Identity derives the session Identity from the validated claims.
// Missing claims fall back the same way the original issuer contract does:
// the standard subject claim stands in for user_id, and placeholder names
// replace absent username/display_name values.
func (p *Payload) Identity() user.Identity {
	id := user.Identity{
		UserID:      p.Data.UserID,
		Username:    p.Data.Username,
		DisplayName: p.Data.DisplayName,
		Email:       p.Data.Email,
		AvatarURL:   p.Data.AvatarURL,
		IsGuest:     p.Data.IsGuest,
	}

	if id.UserID == "" {
		id.UserID = p.Subject
	}
	if id.Username == "" {
		id.Username = "unknown"
	}
	if id.DisplayName == "" {
		id.DisplayName = "Anonymous"
	}

	return id
}
