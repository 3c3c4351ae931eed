package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"wprchat/internal/app/user"
	"wprchat/internal/pkg/errs"
)

const (
	// IdentityExpiration defines the default validity window for identity tokens.
	IdentityExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of tokens generated by this server.
	TokenIssuer = "wprchat"
)

// GenerateToken creates and signs a JWT string for the given identity.
// The server itself never issues production tokens (that is the sign-in
// collaborator's job), but tests and local tooling need a compatible issuer.
func GenerateToken(identity user.Identity, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	payload := &Payload{
		StandardClaims: jwt.StandardClaims{
			Subject:   identity.UserID,
			ExpiresAt: now.Add(duration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
		Data: UserData{
			UserID:      identity.UserID,
			Username:    identity.Username,
			DisplayName: identity.DisplayName,
			Email:       identity.Email,
			AvatarURL:   identity.AvatarURL,
			IsGuest:     identity.IsGuest,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ValidateToken parses and validates the handshake token, distinguishing the
// three rejection reasons callers react to differently: missing token,
// expired token, and any other invalidity (bad signature, malformed claims).
// On success it returns the parsed Payload; no session state exists yet.
func ValidateToken(tokenString string, secretKey string) (*Payload, *errs.CustomError) {
	if tokenString == "" {
		return nil, errs.NewError(errs.ErrTokenRequired)
	}

	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errs.NewError(errs.ErrTokenExpired)
		}
		return nil, errs.NewError(errs.ErrTokenInvalid)
	}

	if !token.Valid {
		return nil, errs.NewError(errs.ErrTokenInvalid)
	}

	return claims, nil
}
