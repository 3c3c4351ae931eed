/*
Package user contains the core data structures related to user identity.

It defines the Identity struct, the authenticated (or guest) profile derived
from a signed token at connection time. Identities live exactly as long as
their session and are passed both internally and to clients.
*/
package user

// Identity represents the profile of a connected participant.
// It is derived once per connection from validated token claims and is
// immutable for the lifetime of the session, except for DisplayName which
// may change through a rename event.
type Identity struct {

	// UserID is the unique identifier for the user, taken from the token's
	// user_id claim (falling back to the standard subject claim).
	UserID string `json:"userId"`

	// Username is the account login name carried by the token.
	Username string `json:"username,omitempty"`

	// DisplayName is the name shown to other participants.
	DisplayName string `json:"displayName"`

	// Email is the account email, if the issuer included one.
	Email string `json:"email,omitempty"`

	// AvatarURL points at the user's avatar image.
	AvatarURL string `json:"avatarUrl"`

	// IsGuest marks identities issued for guest sessions.
	IsGuest bool `json:"isGuest"`
}
