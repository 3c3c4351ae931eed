/*
Package chat contains the core logic for the ephemeral message relay.

This file defines the PresenceRegistry, which tracks which identities
currently have a live connection. It keeps a forward index from user id to
presence entry and a reverse index from transport handle to user id; the two
are mutated together so they can never diverge.
*/
package chat

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"wprchat/internal/app/user"
	"wprchat/internal/pkg/logx"
)

// Presence records that an identity currently has a live connection.
// Exactly one entry exists per online user id.
type Presence struct {
	Identity    user.Identity
	Client      *Client
	ConnectedAt time.Time
}

// View returns the public projection of the presence entry. Transport
// handles never leave the registry.
func (p *Presence) View() PresenceView {
	return PresenceView{
		UserID:      p.Identity.UserID,
		DisplayName: p.Identity.DisplayName,
		AvatarURL:   p.Identity.AvatarURL,
		IsGuest:     p.Identity.IsGuest,
	}
}

// PresenceView is the externally visible subset of a presence entry,
// used for users:list and user:joined payloads.
type PresenceView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	IsGuest     bool   `json:"isGuest"`
}

// PresenceRegistry owns all presence state. It is not safe for concurrent
// use: every mutation and read happens on the hub's event loop.
type PresenceRegistry struct {
	// online maps user id to the presence entry.
	online map[string]*Presence

	// byClient maps the transport handle back to its user id.
	byClient map[*Client]string

	logger zerolog.Logger
}

// NewPresenceRegistry constructs an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		online:   make(map[string]*Presence),
		byClient: make(map[*Client]string),
		logger:   logx.Logger().With().Str("component", "PresenceRegistry").Logger(),
	}
}

// Connect registers a live connection for the identity. If the identity was
// already online, the previous entry is overwritten and the displaced
// transport handle is returned so the caller can terminate it explicitly.
func (pr *PresenceRegistry) Connect(c *Client, identity user.Identity) (*Presence, *Client) {
	var displaced *Client

	if existing, ok := pr.online[identity.UserID]; ok {
		displaced = existing.Client
		delete(pr.byClient, displaced)
	}

	presence := &Presence{
		Identity:    identity,
		Client:      c,
		ConnectedAt: time.Now(),
	}

	pr.online[identity.UserID] = presence
	pr.byClient[c] = identity.UserID

	pr.logger.Info().
		Str("user_id", identity.UserID).
		Str("display_name", identity.DisplayName).
		Bool("replaced_session", displaced != nil).
		Msg("User online.")

	return presence, displaced
}

// Disconnect removes the presence entry owned by the given transport handle.
// It is idempotent: a handle that was already removed (second disconnect
// pass, or a session displaced by a newer connection) is a no-op and
// reports ok=false.
func (pr *PresenceRegistry) Disconnect(c *Client) (*Presence, bool) {
	userID, ok := pr.byClient[c]
	if !ok {
		return nil, false
	}

	presence := pr.online[userID]
	delete(pr.online, userID)
	delete(pr.byClient, c)

	pr.logger.Info().
		Str("user_id", userID).
		Str("display_name", presence.Identity.DisplayName).
		Msg("User offline.")

	return presence, true
}

// Rename updates the display name of an online user. Offline ids are a no-op.
func (pr *PresenceRegistry) Rename(userID string, newName string) {
	if presence, ok := pr.online[userID]; ok {
		presence.Identity.DisplayName = newName
	}
}

// Get returns the presence entry for the given user id, if online.
func (pr *PresenceRegistry) Get(userID string) (*Presence, bool) {
	presence, ok := pr.online[userID]
	return presence, ok
}

// ClientOf returns the transport handle of an online user, or nil.
func (pr *PresenceRegistry) ClientOf(userID string) *Client {
	if presence, ok := pr.online[userID]; ok {
		return presence.Client
	}
	return nil
}

// IsOnline reports whether the user currently has a live connection.
func (pr *PresenceRegistry) IsOnline(userID string) bool {
	_, ok := pr.online[userID]
	return ok
}

// Count returns the number of currently connected identities.
func (pr *PresenceRegistry) Count() int {
	return len(pr.online)
}

// Clients returns the transport handles of every online session.
func (pr *PresenceRegistry) Clients() []*Client {
	return lo.Map(lo.Values(pr.online), func(p *Presence, _ int) *Client {
		return p.Client
	})
}

// Snapshot returns the public view of every online user, ordered by
// connection time (user id breaks ties). Map iteration order would
// otherwise leak into the wire format.
func (pr *PresenceRegistry) Snapshot() []PresenceView {
	entries := lo.Values(pr.online)

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ConnectedAt.Equal(entries[j].ConnectedAt) {
			return entries[i].Identity.UserID < entries[j].Identity.UserID
		}
		return entries[i].ConnectedAt.Before(entries[j].ConnectedAt)
	})

	return lo.Map(entries, func(p *Presence, _ int) PresenceView {
		return p.View()
	})
}
