/*
Package chat contains the core logic for the ephemeral message relay.

This file defines the Room entity: a named group channel with a membership
set and a type tag. The member map doubles as the delivery list: each member
entry records the transport handle fan-out resolves to, so directory
membership and transport delivery cannot diverge.
*/
package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"wprchat/internal/app/user"
)

// RoomType tags the visibility class of a room.
type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
	RoomTypeDM      RoomType = "dm"
)

const (
	// LobbyRoomID is the fixed id of the single permanent public room.
	LobbyRoomID = "default-lobby"

	// MaxRoomNameLength is the maximum room name length in runes after sanitization.
	MaxRoomNameLength = 50

	// MaxDisplayNameLength is the maximum display name length in runes after sanitization.
	MaxDisplayNameLength = 20

	// MaxMessageLength is the maximum relayed message length in runes; longer
	// input is truncated, not rejected.
	MaxMessageLength = 2000
)

// Member is a room membership entry. The transport handle stays unexported
// so it never appears in serialized views.
type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`

	client *Client
}

// NewMember builds a membership entry from an identity and its transport handle.
func NewMember(identity user.Identity, c *Client) Member {
	return Member{
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		client:      c,
	}
}

// Room represents a named group channel. Rooms are owned exclusively by the
// RoomDirectory; nothing outside the hub's event loop mutates them.
type Room struct {
	ID        string
	Name      string
	Type      RoomType
	CreatedBy string
	CreatedAt time.Time

	// members maps user id to the membership entry.
	members map[string]*Member

	// dmPair holds the unordered user id pair for dm rooms, empty otherwise.
	dmPair [2]string
}

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	return len(r.members)
}

// HasMember reports whether the user id is currently a member.
func (r *Room) HasMember(userID string) bool {
	_, ok := r.members[userID]
	return ok
}

// Member returns the membership entry for the given user id.
func (r *Room) Member(userID string) (*Member, bool) {
	m, ok := r.members[userID]
	return m, ok
}

// IsLobby reports whether this is the permanent lobby room, which is exempt
// from empty-room deletion.
func (r *Room) IsLobby() bool {
	return r.ID == LobbyRoomID
}

// matchesPair reports whether a dm room connects the given unordered pair.
func (r *Room) matchesPair(idA, idB string) bool {
	if r.Type != RoomTypeDM {
		return false
	}
	return (r.dmPair[0] == idA && r.dmPair[1] == idB) ||
		(r.dmPair[0] == idB && r.dmPair[1] == idA)
}

// RoomView is the externally visible representation of a room, carrying no
// internal-only fields. CreatedAt is a millisecond timestamp on the wire.
type RoomView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      RoomType `json:"type"`
	CreatedBy string   `json:"createdBy"`
	Users     []Member `json:"users"`
	CreatedAt int64    `json:"createdAt"`
}

// View serializes the room for clients. Members are ordered by user id so
// the wire format is deterministic.
func (r *Room) View() RoomView {
	members := lo.Map(lo.Values(r.members), func(m *Member, _ int) Member {
		return *m
	})

	sort.Slice(members, func(i, j int) bool {
		return members[i].UserID < members[j].UserID
	})

	return RoomView{
		ID:        r.ID,
		Name:      r.Name,
		Type:      r.Type,
		CreatedBy: r.CreatedBy,
		Users:     members,
		CreatedAt: r.CreatedAt.UnixMilli(),
	}
}

// dmRoomName combines both display names into the dm room title.
func dmRoomName(nameA, nameB string) string {
	return fmt.Sprintf("%s ↔ %s", nameA, nameB)
}

// sanitizeName strips markup-significant characters and truncates the result
// to maxRunes. It returns the empty string for input that sanitizes away.
func sanitizeName(name string, maxRunes int) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '&', '"', '\'':
			return -1
		}
		return r
	}, name)

	runes := []rune(cleaned)
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}

	return strings.TrimSpace(string(runes))
}

// truncateMessage bounds relayed text to MaxMessageLength runes.
func truncateMessage(text string) string {
	runes := []rune(text)
	if len(runes) > MaxMessageLength {
		runes = runes[:MaxMessageLength]
	}
	return string(runes)
}
