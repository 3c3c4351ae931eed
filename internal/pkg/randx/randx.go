/*
Package randx provides functions for generating unique identifiers.

It produces the id formats used on the wire: prefixed room ids for group and
direct-message rooms, and message ids for ephemeral broadcast records.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// RoomIDPrefix is the prefix for group chat room ids.
	RoomIDPrefix = "room_"

	// DMRoomIDPrefix is the prefix for direct-message room ids.
	DMRoomIDPrefix = "dm_"

	// MessageIDPrefix is the prefix for ephemeral message ids.
	MessageIDPrefix = "msg_"

	// idFragmentLength is the number of UUID characters kept for room ids.
	idFragmentLength = 8
)

// idFragment returns the leading characters of a fresh UUID v4.
// The first 8 characters of the canonical form never contain a dash.
func idFragment() string {
	return uuid.New().String()[:idFragmentLength]
}

// RoomID generates a fresh unique id for a group chat room.
func RoomID() string {
	return RoomIDPrefix + idFragment()
}

// DMRoomID generates a fresh unique id for a direct-message room.
func DMRoomID() string {
	return DMRoomIDPrefix + idFragment()
}

// MessageID generates a unique identifier for a relayed message.
func MessageID() string {
	return MessageIDPrefix + uuid.New().String()
}

// IsRoomID reports whether the given id carries one of the known room prefixes.
func IsRoomID(id string) bool {
	return strings.HasPrefix(id, RoomIDPrefix) || strings.HasPrefix(id, DMRoomIDPrefix)
}
