/*
Package chat contains the core logic for the ephemeral message relay.

This file defines the RoomDirectory, the exclusive owner of all room entities
and their membership. Like the presence registry it is mutated only from the
hub's event loop, so no locking is needed.
*/
package chat

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"wprchat/internal/pkg/errs"
	"wprchat/internal/pkg/logx"
	"wprchat/internal/pkg/randx"
)

// LeaveOutcome describes the effect of removing one user from one room.
// Room remains a valid pointer even when the room was deleted from the
// directory, so callers can still scope their notifications.
type LeaveOutcome struct {
	Room    *Room
	Deleted bool
}

// RoomDirectory owns all room entities.
type RoomDirectory struct {
	// rooms maps room id to the room entity.
	rooms map[string]*Room

	// maxRoomUsers is the configured member cap applied on every join.
	maxRoomUsers int

	// lobbyName is the configured display name of the permanent lobby.
	lobbyName string

	logger zerolog.Logger
}

// NewRoomDirectory constructs an empty directory with the given member cap
// and lobby name.
func NewRoomDirectory(maxRoomUsers int, lobbyName string) *RoomDirectory {
	return &RoomDirectory{
		rooms:        make(map[string]*Room),
		maxRoomUsers: maxRoomUsers,
		lobbyName:    lobbyName,
		logger:       logx.Logger().With().Str("component", "RoomDirectory").Logger(),
	}
}

// EnsureLobby creates the single permanent public room if it does not exist
// yet. It is idempotent and runs once at startup; the lobby is never deleted
// regardless of membership.
func (d *RoomDirectory) EnsureLobby() *Room {
	if room, ok := d.rooms[LobbyRoomID]; ok {
		return room
	}

	room := &Room{
		ID:        LobbyRoomID,
		Name:      d.lobbyName,
		Type:      RoomTypePublic,
		CreatedBy: "system",
		CreatedAt: time.Now(),
		members:   make(map[string]*Member),
	}
	d.rooms[LobbyRoomID] = room

	d.logger.Info().Str("room_id", LobbyRoomID).Str("name", d.lobbyName).Msg("Lobby room created.")
	return room
}

// Create allocates a new room with a fresh unique id. The name is sanitized
// and truncated; unknown types default to public. The creator is NOT added
// as a member; joining is a separate, explicit step.
func (d *RoomDirectory) Create(name string, roomType RoomType, creatorID string) *Room {
	switch roomType {
	case RoomTypePublic, RoomTypePrivate:
	default:
		roomType = RoomTypePublic
	}

	room := &Room{
		ID:        randx.RoomID(),
		Name:      sanitizeName(name, MaxRoomNameLength),
		Type:      roomType,
		CreatedBy: creatorID,
		CreatedAt: time.Now(),
		members:   make(map[string]*Member),
	}
	d.rooms[room.ID] = room

	d.logger.Info().
		Str("room_id", room.ID).
		Str("name", room.Name).
		Str("type", string(room.Type)).
		Str("created_by", creatorID).
		Msg("Room created.")

	return room
}

// FindOrCreateDM returns the dm room for the unordered {idA, idB} pair,
// creating it on first use. Lookups are order-independent, so at most one
// dm room ever exists per pair.
func (d *RoomDirectory) FindOrCreateDM(idA, nameA, idB, nameB string) (*Room, bool) {
	for _, room := range d.rooms {
		if room.matchesPair(idA, idB) {
			return room, false
		}
	}

	room := &Room{
		ID:        randx.DMRoomID(),
		Name:      dmRoomName(nameA, nameB),
		Type:      RoomTypeDM,
		CreatedBy: idA,
		CreatedAt: time.Now(),
		members:   make(map[string]*Member),
		dmPair:    [2]string{idA, idB},
	}
	d.rooms[room.ID] = room

	d.logger.Info().
		Str("room_id", room.ID).
		Str("user_a", idA).
		Str("user_b", idB).
		Msg("DM room created.")

	return room, true
}

// Get returns the room with the given id, if it exists.
func (d *RoomDirectory) Get(roomID string) (*Room, bool) {
	room, ok := d.rooms[roomID]
	return room, ok
}

// Join inserts (or overwrites, on re-join after reconnect) the member entry
// keyed by user id. It fails with ErrRoomNotFound for unknown ids and with
// ErrRoomIsFull when the member cap is reached; a failed join leaves
// membership unchanged.
func (d *RoomDirectory) Join(roomID string, m Member) (*Room, *errs.CustomError) {
	room, ok := d.rooms[roomID]
	if !ok {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}

	if !room.HasMember(m.UserID) && room.MemberCount() >= d.maxRoomUsers {
		return nil, errs.NewError(errs.ErrRoomIsFull)
	}

	entry := m
	room.members[m.UserID] = &entry

	return room, nil
}

// Leave removes the member from the room. A non-lobby room whose membership
// drops to zero is deleted immediately and reported as such. Unknown room
// ids and non-member user ids report found=false and mutate nothing.
func (d *RoomDirectory) Leave(roomID string, userID string) (outcome LeaveOutcome, found bool) {
	room, ok := d.rooms[roomID]
	if !ok {
		return LeaveOutcome{}, false
	}
	if !room.HasMember(userID) {
		return LeaveOutcome{}, false
	}

	delete(room.members, userID)

	if room.MemberCount() == 0 && !room.IsLobby() {
		delete(d.rooms, roomID)
		d.logger.Info().Str("room_id", roomID).Msg("Empty room deleted.")
		return LeaveOutcome{Room: room, Deleted: true}, true
	}

	return LeaveOutcome{Room: room}, true
}

// RemoveFromAll applies leave semantics across every room the user belongs
// to, returning one outcome per affected room so the caller can emit the
// matching per-room notifications.
func (d *RoomDirectory) RemoveFromAll(userID string) []LeaveOutcome {
	var outcomes []LeaveOutcome

	for roomID, room := range d.rooms {
		if !room.HasMember(userID) {
			continue
		}
		if outcome, ok := d.Leave(roomID, userID); ok {
			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes
}

// RefreshClient updates the recorded transport handle (and current display
// metadata) for every room the user is a member of. Used when a newer
// connection replaces an existing session, so member handles always match
// the live presence entry.
func (d *RoomDirectory) RefreshClient(userID string, m Member) {
	for _, room := range d.rooms {
		if room.HasMember(userID) {
			entry := m
			room.members[userID] = &entry
		}
	}
}

// PublicRooms returns the serialized views of every non-dm, non-private room.
func (d *RoomDirectory) PublicRooms() []RoomView {
	public := lo.Filter(lo.Values(d.rooms), func(room *Room, _ int) bool {
		return room.Type == RoomTypePublic
	})

	return lo.Map(public, func(room *Room, _ int) RoomView {
		return room.View()
	})
}

// RoomsFor returns the rooms visible to the given user at connect time:
// every public room plus every room the user is a member of.
func (d *RoomDirectory) RoomsFor(userID string) []RoomView {
	visible := lo.Filter(lo.Values(d.rooms), func(room *Room, _ int) bool {
		return room.Type == RoomTypePublic || room.HasMember(userID)
	})

	return lo.Map(visible, func(room *Room, _ int) RoomView {
		return room.View()
	})
}

// Count returns the number of rooms currently in the directory.
func (d *RoomDirectory) Count() int {
	return len(d.rooms)
}
