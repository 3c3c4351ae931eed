package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"wprchat/internal/pkg/errs"
	"wprchat/internal/pkg/randx"
)

func testDirectory(maxUsers int) *RoomDirectory {
	return NewRoomDirectory(maxUsers, "General")
}

func memberFor(id, name string) Member {
	return NewMember(identityFor(id, name), presenceClient())
}

func TestRoomDirectory_EnsureLobbyIsIdempotent(t *testing.T) {
	d := testDirectory(10)

	lobby := d.EnsureLobby()
	require.Equal(t, LobbyRoomID, lobby.ID)
	require.Equal(t, "General", lobby.Name)
	require.Equal(t, RoomTypePublic, lobby.Type)
	require.True(t, lobby.IsLobby())

	again := d.EnsureLobby()
	require.Same(t, lobby, again)
	require.Equal(t, 1, d.Count())
}

func TestRoomDirectory_LobbySurvivesEmptyMembership(t *testing.T) {
	d := testDirectory(10)
	d.EnsureLobby()

	_, cerr := d.Join(LobbyRoomID, memberFor("u1", "Alice"))
	require.Nil(t, cerr)

	outcome, found := d.Leave(LobbyRoomID, "u1")
	require.True(t, found)
	require.False(t, outcome.Deleted)
	require.Equal(t, 0, outcome.Room.MemberCount())

	// Still findable at zero members.
	_, ok := d.Get(LobbyRoomID)
	require.True(t, ok)
}

func TestRoomDirectory_CreateSanitizesAndDefaults(t *testing.T) {
	d := testDirectory(10)

	room := d.Create(`<script>"team"&'x'</script>`, "bogus-type", "u1")
	require.Equal(t, RoomTypePublic, room.Type)
	require.NotContains(t, room.Name, "<")
	require.NotContains(t, room.Name, "&")
	require.NotContains(t, room.Name, `"`)
	require.Equal(t, "u1", room.CreatedBy)
	require.True(t, strings.HasPrefix(room.ID, randx.RoomIDPrefix))

	// Creator is not a member until an explicit join.
	require.Equal(t, 0, room.MemberCount())

	long := d.Create(strings.Repeat("x", 80), RoomTypePrivate, "u1")
	require.Len(t, []rune(long.Name), MaxRoomNameLength)
	require.Equal(t, RoomTypePrivate, long.Type)
}

func TestRoomDirectory_CreateAllocatesUniqueIDs(t *testing.T) {
	d := testDirectory(10)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room := d.Create("room", RoomTypePublic, "u1")
		require.False(t, seen[room.ID])
		seen[room.ID] = true
	}
}

func TestRoomDirectory_FindOrCreateDMIsOrderIndependent(t *testing.T) {
	d := testDirectory(10)

	first, created := d.FindOrCreateDM("u1", "Alice", "u2", "Bob")
	require.True(t, created)
	require.Equal(t, RoomTypeDM, first.Type)
	require.True(t, strings.HasPrefix(first.ID, randx.DMRoomIDPrefix))
	require.Contains(t, first.Name, "Alice")
	require.Contains(t, first.Name, "Bob")

	second, created := d.FindOrCreateDM("u2", "Bob", "u1", "Alice")
	require.False(t, created)
	require.Same(t, first, second)

	third, created := d.FindOrCreateDM("u1", "Alice", "u2", "Bob")
	require.False(t, created)
	require.Same(t, first, third)

	// A different pair gets its own room.
	other, created := d.FindOrCreateDM("u1", "Alice", "u3", "Carol")
	require.True(t, created)
	require.NotEqual(t, first.ID, other.ID)
}

func TestRoomDirectory_JoinUnknownRoom(t *testing.T) {
	d := testDirectory(10)

	_, cerr := d.Join("room_missing", memberFor("u1", "Alice"))
	require.NotNil(t, cerr)
	require.Equal(t, errs.ErrRoomNotFound, cerr.Code)
}

func TestRoomDirectory_JoinEnforcesCapacity(t *testing.T) {
	d := testDirectory(2)
	room := d.Create("tiny", RoomTypePublic, "u1")

	_, cerr := d.Join(room.ID, memberFor("u1", "Alice"))
	require.Nil(t, cerr)
	_, cerr = d.Join(room.ID, memberFor("u2", "Bob"))
	require.Nil(t, cerr)

	_, cerr = d.Join(room.ID, memberFor("u3", "Carol"))
	require.NotNil(t, cerr)
	require.Equal(t, errs.ErrRoomIsFull, cerr.Code)
	require.Equal(t, 2, room.MemberCount())
	require.False(t, room.HasMember("u3"))

	// Re-joining an existing member is not a capacity violation.
	_, cerr = d.Join(room.ID, memberFor("u2", "Bob"))
	require.Nil(t, cerr)
	require.Equal(t, 2, room.MemberCount())
}

func TestRoomDirectory_RejoinOverwritesTransportHandle(t *testing.T) {
	d := testDirectory(10)
	room := d.Create("team", RoomTypePublic, "u1")

	oldClient := presenceClient()
	newClient := presenceClient()

	_, cerr := d.Join(room.ID, NewMember(identityFor("u1", "Alice"), oldClient))
	require.Nil(t, cerr)

	_, cerr = d.Join(room.ID, NewMember(identityFor("u1", "Alice"), newClient))
	require.Nil(t, cerr)

	m, ok := room.Member("u1")
	require.True(t, ok)
	require.Same(t, newClient, m.client)
}

func TestRoomDirectory_LeaveDeletesEmptyRoom(t *testing.T) {
	d := testDirectory(10)
	room := d.Create("team", RoomTypePublic, "u1")

	_, cerr := d.Join(room.ID, memberFor("u1", "Alice"))
	require.Nil(t, cerr)
	_, cerr = d.Join(room.ID, memberFor("u2", "Bob"))
	require.Nil(t, cerr)

	outcome, found := d.Leave(room.ID, "u1")
	require.True(t, found)
	require.False(t, outcome.Deleted)
	require.Equal(t, 1, outcome.Room.MemberCount())

	outcome, found = d.Leave(room.ID, "u2")
	require.True(t, found)
	require.True(t, outcome.Deleted)

	// Deleted rooms are subsequently unfindable.
	_, ok := d.Get(room.ID)
	require.False(t, ok)

	// Leaving an unknown room is a no-op.
	_, found = d.Leave(room.ID, "u2")
	require.False(t, found)
}

func TestRoomDirectory_RemoveFromAll(t *testing.T) {
	d := testDirectory(10)
	d.EnsureLobby()

	shared := d.Create("shared", RoomTypePublic, "u1")
	solo := d.Create("solo", RoomTypePublic, "u1")

	_, cerr := d.Join(LobbyRoomID, memberFor("u1", "Alice"))
	require.Nil(t, cerr)
	_, cerr = d.Join(shared.ID, memberFor("u1", "Alice"))
	require.Nil(t, cerr)
	_, cerr = d.Join(shared.ID, memberFor("u2", "Bob"))
	require.Nil(t, cerr)
	_, cerr = d.Join(solo.ID, memberFor("u1", "Alice"))
	require.Nil(t, cerr)

	outcomes := d.RemoveFromAll("u1")
	require.Len(t, outcomes, 3)

	deletedIDs := make(map[string]bool)
	for _, outcome := range outcomes {
		if outcome.Deleted {
			deletedIDs[outcome.Room.ID] = true
		}
	}

	// The solo room emptied and died; the shared room and the lobby survive.
	require.True(t, deletedIDs[solo.ID])
	require.False(t, deletedIDs[shared.ID])
	require.False(t, deletedIDs[LobbyRoomID])

	_, ok := d.Get(solo.ID)
	require.False(t, ok)
	require.True(t, shared.HasMember("u2"))
	require.False(t, shared.HasMember("u1"))

	// Nothing left to remove.
	require.Empty(t, d.RemoveFromAll("u1"))
}

func TestRoomDirectory_RoomsForAndPublicRooms(t *testing.T) {
	d := testDirectory(10)
	d.EnsureLobby()

	pub := d.Create("open", RoomTypePublic, "u1")
	priv := d.Create("secret", RoomTypePrivate, "u1")
	dm, _ := d.FindOrCreateDM("u1", "Alice", "u2", "Bob")

	_, cerr := d.Join(priv.ID, memberFor("u1", "Alice"))
	require.Nil(t, cerr)
	_, cerr = d.Join(dm.ID, memberFor("u1", "Alice"))
	require.Nil(t, cerr)

	publicIDs := roomViewIDs(d.PublicRooms())
	require.Contains(t, publicIDs, LobbyRoomID)
	require.Contains(t, publicIDs, pub.ID)
	require.NotContains(t, publicIDs, priv.ID)
	require.NotContains(t, publicIDs, dm.ID)

	// u1 sees public rooms plus every room they belong to.
	aliceIDs := roomViewIDs(d.RoomsFor("u1"))
	require.Contains(t, aliceIDs, LobbyRoomID)
	require.Contains(t, aliceIDs, pub.ID)
	require.Contains(t, aliceIDs, priv.ID)
	require.Contains(t, aliceIDs, dm.ID)

	// An unrelated user never sees the private or dm room.
	strangerIDs := roomViewIDs(d.RoomsFor("u3"))
	require.Contains(t, strangerIDs, LobbyRoomID)
	require.Contains(t, strangerIDs, pub.ID)
	require.NotContains(t, strangerIDs, priv.ID)
	require.NotContains(t, strangerIDs, dm.ID)
}

func roomViewIDs(views []RoomView) []string {
	ids := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}
