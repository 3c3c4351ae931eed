package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomID(t *testing.T) {
	id := RoomID()
	require.True(t, strings.HasPrefix(id, RoomIDPrefix))
	require.Len(t, id, len(RoomIDPrefix)+idFragmentLength)
	require.NotContains(t, id[len(RoomIDPrefix):], "-")
}

func TestDMRoomID(t *testing.T) {
	id := DMRoomID()
	require.True(t, strings.HasPrefix(id, DMRoomIDPrefix))
	require.Len(t, id, len(DMRoomIDPrefix)+idFragmentLength)
}

func TestMessageID(t *testing.T) {
	id := MessageID()
	require.True(t, strings.HasPrefix(id, MessageIDPrefix))
	// prefix plus a full canonical UUID
	require.Len(t, id, len(MessageIDPrefix)+36)
}

func TestIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		for _, id := range []string{RoomID(), DMRoomID(), MessageID()} {
			require.False(t, seen[id])
			seen[id] = true
		}
	}
}

func TestIsRoomID(t *testing.T) {
	require.True(t, IsRoomID(RoomID()))
	require.True(t, IsRoomID(DMRoomID()))
	require.False(t, IsRoomID("default-lobby"))
	require.False(t, IsRoomID(MessageID()))
	require.False(t, IsRoomID(""))
}
