/*
Package chat contains the core logic for the ephemeral message relay.

This file defines the Hub, the single event loop that owns the presence
registry and the room directory. Every inbound event, connection, and
disconnection is handled here one at a time, so each mutation is atomic
relative to every other event and the two stores need no locking. The only
suspension points are at the transport boundary; handlers never block.

Messages pass through handlers as local values and are never handed to any
store; the relay path has no reachable interface to a durable one.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wprchat/internal/pkg/errs"
	"wprchat/internal/pkg/logx"
	"wprchat/internal/pkg/randx"
)

const eventChannelBuffer = 1024

// inboundEvent pairs a decoded envelope with the session that sent it.
type inboundEvent struct {
	client   *Client
	envelope Envelope
}

// Stats is the synchronous status snapshot served by the HTTP surface.
type Stats struct {
	Connections int
	Rooms       int
}

// Hub wires inbound events to presence/room mutations and produces outbound
// broadcasts. The two stores are passed in explicitly so tests can construct
// fresh isolated instances per case.
type Hub struct {
	// presence tracks which identities currently have a live connection.
	presence *PresenceRegistry

	// rooms owns all room entities and membership.
	rooms *RoomDirectory

	// register queues freshly authenticated connections.
	register chan *Client

	// unregister queues dropped connections for the single disconnect pass.
	unregister chan *Client

	// events queues decoded inbound envelopes.
	events chan inboundEvent

	// statsReq serves synchronous status queries from the event loop.
	statsReq chan chan Stats

	// done signals the Run loop to stop.
	done chan struct{}

	// stopOnce guards Stop against repeated calls.
	stopOnce sync.Once

	// wg waits for the Run loop to finish during shutdown.
	wg sync.WaitGroup

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub over the given stores and guarantees the permanent
// lobby room exists before any event is processed.
func NewHub(presence *PresenceRegistry, rooms *RoomDirectory) *Hub {
	rooms.EnsureLobby()

	return &Hub{
		presence:   presence,
		rooms:      rooms,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan inboundEvent, eventChannelBuffer),
		statsReq:   make(chan chan Stats),
		done:       make(chan struct{}),
		logger:     logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Run starts the main event loop. Handlers run to completion without
// preemption; it returns when Stop is called.
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	h.logger.Info().Msg("Hub event loop started.")

	for {
		select {
		case client := <-h.register:
			h.handleConnect(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case ev := <-h.events:
			h.dispatchEvent(ev)

		case reply := <-h.statsReq:
			reply <- Stats{
				Connections: h.presence.Count(),
				Rooms:       h.rooms.Count(),
			}

		case <-h.done:
			h.logger.Info().Msg("Hub event loop stopped.")
			return
		}
	}
}

// Stop terminates the event loop and waits for it to finish.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

// Register queues an authenticated connection for the connect sequence.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Dispatch queues a decoded inbound envelope for handling.
func (h *Hub) Dispatch(c *Client, envelope Envelope) {
	select {
	case h.events <- inboundEvent{client: c, envelope: envelope}:
	case <-h.done:
	}
}

// Stats answers the synchronous status query from inside the event loop, so
// the HTTP surface never races the stores.
func (h *Hub) Stats() Stats {
	reply := make(chan Stats, 1)

	select {
	case h.statsReq <- reply:
		return <-reply
	case <-h.done:
		return Stats{}
	}
}

// dispatchEvent routes one inbound envelope to its handler. Unknown types
// are dropped; a validation failure inside any handler never mutates state
// and never reaches other sessions.
func (h *Hub) dispatchEvent(ev inboundEvent) {
	c := ev.client

	switch ev.envelope.Type {
	case EventRoomCreate:
		h.handleCreateRoom(c, ev.envelope.Payload)
	case EventRoomCreateDM:
		h.handleCreateDM(c, ev.envelope.Payload)
	case EventRoomJoin:
		h.handleJoinRoom(c, ev.envelope.Payload)
	case EventRoomLeave:
		h.handleLeaveRoom(c, ev.envelope.Payload)
	case EventRoomInvite:
		h.handleInvite(c, ev.envelope.Payload)
	case EventMessageSend:
		h.handleSendMessage(c, ev.envelope.Payload)
	case EventTypingStart:
		h.handleTyping(c, ev.envelope.Payload, EventTypingShow)
	case EventTypingStop:
		h.handleTyping(c, ev.envelope.Payload, EventTypingHide)
	case EventChangeName:
		h.handleChangeName(c, ev.envelope.Payload)
	default:
		h.logger.Warn().
			Str("event_type", string(ev.envelope.Type)).
			Str("user_id", c.identity.UserID).
			Msg("Client sent unsupported event type")
	}
}

// handleConnect runs the post-auth connect sequence: register presence,
// private auth confirmation, global presence updates, private room list.
func (h *Hub) handleConnect(c *Client) {
	presence, displaced := h.presence.Connect(c, c.identity)

	// Last-connection-wins: the prior session for this identity is told why
	// it is going away, and room member handles are repointed at the new
	// connection so fan-out and membership stay in sync.
	if displaced != nil {
		displaced.Kick(errs.NewError(errs.ErrSessionReplaced).Message)
		h.rooms.RefreshClient(c.identity.UserID, NewMember(c.identity, c))
	}

	h.sendTo(c, EventAuthSuccess, AuthSuccessPayload{
		UserID:      presence.Identity.UserID,
		DisplayName: presence.Identity.DisplayName,
		AvatarURL:   presence.Identity.AvatarURL,
		IsGuest:     presence.Identity.IsGuest,
	})

	h.broadcastAll(EventUsersList, h.presence.Snapshot())
	h.broadcastExcept(c, EventUserJoined, presence.View())
	h.sendTo(c, EventRoomsList, h.rooms.RoomsFor(c.identity.UserID))
}

// handleDisconnect tears down one dropped connection: presence removal, room
// departures with per-room notifications, then the global presence update.
// A handle that was already removed (double disconnect, replaced session)
// does nothing.
func (h *Hub) handleDisconnect(c *Client) {
	presence, ok := h.presence.Disconnect(c)
	if !ok {
		return
	}

	c.closed = true
	close(c.send)

	identity := presence.Identity

	for _, outcome := range h.rooms.RemoveFromAll(identity.UserID) {
		if outcome.Deleted {
			h.broadcastRoomScoped(outcome.Room, EventRoomDeleted, outcome.Room.ID)
			continue
		}

		h.broadcastRoom(outcome.Room, EventMessageSystem,
			fmt.Sprintf("%s left the room.", identity.DisplayName), nil)
		h.broadcastRoomScoped(outcome.Room, EventRoomUpdated, outcome.Room.View())
	}

	h.broadcastAll(EventUsersList, h.presence.Snapshot())
	h.broadcastAll(EventUserLeft, identity.UserID)
}

// handleCreateRoom creates a room and announces it. The creator does not
// join implicitly; joining is a separate, explicit step.
func (h *Hub) handleCreateRoom(c *Client, raw json.RawMessage) {
	var payload CreateRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid room:create payload")
		return
	}

	if sanitizeName(payload.Name, MaxRoomNameLength) == "" {
		return
	}

	room := h.rooms.Create(payload.Name, RoomType(payload.Type), c.identity.UserID)

	h.broadcastRoomScoped(room, EventRoomCreated, room.View())
	if room.Type != RoomTypePublic {
		// A fresh private room has no members yet; the creator still needs
		// to learn the allocated id.
		h.sendTo(c, EventRoomCreated, room.View())
	}
}

// handleCreateDM finds or creates the one dm room for the requester/target
// pair and joins both sides. An offline target produces only a private
// notice and mutates nothing.
func (h *Hub) handleCreateDM(c *Client, raw json.RawMessage) {
	var payload CreateDMPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid room:create-dm payload")
		return
	}
	if payload.TargetUserID == "" {
		return
	}

	target, ok := h.presence.Get(payload.TargetUserID)
	if !ok {
		h.systemNotice(c, "That user is offline.")
		return
	}

	room, _ := h.rooms.FindOrCreateDM(
		c.identity.UserID, c.identity.DisplayName,
		target.Identity.UserID, target.Identity.DisplayName,
	)

	if _, cerr := h.rooms.Join(room.ID, NewMember(c.identity, c)); cerr != nil {
		h.systemNotice(c, cerr.Message)
		return
	}

	if target.Client != nil {
		h.rooms.Join(room.ID, NewMember(target.Identity, target.Client))
		h.sendTo(target.Client, EventRoomJoined, room.View())
	}

	h.sendTo(c, EventRoomJoined, room.View())
}

// handleJoinRoom adds the requester to a room, notifies existing members,
// and announces the updated membership.
func (h *Hub) handleJoinRoom(c *Client, raw json.RawMessage) {
	var payload RoomRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid room:join payload")
		return
	}
	if payload.RoomID == "" {
		return
	}

	room, cerr := h.rooms.Join(payload.RoomID, NewMember(c.identity, c))
	if cerr != nil {
		h.systemNotice(c, cerr.Message)
		return
	}

	h.sendTo(c, EventRoomJoined, room.View())
	h.broadcastRoom(room, EventMessageSystem,
		fmt.Sprintf("%s joined the room.", c.identity.DisplayName), c)
	h.broadcastRoomScoped(room, EventRoomUpdated, room.View())
}

// handleLeaveRoom removes the requester from a room. The last member leaving
// a non-lobby room deletes it.
func (h *Hub) handleLeaveRoom(c *Client, raw json.RawMessage) {
	var payload RoomRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid room:leave payload")
		return
	}
	if payload.RoomID == "" {
		return
	}

	outcome, found := h.rooms.Leave(payload.RoomID, c.identity.UserID)
	if !found {
		return
	}

	if outcome.Deleted {
		h.broadcastRoomScoped(outcome.Room, EventRoomDeleted, outcome.Room.ID)
		h.sendTo(c, EventRoomDeleted, outcome.Room.ID)
		return
	}

	h.broadcastRoom(outcome.Room, EventMessageSystem,
		fmt.Sprintf("%s left the room.", c.identity.DisplayName), nil)
	h.broadcastRoomScoped(outcome.Room, EventRoomUpdated, outcome.Room.View())
}

// handleInvite adds an online target user to a room on the inviter's behalf.
func (h *Hub) handleInvite(c *Client, raw json.RawMessage) {
	var payload InvitePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid room:invite payload")
		return
	}
	if payload.RoomID == "" || payload.UserID == "" {
		return
	}

	target, ok := h.presence.Get(payload.UserID)
	if !ok {
		h.systemNotice(c, "That user is offline.")
		return
	}

	room, cerr := h.rooms.Join(payload.RoomID, NewMember(target.Identity, target.Client))
	if cerr != nil {
		h.systemNotice(c, cerr.Message)
		return
	}

	h.sendTo(target.Client, EventRoomJoined, room.View())
	h.sendTo(target.Client, EventMessageSystem,
		fmt.Sprintf("%s invited you to a room.", c.identity.DisplayName))

	h.broadcastRoom(room, EventMessageSystem,
		fmt.Sprintf("%s was invited to the room.", target.Identity.DisplayName), target.Client)
	h.broadcastRoomScoped(room, EventRoomUpdated, room.View())
}

// handleSendMessage relays one ephemeral message to the room's current
// members. The record is built, delivered, and goes out of scope in this
// call; it is never retained.
func (h *Hub) handleSendMessage(c *Client, raw json.RawMessage) {
	var payload SendMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid message:send payload")
		return
	}
	if payload.RoomID == "" || payload.Text == "" {
		return
	}

	room, ok := h.rooms.Get(payload.RoomID)
	if !ok || !room.HasMember(c.identity.UserID) {
		h.systemNotice(c, "You are not a member of that room.")
		return
	}

	message := MessagePayload{
		ID:          randx.MessageID(),
		RoomID:      room.ID,
		UserID:      c.identity.UserID,
		DisplayName: c.identity.DisplayName,
		AvatarURL:   c.identity.AvatarURL,
		Text:        truncateMessage(payload.Text),
		Timestamp:   time.Now().UnixMilli(),
	}

	h.broadcastRoom(room, EventMessageReceive, message, nil)
}

// handleTyping relays a stateless typing indicator to the other members of
// the room.
func (h *Hub) handleTyping(c *Client, raw json.RawMessage, outType EventType) {
	var payload RoomRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid typing payload")
		return
	}
	if payload.RoomID == "" {
		return
	}

	room, ok := h.rooms.Get(payload.RoomID)
	if !ok {
		return
	}

	if outType == EventTypingShow {
		h.broadcastRoom(room, outType, TypingShowPayload{
			UserID:      c.identity.UserID,
			DisplayName: c.identity.DisplayName,
			RoomID:      room.ID,
		}, c)
		return
	}

	h.broadcastRoom(room, outType, TypingHidePayload{
		UserID: c.identity.UserID,
		RoomID: room.ID,
	}, c)
}

// handleChangeName renames the session identity and the presence entry, then
// pushes the updated online-user snapshot to everyone.
func (h *Hub) handleChangeName(c *Client, raw json.RawMessage) {
	var payload ChangeNamePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid user:change-name payload")
		return
	}

	newName := sanitizeName(payload.DisplayName, MaxDisplayNameLength)
	if newName == "" {
		return
	}

	oldName := c.identity.DisplayName
	c.identity.DisplayName = newName
	h.presence.Rename(c.identity.UserID, newName)

	h.logger.Info().
		Str("user_id", c.identity.UserID).
		Str("old_name", oldName).
		Str("new_name", newName).
		Msg("Display name changed.")

	h.broadcastAll(EventUsersList, h.presence.Snapshot())
}

// --- delivery helpers ---

// sendTo delivers one event privately to a single session.
func (h *Hub) sendTo(c *Client, eventType EventType, payload any) {
	frame, err := NewEvent(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to marshal outbound event")
		return
	}
	c.enqueue(frame)
}

// systemNotice sends a private message:system notice to one session. This is
// the only visible trace a failed event leaves, and only the initiator sees it.
func (h *Hub) systemNotice(c *Client, text string) {
	h.sendTo(c, EventMessageSystem, text)
}

// broadcastAll delivers one event to every connected session. The frame is
// marshaled once.
func (h *Hub) broadcastAll(eventType EventType, payload any) {
	frame, err := NewEvent(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to marshal outbound event")
		return
	}

	for _, c := range h.presence.Clients() {
		c.enqueue(frame)
	}
}

// broadcastExcept delivers one event to every connected session but one.
func (h *Hub) broadcastExcept(except *Client, eventType EventType, payload any) {
	frame, err := NewEvent(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to marshal outbound event")
		return
	}

	for _, c := range h.presence.Clients() {
		if c != except {
			c.enqueue(frame)
		}
	}
}

// broadcastRoom delivers one event to the room's current members, resolving
// each member's recorded transport handle. Pass except to skip one session.
func (h *Hub) broadcastRoom(room *Room, eventType EventType, payload any, except *Client) {
	frame, err := NewEvent(eventType, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to marshal outbound event")
		return
	}

	for _, member := range room.members {
		if member.client != nil && member.client != except {
			member.client.enqueue(frame)
		}
	}
}

// broadcastRoomScoped announces a room lifecycle event with membership-scoped
// visibility: everyone for public rooms, members only for private and dm
// rooms. This keeps private room names and member lists away from unrelated
// sessions.
func (h *Hub) broadcastRoomScoped(room *Room, eventType EventType, payload any) {
	if room.Type == RoomTypePublic {
		h.broadcastAll(eventType, payload)
		return
	}
	h.broadcastRoom(room, eventType, payload, nil)
}
