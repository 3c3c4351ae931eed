/*
Package chat contains the core logic for the ephemeral message relay: presence
tracking, room lifecycle, and the event dispatch loop that fans messages out to
connected sessions.

This file defines the wire contracts: the JSON envelope exchanged over the
websocket and the payload structures for every inbound and outbound event.
*/
package chat

import "encoding/json"

// EventType identifies an event on the wire.
type EventType string

// Inbound event types, sent by clients.
const (
	EventRoomCreate   EventType = "room:create"
	EventRoomCreateDM EventType = "room:create-dm"
	EventRoomJoin     EventType = "room:join"
	EventRoomLeave    EventType = "room:leave"
	EventRoomInvite   EventType = "room:invite"
	EventMessageSend  EventType = "message:send"
	EventTypingStart  EventType = "typing:start"
	EventTypingStop   EventType = "typing:stop"
	EventChangeName   EventType = "user:change-name"
)

// Outbound event types, emitted by the server.
const (
	EventAuthSuccess    EventType = "auth:success"
	EventUsersList      EventType = "users:list"
	EventUserJoined     EventType = "user:joined"
	EventUserLeft       EventType = "user:left"
	EventRoomsList      EventType = "rooms:list"
	EventRoomCreated    EventType = "room:created"
	EventRoomJoined     EventType = "room:joined"
	EventRoomUpdated    EventType = "room:updated"
	EventRoomDeleted    EventType = "room:deleted"
	EventMessageReceive EventType = "message:receive"
	EventMessageSystem  EventType = "message:system"
	EventTypingShow     EventType = "typing:show"
	EventTypingHide     EventType = "typing:hide"
)

// Envelope is the framing for every event in both directions.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals an outbound event into its wire representation.
func NewEvent(eventType EventType, payload any) ([]byte, error) {
	return json.Marshal(struct {
		Type    EventType `json:"type"`
		Payload any       `json:"payload,omitempty"`
	}{
		Type:    eventType,
		Payload: payload,
	})
}

// --- Inbound payloads ---

// CreateRoomPayload carries the room:create request.
type CreateRoomPayload struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// CreateDMPayload carries the room:create-dm request.
type CreateDMPayload struct {
	TargetUserID string `json:"targetUserId"`
	TargetName   string `json:"targetName,omitempty"`
}

// RoomRefPayload carries events that reference a room by id
// (room:join, room:leave, typing:start, typing:stop).
type RoomRefPayload struct {
	RoomID string `json:"roomId"`
}

// InvitePayload carries the room:invite request.
type InvitePayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// SendMessagePayload carries the message:send request.
type SendMessagePayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// ChangeNamePayload carries the user:change-name request.
type ChangeNamePayload struct {
	DisplayName string `json:"displayName"`
}

// --- Outbound payloads ---

// AuthSuccessPayload is delivered privately once the handshake identity is attached.
type AuthSuccessPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	IsGuest     bool   `json:"isGuest"`
}

// MessagePayload is the ephemeral broadcast record for a relayed message.
// It exists only for the duration of the delivery call and is never retained.
type MessagePayload struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

// TypingShowPayload tells room members that a user started typing.
type TypingShowPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	RoomID      string `json:"roomId"`
}

// TypingHidePayload tells room members that a user stopped typing.
type TypingHidePayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}
