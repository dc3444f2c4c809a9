package server

import "encoding/json"

// InboundMessage is the envelope every client frame arrives in. Data is
// decoded per event.
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundMessage is the envelope every server frame leaves in.
type OutboundMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// JoinRoomPayload claims a seat in a room.
type JoinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// StartMatchPayload begins a fresh match.
type StartMatchPayload struct {
	RoomID         string `json:"roomId"`
	NumberOfRounds int    `json:"numberOfRounds"`
}

// RoomPayload carries only the room identifier.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// CardIndexPayload targets one hand slot of the acting seat.
type CardIndexPayload struct {
	RoomID    string `json:"roomId"`
	CardIndex int    `json:"cardIndex"`
}

// StackPayload attempts an out-of-turn stack. PlayerID is advisory; the
// acting seat is always resolved from the connection.
type StackPayload struct {
	RoomID    string `json:"roomId"`
	PlayerID  int    `json:"playerId"`
	CardIndex int    `json:"cardIndex"`
}

// ActivatePowerPayload consumes an armed power.
type ActivatePowerPayload struct {
	RoomID         string `json:"roomId"`
	Type           string `json:"type"`
	TargetPlayerID int    `json:"targetPlayerId,omitempty"`
	CardID         int    `json:"cardId"`
}

// CloseRevealPayload manually closes a reveal on the named seat.
type CloseRevealPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID int    `json:"playerId"`
}

// SwapAnySelectPayload designates one card for the swap-any exchange.
// PlayerID names the seat owning the selected card, which need not be the
// acting seat.
type SwapAnySelectPayload struct {
	RoomID    string `json:"roomId"`
	PlayerID  int    `json:"playerId"`
	CardIndex int    `json:"cardIndex"`
	CardID    int    `json:"cardId"`
}

// ErrorPayload is a user-visible rejection.
type ErrorPayload struct {
	Message string `json:"message"`
}
