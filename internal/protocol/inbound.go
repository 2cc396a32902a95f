package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
)

// Inbound is a decoded viewer event. The concrete types below are the only
// implementations, so a type switch over them is exhaustive.
type Inbound interface {
	EventName() string
}

// Authenticate asks to bind a verified identity to the connection.
type Authenticate struct {
	Token string
}

// ChatSubmit posts a chat message.
type ChatSubmit struct {
	Content string
}

// DonationSubmit posts a donation.
type DonationSubmit struct {
	Amount  decimal.Decimal
	Message string
}

// SignalRelay forwards a peer negotiation message to a room.
type SignalRelay struct {
	Kind     domain.SignalKind
	Payload  json.RawMessage
	SenderID string
	RoomID   string
}

// JoinRoom adds the connection to a room.
type JoinRoom struct {
	RoomID string
}

// LeaveRoom removes the connection from a room.
type LeaveRoom struct {
	RoomID string
}

// Disconnect is produced by the transport when a connection ends.
type Disconnect struct{}

func (Authenticate) EventName() string   { return EventAuthenticate }
func (ChatSubmit) EventName() string     { return EventChatMessage }
func (DonationSubmit) EventName() string { return EventDonation }
func (SignalRelay) EventName() string    { return EventSignal }
func (JoinRoom) EventName() string       { return EventJoinRoom }
func (LeaveRoom) EventName() string      { return EventLeaveRoom }
func (Disconnect) EventName() string     { return "disconnect" }

type authenticateData struct {
	Token string `json:"token"`
}

type chatData struct {
	Content string `json:"content"`
}

type donationData struct {
	Amount  *decimal.Decimal `json:"amount"`
	Message string           `json:"message"`
}

type signalData struct {
	Type   domain.SignalKind `json:"type"`
	Signal json.RawMessage   `json:"signal"`
	UserID string            `json:"userId"`
	RoomID string            `json:"roomId"`
}

type roomData struct {
	RoomID string `json:"roomId"`
}

// Decode parses a viewer frame. Every failure wraps domain.ErrValidation.
func Decode(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, invalid("invalid JSON message")
	}

	switch env.Event {
	case EventAuthenticate:
		return decodeAuthenticate(env.Data)
	case EventChatMessage:
		var d chatData
		if err := unmarshalData(env.Data, &d); err != nil {
			return nil, invalid("invalid chat:message payload")
		}
		return ChatSubmit{Content: d.Content}, nil
	case EventDonation:
		var d donationData
		if err := unmarshalData(env.Data, &d); err != nil || d.Amount == nil {
			return nil, invalid("invalid donation payload")
		}
		if err := domain.CheckAmount(*d.Amount); err != nil {
			return nil, err
		}
		return DonationSubmit{Amount: *d.Amount, Message: d.Message}, nil
	case EventSignal:
		var d signalData
		if err := unmarshalData(env.Data, &d); err != nil {
			return nil, invalid("invalid webrtc:signal payload")
		}
		if !d.Type.Valid() {
			return nil, invalid("unknown signal type: " + string(d.Type))
		}
		if d.RoomID == "" {
			return nil, invalid("roomId is required")
		}
		return SignalRelay{Kind: d.Type, Payload: d.Signal, SenderID: d.UserID, RoomID: d.RoomID}, nil
	case EventJoinRoom, EventLeaveRoom:
		var d roomData
		if err := unmarshalData(env.Data, &d); err != nil || d.RoomID == "" {
			return nil, invalid("roomId is required")
		}
		if env.Event == EventJoinRoom {
			return JoinRoom{RoomID: d.RoomID}, nil
		}
		return LeaveRoom{RoomID: d.RoomID}, nil
	case "":
		return nil, invalid("event is required")
	default:
		return nil, invalid("unknown event: " + env.Event)
	}
}

// The token may be sent bare or wrapped in an object.
func decodeAuthenticate(data json.RawMessage) (Inbound, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var token string
		if err := json.Unmarshal(trimmed, &token); err != nil {
			return nil, invalid("invalid authenticate payload")
		}
		return Authenticate{Token: token}, nil
	}
	var d authenticateData
	if err := unmarshalData(data, &d); err != nil {
		return nil, invalid("invalid authenticate payload")
	}
	return Authenticate{Token: d.Token}, nil
}

func unmarshalData(data json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(data, v)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
}
