// Package protocol defines the live channel wire format between viewers and
// the server.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
)

// Event names sent by viewers.
const (
	EventAuthenticate = "authenticate"
	EventChatMessage  = "chat:message"
	EventDonation     = "donation"
	EventSignal       = "webrtc:signal"
	EventJoinRoom     = "room:join"
	EventLeaveRoom    = "room:leave"
)

// Event names sent by the server.
//
// The two reaction names differ in spelling. Existing frontends listen for
// both exactly as written, so they are kept apart until that is settled.
const (
	EventAuthenticated    = "authenticated"
	EventChatReaction     = "mellstoy:reaction"
	EventDonationReaction = "mellstroy:reaction"
	EventDonationReceived = "donation:received"
	EventError            = "error"
)

// Envelope is the frame every message travels in.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is a server frame prior to encoding.
type Outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// AuthenticatedPayload answers an authenticate request.
type AuthenticatedPayload struct {
	Success bool             `json:"success"`
	User    *domain.Identity `json:"user,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ChatMessagePayload is broadcast for every accepted chat message.
type ChatMessagePayload struct {
	ID        string             `json:"id"`
	Content   string             `json:"content"`
	Username  string             `json:"username"`
	UserID    string             `json:"userId"`
	Avatar    string             `json:"avatar,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Type      domain.MessageKind `json:"type"`
}

// ChatReactionPayload is broadcast when a chat message matched a trigger.
type ChatReactionPayload struct {
	VideoURL    string `json:"videoUrl"`
	Category    string `json:"category"`
	TriggeredBy string `json:"triggeredBy"`
	Message     string `json:"message"`
}

// DonationReactionPayload is broadcast when a donation trigger exists.
type DonationReactionPayload struct {
	VideoURL    string          `json:"videoUrl"`
	Category    string          `json:"category"`
	TriggeredBy string          `json:"triggeredBy"`
	Amount      decimal.Decimal `json:"amount"`
}

// DonationReceivedPayload is broadcast for every accepted donation.
type DonationReceivedPayload struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Message   *string         `json:"message"`
	Username  string          `json:"username"`
	Timestamp time.Time       `json:"timestamp"`
}

// SignalPayload is relayed to the members of a room.
type SignalPayload struct {
	Type   domain.SignalKind `json:"type"`
	Signal json.RawMessage   `json:"signal"`
	UserID string            `json:"userId"`
}

// ErrorPayload reports a rejected event to its sender.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewChatMessage converts a persisted message into its broadcast form.
func NewChatMessage(m *domain.ChatMessage) Outbound {
	return Outbound{Event: EventChatMessage, Data: ChatMessagePayload{
		ID:        m.ID,
		Content:   m.Content,
		Username:  m.AuthorName,
		UserID:    m.AuthorID,
		Avatar:    m.Avatar,
		Timestamp: m.CreatedAt,
		Type:      m.Kind,
	}}
}

// NewDonationReceived converts a persisted donation into its broadcast form.
func NewDonationReceived(d *domain.Donation) Outbound {
	var msg *string
	if d.Message != "" {
		m := d.Message
		msg = &m
	}
	return Outbound{Event: EventDonationReceived, Data: DonationReceivedPayload{
		ID:        d.ID,
		Amount:    d.Amount,
		Message:   msg,
		Username:  d.AuthorName,
		Timestamp: d.CreatedAt,
	}}
}

// NewReaction picks the chat or donation reaction frame for r.
func NewReaction(r domain.Reaction) Outbound {
	if r.Amount != nil {
		return Outbound{Event: EventDonationReaction, Data: DonationReactionPayload{
			VideoURL:    r.VideoURL,
			Category:    r.Category,
			TriggeredBy: r.TriggeredBy,
			Amount:      *r.Amount,
		}}
	}
	return Outbound{Event: EventChatReaction, Data: ChatReactionPayload{
		VideoURL:    r.VideoURL,
		Category:    r.Category,
		TriggeredBy: r.TriggeredBy,
		Message:     r.Message,
	}}
}

// NewError builds a sender-only error frame.
func NewError(message string) Outbound {
	return Outbound{Event: EventError, Data: ErrorPayload{Message: message}}
}
