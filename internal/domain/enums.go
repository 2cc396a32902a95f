// Package domain defines the core domain models for the companion backend.
package domain

// Role is the role carried by a verified identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// MessageKind is the kind of a persisted chat message.
type MessageKind string

const (
	MessageKindText     MessageKind = "text"
	MessageKindDonation MessageKind = "donation"
	MessageKindAction   MessageKind = "action"
)

// CategoryDonation is the trigger category played for every donation.
const CategoryDonation = "donation"

// Settings keys backing the economy ledger.
const (
	SettingBalance    = "balance"
	SettingMaxBalance = "max_balance"
)

// SignalKind is the kind of a peer negotiation message.
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

// Valid reports whether k is a known signal kind.
func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalICECandidate:
		return true
	}
	return false
}

// PurchaseOutcome labels the result of a purchase attempt.
type PurchaseOutcome string

const (
	PurchaseOK                PurchaseOutcome = "ok"
	PurchaseInsufficientFunds PurchaseOutcome = "insufficient_funds"
	PurchaseFailed            PurchaseOutcome = "failed"
)
