package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, matching what the frontend sends.
	decimal.MarshalJSONWithoutQuotes = true
}

// Identity is a verified viewer identity.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Trigger maps a keyword or category to a reaction clip.
type Trigger struct {
	ID        string    `json:"id"`
	Keyword   string    `json:"keyword"`
	VideoURL  string    `json:"videoUrl"`
	Category  string    `json:"category"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatMessage is a persisted chat event.
type ChatMessage struct {
	ID         string      `json:"id"`
	Content    string      `json:"content"`
	AuthorID   string      `json:"userId"`
	AuthorName string      `json:"username"`
	Avatar     string      `json:"avatar,omitempty"`
	Kind       MessageKind `json:"type"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Donation is a persisted donation event.
type Donation struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Message    string          `json:"message,omitempty"`
	AuthorID   string          `json:"userId"`
	AuthorName string          `json:"username"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Reaction instructs every viewer to play a clip. It is never stored.
type Reaction struct {
	VideoURL    string
	Category    string
	TriggeredBy string
	// Exactly one of Message or Amount is set, depending on the source.
	Message string
	Amount  *decimal.Decimal
}

// Product is an item the streamer's wallet can buy.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category"`
	Active      bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Purchase records a debit of the ledger.
type Purchase struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"productId"`
	UserID       string          `json:"userId"`
	Username     string          `json:"username"`
	Quantity     int             `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	CreatedAt    time.Time       `json:"createdAt"`
	Product      *Product        `json:"product,omitempty"`
}

// ProductStat aggregates purchases of one product.
type ProductStat struct {
	Product       *Product        `json:"product"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
}

// PurchaseStats summarises all recorded purchases.
type PurchaseStats struct {
	TotalPurchases int             `json:"totalPurchases"`
	TotalSpent     decimal.Decimal `json:"totalSpent"`
	TopProducts    []ProductStat   `json:"topProducts"`
}

// Setting is a string-keyed configuration row.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
