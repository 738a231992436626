package model

import (
	"time"

	"gorm.io/datatypes"
)

type PurchaseStatus string

const (
	PurchaseStatusPending PurchaseStatus = "PENDING"
	PurchaseStatusPaid    PurchaseStatus = "PAID"
	PurchaseStatusFailed  PurchaseStatus = "FAILED"
	PurchaseStatusExpired PurchaseStatus = "EXPIRED"
)

// Purchase is one completed payment. ExternalID is the checkout session id
// (or manual_<uuid>) and is the only de-duplication key for replayed events.
type Purchase struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	ExternalID      string         `gorm:"size:255;uniqueIndex;not null" json:"externalId"`
	PaymentIntentID *string        `gorm:"size:255" json:"paymentIntentId,omitempty"`
	CustomerID      *string        `gorm:"size:255" json:"customerId,omitempty"`
	CustomerEmail   *string        `gorm:"size:320;index" json:"customerEmail"`
	CustomerName    *string        `gorm:"size:255" json:"customerName"`
	AmountTotal     *int64         `json:"amountTotal"` // minor units
	Currency        *string        `gorm:"size:8" json:"currency"`
	Status          PurchaseStatus `gorm:"size:16;index;not null" json:"status"`
	LineItems       datatypes.JSON `json:"-"`
	RawPayload      datatypes.JSON `json:"-"`

	Tickets []Ticket `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Ticket is a redeemable admission unit. 0 <= RedeemedCount <= Quantity.
type Ticket struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	Code            string     `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Quantity        int        `gorm:"not null" json:"quantity"`
	RedeemedCount   int        `gorm:"not null;default:0" json:"redeemedCount"`
	FirstRedeemedAt *time.Time `json:"firstRedeemedAt"`
	LastRedeemedAt  *time.Time `json:"lastRedeemedAt"`
	SentAt          *time.Time `json:"sentAt"`

	PurchaseID string    `gorm:"size:36;index;not null" json:"purchaseId"`
	Purchase   *Purchase `json:"purchase,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Ticket) Remaining() int {
	return t.Quantity - t.RedeemedCount
}

type RedemptionState string

const (
	StateUnredeemed        RedemptionState = "UNREDEEMED"
	StatePartiallyRedeemed RedemptionState = "PARTIALLY_REDEEMED"
	StateFullyRedeemed     RedemptionState = "FULLY_REDEEMED"
)

func (t *Ticket) State() RedemptionState {
	switch {
	case t.RedeemedCount <= 0:
		return StateUnredeemed
	case t.RedeemedCount < t.Quantity:
		return StatePartiallyRedeemed
	default:
		return StateFullyRedeemed
	}
}

// TicketSequence is a named counter used by the sequential code scheme.
type TicketSequence struct {
	Name      string `gorm:"primaryKey;size:64"`
	Value     int    `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// LineItem is the normalized shape stored on Purchase.LineItems.
type LineItem struct {
	ID             string  `json:"id"`
	Description    string  `json:"description"`
	Quantity       int64   `json:"quantity"`
	AmountSubtotal int64   `json:"amountSubtotal"`
	AmountTotal    int64   `json:"amountTotal"`
	Currency       string  `json:"currency"`
	PriceID        *string `json:"priceId"`
}

type TicketStats struct {
	TotalTickets       int64 `json:"totalTickets"`
	TotalQuantity      int64 `json:"totalQuantity"`
	TotalRedeemed      int64 `json:"totalRedeemed"`
	TotalRemaining     int64 `json:"totalRemaining"`
	PercentageRedeemed int64 `json:"percentageRedeemed"`
}

func AllModels() []interface{} {
	return []interface{}{
		&Purchase{},
		&Ticket{},
		&TicketSequence{},
		&WebhookEvent{},
	}
}
