package dto

import "time"

type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
	Env    string    `json:"env"`
}

type ErrorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Valid   *bool  `json:"valid,omitempty"`
	Error   string `json:"error"`
}

type ValidateResponse struct {
	Valid             bool       `json:"valid"`
	Reason            string     `json:"reason,omitempty"`
	Error             string     `json:"error,omitempty"`
	Code              string     `json:"code"`
	Status            string     `json:"status,omitempty"`
	TicketID          string     `json:"ticketId,omitempty"`
	State             string     `json:"state,omitempty"`
	Quantity          int        `json:"quantity,omitempty"`
	RedeemedCount     int        `json:"redeemedCount"`
	RemainingQuantity int        `json:"remainingQuantity"`
	FullyRedeemed     bool       `json:"fullyRedeemed"`
	CustomerEmail     *string    `json:"customerEmail,omitempty"`
	CustomerName      *string    `json:"customerName,omitempty"`
	FirstRedeemedAt   *time.Time `json:"firstRedeemedAt,omitempty"`
	LastRedeemedAt    *time.Time `json:"lastRedeemedAt,omitempty"`
}

type RedeemRequest struct {
	Code        string `json:"code" validate:"required"`
	RedeemCount *int   `json:"redeemCount"`
}

type RedeemResponse struct {
	Success           bool       `json:"success"`
	Reason            string     `json:"reason,omitempty"`
	Error             string     `json:"error,omitempty"`
	Code              string     `json:"code"`
	Status            string     `json:"status,omitempty"`
	TicketID          string     `json:"ticketId,omitempty"`
	RedeemedNow       int        `json:"redeemedNow"`
	Quantity          int        `json:"quantity,omitempty"`
	RedeemedCount     int        `json:"redeemedCount"`
	RemainingQuantity int        `json:"remainingQuantity"`
	FullyRedeemed     bool       `json:"fullyRedeemed"`
	CustomerEmail     *string    `json:"customerEmail,omitempty"`
	CustomerName      *string    `json:"customerName,omitempty"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
}

type CreateTicketRequest struct {
	CustomerEmail string  `json:"customerEmail" validate:"required,email"`
	CustomerName  *string `json:"customerName"`
	Quantity      int     `json:"quantity" validate:"required,min=1,max=10"`
	// AmountTotal is in major units, e.g. "25.00".
	AmountTotal *string `json:"amountTotal"`
	Currency    *string `json:"currency" validate:"omitempty,len=3"`
	Notes       *string `json:"notes" validate:"omitempty,max=2000"`
}

type CreatedTicket struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Quantity      int     `json:"quantity"`
	CustomerEmail *string `json:"customerEmail"`
	CustomerName  *string `json:"customerName"`
}

type CreatedPurchase struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
}

type CreateTicketResponse struct {
	Success  bool            `json:"success"`
	Ticket   CreatedTicket   `json:"ticket"`
	Purchase CreatedPurchase `json:"purchase"`
}

type SendTicketRequest struct {
	Code string `json:"code" validate:"required"`
}

type SendTicketResponse struct {
	Success   bool       `json:"success"`
	Reason    string     `json:"reason,omitempty"`
	Error     string     `json:"error,omitempty"`
	Code      string     `json:"code"`
	Email     string     `json:"email,omitempty"`
	MessageID string     `json:"messageId,omitempty"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
}

type TicketPurchase struct {
	ExternalID    string    `json:"externalId"`
	CustomerEmail *string   `json:"customerEmail"`
	CustomerName  *string   `json:"customerName"`
	AmountTotal   *int64    `json:"amountTotal"`
	Currency      *string   `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

type TicketListItem struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Quantity        int             `json:"quantity"`
	RedeemedCount   int             `json:"redeemedCount"`
	State           string          `json:"state"`
	FirstRedeemedAt *time.Time      `json:"firstRedeemedAt"`
	LastRedeemedAt  *time.Time      `json:"lastRedeemedAt"`
	SentAt          *time.Time      `json:"sentAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	Purchase        *TicketPurchase `json:"purchase,omitempty"`
}

type ListTicketsResponse struct {
	Data       []*TicketListItem `json:"data"`
	NextCursor *string           `json:"nextCursor"`
}

type StatsResponse struct {
	TotalTickets       int64 `json:"totalTickets"`
	TotalQuantity      int64 `json:"totalQuantity"`
	TotalRedeemed      int64 `json:"totalRedeemed"`
	TotalRemaining     int64 `json:"totalRemaining"`
	PercentageRedeemed int64 `json:"percentageRedeemed"`
}

type WebhookResponse struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Handled   bool   `json:"handled"`
	Code      string `json:"code,omitempty"`
}
