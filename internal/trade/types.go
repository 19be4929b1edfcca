package trade

import (
	"errors"
	"strings"
	"time"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Status is the workflow state of a trade.
//
//	PENDING --confirm--> CONFIRMED --approve--> APPROVED (terminal)
//	                          |--reject--> REJECTED (terminal)
//	                          |--unconfirm--> PENDING
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// Statuses lists all workflow states in display order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusApproved, StatusRejected}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Trade is a stock trade proposal moving through the approval workflow.
// Price is per share in minor units (cents). No floats.
type Trade struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Quantity    int64     `json:"quantity"`
	Price       int64     `json:"price"` // minor units per share
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	ConfirmedBy string    `json:"confirmed_by,omitempty"`
	ApprovedBy  string    `json:"approved_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ConfirmedAt time.Time `json:"confirmed_at,omitzero"`
	ApprovedAt  time.Time `json:"approved_at,omitzero"`
	Notes       string    `json:"notes,omitempty"`
}

// TotalValue is quantity times price, in minor units.
func (t Trade) TotalValue() int64 { return t.Quantity * t.Price }

// ResourceID implements authz.Resource.
func (t *Trade) ResourceID() string { return t.ID }

// ResourceStatus implements authz.Resource.
func (t *Trade) ResourceStatus() string { return string(t.Status) }

// CreatorID implements authz.Resource.
func (t *Trade) CreatorID() string { return t.CreatedBy }

var (
	ErrNotFound        = errors.New("trade: not found")
	ErrInvalidSymbol   = errors.New("trade: invalid symbol")
	ErrInvalidSide     = errors.New("trade: invalid side")
	ErrInvalidQuantity = errors.New("trade: quantity must be > 0")
	ErrInvalidPrice    = errors.New("trade: price must be > 0")
	// ErrStatusConflict signals a lost compare-and-set: the trade was not in
	// the expected status at write time. Callers should surface it as a
	// conflict rather than retry blindly.
	ErrStatusConflict = errors.New("trade: status changed concurrently")
)

// Validate checks the creation invariants: non-empty symbol, known side,
// positive quantity and price.
func (t *Trade) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return ErrInvalidSymbol
	}
	if t.Side != Buy && t.Side != Sell {
		return ErrInvalidSide
	}
	if t.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if t.Price <= 0 {
		return ErrInvalidPrice
	}
	return nil
}
