package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stepshop/storefront-backend/pkg/enums"
)

// CardDetails carries the payment instrument a shopper submits. Tokenized
// providers read Token; the fake gateway validates the raw fields.
type CardDetails struct {
	Number   string
	CVC      string
	ExpMonth int
	ExpYear  int
	Token    string
}

// ChargeRequest asks a gateway to capture the order total.
type ChargeRequest struct {
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Card           CardDetails
	IdempotencyKey string
}

// ChargeResult is the gateway's verdict on a charge attempt. A decline is
// a result, not an error; errors mean the attempt itself could not run.
type ChargeResult struct {
	Status        enums.PaymentResultStatus
	Reference     string
	DeclineReason string
}

// Gateway abstracts the payment provider so the service can swap the fake
// processor for Square without touching the order flow.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
