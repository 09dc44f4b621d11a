package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stepshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/square"
)

// SquareGateway adapts the Square client to the Gateway contract. Square
// never sees raw card numbers; the shopper's browser tokenizes the card
// and we charge the resulting source token.
type SquareGateway struct {
	client *square.Client
}

// NewSquareGateway wraps an initialized Square client.
func NewSquareGateway(client *square.Client) (*SquareGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareGateway{client: client}, nil
}

func (g *SquareGateway) Name() string {
	return "square"
}

func (g *SquareGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	source := strings.TrimSpace(req.Card.Token)
	if source == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card token required for square payments")
	}

	currency := req.Currency
	if currency == "" {
		currency = g.client.Currency()
	}

	payment, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:       currency,
		LocationID:     g.client.LocationID(),
		SourceID:       source,
		IdempotencyKey: req.IdempotencyKey,
		ReferenceID:    req.OrderID.String(),
		Note:           fmt.Sprintf("order %s", req.OrderID),
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePaymentDeclined {
			return &ChargeResult{
				Status:        enums.PaymentResultFailure,
				DeclineReason: typed.Message(),
			}, nil
		}
		return nil, err
	}

	status := stringValue(payment.GetStatus())
	switch status {
	case "COMPLETED", "APPROVED":
		return &ChargeResult{
			Status:    enums.PaymentResultSuccess,
			Reference: stringValue(payment.GetID()),
		}, nil
	default:
		return &ChargeResult{
			Status:        enums.PaymentResultFailure,
			DeclineReason: fmt.Sprintf("payment not captured (status %s)", status),
		}, nil
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
