package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stepshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

// FakeGateway simulates a card processor for development and tests. It
// approves any card that passes a Luhn check and is not expired; anything
// else comes back as a decline.
type FakeGateway struct {
	now func() time.Time
}

// NewFakeGateway builds the simulated processor.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{now: time.Now}
}

func (g *FakeGateway) Name() string {
	return "fake"
}

func (g *FakeGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	if reason := g.validateCard(req.Card); reason != "" {
		return &ChargeResult{
			Status:        enums.PaymentResultFailure,
			DeclineReason: reason,
		}, nil
	}

	return &ChargeResult{
		Status:    enums.PaymentResultSuccess,
		Reference: "fake_" + uuid.NewString(),
	}, nil
}

func (g *FakeGateway) validateCard(card CardDetails) string {
	number := strings.ReplaceAll(strings.ReplaceAll(card.Number, " ", ""), "-", "")
	if len(number) < 12 || len(number) > 19 || !luhnValid(number) {
		return "card number failed validation"
	}
	if len(card.CVC) < 3 || len(card.CVC) > 4 || !digitsOnly(card.CVC) {
		return "invalid security code"
	}
	if card.ExpMonth < 1 || card.ExpMonth > 12 {
		return "invalid expiration month"
	}
	if g.expired(card.ExpMonth, card.ExpYear) {
		return fmt.Sprintf("card expired %02d/%d", card.ExpMonth, card.ExpYear)
	}
	return ""
}

// expired treats a card as valid through the last day of its expiry month.
func (g *FakeGateway) expired(month, year int) bool {
	now := g.now().UTC()
	if year < now.Year() {
		return true
	}
	return year == now.Year() && month < int(now.Month())
}

func luhnValid(number string) bool {
	if !digitsOnly(number) {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

func digitsOnly(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
