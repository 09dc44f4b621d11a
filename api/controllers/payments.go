package controllers

import (
	"net/http"

	"github.com/stepshop/storefront-backend/api/responses"
	"github.com/stepshop/storefront-backend/api/validators"
	paymentssvc "github.com/stepshop/storefront-backend/internal/payments"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/logger"
)

type paymentRequest struct {
	CardNumber string `json:"card_number" validate:"required,min=12,max=19"`
	CVC        string `json:"cvc" validate:"required,min=3,max=4"`
	ExpMonth   int    `json:"exp_month" validate:"required,min=1,max=12"`
	ExpYear    int    `json:"exp_year" validate:"required,min=2020"`
	Token      string `json:"token,omitempty" validate:"omitempty,max=256"`
}

// SubmitPayment charges the gateway for the caller's order and marks it
// paid. Replaying a paid order returns the order unchanged.
func SubmitPayment(svc paymentssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId", "invalid order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Pay(r.Context(), userID, orderID, paymentssvc.CardDetails{
			Number:   payload.CardNumber,
			CVC:      payload.CVC,
			ExpMonth: payload.ExpMonth,
			ExpYear:  payload.ExpYear,
			Token:    payload.Token,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}
