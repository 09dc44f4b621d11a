package controllers

import (
	"fmt"
	"net/http"

	"github.com/stepshop/storefront-backend/api/responses"
	"github.com/stepshop/storefront-backend/api/validators"
	checkoutsvc "github.com/stepshop/storefront-backend/internal/checkout"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/logger"
)

type checkoutRequest struct {
	Address string `json:"address" validate:"required,min=1,max=512"`
}

type checkoutResponse struct {
	OrderID    string `json:"order_id"`
	TotalCents int    `json:"total_cents"`
	Total      string `json:"total"`
	PaymentURL string `json:"payment_url"`
}

// Checkout converts the caller's cart into an unpaid order and points
// them at the payment endpoint.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), userID, checkoutsvc.Input{Address: payload.Address})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:    order.ID.String(),
			TotalCents: order.TotalCents,
			Total:      order.Total,
			PaymentURL: fmt.Sprintf("/api/v1/orders/%s/payment", order.ID),
		})
	}
}
