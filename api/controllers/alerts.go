package controllers

import (
	"net/http"

	"github.com/stepshop/storefront-backend/api/responses"
	alertssvc "github.com/stepshop/storefront-backend/internal/alerts"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/logger"
)

// SubscribeAlert registers the caller for a back-in-stock email on an
// out-of-stock product. Subscribing twice is a no-op.
func SubscribeAlert(svc alertssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alerts service unavailable"))
			return
		}

		userID, err := requesterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathUUID(r, "productId", "invalid product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		alert, err := svc.Subscribe(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, alert)
	}
}
