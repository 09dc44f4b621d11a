package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stepshop/storefront-backend/api/middleware"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
)

// requesterID resolves the authenticated user from the request context.
func requesterID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}
