package controllers

import (
	"net/http"

	"github.com/stepshop/storefront-backend/api/responses"
	"github.com/stepshop/storefront-backend/pkg/db"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/logger"
	pkgredis "github.com/stepshop/storefront-backend/pkg/redis"
)

// HealthLive reports process liveness.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady checks the database and redis before reporting ready.
func HealthReady(database db.Pinger, cache pkgredis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"redis":    "ok",
		}
		healthy := true

		if database == nil {
			checks["database"] = "unconfigured"
			healthy = false
		} else if err := database.Ping(r.Context()); err != nil {
			checks["database"] = "unreachable"
			healthy = false
		}

		if cache == nil {
			checks["redis"] = "unconfigured"
			healthy = false
		} else if err := cache.Ping(r.Context()); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checks)
	}
}
