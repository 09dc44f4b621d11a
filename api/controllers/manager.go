package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/stepshop/storefront-backend/api/responses"
	"github.com/stepshop/storefront-backend/api/validators"
	catalogsvc "github.com/stepshop/storefront-backend/internal/catalog"
	inventorysvc "github.com/stepshop/storefront-backend/internal/inventory"
	orderssvc "github.com/stepshop/storefront-backend/internal/orders"
	"github.com/stepshop/storefront-backend/internal/users"
	"github.com/stepshop/storefront-backend/pkg/enums"
	pkgerrors "github.com/stepshop/storefront-backend/pkg/errors"
	"github.com/stepshop/storefront-backend/pkg/logger"
)

type dashboardResponse struct {
	Sales       *orderssvc.SalesStats `json:"sales"`
	ActiveUsers int64                 `json:"active_users"`
}

// ManagerDashboard aggregates sales totals and the active user count.
func ManagerDashboard(ordersSvc orderssvc.Service, usersRepo *users.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ordersSvc == nil || usersRepo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard unavailable"))
			return
		}

		stats, err := ordersSvc.DashboardStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		activeUsers, err := usersRepo.CountActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users"))
			return
		}

		responses.WriteSuccess(w, dashboardResponse{Sales: stats, ActiveUsers: activeUsers})
	}
}

// ManagerOrdersList serves all orders with optional status filters.
func ManagerOrdersList(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := validators.PaginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filters orderssvc.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			paymentStatus, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter"))
				return
			}
			filters.PaymentStatus = &paymentStatus
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user filter"))
				return
			}
			filters.UserID = &id
		}

		page, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type updateOrderRequest struct {
	Status  *string `json:"status,omitempty" validate:"omitempty,min=1"`
	Address *string `json:"address,omitempty" validate:"omitempty,min=1,max=512"`
}

// ManagerUpdateOrder mutates an order's fulfillment status or shipping
// address. Payment status is never writable through this endpoint.
func ManagerUpdateOrder(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId", "invalid order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Status == nil && payload.Address == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}

		var order *orderssvc.OrderDTO
		if payload.Status != nil {
			status, err := enums.ParseOrderStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
				return
			}
			order, err = svc.UpdateStatus(r.Context(), orderID, status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		if payload.Address != nil {
			order, err = svc.UpdateAddress(r.Context(), orderID, strings.TrimSpace(*payload.Address))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		responses.WriteSuccess(w, order)
	}
}

type createProductRequest struct {
	CategoryID         string  `json:"category_id" validate:"required,uuid"`
	SKU                string  `json:"sku" validate:"required,min=1,max=64"`
	Title              string  `json:"title" validate:"required,min=1,max=256"`
	Description        *string `json:"description,omitempty" validate:"omitempty,max=4096"`
	ImageURL           *string `json:"image_url,omitempty" validate:"omitempty,url,max=1024"`
	PriceCents         int     `json:"price_cents" validate:"required,min=1"`
	DiscountPriceCents *int    `json:"discount_price_cents,omitempty" validate:"omitempty,min=1"`
	IsActive           *bool   `json:"is_active,omitempty"`
	InitialQty         int     `json:"initial_qty" validate:"min=0"`
}

// ManagerCreateProduct adds a product to the catalog with its opening
// stock level.
func ManagerCreateProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categoryID, err := uuid.Parse(payload.CategoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
			return
		}

		input := catalogsvc.CreateProductInput{
			CategoryID:         categoryID,
			SKU:                payload.SKU,
			Title:              payload.Title,
			Description:        payload.Description,
			ImageURL:           payload.ImageURL,
			PriceCents:         payload.PriceCents,
			DiscountPriceCents: payload.DiscountPriceCents,
			IsActive:           true,
			InitialQty:         payload.InitialQty,
		}
		if payload.IsActive != nil {
			input.IsActive = *payload.IsActive
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	CategoryID         *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Title              *string `json:"title,omitempty" validate:"omitempty,min=1,max=256"`
	Description        *string `json:"description,omitempty" validate:"omitempty,max=4096"`
	ImageURL           *string `json:"image_url,omitempty" validate:"omitempty,url,max=1024"`
	PriceCents         *int    `json:"price_cents,omitempty" validate:"omitempty,min=1"`
	DiscountPriceCents *int    `json:"discount_price_cents,omitempty" validate:"omitempty,min=1"`
	ClearDiscount      bool    `json:"clear_discount,omitempty"`
	IsActive           *bool   `json:"is_active,omitempty"`
}

// ManagerUpdateProduct applies a partial update to a product.
func ManagerUpdateProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId", "invalid product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalogsvc.UpdateProductInput{
			Title:              payload.Title,
			Description:        payload.Description,
			ImageURL:           payload.ImageURL,
			PriceCents:         payload.PriceCents,
			DiscountPriceCents: payload.DiscountPriceCents,
			ClearDiscount:      payload.ClearDiscount,
			IsActive:           payload.IsActive,
		}
		if payload.CategoryID != nil {
			categoryID, err := uuid.Parse(*payload.CategoryID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category id"))
				return
			}
			input.CategoryID = &categoryID
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ManagerDeleteProduct removes a product from the catalog.
func ManagerDeleteProduct(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId", "invalid product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

// ManagerCreateCategory adds a category; the slug derives from the name.
func ManagerCreateCategory(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := svc.CreateCategory(r.Context(), payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

type setInventoryRequest struct {
	AvailableQty *int `json:"available_qty" validate:"required,min=0"`
}

type inventoryResponse struct {
	ProductID    string `json:"product_id"`
	AvailableQty int    `json:"available_qty"`
}

// ManagerSetInventory pins a product's stock level. A restock from zero
// triggers back-in-stock notifications.
func ManagerSetInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId", "invalid product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SetQuantity(r.Context(), productID, *payload.AvailableQty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventoryResponse{
			ProductID:    item.ProductID.String(),
			AvailableQty: item.AvailableQty,
		})
	}
}
