package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/util"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// serviceErrors maps service sentinels to responses. First match wins.
var serviceErrors = []errorMapping{
	{service.ErrProductNotFound, http.StatusNotFound, apperrors.ProductNotFound},
	{service.ErrCategoryNotFound, http.StatusNotFound, apperrors.CategoryNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound},
	{service.ErrOfferNotFound, http.StatusNotFound, apperrors.OfferNotFound},
	{service.ErrCartItemNotFound, http.StatusNotFound, apperrors.CartItemNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, apperrors.ResourceNotFound},

	{service.ErrNoActiveCart, http.StatusBadRequest, apperrors.CartNotFound},
	{service.ErrEmptyCart, http.StatusBadRequest, apperrors.CartEmpty},
	{service.ErrInsufficientStock, http.StatusBadRequest, apperrors.StockInsufficient},
	{service.ErrProductUnavailable, http.StatusBadRequest, apperrors.ProductUnavailable},
	{service.ErrInvalidQuantity, http.StatusBadRequest, apperrors.ValidationInvalidRange},
	{service.ErrInvalidProduct, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{service.ErrInvalidOffer, http.StatusBadRequest, apperrors.OfferInvalid},
	{service.ErrCategoryCycle, http.StatusBadRequest, apperrors.CategoryCycle},
	{util.ErrPasswordTooShort, http.StatusBadRequest, apperrors.ValidationInvalidInput},
	{util.ErrPasswordTooLong, http.StatusBadRequest, apperrors.ValidationInvalidInput},

	{service.ErrInvalidTransition, http.StatusConflict, apperrors.OrderInvalidTransition},
	{service.ErrSKUAlreadyExists, http.StatusConflict, apperrors.ProductSKUExists},
	{service.ErrOfferCodeTaken, http.StatusConflict, apperrors.OfferCodeExists},
	{service.ErrEmailAlreadyExists, http.StatusConflict, apperrors.AuthEmailAlreadyExists},
	{service.ErrOrderNotPending, http.StatusUnprocessableEntity, apperrors.OrderNotPending},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, apperrors.AuthInvalidCredentials},
	{service.ErrInvalidRefresh, http.StatusUnauthorized, apperrors.AuthTokenInvalid},

	{service.ErrExportUnavailable, http.StatusServiceUnavailable, apperrors.OrderExportUnavailable},
}

// respondServiceError writes the mapped response for a known sentinel. Anything else is logged and
// answered with a parsed 500 so storage details never reach the client.
func respondServiceError(c *gin.Context, err error, operation string, fields map[string]interface{}) {
	log := middleware.GetLoggerFromContext(c)
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			log.Warn(operation+" rejected", withError(fields, err))
			apperrors.RespondWithError(c, m.status, m.code, err.Error())
			return
		}
	}
	log.Error(operation+" failed", err, fields)
	apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, operation)
}

func withError(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

// requireUserID reads the authenticated user or answers 401.
func requireUserID(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Warn("Unauthenticated request", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apperrors.Unauthorized(c, "")
		return 0, false
	}
	return userID, true
}

// parseIDParam parses a positive numeric path parameter or answers 400.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid id parameter", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// bindJSON binds the body or answers 400 with the binding error.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}
