package errors

// Error codes returned in the "error" field. Format: CATEGORY_DETAIL.
// Clients map on the code; the message is for humans.

const (
	// auth
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"

	// authz
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"

	// validation
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE"

	// resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// catalog
	ProductNotFound    = "PRODUCT_NOT_FOUND"
	ProductUnavailable = "PRODUCT_UNAVAILABLE"
	ProductSKUExists   = "PRODUCT_SKU_EXISTS"
	CategoryNotFound   = "CATEGORY_NOT_FOUND"
	CategoryCycle      = "CATEGORY_CYCLE"
	StockInsufficient  = "STOCK_INSUFFICIENT"

	// cart
	CartItemNotFound = "CART_ITEM_NOT_FOUND"
	CartNotFound     = "CART_NOT_FOUND"
	CartEmpty        = "CART_EMPTY"

	// orders
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"
	OrderNotPending        = "ORDER_NOT_PENDING"
	OrderExportUnavailable = "ORDER_EXPORT_UNAVAILABLE"

	// offers
	OfferNotFound     = "OFFER_NOT_FOUND"
	OfferCodeExists   = "OFFER_CODE_EXISTS"
	OfferInvalid      = "OFFER_INVALID"
	OfferCodeRejected = "OFFER_CODE_REJECTED"

	// internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
