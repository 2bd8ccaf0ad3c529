package errors

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrorInfo is a code/message pair safe to show to clients.
type ErrorInfo struct {
	Code    string
	Message string
}

// postgres error classes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqNotNullViolation    = "23502"
	pqCheckViolation      = "23514"
)

// ParseError turns storage failures into client facing info without leaking SQL.
// context names the operation ("create product", "delete category") and only shapes the message.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong"}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return duplicateKeyInfo(err.Error())
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return foreignKeyInfo(err.Error())
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return duplicateKeyInfo(pqErr.Constraint + " " + pqErr.Message)
		case pqForeignKeyViolation:
			return foreignKeyInfo(pqErr.Detail + " " + pqErr.Message)
		case pqNotNullViolation:
			return ErrorInfo{Code: ValidationRequired, Message: "Required field missing: " + pqErr.Column}
		case pqCheckViolation:
			return ErrorInfo{Code: ValidationInvalidRange, Message: "A value is out of range"}
		}
		return ErrorInfo{Code: InternalDatabaseError, Message: defaultMessage(context)}
	}

	// sqlite reports constraints as plain strings
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "unique constraint") {
		return duplicateKeyInfo(lower)
	}
	if strings.Contains(lower, "foreign key constraint") {
		return foreignKeyInfo(lower)
	}

	if strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A dependent service is unavailable. Please try again later",
		}
	}

	return ErrorInfo{Code: InternalServerError, Message: defaultMessage(context)}
}

func duplicateKeyInfo(detail string) ErrorInfo {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "Email is already registered"}
	case strings.Contains(lower, "sku"):
		return ErrorInfo{Code: ProductSKUExists, Message: "SKU is already in use"}
	case strings.Contains(lower, "offers") && strings.Contains(lower, "code"):
		return ErrorInfo{Code: OfferCodeExists, Message: "Offer code is already in use"}
	case strings.Contains(lower, "order_number"):
		return ErrorInfo{Code: ResourceConflict, Message: "Order number collision. Please retry"}
	}
	return ErrorInfo{Code: ResourceAlreadyExists, Message: "Resource already exists"}
}

func foreignKeyInfo(detail string) ErrorInfo {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "still referenced"):
		return ErrorInfo{Code: ResourceConflict, Message: "Resource is still referenced and cannot be deleted"}
	case strings.Contains(lower, "category_id"):
		return ErrorInfo{Code: CategoryNotFound, Message: "Category does not exist"}
	case strings.Contains(lower, "product_id"):
		return ErrorInfo{Code: ProductNotFound, Message: "Product does not exist"}
	case strings.Contains(lower, "user_id"):
		return ErrorInfo{Code: ResourceNotFound, Message: "User does not exist"}
	}
	return ErrorInfo{Code: ResourceNotFound, Message: "Referenced resource does not exist"}
}

func notFoundMessage(context string) string {
	lower := strings.ToLower(context)
	for _, noun := range []string{"product", "category", "order", "offer", "cart", "user"} {
		if strings.Contains(lower, noun) {
			return strings.ToUpper(noun[:1]) + noun[1:] + " not found"
		}
	}
	return "Requested resource not found"
}

func defaultMessage(context string) string {
	lower := strings.ToLower(context)
	switch {
	case strings.Contains(lower, "create"):
		return "Failed to create. Please try again later"
	case strings.Contains(lower, "update"):
		return "Failed to update. Please try again later"
	case strings.Contains(lower, "delete"):
		return "Failed to delete. Please try again later"
	}
	return "Something went wrong. Please try again later"
}

// ParseAndRespond writes the parsed error with statusCode.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
