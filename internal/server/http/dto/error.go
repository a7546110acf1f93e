package dto

// Error codes returned for rejected checkouts.
const (
	CodeEmptyCart         = "EMPTY_CART"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeProductNotFound   = "PRODUCT_NOT_FOUND"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeValidation        = "VALIDATION_ERROR"
	CodeOrderTerminal     = "ORDER_TERMINAL"
	CodeAlreadyPaid       = "ALREADY_PAID"
	CodeGateway           = "GATEWAY_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	ProductID *int64 `json:"productId,omitempty"`
}

// HealthResponse reports service readiness.
type HealthResponse struct {
	Status string `json:"status"`
}
