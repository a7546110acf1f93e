package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/orderflow/internal/domain/errors"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeValidation, Message: "order id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// writeError maps domain failures to status codes and error bodies.
func writeError(c *gin.Context, err error) {
	var (
		stockErr    *domainErrors.InsufficientStockError
		notFoundErr *domainErrors.ProductNotFoundError
	)
	switch {
	case errors.Is(err, domainErrors.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeEmptyCart, Message: "cart is empty"})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeInsufficientStock, Message: stockErr.Error(), ProductID: &stockErr.ProductID})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeProductNotFound, Message: notFoundErr.Error(), ProductID: &notFoundErr.ProductID})
	case errors.Is(err, domainErrors.ErrProductNotFound):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeProductNotFound})
	case errors.Is(err, domainErrors.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeInvalidStatus, Message: err.Error()})
	case errors.Is(err, domainErrors.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeValidation, Message: err.Error()})
	case errors.Is(err, domainErrors.ErrUserNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: dto.CodeUserNotFound, Message: "user not found"})
	case errors.Is(err, domainErrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: dto.CodeOrderNotFound, Message: "order not found"})
	case errors.Is(err, domainErrors.ErrAlreadyTerminal):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Code: dto.CodeOrderTerminal, Message: err.Error()})
	case errors.Is(err, domainErrors.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Code: dto.CodeAlreadyPaid, Message: err.Error()})
	case errors.Is(err, domainErrors.ErrGateway):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Code: dto.CodeGateway, Message: "payment gateway unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: dto.CodeInternal, Message: "internal error"})
	}
}
