package handler

import (
	"errors"
	"net/http"

	"pos-backend/internal/service"
	"pos-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps business error kinds to HTTP statuses. Anything not
// recognized is an internal failure and its detail stays out of the response.
func writeServiceError(c *gin.Context, err error) {
	var notFound *service.NotFoundError
	var insufficient *service.InsufficientStockError
	var duplicate *service.DuplicateInvoiceError
	var validation *service.ValidationError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, notFound.Error()))
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, insufficient.Error()))
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, duplicate.Error()))
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, validation.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
	}
}
