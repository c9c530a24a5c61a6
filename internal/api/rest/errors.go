package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/agritrace/agritrace/internal/api/shared/errors"
	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondDomainError maps domain sentinel errors onto the API error taxonomy.
// Unrecognized errors respond as internal errors with the detail withheld.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(err.Error()))
	case errors.Is(err, domain.ErrUnknownTrace):
		c.JSON(http.StatusNotFound, apierrors.NewNotFoundError("Trace not found", err.Error()))
	case errors.Is(err, domain.ErrRoleNotPermitted):
		c.JSON(http.StatusForbidden, apierrors.NewForbiddenError("Role not permitted", err.Error()))
	case errors.Is(err, domain.ErrCollision):
		c.JSON(http.StatusConflict, apierrors.NewConflictError("Identifier collision", err.Error()))
	case errors.Is(err, domain.ErrStorage):
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusBadGateway, apierrors.NewStorageError("Photo storage is unavailable"))
	case errors.Is(err, domain.ErrPersistence):
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, apierrors.NewDatabaseError("Database write failed"))
	default:
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, apierrors.NewInternalError("Internal server error"))
	}
}
