package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	officeapp "deskhub/internal/app/handlers/offices"
	domainoffices "deskhub/internal/domain/offices"
	domaintags "deskhub/internal/domain/tags"
	domainusers "deskhub/internal/domain/users"
)

// respondError maps domain and application errors onto the HTTP taxonomy:
// 403 for ownership rejections, 422 with a field-scoped message map for
// business-rule violations, 404 for unknown ids, 400 for malformed payloads
// and 500 for everything else.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var violation domainoffices.RuleViolation
	switch {
	case errors.Is(err, officeapp.ErrNotOwner):
		writeError(c, logger, http.StatusForbidden, err)
	case errors.As(err, &violation):
		if logger != nil {
			logger.Warn("business rule rejected request", "field", violation.Field, "message", violation.Message, "path", c.FullPath())
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors": gin.H{violation.Field: []string{violation.Message}},
		})
	case errors.Is(err, domainoffices.ErrNotFound),
		errors.Is(err, domainoffices.ErrImageNotFound),
		errors.Is(err, domainusers.ErrNotFound),
		errors.Is(err, domaintags.ErrNotFound):
		writeError(c, logger, http.StatusNotFound, err)
	case errors.Is(err, officeapp.ErrUnknownTag),
		errors.Is(err, domainoffices.ErrTitleRequired),
		errors.Is(err, domainoffices.ErrAddressRequired),
		errors.Is(err, domainoffices.ErrInvalidLat),
		errors.Is(err, domainoffices.ErrInvalidLng),
		errors.Is(err, domainoffices.ErrNegativePrice),
		errors.Is(err, domainoffices.ErrDiscountRange):
		writeError(c, logger, http.StatusBadRequest, err)
	default:
		writeError(c, logger, http.StatusInternalServerError, err)
	}
}

func writeError(c *gin.Context, logger *slog.Logger, status int, err error) {
	if logger != nil {
		fields := []any{"status", status, "error", err, "path", c.FullPath()}
		if p, ok := currentPrincipal(c); ok {
			fields = append(fields, "user_id", p.ID)
		}
		logger.Error("request failed", fields...)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
