package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
)

// respondError maps the lifecycle error taxonomy to HTTP statuses. Conflict
// errors are surfaced verbatim so clients can tell an expected race loss
// from a bug; invariant violations return a generic message and log the
// detail server-side.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrBidNotFound),
		errors.Is(err, domain.ErrEscrowNotFound),
		errors.Is(err, domain.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrBidAlreadyDecided),
		errors.Is(err, domain.ErrJobNotOpenForBids),
		errors.Is(err, domain.ErrDuplicateActiveBid),
		errors.Is(err, domain.ErrBidNotWithdrawable),
		errors.Is(err, domain.ErrEscrowNotFunded),
		errors.Is(err, domain.ErrConversationArchived),
		errors.Is(err, domain.ErrReviewWindowClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrInternalInconsistency):
		logger.Error("Internal inconsistency surfaced to handler",
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal inconsistency"})

	default:
		logger.Error("Unhandled service error",
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
