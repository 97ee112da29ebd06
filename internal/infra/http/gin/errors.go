package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "stayfinder/internal/app/handlers/booking"
	"stayfinder/internal/app/uow"
	domainavailability "stayfinder/internal/domain/availability"
	domainbooking "stayfinder/internal/domain/booking"
	domainproperty "stayfinder/internal/domain/property"
	domainrange "stayfinder/internal/domain/shared/daterange"
)

// respondError translates the core's typed errors into stable HTTP status
// signals: missing resources 404, authorization 403, calendar and state
// conflicts 409, validation 400, anything else a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainproperty.ErrNotFound),
		errors.Is(err, domainproperty.ErrInactive),
		errors.Is(err, domainbooking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, bookingapp.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domainavailability.ErrDateConflict),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domainbooking.ErrAlreadyCancelled),
		errors.Is(err, uow.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrInvalidGuests),
		errors.Is(err, domainbooking.ErrCapacityExceeded),
		errors.Is(err, bookingapp.ErrUnknownRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
