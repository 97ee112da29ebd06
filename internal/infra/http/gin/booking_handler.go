package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stayfinder/internal/app/commands"
	"stayfinder/internal/app/dto"
	bookingapp "stayfinder/internal/app/handlers/booking"
	"stayfinder/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	PropertyID string    `json:"property_id" binding:"required"`
	StartDate  time.Time `json:"start_date" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required"`
	Guests     int       `json:"number_of_guests" binding:"required"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "traveler")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		CommandID:  uuid.NewString(),
		PropertyID: req.PropertyID,
		TravelerID: user.ID,
		Start:      req.StartDate,
		End:        req.EndDate,
		Guests:     req.Guests,
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Accept(c *gin.Context) {
	user, ok := requireRole(c, "owner")
	if !ok {
		return
	}
	cmd := bookingapp.AcceptBookingCommand{
		BookingID: c.Param("id"),
		OwnerID:   user.ID,
	}
	result, err := commands.Dispatch[bookingapp.AcceptBookingCommand, *bookingapp.AcceptBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:   c.Param("id"),
		RequesterID: user.ID,
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{
		BookingID:   c.Param("id"),
		RequesterID: user.ID,
	}
	view, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingView](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": view})
}

func (h BookingHandler) List(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	role := user.Role
	if role == "" {
		role = bookingapp.RoleTraveler
	}
	q := bookingapp.ListBookingsQuery{
		UserID: user.ID,
		Role:   role,
		Status: c.Query("status"),
	}
	collection, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": collection.Items})
}

var _ BookingHTTP = BookingHandler{}
