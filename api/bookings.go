package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Domenick1991/staybooking/internal/apperr"
	"github.com/Domenick1991/staybooking/internal/domain"
	"github.com/Domenick1991/staybooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// Identity headers are filled in by the upstream auth proxy; this service
// trusts them as-is.
const (
	headerUserID         = "X-User-ID"
	headerOrganizationID = "X-Organization-ID"
	headerSignature      = "Webhook-Signature"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
}

type bookingResponse struct {
	ID              string `json:"id"`
	PropertyID      string `json:"property_id"`
	GuestID         string `json:"guest_id"`
	HostID          string `json:"host_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Guests          int    `json:"guests"`
	Nights          int    `json:"nights"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Status          string `json:"status"`
	ClientSecret    string `json:"client_secret,omitempty"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
	router.PUT("/bookings/:id/confirm", h.confirm)
	router.PUT("/bookings/:id/reject", h.reject)
	router.PUT("/bookings/:id/refund", h.refund)
	router.DELETE("/bookings/:id", h.cancel)
	router.POST("/payments/webhook", h.webhook)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		PropertyID:     req.PropertyID,
		GuestID:        c.GetHeader(headerUserID),
		OrganizationID: c.GetHeader(headerOrganizationID),
		CheckIn:        req.CheckIn,
		CheckOut:       req.CheckOut,
		Guests:         req.Guests,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toBookingResponse(result.Booking)
	resp.ClientSecret = result.ClientSecret
	c.JSON(http.StatusCreated, resp)
}

func (h *BookingHandler) confirm(c *gin.Context) {
	h.transition(c, h.service.ConfirmBooking)
}

func (h *BookingHandler) reject(c *gin.Context) {
	h.transition(c, h.service.RejectBooking)
}

func (h *BookingHandler) refund(c *gin.Context) {
	h.transition(c, h.service.RefundBooking)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	h.transition(c, h.service.CancelBooking)
}

func (h *BookingHandler) transition(c *gin.Context, op func(context.Context, booking.ActorInput) (*domain.Booking, error)) {
	result, err := op(c.Request.Context(), booking.ActorInput{
		BookingID:      c.Param("id"),
		ActorID:        c.GetHeader(headerUserID),
		OrganizationID: c.GetHeader(headerOrganizationID),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(result))
}

func (h *BookingHandler) webhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	if err := h.service.ReconcilePaymentWebhook(c.Request.Context(), payload, c.GetHeader(headerSignature)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusServiceUnavailable
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:              b.ID,
		PropertyID:      b.PropertyID,
		GuestID:         b.GuestID,
		HostID:          b.HostID,
		CheckIn:         b.CheckIn.Format(time.DateOnly),
		CheckOut:        b.CheckOut.Format(time.DateOnly),
		Guests:          b.Guests,
		Nights:          b.Nights,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
	}
}
