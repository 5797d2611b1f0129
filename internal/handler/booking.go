package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/middleware"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/repository"
)

// BookingHandler creates checkout sessions with the billing provider and
// exposes the booking CRUD for admins and lead guides.
type BookingHandler struct {
	Bookings *repository.BookingRepo
	Tours    *repository.TourRepo
	Payments *client.API // nil when no billing key is configured
}

func NewBookingHandler(bookings *repository.BookingRepo, tours *repository.TourRepo, payments *client.API) *BookingHandler {
	return &BookingHandler{Bookings: bookings, Tours: tours, Payments: payments}
}

type bookingReq struct {
	TourID uint64  `json:"tourId"`
	UserID uint64  `json:"userId"`
	Price  float64 `json:"price"`
	Paid   *bool   `json:"paid"`
}

type bookingPart struct {
	ID     uint64  `json:"id"`
	TourID uint64  `json:"tourId"`
	UserID uint64  `json:"userId"`
	Price  float64 `json:"price"`
	Paid   bool    `json:"paid"`
}

func bookingToPart(b model.Booking) bookingPart {
	return bookingPart{ID: b.ID, TourID: b.TourID, UserID: b.UserID, Price: b.Price, Paid: b.Paid}
}

// GetCheckoutSession creates a payment session for the tour and hands its URL
// to the client. The success URL carries tour/user/price back to the site
// root where the booking is recorded on redirect.
func (h *BookingHandler) GetCheckoutSession(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return httperr.Unauthorized("You are not logged in! Please log in to continue")
	}
	if h.Payments == nil {
		return httperr.Internal("Payments are not configured")
	}
	tourID, err := pathID(c, "tourId")
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tours.GetByID(ctx, tourID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No tour found with that ID")
		}
		return httperr.Wrap(err)
	}

	base := c.Scheme() + "://" + c.Request().Host
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(base + "/?tour=" + c.Param("tourId") + "&user=" + itoa(u.ID) + "&price=" + ftoa(t.Price)),
		CancelURL:         stripe.String(base + "/tour/" + t.Slug),
		CustomerEmail:     stripe.String(u.Email),
		ClientReferenceID: stripe.String(c.Param("tourId")),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("usd"),
				UnitAmount: stripe.Int64(int64(t.Price * 100)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(t.Name + " Tour"),
					Description: stripe.String(t.Summary),
				},
			},
		}},
	}
	s, err := h.Payments.CheckoutSessions.New(params)
	if err != nil {
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"session": echo.Map{"id": s.ID, "url": s.URL},
	})
}

// ----- CRUD (admin, lead-guide) -----

func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	bookings, err := h.Bookings.List(ctx)
	if err != nil {
		return httperr.Wrap(err)
	}
	parts := make([]bookingPart, 0, len(bookings))
	for _, b := range bookings {
		parts = append(parts, bookingToPart(b))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(parts),
		"data":    echo.Map{"bookings": parts},
	})
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No booking found with that ID")
		}
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"booking": bookingToPart(b)},
	})
}

func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	if req.TourID == 0 || req.UserID == 0 || req.Price <= 0 {
		return httperr.ValidationFailed("Booking needs a tour, a user and a price")
	}
	paid := true
	if req.Paid != nil {
		paid = *req.Paid
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b := model.Booking{TourID: req.TourID, UserID: req.UserID, Price: req.Price, Paid: paid}
	id, err := h.Bookings.Create(ctx, b)
	if err != nil {
		return httperr.Wrap(err)
	}
	b.ID = id
	return c.JSON(http.StatusCreated, echo.Map{
		"status": "success",
		"data":   echo.Map{"booking": bookingToPart(b)},
	})
}

func (h *BookingHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	if req.Paid == nil {
		return httperr.ValidationFailed("Only the paid flag can be updated")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Bookings.Update(ctx, id, *req.Paid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No booking found with that ID")
		}
		return httperr.Wrap(err)
	}
	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"booking": bookingToPart(b)},
	})
}

func (h *BookingHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Bookings.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No booking found with that ID")
		}
		return httperr.Wrap(err)
	}
	return c.NoContent(http.StatusNoContent)
}
