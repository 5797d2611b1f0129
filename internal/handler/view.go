package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/middleware"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/repository"
)

// ViewHandler serves the server-rendered pages.
type ViewHandler struct {
	Tours    *repository.TourRepo
	Reviews  *repository.ReviewRepo
	Bookings *repository.BookingRepo
}

func NewViewHandler(tours *repository.TourRepo, reviews *repository.ReviewRepo, bookings *repository.BookingRepo) *ViewHandler {
	return &ViewHandler{Tours: tours, Reviews: reviews, Bookings: bookings}
}

// GetOverview renders the landing page with all tours. It first finalizes a
// booking when the billing provider redirected back here with tour, user and
// price in the query, then reloads the page without them.
func (h *ViewHandler) GetOverview(c echo.Context) error {
	if done, err := h.finalizeBookingCheckout(c); done || err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tours, err := h.Tours.List(ctx, repository.TourFilter{})
	if err != nil {
		return httperr.Wrap(err)
	}
	return c.Render(http.StatusOK, "overview", echo.Map{
		"title": "All Tours",
		"tours": tours,
	})
}

// finalizeBookingCheckout records the booking carried in the checkout
// success-redirect query and strips it from the URL. Reports done=true when a
// redirect was written.
func (h *ViewHandler) finalizeBookingCheckout(c echo.Context) (bool, error) {
	tourQ, userQ, priceQ := c.QueryParam("tour"), c.QueryParam("user"), c.QueryParam("price")
	if tourQ == "" || userQ == "" || priceQ == "" {
		return false, nil
	}
	tourID, err1 := strconv.ParseUint(tourQ, 10, 64)
	userID, err2 := strconv.ParseUint(userQ, 10, 64)
	price, err3 := strconv.ParseFloat(priceQ, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return false, nil // garbage query, just render the page
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	b := model.Booking{TourID: tourID, UserID: userID, Price: price, Paid: true}
	if _, err := h.Bookings.Create(ctx, b); err != nil {
		return true, httperr.Wrap(err)
	}
	return true, c.Redirect(http.StatusSeeOther, c.Request().URL.Path)
}

// GetTour renders one tour page with its reviews.
func (h *ViewHandler) GetTour(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tours.GetBySlug(ctx, c.Param("tourSlug"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("There is no tour with that name")
		}
		return httperr.Wrap(err)
	}
	reviews, err := h.Reviews.List(ctx, t.ID)
	if err != nil {
		return httperr.Wrap(err)
	}
	return c.Render(http.StatusOK, "tour", echo.Map{
		"title":   t.Name + " Tour",
		"tour":    t,
		"reviews": reviews,
	})
}

// Login renders the login form.
func (h *ViewHandler) Login(c echo.Context) error {
	return c.Render(http.StatusOK, "login", echo.Map{"title": "Log into your account"})
}

// GetAccount renders the account page for the authenticated user.
func (h *ViewHandler) GetAccount(c echo.Context) error {
	return c.Render(http.StatusOK, "account", echo.Map{"title": "Your account"})
}

// GetMyTours renders the tours the user has booked.
func (h *ViewHandler) GetMyTours(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return httperr.Unauthorized("You are not logged in! Please log in to continue")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	bookings, err := h.Bookings.ListByUser(ctx, u.ID)
	if err != nil {
		return httperr.Wrap(err)
	}
	tours := make([]model.Tour, 0, len(bookings))
	for _, b := range bookings {
		t, err := h.Tours.GetByID(ctx, b.TourID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue // tour removed since booking
			}
			return httperr.Wrap(err)
		}
		tours = append(tours, t)
	}
	return c.Render(http.StatusOK, "overview", echo.Map{
		"title": "My Tours",
		"tours": tours,
	})
}
