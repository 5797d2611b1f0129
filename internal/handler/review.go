package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/middleware"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/repository"
)

// ReviewHandler serves reviews both top-level and nested under a tour.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
}

func NewReviewHandler(reviews *repository.ReviewRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

type reviewReq struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
	TourID uint64 `json:"tourId"`
}

type reviewPart struct {
	ID     uint64 `json:"id"`
	TourID uint64 `json:"tourId"`
	UserID uint64 `json:"userId"`
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func reviewToPart(rv model.Review) reviewPart {
	return reviewPart{ID: rv.ID, TourID: rv.TourID, UserID: rv.UserID,
		Rating: rv.Rating, Review: rv.Review}
}

// nestedTourID reads the tour id from the nested route, 0 when absent.
func nestedTourID(c echo.Context) (uint64, error) {
	raw := c.Param("tourId")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, httperr.CastError("tourId", raw)
	}
	return id, nil
}

func (h *ReviewHandler) List(c echo.Context) error {
	tourID, err := nestedTourID(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	reviews, err := h.Reviews.List(ctx, tourID)
	if err != nil {
		return httperr.Wrap(err)
	}
	parts := make([]reviewPart, 0, len(reviews))
	for _, rv := range reviews {
		parts = append(parts, reviewToPart(rv))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(parts),
		"data":    echo.Map{"reviews": parts},
	})
}

func (h *ReviewHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No review found with that ID")
		}
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"review": reviewToPart(rv)},
	})
}

// Create stores a review. Tour and user ids default from the nested path and
// the session, matching the original nested-route behaviour.
func (h *ReviewHandler) Create(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return httperr.Unauthorized("You are not logged in! Please log in to continue")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	if nested, err := nestedTourID(c); err != nil {
		return err
	} else if nested > 0 {
		req.TourID = nested
	}

	var msgs []string
	if req.TourID == 0 {
		msgs = append(msgs, "Review must belong to a tour")
	}
	if req.Rating < 1 || req.Rating > 5 {
		msgs = append(msgs, "Rating must be between 1 and 5")
	}
	if strings.TrimSpace(req.Review) == "" {
		msgs = append(msgs, "Review can not be empty")
	}
	if len(msgs) > 0 {
		return httperr.ValidationFailed(msgs...)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rv := model.Review{TourID: req.TourID, UserID: u.ID, Rating: req.Rating, Review: req.Review}
	id, err := h.Reviews.Create(ctx, rv)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return httperr.DuplicateField("review")
		}
		return httperr.Wrap(err)
	}
	rv.ID = id
	return c.JSON(http.StatusCreated, echo.Map{
		"status": "success",
		"data":   echo.Map{"review": reviewToPart(rv)},
	})
}

func (h *ReviewHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return httperr.ValidationFailed("Rating must be between 1 and 5")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No review found with that ID")
		}
		return httperr.Wrap(err)
	}
	if err := h.ownerOrAdmin(c, rv); err != nil {
		return err
	}
	if req.Review == "" {
		req.Review = rv.Review
	}
	if err := h.Reviews.Update(ctx, id, req.Rating, req.Review); err != nil {
		return httperr.Wrap(err)
	}
	rv.Rating, rv.Review = req.Rating, req.Review
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"review": reviewToPart(rv)},
	})
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No review found with that ID")
		}
		return httperr.Wrap(err)
	}
	if err := h.ownerOrAdmin(c, rv); err != nil {
		return err
	}
	if err := h.Reviews.Delete(ctx, id); err != nil {
		return httperr.Wrap(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ownerOrAdmin lets regular users touch only their own reviews; admins may
// touch any.
func (h *ReviewHandler) ownerOrAdmin(c echo.Context, rv model.Review) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return httperr.Unauthorized("You are not logged in! Please log in to continue")
	}
	if u.Role != model.RoleAdmin && rv.UserID != u.ID {
		return httperr.Forbidden("You do not have permission to perform this action")
	}
	return nil
}
