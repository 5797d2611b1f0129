package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/middleware"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/repository"
)

// UserHandler exposes the account endpoints and the admin user CRUD.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

type updateMeReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConform string `json:"passwordConform"`
}

type adminUserReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// GetMe returns the authenticated user's sanitized record.
func (h *UserHandler) GetMe(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return httperr.Unauthorized("You are not logged in! Please log in to continue")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"user": sanitizeUser(u)},
	})
}

// UpdateMe changes name and email. Password fields are rejected so the
// changed-at stamping in the password path cannot be bypassed.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return httperr.Unauthorized("You are not logged in! Please log in to continue")
	}
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	if req.Password != "" || req.PasswordConform != "" {
		return httperr.BadRequest("This route is not for password updates. Please use /updatePassword")
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		name = u.Name
	}
	if email == "" {
		email = u.Email
	} else if _, err := mail.ParseAddress(email); err != nil {
		return httperr.ValidationFailed("Please provide a valid email")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, u.ID, name, email); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return httperr.DuplicateField(email)
		}
		return httperr.Wrap(err)
	}
	u.Name, u.Email = name, email
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"user": sanitizeUser(u)},
	})
}

// DeleteMe soft-deletes the account. The row survives but disappears from
// default lookups, so existing tokens stop resolving.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return httperr.Unauthorized("You are not logged in! Please log in to continue")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Deactivate(ctx, u.ID); err != nil {
		return httperr.Wrap(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- admin CRUD -----

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return httperr.Wrap(err)
	}
	parts := make([]userPart, 0, len(users))
	for _, u := range users {
		parts = append(parts, sanitizeUser(u))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(parts),
		"data":    echo.Map{"users": parts},
	})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No user found with that ID")
		}
		return httperr.Wrap(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"user": sanitizeUser(u)},
	})
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req adminUserReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	if req.Role != "" && !model.ValidRole(req.Role) {
		return httperr.ValidationFailed("Role must be one of: user, guide, lead-guide, admin")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No user found with that ID")
		}
		return httperr.Wrap(err)
	}
	if req.Name == "" {
		req.Name = u.Name
	}
	if req.Email == "" {
		req.Email = u.Email
	}
	if req.Role == "" {
		req.Role = u.Role
	}
	if err := h.Users.Update(ctx, id, req.Name, req.Email, req.Role); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return httperr.DuplicateField(req.Email)
		}
		return httperr.Wrap(err)
	}
	u.Name, u.Email, u.Role = req.Name, req.Email, req.Role
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"user": sanitizeUser(u)},
	})
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("No user found with that ID")
		}
		return httperr.Wrap(err)
	}
	return c.NoContent(http.StatusNoContent)
}
