package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/config"
	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/middleware"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/password"
	"github.com/trailhead-labs/tour-booking/internal/repository"
	"github.com/trailhead-labs/tour-booking/internal/token"
)

// resetTokenTTL is the window in which a password-reset secret can be
// consumed.
const resetTokenTTL = 10 * time.Minute

// CredentialStore is the slice of the user repository the auth endpoints
// depend on.
type CredentialStore interface {
	Create(ctx context.Context, name, email, plain, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByResetToken(ctx context.Context, tokenHash string) (model.User, error)
	SetResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, plain string, cost int) error
}

// Mailer is the outbound notification collaborator.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name, url string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

// AuthHandler bundles dependencies for the authentication endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Tokens *token.Service
	Users  CredentialStore
	Mail   Mailer
}

func NewAuthHandler(cfg config.Config, ts *token.Service, users CredentialStore, mailer Mailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Tokens: ts, Users: users, Mail: mailer}
}

// ----- DTOs -----

type signupReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConform string `json:"passwordConform"`
	Role            string `json:"role"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Password        string `json:"password"`
	PasswordConform string `json:"passwordConform"`
}
type updatePasswordReq struct {
	OldPassword        string `json:"oldPassword"`
	NewPassword        string `json:"newPassword"`
	NewPasswordConform string `json:"newPasswordConform"`
}

// userPart is the sanitized user representation. The password hash and the
// reset columns never appear here.
type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
	Role  string `json:"role"`
}

func sanitizeUser(u model.User) userPart {
	return userPart{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}

// sendToken issues a session token, attaches it as the jwt cookie and writes
// the success body. Both cookie and body carry the token so browser pages and
// bearer-header API clients share one login path.
func (h *AuthHandler) sendToken(c echo.Context, u model.User, code int) error {
	tok, err := h.Tokens.Issue(u.ID)
	if err != nil {
		return httperr.Wrap(err)
	}
	h.Tokens.SetCookie(c, tok)
	return c.JSON(code, echo.Map{
		"status": "success",
		"token":  tok,
		"data":   echo.Map{"user": sanitizeUser(u)},
	})
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// validPassword collects validation messages for a new password pair.
func validPassword(pw, conform string) []string {
	var msgs []string
	if pw == "" {
		msgs = append(msgs, "Please provide a password")
	} else if len(pw) < 8 {
		msgs = append(msgs, "Password must have at least 8 characters")
	}
	if pw != conform {
		msgs = append(msgs, "Password are not equal!")
	}
	return msgs
}

// Signup registers a user and logs them in immediately.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var msgs []string
	if strings.TrimSpace(req.Name) == "" {
		msgs = append(msgs, "Please tell us your name")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		msgs = append(msgs, "Please provide a valid email")
	}
	msgs = append(msgs, validPassword(req.Password, req.PasswordConform)...)
	if len(msgs) > 0 {
		return httperr.ValidationFailed(msgs...)
	}

	role := model.RoleUser
	if req.Role != "" {
		if !model.ValidRole(req.Role) {
			return httperr.ValidationFailed("Role must be one of: user, guide, lead-guide, admin")
		}
		role = req.Role
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return httperr.DuplicateField(req.Email)
		}
		return httperr.Wrap(err)
	}

	accountURL := c.Scheme() + "://" + c.Request().Host + "/me"
	if err := h.Mail.SendWelcome(ctx, req.Email, req.Name, accountURL); err != nil {
		log.Printf("signup: welcome mail failed for %s: %v", req.Email, err)
	}

	u := model.User{ID: uid, Name: req.Name, Email: req.Email, Photo: "default.jpg", Role: role}
	return h.sendToken(c, u, http.StatusCreated)
}

// Login verifies credentials and issues a fresh session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return httperr.BadRequest("Please provide email and password!")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.Unauthorized("Email and password does not match!")
		}
		return httperr.Wrap(err)
	}
	if !password.Verify(u.PasswordHash, req.Password) {
		return httperr.Unauthorized("Email and password does not match!")
	}
	return h.sendToken(c, u, http.StatusOK)
}

// Logout replaces the session cookie with a short-lived placeholder.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.Tokens.ClearCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

// ForgotPassword starts the reset flow: generate a secret, persist only its
// hash with a 10 minute expiry and mail the raw value. A delivery failure
// rolls the pending reset back so no live token exists the user never
// received.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("There is no user with this email address")
		}
		return httperr.Wrap(err)
	}

	raw, hash, err := token.NewResetSecret()
	if err != nil {
		return httperr.Wrap(err)
	}
	if err := h.Users.SetResetToken(ctx, u.ID, hash, time.Now().UTC().Add(resetTokenTTL)); err != nil {
		return httperr.Wrap(err)
	}

	resetURL := c.Scheme() + "://" + c.Request().Host + "/api/v1/users/resetPassword/" + raw
	if err := h.Mail.SendPasswordReset(ctx, u.Email, u.Name, resetURL); err != nil {
		if cerr := h.Users.ClearResetToken(ctx, u.ID); cerr != nil {
			log.Printf("forgotPassword: clearing reset token for user %d failed: %v", u.ID, cerr)
		}
		return httperr.Internal("There was an error sending the email. Try again later")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"message": "Token send to email!",
	})
}

// ResetPassword consumes a reset secret: hash it, find the user with a
// matching unexpired hash, set the new password and log the user in.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByResetToken(ctx, token.HashResetSecret(c.Param("token")))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.BadRequest("Token is invalid or has expired!")
		}
		return httperr.Wrap(err)
	}

	if msgs := validPassword(req.Password, req.PasswordConform); len(msgs) > 0 {
		return httperr.ValidationFailed(msgs...)
	}
	// Clears the reset columns and stamps password_changed_at.
	if err := h.Users.UpdatePassword(ctx, u.ID, req.Password, h.Cfg.BcryptCost); err != nil {
		return httperr.Wrap(err)
	}
	return h.sendToken(c, u, http.StatusOK)
}

// UpdatePassword lets an authenticated user rotate their password after
// re-proving the old one.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		return httperr.Unauthorized("You are not logged in! Please log in to continue")
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	// Fetch fresh: the context copy may predate a concurrent credential change.
	u, err := h.Users.GetByID(ctx, cu.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.Unauthorized("The user belonging to this token no longer exist")
		}
		return httperr.Wrap(err)
	}
	if !password.Verify(u.PasswordHash, req.OldPassword) {
		return httperr.Unauthorized("Old and password does not match!")
	}
	if msgs := validPassword(req.NewPassword, req.NewPasswordConform); len(msgs) > 0 {
		return httperr.ValidationFailed(msgs...)
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return httperr.Wrap(err)
	}
	return h.sendToken(c, u, http.StatusOK)
}
