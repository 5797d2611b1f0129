// Package token issues and verifies the signed session credential carried by
// the Authorization header or the jwt cookie.
package token

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// CookieName is the session cookie; middleware falls back to it when no
// bearer header is present.
const CookieName = "jwt"

// ErrInvalid covers bad signatures, malformed payloads and wrong signing
// methods. ErrExpired is raised for tokens past their exp claim.
var (
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("token expired")
)

// Claims is the verified content of a session token.
type Claims struct {
	UserID   uint64
	IssuedAt time.Time
}

// Service signs and verifies HS256 session tokens and manages the matching
// cookie. It is constructed once from config and holds no mutable state.
type Service struct {
	secret     []byte
	ttl        time.Duration
	cookieDays int
	secure     bool // Secure cookie flag, set under production config
}

func NewService(secret string, ttl time.Duration, cookieDays int, secure bool) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, cookieDays: cookieDays, secure: secure}
}

// Issue signs a token for the user with iat=now and exp=now+ttl.
func (s *Service) Issue(userID uint64) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses and validates a token string. Expiry is reported as
// ErrExpired; every other failure mode collapses into ErrInvalid.
func (s *Service) Verify(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrInvalid
	}

	var userID uint64
	switch sub := claims["sub"].(type) {
	case float64: // JSON numbers decode as float64
		userID = uint64(sub)
	case string:
		n, err := strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return Claims{}, ErrInvalid
		}
		userID = n
	default:
		return Claims{}, ErrInvalid
	}
	if userID == 0 {
		return Claims{}, ErrInvalid
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return Claims{}, ErrInvalid
	}
	return Claims{UserID: userID, IssuedAt: time.Unix(int64(iat), 0).UTC()}, nil
}

// SetCookie attaches the token as an http-only cookie alongside the JSON
// body, so browser pages and API clients share the same session.
func (s *Service) SetCookie(c echo.Context, tok string) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(s.cookieDays) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   s.secure,
	})
}

// ClearCookie overwrites the session cookie with a short-lived placeholder,
// logging the browser out without any server-side state.
func (s *Service) ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "loggedOut",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   s.secure,
	})
}
