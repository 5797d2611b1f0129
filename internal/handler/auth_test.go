package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trailhead-labs/tour-booking/internal/config"
	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/password"
	"github.com/trailhead-labs/tour-booking/internal/repository"
	"github.com/trailhead-labs/tour-booking/internal/token"
)

// mockStore implements CredentialStore in memory and records mutations so
// tests can assert on what was persisted.
type mockStore struct {
	byEmail map[string]model.User
	byID    map[uint64]model.User
	byReset map[string]model.User

	createID  uint64
	createErr error
	createdAs struct {
		name, email, role string
	}

	setTokenID      uint64
	setTokenHash    string
	setTokenExpires time.Time
	clearedIDs      []uint64
	updatedPlain    map[uint64]string
}

func newMockStore() *mockStore {
	return &mockStore{
		byEmail:      map[string]model.User{},
		byID:         map[uint64]model.User{},
		byReset:      map[string]model.User{},
		createID:     1,
		updatedPlain: map[uint64]string{},
	}
}

func (m *mockStore) Create(_ context.Context, name, email, _, role string, _ int) (uint64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.createdAs.name, m.createdAs.email, m.createdAs.role = name, email, role
	return m.createID, nil
}

func (m *mockStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockStore) GetByResetToken(_ context.Context, hash string) (model.User, error) {
	u, ok := m.byReset[hash]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockStore) SetResetToken(_ context.Context, id uint64, hash string, expires time.Time) error {
	m.setTokenID, m.setTokenHash, m.setTokenExpires = id, hash, expires
	return nil
}

func (m *mockStore) ClearResetToken(_ context.Context, id uint64) error {
	m.clearedIDs = append(m.clearedIDs, id)
	return nil
}

func (m *mockStore) UpdatePassword(_ context.Context, id uint64, plain string, _ int) error {
	m.updatedPlain[id] = plain
	return nil
}

type mockMailer struct {
	welcomeTo  string
	welcomeErr error
	resetTo    string
	resetURL   string
	resetErr   error
}

func (m *mockMailer) SendWelcome(_ context.Context, to, _, _ string) error {
	m.welcomeTo = to
	return m.welcomeErr
}

func (m *mockMailer) SendPasswordReset(_ context.Context, to, _, url string) error {
	m.resetTo, m.resetURL = to, url
	return m.resetErr
}

func newAuthTestHandler(store *mockStore, mailer *mockMailer) *AuthHandler {
	cfg := config.Config{Env: "test", BcryptCost: bcrypt.MinCost}
	ts := token.NewService("test-secret", time.Hour, 90, false)
	return NewAuthHandler(cfg, ts, store, mailer)
}

func jsonCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == token.CookieName {
			return ck
		}
	}
	return nil
}

func TestSignupSuccess(t *testing.T) {
	store := newMockStore()
	store.createID = 11
	mailer := &mockMailer{}
	h := newAuthTestHandler(store, mailer)

	c, rec := jsonCtx(http.MethodPost, "/api/v1/users/signup",
		`{"name":"Lena","email":"Lena@Example.COM","password":"pass12345","passwordConform":"pass12345"}`)
	require.NoError(t, h.Signup(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "lena@example.com", store.createdAs.email)
	assert.Equal(t, model.RoleUser, store.createdAs.role)
	assert.Equal(t, "lena@example.com", mailer.welcomeTo)

	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)

	body := rec.Body.String()
	assert.Contains(t, body, `"status":"success"`)
	assert.Contains(t, body, `"token"`)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "hash")
}

func TestSignupWelcomeMailFailureIsNotFatal(t *testing.T) {
	store := newMockStore()
	mailer := &mockMailer{welcomeErr: assert.AnError}
	h := newAuthTestHandler(store, mailer)

	c, rec := jsonCtx(http.MethodPost, "/api/v1/users/signup",
		`{"name":"Lena","email":"lena@example.com","password":"pass12345","passwordConform":"pass12345"}`)
	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	h := newAuthTestHandler(newMockStore(), &mockMailer{})

	cases := map[string]string{
		"password mismatch": `{"name":"A","email":"a@example.com","password":"pass12345","passwordConform":"other1234"}`,
		"short password":    `{"name":"A","email":"a@example.com","password":"short","passwordConform":"short"}`,
		"bad email":         `{"name":"A","email":"not-an-email","password":"pass12345","passwordConform":"pass12345"}`,
		"missing name":      `{"email":"a@example.com","password":"pass12345","passwordConform":"pass12345"}`,
		"bad role":          `{"name":"A","email":"a@example.com","password":"pass12345","passwordConform":"pass12345","role":"superadmin"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := jsonCtx(http.MethodPost, "/api/v1/users/signup", body)
			err := h.Signup(c)
			var he *httperr.Error
			require.ErrorAs(t, err, &he)
			assert.Equal(t, http.StatusBadRequest, he.Code)
			assert.Equal(t, httperr.KindValidation, he.Kind)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	store := newMockStore()
	store.createErr = repository.ErrEmailExists
	h := newAuthTestHandler(store, &mockMailer{})

	c, _ := jsonCtx(http.MethodPost, "/api/v1/users/signup",
		`{"name":"Lena","email":"lena@example.com","password":"pass12345","passwordConform":"pass12345"}`)
	err := h.Signup(c)

	var he *httperr.Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, httperr.KindDuplicate, he.Kind)
	assert.Contains(t, he.Message, "lena@example.com")
}

func seedUser(t *testing.T, store *mockStore, id uint64, email, plain string) model.User {
	t.Helper()
	hash, err := password.Hash(plain, bcrypt.MinCost)
	require.NoError(t, err)
	u := model.User{ID: id, Name: "Lena", Email: email, Role: model.RoleUser, PasswordHash: hash}
	store.byEmail[email] = u
	store.byID[id] = u
	return u
}

func TestLoginSuccess(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, 7, "lena@example.com", "pass12345")
	h := newAuthTestHandler(store, &mockMailer{})

	c, rec := jsonCtx(http.MethodPost, "/api/v1/users/login",
		`{"email":"lena@example.com","password":"pass12345"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(rec))

	claims, err := h.Tokens.Verify(sessionCookie(rec).Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
}

func TestLoginFailures(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, 7, "lena@example.com", "pass12345")
	h := newAuthTestHandler(store, &mockMailer{})

	t.Run("missing fields", func(t *testing.T) {
		c, _ := jsonCtx(http.MethodPost, "/api/v1/users/login", `{"email":"lena@example.com"}`)
		var he *httperr.Error
		require.ErrorAs(t, h.Login(c), &he)
		assert.Equal(t, http.StatusBadRequest, he.Code)
		assert.Equal(t, "Please provide email and password!", he.Message)
	})

	// Unknown email and wrong password must be indistinguishable.
	t.Run("unknown email", func(t *testing.T) {
		c, _ := jsonCtx(http.MethodPost, "/api/v1/users/login",
			`{"email":"nobody@example.com","password":"pass12345"}`)
		var he *httperr.Error
		require.ErrorAs(t, h.Login(c), &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
		assert.Equal(t, "Email and password does not match!", he.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		c, _ := jsonCtx(http.MethodPost, "/api/v1/users/login",
			`{"email":"lena@example.com","password":"wrong-pass"}`)
		var he *httperr.Error
		require.ErrorAs(t, h.Login(c), &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
		assert.Equal(t, "Email and password does not match!", he.Message)
	})
}

func TestLogout(t *testing.T) {
	h := newAuthTestHandler(newMockStore(), &mockMailer{})
	c, rec := jsonCtx(http.MethodGet, "/api/v1/users/logout", "")

	require.NoError(t, h.Logout(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	ck := sessionCookie(rec)
	require.NotNil(t, ck)
	assert.Equal(t, "loggedOut", ck.Value)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	h := newAuthTestHandler(newMockStore(), &mockMailer{})
	c, _ := jsonCtx(http.MethodPost, "/api/v1/users/forgotPassword", `{"email":"nobody@example.com"}`)

	var he *httperr.Error
	require.ErrorAs(t, h.ForgotPassword(c), &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
	assert.Equal(t, "There is no user with this email address", he.Message)
}

func TestForgotPasswordSuccess(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, 7, "lena@example.com", "pass12345")
	mailer := &mockMailer{}
	h := newAuthTestHandler(store, mailer)

	c, rec := jsonCtx(http.MethodPost, "/api/v1/users/forgotPassword", `{"email":"lena@example.com"}`)
	require.NoError(t, h.ForgotPassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token send to email!")
	assert.Equal(t, "lena@example.com", mailer.resetTo)

	// The mail carries the raw secret; only its hash may be persisted.
	i := strings.LastIndex(mailer.resetURL, "/")
	require.Greater(t, i, 0)
	raw := mailer.resetURL[i+1:]
	assert.Contains(t, mailer.resetURL, "/api/v1/users/resetPassword/")
	assert.Equal(t, uint64(7), store.setTokenID)
	assert.Equal(t, token.HashResetSecret(raw), store.setTokenHash)
	assert.NotEqual(t, raw, store.setTokenHash)
	assert.WithinDuration(t, time.Now().UTC().Add(10*time.Minute), store.setTokenExpires, time.Minute)
}

func TestForgotPasswordMailFailureRollsBack(t *testing.T) {
	store := newMockStore()
	seedUser(t, store, 7, "lena@example.com", "pass12345")
	mailer := &mockMailer{resetErr: assert.AnError}
	h := newAuthTestHandler(store, mailer)

	c, _ := jsonCtx(http.MethodPost, "/api/v1/users/forgotPassword", `{"email":"lena@example.com"}`)

	var he *httperr.Error
	require.ErrorAs(t, h.ForgotPassword(c), &he)
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.Equal(t, "There was an error sending the email. Try again later", he.Message)
	assert.Equal(t, []uint64{7}, store.clearedIDs)
}

func TestResetPasswordSuccess(t *testing.T) {
	store := newMockStore()
	u := seedUser(t, store, 7, "lena@example.com", "pass12345")
	raw := "60b725f10c9c85c70d97880dfe8191b3a1d5e0a8d1b0e9ad39e5c43c4e7a0b11"
	store.byReset[token.HashResetSecret(raw)] = u
	h := newAuthTestHandler(store, &mockMailer{})

	c, rec := jsonCtx(http.MethodPatch, "/api/v1/users/resetPassword/"+raw,
		`{"password":"newpass123","passwordConform":"newpass123"}`)
	c.SetParamNames("token")
	c.SetParamValues(raw)

	require.NoError(t, h.ResetPassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "newpass123", store.updatedPlain[7])
	require.NotNil(t, sessionCookie(rec))
}

func TestResetPasswordBadToken(t *testing.T) {
	h := newAuthTestHandler(newMockStore(), &mockMailer{})

	c, _ := jsonCtx(http.MethodPatch, "/api/v1/users/resetPassword/deadbeef",
		`{"password":"newpass123","passwordConform":"newpass123"}`)
	c.SetParamNames("token")
	c.SetParamValues("deadbeef")

	var he *httperr.Error
	require.ErrorAs(t, h.ResetPassword(c), &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, "Token is invalid or has expired!", he.Message)
}

func TestUpdatePassword(t *testing.T) {
	store := newMockStore()
	u := seedUser(t, store, 7, "lena@example.com", "pass12345")
	h := newAuthTestHandler(store, &mockMailer{})

	t.Run("wrong current password", func(t *testing.T) {
		c, _ := jsonCtx(http.MethodPatch, "/api/v1/users/updatePassword",
			`{"oldPassword":"wrong-pass","newPassword":"newpass123","newPasswordConform":"newpass123"}`)
		c.Set("user", u)
		var he *httperr.Error
		require.ErrorAs(t, h.UpdatePassword(c), &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("success", func(t *testing.T) {
		c, rec := jsonCtx(http.MethodPatch, "/api/v1/users/updatePassword",
			`{"oldPassword":"pass12345","newPassword":"newpass123","newPasswordConform":"newpass123"}`)
		c.Set("user", u)
		require.NoError(t, h.UpdatePassword(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "newpass123", store.updatedPlain[7])
		require.NotNil(t, sessionCookie(rec))
	})

	t.Run("not logged in", func(t *testing.T) {
		c, _ := jsonCtx(http.MethodPatch, "/api/v1/users/updatePassword", `{}`)
		var he *httperr.Error
		require.ErrorAs(t, h.UpdatePassword(c), &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})
}
