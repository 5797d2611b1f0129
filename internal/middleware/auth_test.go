package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/token"
)

type stubResolver struct {
	users map[uint64]model.User
	err   error
}

func (s *stubResolver) GetByID(_ context.Context, id uint64) (model.User, error) {
	if s.err != nil {
		return model.User{}, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func newCtx(t *testing.T, mutate func(*http.Request)) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours", nil)
	if mutate != nil {
		mutate(req)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

// next handler that records whether it ran.
func spyNext(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return nil
	}
}

func TestProtectNoToken(t *testing.T) {
	ts := token.NewService("secret", time.Hour, 90, false)
	res := &stubResolver{}

	var called bool
	err := Protect(ts, res)(spyNext(&called))(newCtx(t, nil))

	var he *httperr.Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Equal(t, "You are not logged in! Please log in to continue", he.Message)
	assert.False(t, called)
}

func TestProtectBearerHeader(t *testing.T) {
	ts := token.NewService("secret", time.Hour, 90, false)
	res := &stubResolver{users: map[uint64]model.User{5: {ID: 5, Role: model.RoleUser}}}
	tok, err := ts.Issue(5)
	require.NoError(t, err)

	var called bool
	c := newCtx(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	require.NoError(t, Protect(ts, res)(spyNext(&called))(c))
	assert.True(t, called)

	u, ok := CurrentUser(c)
	require.True(t, ok)
	assert.Equal(t, uint64(5), u.ID)
}

func TestProtectCookieFallback(t *testing.T) {
	ts := token.NewService("secret", time.Hour, 90, false)
	res := &stubResolver{users: map[uint64]model.User{5: {ID: 5}}}
	tok, err := ts.Issue(5)
	require.NoError(t, err)

	var called bool
	c := newCtx(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: token.CookieName, Value: tok})
	})
	require.NoError(t, Protect(ts, res)(spyNext(&called))(c))
	assert.True(t, called)
}

func TestProtectExpiredToken(t *testing.T) {
	ts := token.NewService("secret", -time.Minute, 90, false)
	tok, err := ts.Issue(5)
	require.NoError(t, err)

	c := newCtx(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	var called bool
	err = Protect(ts, &stubResolver{})(spyNext(&called))(c)

	var he *httperr.Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Equal(t, httperr.KindTokenExpired, he.Kind)
	assert.False(t, called)
}

func TestProtectTamperedToken(t *testing.T) {
	other := token.NewService("other", time.Hour, 90, false)
	tok, err := other.Issue(5)
	require.NoError(t, err)

	ts := token.NewService("secret", time.Hour, 90, false)
	c := newCtx(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	var called bool
	err = Protect(ts, &stubResolver{})(spyNext(&called))(c)

	var he *httperr.Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, httperr.KindTokenInvalid, he.Kind)
	assert.False(t, called)
}

func TestProtectDeletedUser(t *testing.T) {
	ts := token.NewService("secret", time.Hour, 90, false)
	tok, err := ts.Issue(99)
	require.NoError(t, err)

	c := newCtx(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	err = Protect(ts, &stubResolver{users: map[uint64]model.User{}})(spyNext(new(bool)))(c)

	var he *httperr.Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Equal(t, "The user belonging to this token no longer exist", he.Message)
}

func TestProtectPasswordChangedAfterIssue(t *testing.T) {
	ts := token.NewService("secret", time.Hour, 90, false)
	tok, err := ts.Issue(5)
	require.NoError(t, err)

	changed := time.Now().UTC().Add(time.Hour)
	res := &stubResolver{users: map[uint64]model.User{
		5: {ID: 5, PasswordChangedAt: &changed},
	}}
	c := newCtx(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	err = Protect(ts, res)(spyNext(new(bool)))(c)

	var he *httperr.Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
	assert.Equal(t, "User recently changed password! login again.", he.Message)
}

func TestIsLoggedInSwallowsFailures(t *testing.T) {
	ts := token.NewService("secret", time.Hour, 90, false)
	res := &stubResolver{}

	cases := map[string]func(*http.Request){
		"no cookie": nil,
		"garbage cookie": func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: token.CookieName, Value: "loggedOut"})
		},
		"unknown user": func(r *http.Request) {
			tok, _ := ts.Issue(123)
			r.AddCookie(&http.Cookie{Name: token.CookieName, Value: tok})
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			var called bool
			c := newCtx(t, mutate)
			require.NoError(t, IsLoggedIn(ts, res)(spyNext(&called))(c))
			assert.True(t, called)
			_, ok := CurrentUser(c)
			assert.False(t, ok)
		})
	}
}

func TestIsLoggedInAttachesUser(t *testing.T) {
	ts := token.NewService("secret", time.Hour, 90, false)
	res := &stubResolver{users: map[uint64]model.User{7: {ID: 7, Name: "Lena"}}}
	tok, err := ts.Issue(7)
	require.NoError(t, err)

	var called bool
	c := newCtx(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: token.CookieName, Value: tok})
	})
	require.NoError(t, IsLoggedIn(ts, res)(spyNext(&called))(c))
	assert.True(t, called)

	u, ok := CurrentUser(c)
	require.True(t, ok)
	assert.Equal(t, "Lena", u.Name)
}

func TestRestrictTo(t *testing.T) {
	mw := RestrictTo(model.RoleAdmin, model.RoleLeadGuide)

	t.Run("no user", func(t *testing.T) {
		err := mw(spyNext(new(bool)))(newCtx(t, nil))
		var he *httperr.Error
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("disallowed role", func(t *testing.T) {
		c := newCtx(t, nil)
		c.Set("user", model.User{ID: 1, Role: model.RoleUser})
		err := mw(spyNext(new(bool)))(c)
		var he *httperr.Error
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusForbidden, he.Code)
		assert.Equal(t, "You do not have permission to perform this action", he.Message)
	})

	t.Run("allowed role", func(t *testing.T) {
		var called bool
		c := newCtx(t, nil)
		c.Set("user", model.User{ID: 1, Role: model.RoleLeadGuide})
		require.NoError(t, mw(spyNext(&called))(c))
		assert.True(t, called)
	})
}
