package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authContext(authorization string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/chats", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

// Header parsing rejects before any token verification happens, so these run
// without a live identity provider.
func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	m := NewAuthMiddleware(nil)
	next := func(c echo.Context) error { return nil }

	err := m.Authenticate(next)(authContext(""))
	require.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	m := NewAuthMiddleware(nil)
	next := func(c echo.Context) error { return nil }

	for _, header := range []string{"token-without-scheme", "Basic abc123", "Bearer a b"} {
		err := m.Authenticate(next)(authContext(header))
		require.Error(t, err, "header %q", header)

		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	}
}
