package identity

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()

	config := &variables.Config{TokenTTL: time.Hour, SecretHashCost: bcrypt.MinCost}
	tokens, err := NewTokenService(NewTokenServiceParams{Config: config})
	require.NoError(t, err)

	directory := NewDirectory(NewDirectoryParams{
		Store:  NewMemoryUserStore(),
		Tokens: tokens,
		Config: config,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	router := echo.New()
	require.NoError(t, NewIdentityController(newIdentityControllerParams{Directory: directory}).Resolve(router))
	return router
}

func serve(router *echo.Echo, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		r.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)
	return rec
}

func TestIdentityController(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(t)

	// Given a registered user
	rec := serve(router, http.MethodPost, "/identity/register", `{"displayName":"  Ada "}`, nil)
	req.Equal(http.StatusCreated, rec.Code)

	var registered identityRegisterResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &registered))
	req.Equal("Ada", registered.User.DisplayName)
	req.NotEmpty(registered.Secret)

	// When logging in with the secret
	rec = serve(router, http.MethodPost, "/identity/login", `{"secret":"`+registered.Secret+`"}`, nil)
	req.Equal(http.StatusOK, rec.Code)

	var login identityLoginResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &login))
	req.Equal(registered.User.ID, login.User.ID)
	req.NotEmpty(login.Token)

	// Then the token verifies
	rec = serve(router, http.MethodPost, "/identity/token-verify", "", http.Header{
		"Authorization": []string{"Bearer " + login.Token},
	})
	req.Equal(http.StatusOK, rec.Code)

	var verified identityTokenVerifyResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &verified))
	req.True(verified.Verified)
	req.Equal(registered.User.ID, verified.User.ID)
}

func TestIdentityController_Failures(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		target string
		body   string
		header http.Header
		status int
	}{
		{name: "empty display name", target: "/identity/register", body: `{"displayName":" "}`, status: http.StatusBadRequest},
		{name: "long display name", target: "/identity/register", body: `{"displayName":"` + strings.Repeat("a", 33) + `"}`, status: http.StatusBadRequest},
		{name: "malformed body", target: "/identity/register", body: `{`, status: http.StatusBadRequest},
		{name: "unknown user", target: "/identity/login", body: `{"secret":"ghost.c2VjcmV0"}`, status: http.StatusForbidden},
		{name: "malformed secret", target: "/identity/login", body: `{"secret":"nodot"}`, status: http.StatusForbidden},
		{name: "missing token", target: "/identity/token-verify", status: http.StatusUnauthorized},
		{
			name:   "garbage token",
			target: "/identity/token-verify",
			header: http.Header{"Authorization": []string{"Bearer not-a-jwt"}},
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, tt.target, tt.body, tt.header)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
