package identity

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"go.uber.org/fx"
)

func newErrorResponse(err error) protocol.HttpErrorResponse {
	return protocol.HttpErrorResponse{Message: err.Error()}
}

type identityController struct {
	directory *Directory
}

type identityRegisterRequest struct {
	DisplayName string `json:"displayName"`
}

type identityRegisterResponse struct {
	User   User   `json:"user"`
	Secret string `json:"secret"`
}

func (i *identityController) IdentityRegister(c echo.Context) error {
	req := new(identityRegisterRequest)
	if err := c.Bind(req); err != nil {
		return c.String(http.StatusBadRequest, "bad request")
	}

	user, secret, err := i.directory.Register(c.Request().Context(), req.DisplayName)
	switch {
	case errors.Is(err, ErrMissingDisplayName),
		errors.Is(err, ErrDisplayNameTooShort),
		errors.Is(err, ErrDisplayNameTooLong):
		return c.JSON(http.StatusBadRequest, newErrorResponse(err))
	case err != nil:
		return err
	}

	return c.JSON(http.StatusCreated, identityRegisterResponse{User: user, Secret: secret})
}

type identityLoginRequest struct {
	Secret string `json:"secret"`
}

type identityLoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

func (i *identityController) IdentityLogin(c echo.Context) error {
	req := new(identityLoginRequest)
	if err := c.Bind(req); err != nil {
		return c.String(http.StatusBadRequest, "bad request")
	}

	session, err := i.directory.Login(c.Request().Context(), req.Secret)
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrWrongSecret):
		return c.JSON(http.StatusForbidden, newErrorResponse(err))
	case err != nil:
		return err
	}

	return c.JSON(http.StatusOK, identityLoginResponse{User: session.User, Token: session.Token})
}

type identityTokenVerifyRequestHeader struct {
	Authorization string `header:"authorization"`
}

type identityTokenVerifyResponse struct {
	Verified bool `json:"verified"`
	User     User `json:"user"`
}

var _ErrEmptyAuthorizationHeader = errors.New("empty authorization header")

func (i *identityController) IdentityTokenVerify(c echo.Context) error {
	header := new(identityTokenVerifyRequestHeader)
	if err := (&echo.DefaultBinder{}).BindHeaders(c, header); err != nil {
		return c.String(http.StatusBadRequest, "bad request")
	}

	insecureToken := strings.TrimPrefix(header.Authorization, "Bearer ")
	if insecureToken == "" {
		return c.JSON(http.StatusUnauthorized, newErrorResponse(_ErrEmptyAuthorizationHeader))
	}

	user, err := i.directory.VerifyToken(c.Request().Context(), insecureToken)
	if err != nil {
		return c.JSON(http.StatusForbidden, newErrorResponse(err))
	}

	return c.JSON(http.StatusOK, identityTokenVerifyResponse{Verified: true, User: user})
}

func (i *identityController) Resolve(router *echo.Echo) error {
	baseURL := "/identity"

	router.POST(baseURL+"/register", i.IdentityRegister)
	router.POST(baseURL+"/login", i.IdentityLogin)
	router.POST(baseURL+"/token-verify", i.IdentityTokenVerify)

	return nil
}

var _ protocol.HttpResolvable = (*identityController)(nil)

type newIdentityControllerParams struct {
	fx.In

	Directory *Directory
}

func NewIdentityController(params newIdentityControllerParams) *identityController {
	return &identityController{
		directory: params.Directory,
	}
}
