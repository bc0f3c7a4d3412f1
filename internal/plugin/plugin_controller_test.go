package plugin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestPluginController(t *testing.T) {
	req := require.New(t)
	r := newTestRegistry()
	req.NoError(r.Install(context.Background(), whiteboard))

	router := echo.New()
	req.NoError(NewPluginController(newPluginControllerParams{Registry: r}).Resolve(router))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plugins", nil))
	req.Equal(http.StatusOK, rec.Code)

	var list pluginListResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &list))
	req.Equal([]Plugin{whiteboard}, list.Plugins)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plugins/whiteboard", nil))
	req.Equal(http.StatusOK, rec.Code)

	var got Plugin
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	req.Equal(whiteboard, got)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plugins/missing", nil))
	req.Equal(http.StatusNotFound, rec.Code)
}
