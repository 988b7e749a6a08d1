package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func callWithRole(t *testing.T, mw echo.MiddlewareFunc, role any) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	_ = handler(c)
	return rec
}

func TestRequireRolesAllowsMatch(t *testing.T) {
	rec := callWithRole(t, RequireRoles("vendor", "admin"), "admin")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	rec := callWithRole(t, RequireRoles("admin"), "client")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())
}

func TestRequireRolesRejectsMissingRole(t *testing.T) {
	rec := callWithRole(t, RequireRoles("admin"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"access denied"}`, rec.Body.String())
}
