package setup

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/planora-app/planora/internal/db"
)

// GetMySetup serves the authenticated vendor's own onboarding checklist.
func GetMySetup(c echo.Context) error {
	vendorID, ok := c.Get("user_id").(string)
	if !ok || vendorID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	snap, err := LoadSnapshot(context.Background(), vendorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}
	return c.JSON(http.StatusOK, Evaluate(snap))
}

// GetVendorSetup serves the onboarding checklist for any vendor, for
// support staff investigating a listing complaint.
func GetVendorSetup(c echo.Context) error {
	vendorID := c.Param("id")
	if vendorID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing vendor id"})
	}

	ctx := context.Background()
	var exists bool
	err := db.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = 'vendor')`, vendorID,
	).Scan(&exists)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to look up vendor"})
	}
	if !exists {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "vendor not found"})
	}

	snap, err := LoadSnapshot(ctx, vendorID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}

	return c.JSON(http.StatusOK, Evaluate(snap))
}
