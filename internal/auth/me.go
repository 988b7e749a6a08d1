package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/planora-app/planora/internal/db"
)

// Me returns the authenticated user's account record.
func Me(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var (
		name      string
		email     string
		role      string
		isActive  bool
		createdAt time.Time
	)
	err := db.Conn.QueryRow(context.Background(), `
        SELECT name, email, role, is_active, created_at FROM users WHERE id = $1
    `, userID).Scan(&name, &email, &role, &isActive, &createdAt)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":         userID,
		"name":       name,
		"email":      email,
		"role":       role,
		"is_active":  isActive,
		"created_at": createdAt.UTC().Format(time.RFC3339),
	})
}
