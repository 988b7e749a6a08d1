package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/planora-app/planora/internal/db"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"`
}

type SignupResponse struct {
	Token string `json:"token"`
}

// ===== Signup =====
func Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	role := req.Role
	if role == "" {
		role = "client"
	}
	if role != "client" && role != "vendor" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be client or vendor"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	conn := db.Conn
	ctx := context.Background()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db transaction error"})
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, uuid.New().String(), req.Name, req.Email, string(hashed), role).Scan(&userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already exists"})
	}

	// Vendors get an empty profile shell so the setup checklist has a row to read
	if role == "vendor" {
		_, err = tx.Exec(ctx, `
			INSERT INTO vendor_profiles (vendor_id, updated_at)
			VALUES ($1, $2)
		`, userID, time.Now())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "profile creation failed"})
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction failed"})
	}

	signed, err := SignToken(userID, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	return c.JSON(http.StatusOK, SignupResponse{Token: signed})
}
