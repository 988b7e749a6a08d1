package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/planora-app/planora/internal/db"
)

// effectiveStatus derives the status a booking row is in right now: an
// overdue pending row reads as expired even before a corrective write has
// flipped it. Admin reads share the lazy-expiry view the client and vendor
// paths get.
const effectiveStatus = `CASE WHEN status = 'pending' AND expires_at <= NOW() THEN 'expired' ELSE status END`

// Stats returns headline platform counters for the admin dashboard.
func Stats(c echo.Context) error {
	ctx := context.Background()

	var totalUsers, totalVendors, totalBookings, pendingBookings, acceptedBookings int64
	err := db.Conn.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM users WHERE role = 'vendor'),
            (SELECT COUNT(*) FROM booking_requests),
            (SELECT COUNT(*) FROM booking_requests WHERE status = 'pending' AND expires_at > NOW()),
            (SELECT COUNT(*) FROM booking_requests WHERE status = 'accepted')`,
	).Scan(&totalUsers, &totalVendors, &totalBookings, &pendingBookings, &acceptedBookings)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load stats"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_users":       totalUsers,
		"total_vendors":     totalVendors,
		"total_bookings":    totalBookings,
		"pending_bookings":  pendingBookings,
		"accepted_bookings": acceptedBookings,
	})
}

// ListUsers pages through every account, newest first.
func ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id, name, email, role, is_active, created_at
        FROM users ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
	}
	defer rows.Close()

	type userRow struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Email     string    `json:"email"`
		Role      string    `json:"role"`
		IsActive  bool      `json:"is_active"`
		CreatedAt time.Time `json:"created_at"`
	}
	users := []userRow{}
	for rows.Next() {
		var u userRow
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list users"})
		}
		users = append(users, u)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users, "page": page})
}

// ListBookings pages through every booking request with an optional status
// filter, for support investigations.
func ListBookings(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}

	query, args := listBookingsQuery(c.QueryParam("status"), perPage, (page-1)*perPage)

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list bookings"})
	}
	defer rows.Close()

	type bookingRow struct {
		ID        string    `json:"id"`
		ClientID  string    `json:"client_id"`
		VendorID  string    `json:"vendor_id"`
		EventName string    `json:"event_name"`
		Status    string    `json:"status"`
		EventDate time.Time `json:"event_date"`
		CreatedAt time.Time `json:"created_at"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	bookings := []bookingRow{}
	for rows.Next() {
		var b bookingRow
		if err := rows.Scan(&b.ID, &b.ClientID, &b.VendorID, &b.EventName, &b.Status, &b.EventDate, &b.CreatedAt, &b.ExpiresAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list bookings"})
		}
		bookings = append(bookings, b)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings, "page": page})
}

// listBookingsQuery selects booking rows with the derived status, so a
// status filter matches what the row reads as, not a stale stored value.
func listBookingsQuery(status string, limit, offset int) (string, []any) {
	query := `
        SELECT id, client_id, vendor_id, event_name, ` + effectiveStatus + ` AS status,
               event_date, created_at, expires_at
        FROM booking_requests`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += ` WHERE ` + effectiveStatus + ` = $1`
	}
	args = append(args, limit, offset)
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)-1) +
		" OFFSET $" + strconv.Itoa(len(args))
	return query, args
}

// SuspendUser deactivates an account. Suspended users cannot log in.
func SuspendUser(c echo.Context) error {
	return setUserActive(c, false, "user suspended")
}

// ActivateUser reinstates a suspended account.
func ActivateUser(c echo.Context) error {
	return setUserActive(c, true, "user activated")
}

func setUserActive(c echo.Context, active bool, message string) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	tag, err := db.Conn.Exec(context.Background(),
		`UPDATE users SET is_active = $1 WHERE id = $2 AND role <> 'admin'`, active, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update user"})
	}
	if tag.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": message})
}
