package booking

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/planora-app/planora/internal/db"
)

// Expired identifies a pending request flipped to expired by a read path,
// so the caller can notify the client exactly once.
type Expired struct {
	ID       string
	ClientID string
}

type Repository interface {
	Insert(ctx context.Context, req *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	ListForActor(ctx context.Context, actorID string, status *Status, limit, offset int) ([]Request, error)
	// UpdateStatusIf applies from->to only if the stored status still equals
	// from, and reports whether the write took effect.
	UpdateStatusIf(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)
	// ExpireOverdue flips every overdue pending request visible to the actor
	// (or all of them when actorID is empty) and returns the rows it flipped.
	ExpireOverdue(ctx context.Context, actorID string, now time.Time) ([]Expired, error)
	VendorExists(ctx context.Context, vendorID string) (bool, error)
	// VendorServices resolves ids against the vendor's live active catalog,
	// preserving the requested order.
	VendorServices(ctx context.Context, vendorID string, serviceIDs []string) ([]SelectedService, error)
}

type postgresRepo struct{}

// NewRepository returns the pgx-backed repository over the shared pool.
func NewRepository() Repository {
	return postgresRepo{}
}

func (postgresRepo) Insert(ctx context.Context, req *Request) error {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
        INSERT INTO booking_requests (
            id, client_id, vendor_id, event_name, event_type, event_date,
            start_time, end_time, location, guest_count, notes,
            status, created_at, status_changed_at, expires_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		req.ID, req.ClientID, req.VendorID, req.EventName, req.EventType, req.EventDate,
		req.StartTime, req.EndTime, req.Location, req.GuestCount, req.Notes,
		req.Status, req.CreatedAt, req.StatusChangedAt, req.ExpiresAt,
	)
	if err != nil {
		return err
	}

	for i, svc := range req.Services {
		_, err = tx.Exec(ctx, `
            INSERT INTO booking_request_services (booking_id, position, service_id, name, price_cents)
            VALUES ($1, $2, $3, $4, $5)`,
			req.ID, i, svc.ServiceID, svc.Name, svc.PriceCents,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (postgresRepo) Get(ctx context.Context, id string) (*Request, error) {
	var req Request
	err := db.Conn.QueryRow(ctx, `
        SELECT id, client_id, vendor_id, event_name, event_type, event_date,
               start_time, end_time, location, guest_count, notes,
               status, created_at, status_changed_at, expires_at
        FROM booking_requests WHERE id = $1`, id,
	).Scan(
		&req.ID, &req.ClientID, &req.VendorID, &req.EventName, &req.EventType, &req.EventDate,
		&req.StartTime, &req.EndTime, &req.Location, &req.GuestCount, &req.Notes,
		&req.Status, &req.CreatedAt, &req.StatusChangedAt, &req.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Conn.Query(ctx, `
        SELECT service_id, name, price_cents
        FROM booking_request_services WHERE booking_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var svc SelectedService
		if err := rows.Scan(&svc.ServiceID, &svc.Name, &svc.PriceCents); err != nil {
			return nil, err
		}
		req.Services = append(req.Services, svc)
	}

	return &req, nil
}

func (postgresRepo) ListForActor(ctx context.Context, actorID string, status *Status, limit, offset int) ([]Request, error) {
	query := `
        SELECT id, client_id, vendor_id, event_name, event_type, event_date,
               start_time, end_time, location, guest_count, notes,
               status, created_at, status_changed_at, expires_at
        FROM booking_requests
        WHERE (client_id = $1 OR vendor_id = $1)`
	args := []any{actorID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`
	if status != nil {
		query += ` LIMIT $3 OFFSET $4`
	} else {
		query += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(
			&req.ID, &req.ClientID, &req.VendorID, &req.EventName, &req.EventType, &req.EventDate,
			&req.StartTime, &req.EndTime, &req.Location, &req.GuestCount, &req.Notes,
			&req.Status, &req.CreatedAt, &req.StatusChangedAt, &req.ExpiresAt,
		); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	rows.Close()

	for i := range reqs {
		svcRows, err := db.Conn.Query(ctx, `
            SELECT service_id, name, price_cents
            FROM booking_request_services WHERE booking_id = $1 ORDER BY position`, reqs[i].ID)
		if err != nil {
			return nil, err
		}
		for svcRows.Next() {
			var svc SelectedService
			if err := svcRows.Scan(&svc.ServiceID, &svc.Name, &svc.PriceCents); err != nil {
				svcRows.Close()
				return nil, err
			}
			reqs[i].Services = append(reqs[i].Services, svc)
		}
		svcRows.Close()
	}

	return reqs, nil
}

func (postgresRepo) UpdateStatusIf(ctx context.Context, id string, from, to Status, at time.Time) (bool, error) {
	res, err := db.Conn.Exec(ctx, `
        UPDATE booking_requests SET status = $1, status_changed_at = $2
        WHERE id = $3 AND status = $4`,
		to, at, id, from,
	)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (postgresRepo) ExpireOverdue(ctx context.Context, actorID string, now time.Time) ([]Expired, error) {
	query := `
        UPDATE booking_requests SET status = 'expired', status_changed_at = $1
        WHERE status = 'pending' AND expires_at <= $1`
	args := []any{now}
	if actorID != "" {
		query += ` AND (client_id = $2 OR vendor_id = $2)`
		args = append(args, actorID)
	}
	query += ` RETURNING id, client_id`

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flipped []Expired
	for rows.Next() {
		var e Expired
		if err := rows.Scan(&e.ID, &e.ClientID); err != nil {
			return nil, err
		}
		flipped = append(flipped, e)
	}
	return flipped, nil
}

func (postgresRepo) VendorExists(ctx context.Context, vendorID string) (bool, error) {
	var exists bool
	err := db.Conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM users WHERE id = $1 AND role = 'vendor' AND is_active
        )`, vendorID,
	).Scan(&exists)
	return exists, err
}

func (postgresRepo) VendorServices(ctx context.Context, vendorID string, serviceIDs []string) ([]SelectedService, error) {
	found := make(map[string]SelectedService, len(serviceIDs))
	rows, err := db.Conn.Query(ctx, `
        SELECT id, name, price_cents FROM vendor_services
        WHERE vendor_id = $1 AND status = 'active' AND id = ANY($2)`,
		vendorID, serviceIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var svc SelectedService
		if err := rows.Scan(&svc.ServiceID, &svc.Name, &svc.PriceCents); err != nil {
			return nil, err
		}
		found[svc.ServiceID] = svc
	}

	out := make([]SelectedService, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		svc, ok := found[id]
		if !ok {
			return nil, ErrServiceNotOffered
		}
		out = append(out, svc)
	}
	return out, nil
}
