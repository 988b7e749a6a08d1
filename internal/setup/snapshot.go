package setup

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/planora-app/planora/internal/db"
)

// LoadSnapshot reads the vendor's profile fragments into a Snapshot.
// A vendor without a profile row gets a zero snapshot, which Evaluate
// reports as entirely incomplete.
func LoadSnapshot(ctx context.Context, vendorID string) (Snapshot, error) {
	var s Snapshot

	err := db.Conn.QueryRow(ctx, `
        SELECT business_name, category, city, state, service_areas,
               instagram, facebook, website, payment_account_ready
        FROM vendor_profiles WHERE vendor_id = $1
    `, vendorID).Scan(
		&s.BusinessName, &s.Category, &s.City, &s.State, &s.ServiceAreas,
		&s.Instagram, &s.Facebook, &s.Website, &s.PaymentAccountReady,
	)
	if err != nil && err != pgx.ErrNoRows {
		return Snapshot{}, err
	}

	rows, err := db.Conn.Query(ctx, `
        SELECT name, price_cents, status = 'active' FROM vendor_services WHERE vendor_id = $1
    `, vendorID)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var f ServiceFragment
		if err := rows.Scan(&f.Name, &f.PriceCents, &f.Active); err != nil {
			return Snapshot{}, err
		}
		s.Services = append(s.Services, f)
	}
	rows.Close()

	if err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM vendor_hours WHERE vendor_id = $1`, vendorID,
	).Scan(&s.HoursCount); err != nil {
		return Snapshot{}, err
	}
	if err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM vendor_gallery WHERE vendor_id = $1`, vendorID,
	).Scan(&s.GalleryCount); err != nil {
		return Snapshot{}, err
	}

	faqRows, err := db.Conn.Query(ctx,
		`SELECT question, answer FROM vendor_faqs WHERE vendor_id = $1`, vendorID)
	if err != nil {
		return Snapshot{}, err
	}
	defer faqRows.Close()
	for faqRows.Next() {
		var f FAQFragment
		if err := faqRows.Scan(&f.Question, &f.Answer); err != nil {
			return Snapshot{}, err
		}
		s.FAQs = append(s.FAQs, f)
	}

	return s, nil
}

// Checker answers the listing/booking gate: can this vendor receive requests?
type Checker struct{}

func (Checker) IsComplete(ctx context.Context, vendorID string) (bool, error) {
	snap, err := LoadSnapshot(ctx, vendorID)
	if err != nil {
		return false, err
	}
	return Evaluate(snap).IsComplete, nil
}
