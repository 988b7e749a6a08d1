package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planora-app/planora/internal/config"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema.
func Init(cfg config.App) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
	)

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureUsersTable()
	ensureVendorProfileTables()
	ensureBookingTables()
	ensureConversationTables()
	ensureNotificationsTable()
}

func ensureUsersTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'client' CHECK (role IN ('client','vendor','admin')),
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure users table: %v", err)
	}
}

func ensureVendorProfileTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS vendor_profiles (
            vendor_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            business_name TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            bio TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            state TEXT NOT NULL DEFAULT '',
            service_areas TEXT[] NOT NULL DEFAULT '{}',
            instagram TEXT NOT NULL DEFAULT '',
            facebook TEXT NOT NULL DEFAULT '',
            website TEXT NOT NULL DEFAULT '',
            payment_account_ready BOOLEAN NOT NULL DEFAULT FALSE,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS vendor_services (
            id UUID PRIMARY KEY,
            vendor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            price_cents BIGINT NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','inactive')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_vendor_services_vendor ON vendor_services(vendor_id);
        CREATE TABLE IF NOT EXISTS vendor_hours (
            vendor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            weekday SMALLINT NOT NULL CHECK (weekday BETWEEN 0 AND 6),
            opens TEXT NOT NULL,
            closes TEXT NOT NULL,
            PRIMARY KEY (vendor_id, weekday)
        );
        CREATE TABLE IF NOT EXISTS vendor_gallery (
            id UUID PRIMARY KEY,
            vendor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            url TEXT NOT NULL,
            caption TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_vendor_gallery_vendor ON vendor_gallery(vendor_id);
        CREATE TABLE IF NOT EXISTS vendor_faqs (
            id UUID PRIMARY KEY,
            vendor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            question TEXT NOT NULL,
            answer TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_vendor_faqs_vendor ON vendor_faqs(vendor_id);
    `)
	if err != nil {
		log.Printf("failed to ensure vendor profile tables: %v", err)
	}
}

func ensureBookingTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS booking_requests (
            id UUID PRIMARY KEY,
            client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            vendor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            event_name TEXT NOT NULL,
            event_type TEXT NOT NULL DEFAULT '',
            event_date DATE NOT NULL,
            start_time TEXT NOT NULL DEFAULT '',
            end_time TEXT NOT NULL DEFAULT '',
            location TEXT NOT NULL DEFAULT '',
            guest_count INTEGER NOT NULL DEFAULT 0,
            notes TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
                'pending', 'accepted', 'declined', 'expired', 'cancelled', 'completed'
            )),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            status_changed_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            expires_at TIMESTAMP WITH TIME ZONE NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_booking_requests_client ON booking_requests(client_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_booking_requests_vendor ON booking_requests(vendor_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_booking_requests_pending_expiry
            ON booking_requests(expires_at) WHERE status = 'pending';
        CREATE TABLE IF NOT EXISTS booking_request_services (
            booking_id UUID NOT NULL REFERENCES booking_requests(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            service_id UUID NOT NULL,
            name TEXT NOT NULL,
            price_cents BIGINT NOT NULL,
            PRIMARY KEY (booking_id, position)
        );
    `)
	if err != nil {
		log.Printf("failed to ensure booking tables: %v", err)
	}
}

func ensureConversationTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS conversations (
            id UUID PRIMARY KEY,
            pair_key TEXT NOT NULL,
            context_id TEXT NOT NULL DEFAULT '',
            client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            peer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            peer_role TEXT NOT NULL DEFAULT 'vendor' CHECK (peer_role IN ('vendor','support')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_pair_context
            ON conversations(pair_key, context_id);
        CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            body TEXT NOT NULL,
            seq BIGSERIAL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, seq);
        CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(conversation_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		log.Printf("failed to ensure conversation tables: %v", err)
	}
}

func ensureNotificationsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            reference TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		log.Printf("failed to ensure notifications table: %v", err)
	}
}
