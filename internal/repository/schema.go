package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func InitializeDBSchema(db *sqlx.DB) error {
	_, err := db.ExecContext(context.Background(), `
CREATE TABLE IF NOT EXISTS tickets (
	id UUID PRIMARY KEY,
	order_id BIGINT NOT NULL,
	order_number BIGINT NOT NULL,
	ticket_id VARCHAR(255) NOT NULL UNIQUE,
	customer_email VARCHAR(255) NOT NULL,
	ticket_title VARCHAR(255) NOT NULL,
	quantity INTEGER NOT NULL DEFAULT 1,
	price_amount NUMERIC(10, 2) NOT NULL,
	price_currency CHAR(3) NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'validated', 'used', 'expired')),
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	validated_at TIMESTAMP WITH TIME ZONE,
	used_at TIMESTAMP WITH TIME ZONE,
	validated_by VARCHAR(255)
);`)
	if err != nil {
		return fmt.Errorf("failed to create tickets table: %w", err)
	}

	_, err = db.ExecContext(context.Background(), `
CREATE TABLE IF NOT EXISTS ticket_validations (
	id UUID PRIMARY KEY,
	ticket_id VARCHAR(255) NOT NULL REFERENCES tickets (ticket_id),
	validated_by VARCHAR(255) NOT NULL,
	validated_at TIMESTAMP WITH TIME ZONE NOT NULL,
	notes TEXT
);`)
	if err != nil {
		return fmt.Errorf("failed to create ticket_validations table: %w", err)
	}

	_, err = db.ExecContext(context.Background(), `
CREATE INDEX IF NOT EXISTS idx_tickets_order_number ON tickets (order_number);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status);
CREATE INDEX IF NOT EXISTS idx_tickets_customer_email ON tickets (customer_email);
CREATE INDEX IF NOT EXISTS idx_ticket_validations_ticket_id ON ticket_validations (ticket_id);`)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
