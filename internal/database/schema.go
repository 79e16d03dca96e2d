package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the concerts, tickets and orders tables.  Statements are
// idempotent so Migrate may run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS concerts (
		id                 BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		promoter_id        BIGINT UNSIGNED NOT NULL,
		title              VARCHAR(255) NOT NULL,
		subtitle           VARCHAR(255) NOT NULL DEFAULT '',
		venue              VARCHAR(255) NOT NULL DEFAULT '',
		city               VARCHAR(255) NOT NULL DEFAULT '',
		date               DATETIME NOT NULL,
		ticket_price_cents BIGINT NOT NULL,
		published_at       DATETIME NULL,
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_concerts_promoter (promoter_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		confirmation_number VARCHAR(64) NOT NULL,
		concert_id          BIGINT UNSIGNED NOT NULL,
		email               VARCHAR(255) NOT NULL,
		amount_cents        BIGINT NOT NULL,
		card_last_four      CHAR(4) NOT NULL DEFAULT '',
		created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_orders_confirmation (confirmation_number),
		KEY idx_orders_concert_email (concert_id, email),
		CONSTRAINT fk_orders_concert FOREIGN KEY (concert_id) REFERENCES concerts (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		concert_id  BIGINT UNSIGNED NOT NULL,
		order_id    BIGINT UNSIGNED NULL,
		status      ENUM('AVAILABLE','RESERVED','SOLD') NOT NULL DEFAULT 'AVAILABLE',
		code        VARCHAR(64) NULL,
		reserved_at DATETIME NULL,
		UNIQUE KEY uq_tickets_code (code),
		KEY idx_tickets_concert_status (concert_id, status, id),
		KEY idx_tickets_order (order_id),
		CONSTRAINT fk_tickets_concert FOREIGN KEY (concert_id) REFERENCES concerts (id),
		CONSTRAINT fk_tickets_order FOREIGN KEY (order_id) REFERENCES orders (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
