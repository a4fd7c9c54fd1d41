package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagen/goodytv/internal/models"
	"github.com/voyagen/goodytv/internal/payment"
)

// Postgres keeps one license row per device. Records are never expired.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Put inserts or replaces the license for lic.DeviceID and, for the first
// Put of a session, records it in checkout_sessions. Both writes share a
// transaction.
func (p *Postgres) Put(ctx context.Context, lic models.IssuedLicense) error {
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO licenses (device_id, license_key, issued_at, session_id, email)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (device_id) DO UPDATE SET
			   license_key = EXCLUDED.license_key,
			   issued_at   = EXCLUDED.issued_at,
			   session_id  = EXCLUDED.session_id,
			   email       = EXCLUDED.email`,
			lic.DeviceID, lic.LicenseKey, lic.IssuedAt, lic.SessionID, lic.Email,
		); err != nil {
			return err
		}
		if lic.SessionID == "" {
			return nil
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO checkout_sessions (session_id, device_id, license_key, issued_at, email)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (session_id) DO NOTHING`,
			lic.SessionID, lic.DeviceID, lic.LicenseKey, lic.IssuedAt, lic.Email,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}
	return nil
}

// GetByKey returns the license for deviceID or payment.ErrNotFound.
func (p *Postgres) GetByKey(ctx context.Context, deviceID string) (*models.IssuedLicense, error) {
	var lic models.IssuedLicense
	err := p.pool.QueryRow(ctx,
		`SELECT device_id, license_key, issued_at, session_id, email
		 FROM licenses WHERE device_id = $1`,
		deviceID,
	).Scan(&lic.DeviceID, &lic.LicenseKey, &lic.IssuedAt, &lic.SessionID, &lic.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetByKey: %w", err)
	}
	lic.IssuedAt = lic.IssuedAt.UTC()
	return &lic, nil
}

// GetBySession returns the license first issued for sessionID or
// payment.ErrNotFound.
func (p *Postgres) GetBySession(ctx context.Context, sessionID string) (*models.IssuedLicense, error) {
	lic := models.IssuedLicense{SessionID: sessionID}
	err := p.pool.QueryRow(ctx,
		`SELECT device_id, license_key, issued_at, email
		 FROM checkout_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&lic.DeviceID, &lic.LicenseKey, &lic.IssuedAt, &lic.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetBySession: %w", err)
	}
	lic.IssuedAt = lic.IssuedAt.UTC()
	return &lic, nil
}
