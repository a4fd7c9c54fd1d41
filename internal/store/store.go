// Package store holds the durable license stores: Postgres via pgx, with an
// optional Redis read-through layer in front.
package store

import "github.com/voyagen/goodytv/internal/payment"

var (
	_ payment.LicenseStore = (*Postgres)(nil)
	_ payment.LicenseStore = (*CachedLicenseStore)(nil)
)
