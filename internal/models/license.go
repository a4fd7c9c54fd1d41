package models

import "time"

// IssuedLicense is the server-side record of a key minted for a device.
type IssuedLicense struct {
	DeviceID   string    `json:"device_id"`
	LicenseKey string    `json:"license_key"`
	IssuedAt   time.Time `json:"issued_at"`
	SessionID  string    `json:"session_id,omitempty"` // checkout session that paid for it
	Email      string    `json:"email,omitempty"`
}
