// Package license derives and checks device license keys.
package license

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Salt is mixed into every derived key.
const Salt = "GOODY2024"

// KeyLength is the number of hex characters in a license key.
const KeyLength = 16

// DeriveKey maps a device and issuance instant to a license key. The instant
// contributes at millisecond precision, so the same (deviceID, issuedAt)
// always yields the same key.
func DeriveKey(deviceID string, issuedAt time.Time) string {
	input := deviceID + "-" + strconv.FormatInt(issuedAt.UnixMilli(), 10) + "-" + Salt
	sum := sha256.Sum256([]byte(input))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:KeyLength])
}

// Normalize trims and uppercases a user-entered code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code (after normalization) has the shape of a
// derived key.
func Valid(code string) bool {
	code = Normalize(code)
	if len(code) != KeyLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
