// Package signature signs and verifies upload requests with HMAC-SHA256 over
// partnerID + filename + timestamp.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMismatch     = errors.New("signature mismatch")
	ErrBadTimestamp = errors.New("timestamp is not a unix seconds value")
	ErrStale        = errors.New("timestamp outside the accepted window")
)

// Sign returns the lowercase hex HMAC-SHA256 of partnerID‖filename‖timestamp.
func Sign(secret, partnerID, filename, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(partnerID + filename + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the provided hex signature in constant time. Uppercase hex
// is accepted.
func Verify(secret, partnerID, filename, timestamp, provided string) error {
	expected := Sign(secret, partnerID, filename, timestamp)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(provided)))) {
		return ErrMismatch
	}
	return nil
}

// ParseTimestamp accepts a decimal unix seconds string.
func ParseTimestamp(s string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, ErrBadTimestamp
	}
	return time.Unix(secs, 0), nil
}

// CheckSkew rejects timestamps further than maxSkew from now. A zero maxSkew
// disables the check.
func CheckSkew(ts, now time.Time, maxSkew time.Duration) error {
	if maxSkew <= 0 {
		return nil
	}
	diff := now.Sub(ts)
	if diff < 0 {
		diff = -diff
	}
	if diff > maxSkew {
		return ErrStale
	}
	return nil
}
