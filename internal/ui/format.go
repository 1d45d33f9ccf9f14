package ui

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Size formats a byte count for listings, e.g. "1.2 MB".
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Age formats t relative to now, e.g. "3 hours ago".
func Age(t time.Time) string {
	if t.IsZero() {
		return Muted.Sprint("unknown")
	}
	return humanize.Time(t)
}

// Expiry formats a share expiry for listings.
func Expiry(expiresAt *time.Time, now time.Time) string {
	if expiresAt == nil {
		return "never"
	}
	return humanize.RelTime(*expiresAt, now, "ago", "from now")
}

// Downloads formats a remaining download count. Negative means unlimited.
func Downloads(remaining int) string {
	if remaining < 0 {
		return "unlimited"
	}
	return humanize.Comma(int64(remaining))
}

// Status colors a share status: active, expired or exhausted.
func Status(status string) string {
	switch status {
	case "active":
		return Success.Sprint(status)
	case "expired":
		return Warning.Sprint(status)
	default:
		return Error.Sprint(status)
	}
}
