package auth

import "time"

const (
	// easternOffset is a fixed approximation of the provider's operating
	// timezone (US Eastern). Using a constant offset instead of a tz
	// database means we renew slightly early during EST, which is safe.
	easternOffset = -4 * time.Hour

	// inactivityWindow is the provider's idle timeout for a grant.
	inactivityWindow = 2 * time.Hour

	// StalenessWindow is the lookahead before hard expiry during which the
	// manager proactively renews rather than waiting for rejection.
	StalenessWindow = 30 * time.Minute
)

// calculateExpiry returns when a grant issued or renewed now stops being
// trusted: the provider invalidates tokens at midnight Eastern and after two
// hours of inactivity, whichever comes first.
func calculateExpiry(now time.Time) time.Time {
	nowEastern := now.UTC().Add(easternOffset)
	y, m, d := nowEastern.Date()
	nextMidnightEastern := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	midnightUTC := nextMidnightEastern.Add(-easternOffset)

	inactivityDeadline := now.Add(inactivityWindow)
	if midnightUTC.Before(inactivityDeadline) {
		return midnightUTC
	}
	return inactivityDeadline
}

// isStale reports whether a grant with the given expiry needs renewal. An
// unknown expiry counts as stale.
func isStale(now, expiresAt time.Time) bool {
	if expiresAt.IsZero() {
		return true
	}
	return !now.Before(expiresAt.Add(-StalenessWindow))
}
