// Package strx holds the handful of string helpers small enough that
// pulling in a whole helper library for them would cost more (in MCU binary
// size) than writing them out by hand.
package strx

// Coalesce returns primary unless it is empty, in which case it returns
// fallback. Used for config fields the caller may leave blank, e.g.
// defaulting the serial device path to the platform's conventional port.
func Coalesce(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// FirstNonEmpty generalizes Coalesce to any number of candidates, returning
// the first non-empty one or "" if every candidate is empty.
func FirstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
