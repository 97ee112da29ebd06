package pricing

import "stayfinder/internal/domain/shared/daterange"

// TotalCents quotes a stay as nights times the nightly rate. The nights
// count is floored at one so a valid range can never price to zero.
func TotalCents(r daterange.DateRange, nightlyRateCents int64) int64 {
	return int64(r.Nights()) * nightlyRateCents
}
