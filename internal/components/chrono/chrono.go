package chrono

import "time"

// DateLayout is the fixed 8-digit calendar day used by documents and showtimes.
const DateLayout = "20060102"

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Location().
	Now() time.Time
	Location() *time.Location
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl creates a clock in the given IANA timezone, ticketing sites list
// showtimes in their local day so the date window must be computed there too.
func NewStandardImpl(timezone string) (StandardImpl, error) {
	if timezone == "" {
		timezone = "Asia/Kolkata"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, it exists for tests.
type FixedImpl struct {
	Time time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Time
}

func (f FixedImpl) Location() *time.Location {
	return f.Time.Location()
}

// DateWindow returns `days` consecutive dates starting at the day of `now`.
func DateWindow(now time.Time, days int) []string {
	if days <= 0 {
		return nil
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	out := make([]string, days)
	for i := 0; i < days; i++ {
		out[i] = start.AddDate(0, 0, i).Format(DateLayout)
	}
	return out
}
