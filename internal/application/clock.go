package application

import "time"

// Clock dipakai service supaya waktu bisa dikontrol di test
type Clock interface {
	Now() time.Time
}

// SystemClock pakai time.Now(); semua timestamp scan disimpan dalam UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock selalu mengembalikan waktu yang sama
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// DaysAgo returns the cut-off time for "last N days" queries.
func DaysAgo(c Clock, days int) time.Time {
	return c.Now().AddDate(0, 0, -days)
}
