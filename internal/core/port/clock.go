package port

import "time"

// Clock abstracts the time source so stores and guards are testable without
// sleeping.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}
