package pretty

import (
	"fmt"
	"time"
)

// SinceString returns a compact string representation of the time elapsed
// since t.
func SinceString(t time.Time) string {
	d := time.Since(t).Round(time.Second)
	if d < 0 {
		d = 0
	}

	day := 24 * time.Hour
	if d < day {
		return d.String()
	}

	days := d / day
	rest := (d - days*day).Round(time.Minute)
	if rest == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%s", days, rest)
}
