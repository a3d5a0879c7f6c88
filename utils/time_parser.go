package utils

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ParseDuration extends time.ParseDuration with days (d) and weeks (w).
// A bare integer is read as seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return scale(n, time.Second, s)
	}
	for suffix, unit := range map[string]time.Duration{"d": 24 * time.Hour, "w": 7 * 24 * time.Hour} {
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSuffix(s, suffix), 10, 64)
		if err != nil {
			return 0, errors.Errorf("invalid %s value: %s", suffix, s)
		}
		return scale(n, unit, s)
	}
	d, err := time.ParseDuration(s)
	return d, errors.Wrapf(err, "invalid duration %q", s)
}

// scale multiplies n by unit, failing instead of wrapping around.
func scale(n int64, unit time.Duration, s string) (time.Duration, error) {
	if n > math.MaxInt64/int64(unit) || n < math.MinInt64/int64(unit) {
		return 0, errors.Errorf("duration %q is out of range", s)
	}
	return time.Duration(n) * unit, nil
}

// FormatDuration renders a duration in the largest whole units, e.g. 1d2h.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Truncate(time.Second)
	var b strings.Builder
	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
	}
	for _, u := range units {
		if n := d / u.unit; n > 0 {
			b.WriteString(strconv.FormatInt(int64(n), 10))
			b.WriteString(u.suffix)
			d -= n * u.unit
		}
	}
	return b.String()
}
