package arrival

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrStale marks an arrival whose timestamp is too far from the local clock
// to be trustworthy (upstream clock skew or a stale cache). Callers drop the
// record entirely rather than showing an unusable time.
var ErrStale = errors.New("arrival time outside staleness window")

// StaleSkew is the maximum allowed difference between an upstream arrival
// timestamp and the local clock before the record is discarded.
const StaleSkew = 180 * time.Minute

// agencyTimeLayout is the absolute timestamp format used by agencies that
// report local wall-clock times (e.g. CTA's "20240131 14:05:00").
const agencyTimeLayout = "20060102 15:04:05"

// Classification is the human-facing bucket for one arrival time.
type Classification struct {
	Label   string
	Minutes *int
}

// Classify buckets an absolute arrival time against now.
//
// Exact countdowns are deliberately not produced: the UI shows
// minute-granularity buckets with named states for the edges.
func Classify(arrivalAt, now time.Time) (Classification, error) {
	diff := arrivalAt.Sub(now)
	if diff > StaleSkew || diff < -StaleSkew {
		return Classification{}, ErrStale
	}

	minutes := int(math.Round(diff.Minutes()))
	c := Classification{Minutes: &minutes}
	switch {
	case minutes <= 0:
		c.Label = "Arriving"
	case minutes == 1:
		c.Label = "1 min"
	case minutes > 60:
		c.Label = "Scheduled"
	default:
		c.Label = fmt.Sprintf("%d min", minutes)
	}
	return c, nil
}

// ClassifyString parses an upstream timestamp string and buckets it.
// Accepts the fixed agency-local layout and RFC3339; loc supplies the
// agency's timezone for the local layout.
func ClassifyString(s string, loc *time.Location, now time.Time) (Classification, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(agencyTimeLayout, s, loc)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return Classification{}, fmt.Errorf("unrecognized arrival timestamp %q: %w", s, err)
		}
	}
	return Classify(t, now)
}

// LabelForMinutes buckets an already-relative minutes value, for agencies
// that report countdowns instead of absolute timestamps.
func LabelForMinutes(minutes int) string {
	switch {
	case minutes <= 0:
		return "Arriving"
	case minutes == 1:
		return "1 min"
	case minutes > 60:
		return "Scheduled"
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}

// Approaching is the label forced by an upstream "is approaching" flag,
// which takes precedence over any computed minutes.
const Approaching = "Approaching"
