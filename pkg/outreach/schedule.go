package outreach

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Schedule yields the next run time strictly after a given instant.
type Schedule interface {
	Next(after time.Time) (time.Time, error)
	String() string
}

type every time.Duration

// Every runs at a fixed interval.
func Every(d time.Duration) Schedule {
	return every(d)
}

func (e every) Next(after time.Time) (time.Time, error) {
	return after.Add(time.Duration(e)), nil
}

func (e every) String() string {
	return "every " + time.Duration(e).String()
}

type cronSchedule string

// Cron runs on a cron expression or tag such as "@hourly".
func Cron(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	g := gronx.New()
	if !g.IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression %q", expr)
	}
	return cronSchedule(expr), nil
}

func (c cronSchedule) Next(after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(string(c), after, false)
}

func (c cronSchedule) String() string {
	return "cron " + string(c)
}

// ParseSchedule accepts a positive Go duration ("1h", "90m") or a cron
// expression ("0 */3 * * *", "@hourly").
func ParseSchedule(s string) (Schedule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive, got %s", d)
		}
		return Every(d), nil
	}
	return Cron(s)
}
