package schedule

import (
	"fmt"
	"time"

	"github.com/hashicorp/cronexpr"
)

// NextRunTimes returns the next count run times of a cron expression,
// starting from the current time. Run times are in UTC.
func NextRunTimes(cron string, count int) ([]time.Time, error) {
	return NextRunTimesAfter(cron, time.Now().UTC(), count)
}

// NextRunTimesAfter returns the next count run times of a cron
// expression strictly after a given time.
func NextRunTimesAfter(cron string, after time.Time, count int) ([]time.Time, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be greater than 0")
	}
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return nil, err
	}
	return expr.NextN(after, uint(count)), nil
}

// ValidateCron checks that a cron expression parses. The error message
// is fit for showing to whoever typed the expression.
func ValidateCron(cron string) error {
	if _, err := cronexpr.Parse(cron); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
