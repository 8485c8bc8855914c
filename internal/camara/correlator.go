package camara

import (
	"fmt"
	"time"
)

// NewCorrelator builds the x-correlator value sent with every live request:
// aeterna-<UTC timestamp>-<microsecond fraction>.
func NewCorrelator(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("aeterna-%s-%06d", now.Format("20060102T150405Z"), now.Nanosecond()/1000)
}
