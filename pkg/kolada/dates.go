package kolada

import (
	"fmt"
	"time"

	"github.com/Sternrassler/kolada-client/pkg/client"
)

// dateLayout is the only date format the API accepts.
const dateLayout = "2006-01-02"

// NormalizeDate converts a date parameter into the "YYYY-MM-DD" string the
// API expects. Strings must already be in that exact format; time.Time
// values are formatted. Anything else fails validation before any request
// is made.
func NormalizeDate(v any) (string, error) {
	switch d := v.(type) {
	case string:
		if _, err := time.Parse(dateLayout, d); err != nil {
			return "", fmt.Errorf("%w: date %q is not in the format YYYY-MM-DD", client.ErrValidation, d)
		}
		return d, nil
	case time.Time:
		return d.Format(dateLayout), nil
	default:
		return "", fmt.Errorf("%w: date must be a string or time.Time, got %T", client.ErrValidation, v)
	}
}
