package instrument

import (
	"fmt"
	"strings"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

var samplingDateLayouts = []string{"20060102150405", "20060102-150405"}

// ParseSamplingDate parses an instrument timestamp as UTC.
func ParseSamplingDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range samplingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized sampling date %q", shared.ErrParse, raw)
}
