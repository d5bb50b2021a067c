package instrument

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

var (
	sexagesimal = regexp.MustCompile(`^([+-]?)(\d+)°(\d+)\s+(\d+(?:\.\d+)?)$`)
	legacyUVP5  = regexp.MustCompile(`^([+-]?)(\d+)\.(\d+)$`)
)

// ConvertCoordinate normalizes a latitude or longitude to decimal degrees rounded to 5 places.
//
// Accepted encodings, in order:
//  1. "±DD°MM SS": degrees, minutes and seconds. The sign of the degrees applies to the whole value, "-0°30 00" included.
//  2. UVP5 only, "DD.MMMMM": the fractional digits are minutes/100, so the value is DD + 0.MMMMM / 0.6.
//  3. a plain decimal number.
func ConvertCoordinate(raw string, family models.InstrumentFamily) (float64, error) {
	s := strings.TrimSpace(raw)

	if m := sexagesimal.FindStringSubmatch(s); m != nil {
		deg, _ := strconv.ParseFloat(m[2], 64)
		mins, _ := strconv.ParseFloat(m[3], 64)
		secs, _ := strconv.ParseFloat(m[4], 64)
		if mins >= 60 || secs >= 60 {
			return 0, fmt.Errorf("%w: coordinate %q has minutes or seconds out of range", shared.ErrParse, raw)
		}
		v := deg + mins/60 + secs/3600
		if m[1] == "-" {
			v = -v
		}
		return round5(v), nil
	}

	if family == models.FamilyUVP5 {
		if m := legacyUVP5.FindStringSubmatch(s); m != nil {
			whole, _ := strconv.ParseFloat(m[2], 64)
			frac, _ := strconv.ParseFloat("0."+m[3], 64)
			v := whole + frac/0.6
			if m[1] == "-" {
				v = -v
			}
			return round5(v), nil
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: unrecognized coordinate %q", shared.ErrParse, raw)
	}
	return round5(v), nil
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
