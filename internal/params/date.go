package params

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DateLayout is the ISO form sent upstream.
const DateLayout = "2006-01-02"

// inputLayout also accepts months and days without a leading zero.
const inputLayout = "2006-1-2"

// serialEpoch is serial day 1 of the spreadsheet date system.
var serialEpoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Serial day numbers must land in years 1 through 9999.
var (
	minSerial = serialDay(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC))
	maxSerial = serialDay(time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)) + 1
)

func serialDay(t time.Time) float64 {
	return float64((t.Unix()-serialEpoch.Unix())/86400) + 1
}

// Date is a date bound. Values that are neither ISO strings nor serial day
// numbers are kept as given in Raw and forwarded verbatim.
type Date struct {
	Time time.Time
	Raw  any
}

// FromSerial converts a spreadsheet serial day number to a time: 1 is
// 1900-01-01 and the fractional part is the time of day.
func FromSerial(days float64) time.Time {
	whole := math.Floor(days)
	frac := days - whole
	t := serialEpoch.AddDate(0, 0, int(whole)-1)
	return t.Add(time.Duration(frac * float64(24*time.Hour)))
}

// ParseDate accepts an ISO YYYY-MM-DD string or a serial day number. Other
// scalar values, booleans included, are passed through unchanged.
func ParseDate(field string, v any) (Date, error) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(inputLayout, strings.TrimSpace(t))
		if err != nil {
			return Date{}, invalid(field, "expected a YYYY-MM-DD date, got %q", t)
		}
		return Date{Time: parsed}, nil
	case json.Number:
		days, err := t.Float64()
		if err != nil {
			return Date{}, invalid(field, "bad serial date %q", t.String())
		}
		return fromSerial(field, days)
	case float64, float32, int, int32, int64:
		return fromSerial(field, cast.ToFloat64(t))
	case time.Time:
		return Date{Time: t}, nil
	case []any, map[string]any:
		return Date{}, invalid(field, "expected a date, got %T", v)
	default:
		return Date{Raw: v}, nil
	}
}

func fromSerial(field string, days float64) (Date, error) {
	if math.IsNaN(days) || days < minSerial || days >= maxSerial {
		return Date{}, invalid(field, "serial date %v is out of range", days)
	}
	return Date{Time: FromSerial(days)}, nil
}

// IsRaw reports whether the date was passed through without conversion.
func (d Date) IsRaw() bool {
	return d.Raw != nil
}

// String renders the date in the form sent upstream.
func (d Date) String() string {
	if d.IsRaw() {
		return cast.ToString(d.Raw)
	}
	return d.Time.Format(DateLayout)
}
