package filters

import (
	"math"
	"strings"
	"time"

	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
)

// Layouts accepted for string dates. Values without a zone are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02",
}

// ToTime interprets v as a point in time. Accepted are time.Time, *time.Time,
// strings in the layouts above, and integer Unix seconds. Anything else is a
// filter input error, the same error for the same input.
func ToTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, sberrors.FilterInput(PostDateName, v)
		}
		return t, nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, sberrors.FilterInput(PostDateName, v)
		}
		return *t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return parsed, nil
			}
		}
	case int:
		return time.Unix(int64(t), 0).UTC(), nil
	case int32:
		return time.Unix(int64(t), 0).UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case uint64:
		if t <= math.MaxInt64 {
			return time.Unix(int64(t), 0).UTC(), nil
		}
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return time.Unix(int64(t), 0).UTC(), nil
		}
	}
	return time.Time{}, sberrors.FilterInput(PostDateName, v)
}
