package roverpanel

import (
	"sort"
	"strings"
	"time"
)

// DisplayLayout renders timestamps as es-MX does with 24h clock.
const DisplayLayout = "02/01/2006, 15:04:05"

// Layouts without a zone are read as UTC.
var utcLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTimestamp parses a server timestamp. "YYYY-MM-DD HH:mm:ss" and ISO
// forms without a zone are UTC. It returns false for empty or unknown input.
func ParseTimestamp(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range utcLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders t in loc with DisplayLayout.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}

// FormatLocal renders a server timestamp in loc, or "" when it does not parse.
func FormatLocal(value string, loc *time.Location) string {
	t, ok := ParseTimestamp(value)
	if !ok {
		return ""
	}
	return FormatTime(t, loc)
}

// SortDescBy returns a copy of items ordered newest first by the timestamp
// key returns. The sort is stable and unparseable timestamps count as the
// Unix epoch.
func SortDescBy[T any](items []T, key func(T) string) []T {
	type keyed struct {
		item T
		at   int64
	}

	ks := make([]keyed, len(items))
	for i, item := range items {
		var at int64
		if t, ok := ParseTimestamp(key(item)); ok {
			at = t.UnixMilli()
		}
		ks[i] = keyed{item: item, at: at}
	}

	sort.SliceStable(ks, func(i, j int) bool {
		return ks[i].at > ks[j].at
	})

	out := make([]T, len(ks))
	for i, k := range ks {
		out[i] = k.item
	}
	return out
}
