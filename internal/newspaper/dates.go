package newspaper

import (
	"strings"
	"time"
)

// German month names as they appear on archive pages.
var germanMonths = map[string]time.Month{
	"januar":    time.January,
	"februar":   time.February,
	"märz":      time.March,
	"april":     time.April,
	"mai":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"dezember":  time.December,
}

func germanMonth(name string) (time.Month, bool) {
	month, ok := germanMonths[strings.ToLower(strings.TrimSpace(name))]
	return month, ok
}

func berlin() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.UTC
	}
	return loc
}
