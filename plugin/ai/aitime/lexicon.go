package aitime

import "strings"

var (
	monthNames = []string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	}
	monthAbbrevs = []string{
		"jan", "feb", "mar", "apr", "may", "jun",
		"jul", "aug", "sep", "oct", "nov", "dec",
	}

	// Sunday first, matching time.Weekday.
	weekdayNames = []string{
		"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
	}
	weekdayAbbrevs = []string{
		"sun", "mon", "tue", "wed", "thu", "fri", "sat",
	}
)

// MonthIndex maps a month name or abbreviation to 0..11, or -1.
//
// An empty string is a prefix of every name, so it resolves to 0.
func MonthIndex(name string) int {
	return lookupName(name, monthNames, monthAbbrevs)
}

// DayOfWeekIndex maps a weekday name or abbreviation to 0..6 (0 = Sunday), or -1.
//
// An empty string is a prefix of every name, so it resolves to 0.
func DayOfWeekIndex(name string) int {
	return lookupName(name, weekdayNames, weekdayAbbrevs)
}

// lookupName tries exact full names, then exact abbreviations, then the
// first name or abbreviation starting with the text.
func lookupName(name string, full, abbrevs []string) int {
	name = strings.ToLower(strings.TrimSpace(name))

	for i, n := range full {
		if n == name {
			return i
		}
	}
	for i, a := range abbrevs {
		if a == name {
			return i
		}
	}
	for i := range full {
		if strings.HasPrefix(full[i], name) || strings.HasPrefix(abbrevs[i], name) {
			return i
		}
	}
	return -1
}
