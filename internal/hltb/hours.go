package hltb

import (
	"regexp"
	"strconv"
	"strings"
)

// Time strings on HowLongToBeat come in several notations: "8 Hours",
// "8½ Hours", "10-12 Hours", "50 Mins", "1h 30m", "2.5 Hours". The
// patterns below cover all of them; anything else is "no data".
var (
	compoundPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*h(?:ours?|rs?)?\s+(\d+)\s*m(?:ins?|inutes?)?$`)
	rangePattern    = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)(?:\s*h(?:ours?|rs?)?)?$`)
	minutesPattern  = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*m(?:ins?|inutes?)?$`)
	hoursPattern    = regexp.MustCompile(`^(\d+(?:\.\d+)?)(?:\s*h(?:ours?|rs?)?)?$`)

	fractionReplacer = strings.NewReplacer("½", ".5", "¼", ".25", "¾", ".75")
)

// ParseTimeString converts an HLTB time string into fractional hours.
// Placeholders and unparsable text yield nil, never zero, and parsing
// never panics.
func ParseTimeString(raw string) *float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "-", "--", "n/a", "tbd":
		return nil
	}

	// "8½" style fractions become plain decimals first.
	s = fractionReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	if m := compoundPattern.FindStringSubmatch(s); m != nil {
		hours, err1 := strconv.ParseFloat(m[1], 64)
		mins, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		return Hours(hours + mins/60)
	}

	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		return Hours((lo + hi) / 2)
	}

	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		mins, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil
		}
		return Hours(mins / 60)
	}

	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err != nil || hours < 0 {
			return nil
		}
		return Hours(hours)
	}

	return nil
}

// SecondsToHours converts the API's seconds fields into fractional
// hours. Zero or negative seconds means no recorded data.
func SecondsToHours(seconds float64) *float64 {
	if seconds <= 0 {
		return nil
	}
	return Hours(seconds / 3600)
}
