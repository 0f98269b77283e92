package catalog

import "regexp"

var durationPattern = regexp.MustCompile(`(?i)^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration converts an ISO-8601 style duration ("PT1H2M3S", all
// components optional) into total seconds. It returns false when the string
// does not match the grammar.
func ParseDuration(s string) (int, bool) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, false
	}
	total := atoi(m[1])*3600 + atoi(m[2])*60 + atoi(m[3])
	return total, true
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
