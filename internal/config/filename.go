package config

import (
	"regexp"
	"strconv"
)

// Statement filenames start with a YYMM period prefix, e.g.
// "2501 FMX BBVA MXN.pdf" for January 2025.
var filenamePeriod = regexp.MustCompile(`^(\d{2})(\d{2})\s+.*\.pdf$`)

// ParseFilenamePeriod extracts the statement year and month from a filename's
// YYMM prefix. It returns ok=false for filenames without the prefix or with a
// month outside 1..12.
func ParseFilenamePeriod(filename string) (year, month int, ok bool) {
	m := filenamePeriod.FindStringSubmatch(filename)
	if m == nil {
		return 0, 0, false
	}
	yy, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm < 1 || mm > 12 {
		return 0, 0, false
	}
	return 2000 + yy, mm, true
}
