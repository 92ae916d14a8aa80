package utils

import (
	"fmt"
	"strings"
	"time"
)

// string used to format Go ISO times
const ISOFormat = "2006-01-02T15:04:05.000Z"

// ISO-8601 layouts accepted for the TIME parameter, from most to
// least specific.
var isoLayouts = []string{
	ISOFormat,
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006-01-02",
}

// ParseISOTime parses one ISO-8601 token into a UTC timestamp.
func ParseISOTime(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %s as an ISO-8601 time", token)
}

// ParseTimeInstants parses a comma separated list of ISO-8601
// instants.
func ParseTimeInstants(value string) ([]time.Time, error) {
	tokens := strings.Split(value, ",")
	instants := make([]time.Time, 0, len(tokens))
	for _, token := range tokens {
		t, err := ParseISOTime(token)
		if err != nil {
			return nil, err
		}
		instants = append(instants, t)
	}
	return instants, nil
}

// ParseTimeRanges parses a comma separated list of start/end or
// start/end/res ranges. The optional period resolution is parsed for
// syntax but not consumed; the server serves whatever acquisitions
// fall inside the range.
func ParseTimeRanges(value string) ([][2]time.Time, error) {
	tokens := strings.Split(value, ",")
	ranges := make([][2]time.Time, 0, len(tokens))
	for _, token := range tokens {
		parts := strings.Split(token, "/")
		if len(parts) != 2 && len(parts) != 3 {
			return nil, fmt.Errorf("time range %s is not of the form start/end", token)
		}
		start, err := ParseISOTime(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := ParseISOTime(parts[1])
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, [2]time.Time{start, end})
	}
	return ranges, nil
}
