package proctor

import (
	"fmt"
	"strings"
)

// Severity is a totally ordered violation class. Compare values with Compare or
// the numeric order of the constants, never by their names.
type Severity uint8

const (
	SeverityNone   Severity = 0
	SeverityLow    Severity = 1
	SeverityMedium Severity = 2
	SeverityHigh   Severity = 3
)

var SeverityMap = map[Severity]string{
	SeverityNone:   "none",
	SeverityLow:    "low",
	SeverityMedium: "medium",
	SeverityHigh:   "high",
}

func (s Severity) String() string {
	if name, ok := SeverityMap[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

func (s Severity) Value() uint8 {
	return uint8(s)
}

func (s Severity) Valid() bool {
	_, ok := SeverityMap[s]
	return ok
}

func ParseSeverity(value string) (Severity, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for sev, name := range SeverityMap {
		if name == v {
			return sev, nil
		}
	}
	return SeverityNone, fmt.Errorf("unknown severity %q", value)
}

// Compare returns -1, 0 or 1 when a ranks below, equal to or above b.
func Compare(a, b Severity) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func MaxSeverity(values ...Severity) Severity {
	highest := SeverityNone
	for _, v := range values {
		if Compare(v, highest) > 0 {
			highest = v
		}
	}
	return highest
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
