package countdown

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration reads HH:MM:SS, MM:SS, a bare number of minutes, or a Go
// duration string such as "1h30m".
func ParseDuration(input string) (Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Duration{}, fmt.Errorf("%w: empty input", ErrInvalidDuration)
	}

	if strings.Contains(input, ":") {
		return parseClock(input)
	}

	if minutes, err := strconv.Atoi(input); err == nil {
		d := Duration{Minutes: minutes}
		if minutes >= 60 {
			d = Duration{Hours: minutes / 60, Minutes: minutes % 60}
		}
		return d, d.Validate()
	}

	std, err := time.ParseDuration(input)
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, input)
	}
	if std < 0 {
		return Duration{}, &DurationError{Field: "duration", Value: int(std / time.Second), Err: ErrInvalidDuration}
	}
	d := FromStd(std)
	return d, d.Validate()
}

// FromStd truncates a time.Duration to whole seconds.
func FromStd(std time.Duration) Duration {
	total := int(std / time.Second)
	return Duration{
		Hours:   total / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}

func parseClock(input string) (Duration, error) {
	parts := strings.Split(input, ":")
	if len(parts) > 3 {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, input)
	}

	values := make([]int, 3)
	offset := 3 - len(parts)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, input)
		}
		values[offset+i] = v
	}

	d := Duration{Hours: values[0], Minutes: values[1], Seconds: values[2]}
	return d, d.Validate()
}
