package countdown

import (
	"fmt"
	"math"
	"time"
)

const (
	hourMillis   = 3600000
	minuteMillis = 60000
	secondMillis = 1000
)

// maxMillis is the longest run whose length still fits in a time.Duration.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// Duration is the countdown length a caller asks for.
type Duration struct {
	Hours   int
	Minutes int
	Seconds int
}

func (d Duration) IsZero() bool {
	return d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0
}

// Validate rejects negative components, the all-zero duration and lengths
// that do not fit in a time.Duration. Display-range limits are left to the
// caller.
func (d Duration) Validate() error {
	switch {
	case d.Hours < 0 || int64(d.Hours) > maxMillis/hourMillis:
		return &DurationError{Field: "hours", Value: d.Hours, Err: ErrInvalidDuration}
	case d.Minutes < 0 || int64(d.Minutes) > maxMillis/minuteMillis:
		return &DurationError{Field: "minutes", Value: d.Minutes, Err: ErrInvalidDuration}
	case d.Seconds < 0 || int64(d.Seconds) > maxMillis/secondMillis:
		return &DurationError{Field: "seconds", Value: d.Seconds, Err: ErrInvalidDuration}
	case d.IsZero():
		return &DurationError{Err: fmt.Errorf("%w: zero length", ErrInvalidDuration)}
	case d.Millis() > maxMillis:
		return &DurationError{Err: fmt.Errorf("%w: longer than %s", ErrInvalidDuration, time.Duration(math.MaxInt64).Truncate(time.Second))}
	}
	return nil
}

func (d Duration) Millis() int64 {
	return int64(d.Hours)*hourMillis + int64(d.Minutes)*minuteMillis + int64(d.Seconds)*secondMillis
}

func (d Duration) Std() time.Duration {
	return time.Duration(d.Millis()) * time.Millisecond
}

func (d Duration) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", d.Hours, d.Minutes, d.Seconds)
}

// Snapshot is the remaining time of a run at one tick.
type Snapshot struct {
	Remaining time.Duration
	Hours     int
	Minutes   int
	Seconds   int
	Finished  bool
	// Run is the engine run that produced the snapshot.
	Run uint64
}

// FromMillis splits a remaining millisecond count into display fields.
// Hours wrap at 24.
func FromMillis(ms int64) Snapshot {
	if ms < 0 {
		ms = 0
	}
	return Snapshot{
		Remaining: time.Duration(ms) * time.Millisecond,
		Hours:     int(ms / hourMillis % 24),
		Minutes:   int(ms / minuteMillis % 60),
		Seconds:   int(ms / secondMillis % 60),
	}
}

func (s Snapshot) HH() string { return fmt.Sprintf("%02d", s.Hours) }
func (s Snapshot) MM() string { return fmt.Sprintf("%02d", s.Minutes) }
func (s Snapshot) SS() string { return fmt.Sprintf("%02d", s.Seconds) }

func (s Snapshot) String() string {
	return s.HH() + ":" + s.MM() + ":" + s.SS()
}

// Duration returns the display fields as a Duration.
func (s Snapshot) Duration() Duration {
	return Duration{Hours: s.Hours, Minutes: s.Minutes, Seconds: s.Seconds}
}
