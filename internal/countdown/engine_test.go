package countdown

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	opts = append([]Option{WithClock(fc), WithLogger(zerolog.Nop())}, opts...)
	e := New(opts...)
	t.Cleanup(e.Close)
	return e, fc
}

func record(e *Engine) <-chan Snapshot {
	ch := make(chan Snapshot, 256)
	e.Subscribe(func(s Snapshot) { ch <- s })
	return ch
}

func nextSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func expectNoSnapshot(t *testing.T, ch <-chan Snapshot) {
	t.Helper()
	select {
	case s := <-ch:
		t.Fatalf("unexpected snapshot %s (finished=%v)", s, s.Finished)
	case <-time.After(50 * time.Millisecond):
	}
}

// advance moves the clock one interval and waits for the resulting tick.
func advance(t *testing.T, fc *clockwork.FakeClock, d time.Duration, ch <-chan Snapshot) Snapshot {
	t.Helper()
	fc.Advance(d)
	return nextSnapshot(t, ch)
}

func TestStartThreeSecondsEmitsCountdown(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	if err := e.Start(0, 0, 3); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	want := []Duration{{Seconds: 2}, {Seconds: 1}, {}}
	for i, w := range want {
		s := advance(t, fc, time.Second, ch)
		if s.Duration() != w {
			t.Fatalf("tick %d: expected %s, got %s", i, w, s)
		}
		if s.Finished != (i == len(want)-1) {
			t.Fatalf("tick %d: unexpected finished=%v", i, s.Finished)
		}
	}
	if e.State() != Finished {
		t.Fatalf("expected Finished, got %s", e.State())
	}

	fc.Advance(5 * time.Second)
	expectNoSnapshot(t, ch)
}

func TestStartOneMinuteRollsOver(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	if err := e.Start(0, 1, 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for want := 59; want >= 1; want-- {
		s := advance(t, fc, time.Second, ch)
		if s.Finished {
			t.Fatalf("finished early at %d", want)
		}
		if s.Hours != 0 || s.Minutes != 0 || s.Seconds != want {
			t.Fatalf("expected 00:00:%02d, got %s", want, s)
		}
	}

	last := advance(t, fc, time.Second, ch)
	if !last.Finished || last.String() != "00:00:00" {
		t.Fatalf("expected finished 00:00:00, got %s finished=%v", last, last.Finished)
	}
	expectNoSnapshot(t, ch)
}

func TestStartRejectsInvalidDuration(t *testing.T) {
	cases := []struct {
		name  string
		d     Duration
		field string
	}{
		{"zero", Duration{}, ""},
		{"negative hours", Duration{Hours: -1, Seconds: 5}, "hours"},
		{"negative minutes", Duration{Minutes: -1}, "minutes"},
		{"negative seconds", Duration{Hours: 1, Seconds: -3}, "seconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, fc := newTestEngine(t)
			ch := record(e)

			err := e.StartDuration(tc.d)
			if !errors.Is(err, ErrInvalidDuration) {
				t.Fatalf("expected ErrInvalidDuration, got %v", err)
			}
			var de *DurationError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DurationError, got %T", err)
			}
			if de.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, de.Field)
			}
			if e.State() != Idle {
				t.Fatalf("expected Idle, got %s", e.State())
			}
			fc.Advance(3 * time.Second)
			expectNoSnapshot(t, ch)
		})
	}
}

func TestResetBeforeStartStaysIdle(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	e.Reset()

	if e.State() != Idle {
		t.Fatalf("expected Idle, got %s", e.State())
	}
	if _, ok := e.Last(); ok {
		t.Fatalf("expected no snapshot after reset")
	}
	fc.Advance(time.Second)
	expectNoSnapshot(t, ch)
}

func TestResetCancelsRunningCountdown(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	if err := e.Start(0, 0, 10); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	advance(t, fc, time.Second, ch)
	if _, ok := e.Last(); !ok {
		t.Fatalf("expected a snapshot before reset")
	}

	e.Reset()

	if e.State() != Idle {
		t.Fatalf("expected Idle, got %s", e.State())
	}
	if _, ok := e.Last(); ok {
		t.Fatalf("expected last snapshot to be cleared")
	}
	if e.Remaining() != 0 {
		t.Fatalf("expected zero remaining, got %s", e.Remaining())
	}
	fc.Advance(20 * time.Second)
	expectNoSnapshot(t, ch)
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	if err := e.Start(0, 0, 5); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := e.Start(0, 1, 0); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if got := e.Requested(); got != (Duration{Seconds: 5}) {
		t.Fatalf("requested duration changed to %s", got)
	}

	s := advance(t, fc, time.Second, ch)
	if s.Seconds != 4 {
		t.Fatalf("expected original run to continue, got %s", s)
	}
}

func TestRestartAfterFinishFinishesOncePerRun(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	for run := 0; run < 2; run++ {
		if err := e.Start(0, 0, 2); err != nil {
			t.Fatalf("run %d: Start failed: %v", run, err)
		}
		finished := 0
		for i := 0; i < 2; i++ {
			if advance(t, fc, time.Second, ch).Finished {
				finished++
			}
		}
		if finished != 1 {
			t.Fatalf("run %d: expected exactly one finish, got %d", run, finished)
		}
		fc.Advance(3 * time.Second)
		expectNoSnapshot(t, ch)
	}
}

func TestRemainingImmediatelyAfterStart(t *testing.T) {
	e, _ := newTestEngine(t)

	d := Duration{Hours: 1, Minutes: 2, Seconds: 3}
	if err := e.StartDuration(d); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	got := e.Remaining()
	if diff := d.Std() - got; diff < 0 || diff > e.Interval() {
		t.Fatalf("expected remaining within one tick of %s, got %s", d.Std(), got)
	}
	if FromMillis(got.Milliseconds()).Duration() != d {
		t.Fatalf("expected fields %s, got %s", d, FromMillis(got.Milliseconds()))
	}
}

func TestRemainingNeverIncreases(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	if err := e.Start(0, 2, 5); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	prev := e.Remaining()
	for i := 0; i < 125; i++ {
		s := advance(t, fc, time.Second, ch)
		if s.Remaining > prev {
			t.Fatalf("tick %d: remaining grew from %s to %s", i, prev, s.Remaining)
		}
		prev = s.Remaining
		if s.Finished {
			return
		}
	}
	t.Fatalf("countdown did not finish")
}

func TestObserversReceiveIdenticalSnapshotsInOrder(t *testing.T) {
	e, fc := newTestEngine(t)

	var order []int
	combined := make(chan Snapshot, 16)
	first := make(chan Snapshot, 16)
	e.Subscribe(func(s Snapshot) {
		order = append(order, 1)
		first <- s
	})
	e.Subscribe(func(s Snapshot) {
		order = append(order, 2)
		combined <- s
	})

	if err := e.Start(0, 0, 2); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		b := advance(t, fc, time.Second, combined)
		a := nextSnapshot(t, first)
		if a != b {
			t.Fatalf("observers disagree: %+v vs %+v", a, b)
		}
	}
	if len(order) != 4 || order[0] != 1 || order[1] != 2 || order[2] != 1 || order[3] != 2 {
		t.Fatalf("unexpected delivery order %v", order)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	e, fc := newTestEngine(t)
	kept := record(e)
	dropped := make(chan Snapshot, 16)
	sub := e.Subscribe(func(s Snapshot) { dropped <- s })

	if err := e.Start(0, 0, 3); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	advance(t, fc, time.Second, kept)
	nextSnapshot(t, dropped)

	e.Unsubscribe(sub)
	e.Unsubscribe(sub + 100)

	advance(t, fc, time.Second, kept)
	expectNoSnapshot(t, dropped)
}

func TestCustomIntervalTicksFaster(t *testing.T) {
	e, fc := newTestEngine(t, WithInterval(250*time.Millisecond))
	ch := record(e)

	if err := e.Start(0, 0, 1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var got []time.Duration
	for {
		s := advance(t, fc, 250*time.Millisecond, ch)
		got = append(got, s.Remaining)
		if s.Finished {
			break
		}
	}
	want := []time.Duration{750 * time.Millisecond, 500 * time.Millisecond, 250 * time.Millisecond, 0}
	if len(got) != len(want) {
		t.Fatalf("expected %d snapshots, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCloseCancelsPendingTicks(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	if err := e.Start(0, 0, 5); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	e.Close()
	e.Close()

	fc.Advance(10 * time.Second)
	expectNoSnapshot(t, ch)

	if err := e.Start(0, 0, 5); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestStreamKeepsFinalSnapshot(t *testing.T) {
	e, fc := newTestEngine(t)
	stream, sub := e.Stream()
	ticks := record(e)

	if err := e.Start(0, 0, 3); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		advance(t, fc, time.Second, ticks)
	}

	s := nextSnapshot(t, stream)
	if !s.Finished {
		t.Fatalf("expected only the final snapshot to be pending, got %s", s)
	}
	if s.Run != e.CurrentRun() {
		t.Fatalf("expected run %d, got %d", e.CurrentRun(), s.Run)
	}
	expectNoSnapshot(t, stream)

	e.Unsubscribe(sub)
}

func TestSnapshotsCarryRun(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	if err := e.Start(0, 0, 5); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	first := advance(t, fc, time.Second, ch)
	e.Reset()
	if first.Run == e.CurrentRun() {
		t.Fatalf("expected reset to advance the run")
	}

	if err := e.Start(0, 0, 5); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	second := advance(t, fc, time.Second, ch)
	if second.Run != e.CurrentRun() {
		t.Fatalf("expected run %d, got %d", e.CurrentRun(), second.Run)
	}
}

func TestStartRejectsDurationBeyondClockRange(t *testing.T) {
	cases := []Duration{
		{Hours: 3000000},
		{Hours: math.MaxInt},
		{Minutes: math.MaxInt},
		{Seconds: math.MaxInt},
		{Hours: 2562047, Minutes: 59, Seconds: 59},
	}
	for _, d := range cases {
		e, fc := newTestEngine(t)
		ch := record(e)

		if err := e.StartDuration(d); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("StartDuration(%s): expected ErrInvalidDuration, got %v", d, err)
		}
		if e.State() != Idle {
			t.Fatalf("StartDuration(%s): expected Idle, got %s", d, e.State())
		}
		fc.Advance(time.Second)
		expectNoSnapshot(t, ch)
	}
}

func TestStartLongestDurationKeepsRunning(t *testing.T) {
	e, fc := newTestEngine(t)
	ch := record(e)

	d := Duration{Hours: 2562047}
	if err := e.StartDuration(d); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if e.Remaining() != d.Std() || d.Std() <= 0 {
		t.Fatalf("expected remaining %s, got %s", d.Std(), e.Remaining())
	}

	s := advance(t, fc, time.Second, ch)
	if s.Finished || e.State() != Running {
		t.Fatalf("expected run to continue, got %s finished=%v", s, s.Finished)
	}
}
