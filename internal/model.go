package internal

import (
	"context"
	"time"

	"countdown_tui/internal/countdown"
	"countdown_tui/internal/history"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MsgSnapshot carries one engine snapshot into the program loop.
type MsgSnapshot struct {
	Snapshot countdown.Snapshot
}

type Screen int

const (
	ScreenPicker Screen = iota
	ScreenCountdown
	ScreenFinished
)

const (
	FieldHours = iota
	FieldMinutes
	FieldSeconds
)

// Picker limits, matching the number pickers of the original screen.
var fieldLimits = [3]int{24, 60, 60}

type Options struct {
	Initial      countdown.Duration
	AutoStart    bool
	HistoryLimit int
	Clock        clockwork.Clock
}

type Model struct {
	engine    *countdown.Engine
	snapshots <-chan countdown.Snapshot
	sub       countdown.Subscription
	store     HistoryStore
	clock     clockwork.Clock

	Screen  Screen
	Picker  countdown.Duration
	Focus   int
	Current countdown.Snapshot
	Err     error

	// Bookkeeping for the run in progress, written to history when it ends.
	runID     string
	startedAt time.Time
	requested countdown.Duration
	autoStart bool

	// History viewer state
	ShowLogView   bool
	LogViewScroll int
	Runs          []history.Run
	Totals        history.Totals
	historyLimit  int

	keys     keyMap
	help     help.Model
	progress progress.Model
	width    int
}

func NewModel(engine *countdown.Engine, store HistoryStore, opts Options) *Model {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = 50
	}

	snapshots, sub := engine.Stream()
	m := &Model{
		engine:       engine,
		snapshots:    snapshots,
		sub:          sub,
		store:        store,
		clock:        clock,
		Screen:       ScreenPicker,
		Picker:       pickerValue(opts.Initial),
		autoStart:    opts.AutoStart,
		historyLimit: limit,
		keys:         newKeyMap(),
		help:         help.New(),
		progress:     progress.New(progress.WithDefaultGradient()),
		width:        80,
	}
	m.progress.Width = 40
	m.syncKeys()
	return m
}

// pickerValue normalizes d into the picker's field ranges, capping hours at
// the largest value the hours field can show.
func pickerValue(d countdown.Duration) countdown.Duration {
	p := countdown.FromStd(d.Std())
	if maxHours := fieldLimits[FieldHours] - 1; p.Hours > maxHours {
		log.Warn().Str("requested", d.String()).Int("max_hours", maxHours).Msg("initial duration capped to picker range")
		p.Hours = maxHours
	}
	return p
}

func waitForSnapshot(ch <-chan countdown.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return MsgSnapshot{Snapshot: <-ch}
	}
}

func (m *Model) Init() tea.Cmd {
	if m.autoStart {
		m.autoStart = false
		m.start()
	}
	return waitForSnapshot(m.snapshots)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MsgSnapshot:
		m.handleSnapshot(msg.Snapshot)
		return m, waitForSnapshot(m.snapshots)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = min(max(msg.Width-8, 10), 60)
		return m, nil
	}
	return m, nil
}

// handleSnapshot drops snapshots from runs that were reset before the
// program loop got to them.
func (m *Model) handleSnapshot(s countdown.Snapshot) {
	if m.Screen != ScreenCountdown || s.Run != m.engine.CurrentRun() {
		return
	}
	m.Current = s
	if s.Finished {
		m.Screen = ScreenFinished
		m.endRun(history.Completed, m.requested.Std())
		m.syncKeys()
	}
}

func (m *Model) start() {
	if err := m.engine.StartDuration(m.Picker); err != nil {
		m.Err = err
		log.Debug().Err(err).Str("requested", m.Picker.String()).Msg("start rejected")
		return
	}
	m.Err = nil
	m.requested = m.Picker
	m.Current = countdown.FromMillis(m.Picker.Millis())
	m.Current.Run = m.engine.CurrentRun()
	m.runID = uuid.NewString()
	m.startedAt = m.clock.Now()
	m.Screen = ScreenCountdown
	m.syncKeys()
}

func (m *Model) reset() {
	switch {
	case m.Screen == ScreenCountdown && m.engine.Running():
		elapsed := m.requested.Std() - m.engine.Remaining()
		m.engine.Reset()
		m.endRun(history.Cancelled, elapsed)
	case m.Screen == ScreenCountdown && m.engine.State() == countdown.Finished:
		// The final snapshot is still queued; the run completed regardless.
		m.endRun(history.Completed, m.requested.Std())
		m.engine.Reset()
	default:
		m.engine.Reset()
	}
	m.Screen = ScreenPicker
	m.Current = countdown.Snapshot{}
	m.syncKeys()
}

func (m *Model) endRun(outcome history.Outcome, elapsed time.Duration) {
	if m.runID == "" {
		return
	}
	run := &history.Run{
		ID:        m.runID,
		Requested: m.requested.Std(),
		Elapsed:   elapsed,
		StartedAt: m.startedAt,
		StoppedAt: m.clock.Now(),
		Outcome:   outcome,
	}
	m.runID = ""

	if m.store == nil {
		return
	}
	if err := m.store.Record(context.Background(), run); err != nil {
		m.Err = err
		log.Error().Err(err).Str("run_id", run.ID).Msg("failed to record run")
		return
	}
	log.Info().
		Str("run_id", run.ID).
		Str("outcome", string(outcome)).
		Dur("elapsed", elapsed).
		Msg("run recorded")
}

// Elapsed is the share of the current run already used, between 0 and 1.
func (m *Model) Elapsed() float64 {
	total := m.requested.Std()
	if total <= 0 {
		return 0
	}
	if m.Screen == ScreenFinished {
		return 1
	}
	done := float64(total-m.Current.Remaining) / float64(total)
	return min(max(done, 0), 1)
}

func (m *Model) syncKeys() {
	picking := m.Screen == ScreenPicker
	m.keys.Prev.SetEnabled(picking)
	m.keys.Next.SetEnabled(picking)
	m.keys.Up.SetEnabled(picking)
	m.keys.Down.SetEnabled(picking)
	m.keys.Start.SetEnabled(picking)
	m.keys.Reset.SetEnabled(!picking)
	m.keys.Dismiss.SetEnabled(m.Screen == ScreenFinished)
}

// Close detaches the model from the engine.
func (m *Model) Close() {
	m.engine.Unsubscribe(m.sub)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowLogView {
		return m.handleLogViewInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.History):
		m.openLogView()
		return m, nil
	}

	switch m.Screen {
	case ScreenPicker:
		m.handlePickerInput(msg)
	case ScreenCountdown:
		if key.Matches(msg, m.keys.Reset) {
			m.reset()
		}
	case ScreenFinished:
		if key.Matches(msg, m.keys.Reset) || key.Matches(msg, m.keys.Dismiss) {
			m.reset()
		}
	}
	return m, nil
}

func (m *Model) handlePickerInput(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Prev):
		m.Focus = (m.Focus + 2) % 3
	case key.Matches(msg, m.keys.Next):
		m.Focus = (m.Focus + 1) % 3
	case key.Matches(msg, m.keys.Up):
		m.adjustField(1)
	case key.Matches(msg, m.keys.Down):
		m.adjustField(-1)
	case key.Matches(msg, m.keys.Start):
		m.start()
	case msg.Type == tea.KeyBackspace:
		m.setField(m.field() / 10)
	default:
		runes := msg.Runes
		if msg.Type == tea.KeyRunes && len(runes) == 1 && runes[0] >= '0' && runes[0] <= '9' {
			m.typeDigit(int(runes[0] - '0'))
		}
	}
}

func (m *Model) field() int {
	switch m.Focus {
	case FieldHours:
		return m.Picker.Hours
	case FieldMinutes:
		return m.Picker.Minutes
	}
	return m.Picker.Seconds
}

func (m *Model) setField(v int) {
	switch m.Focus {
	case FieldHours:
		m.Picker.Hours = v
	case FieldMinutes:
		m.Picker.Minutes = v
	default:
		m.Picker.Seconds = v
	}
}

// adjustField steps the focused field, wrapping around its picker range.
func (m *Model) adjustField(delta int) {
	limit := fieldLimits[m.Focus]
	m.setField(((m.field()+delta)%limit + limit) % limit)
}

// typeDigit appends d to the focused field, starting over when the result
// would leave the picker range.
func (m *Model) typeDigit(d int) {
	v := m.field()*10 + d
	if v >= fieldLimits[m.Focus] {
		v = d
	}
	m.setField(v)
}

func (m *Model) openLogView() {
	m.ShowLogView = true
	m.LogViewScroll = 0
	m.loadHistory()
}

// loadHistory refreshes the listed runs and totals, keeping the scroll
// position inside the new list.
func (m *Model) loadHistory() {
	m.Runs = nil
	m.Totals = history.Totals{}
	if m.store == nil {
		return
	}

	ctx := context.Background()
	runs, err := m.store.Recent(ctx, m.historyLimit)
	if err != nil {
		m.Err = err
		log.Error().Err(err).Msg("failed to load history")
		return
	}
	totals, err := m.store.Totals(ctx)
	if err != nil {
		m.Err = err
		log.Error().Err(err).Msg("failed to load history totals")
	}
	m.Runs = runs
	m.Totals = totals
	if m.LogViewScroll >= len(m.Runs) {
		m.LogViewScroll = max(len(m.Runs)-1, 0)
	}
}

func (m *Model) deleteSelectedRun() {
	if m.store == nil || m.LogViewScroll >= len(m.Runs) {
		return
	}
	id := m.Runs[m.LogViewScroll].ID
	if err := m.store.Delete(context.Background(), id); err != nil {
		m.Err = err
		log.Error().Err(err).Str("run_id", id).Msg("failed to delete run")
		return
	}
	log.Debug().Str("run_id", id).Msg("run deleted")
	m.loadHistory()
}

func (m *Model) handleLogViewInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc", "l":
		m.ShowLogView = false
		m.Runs = nil
	case "up", "k":
		if m.LogViewScroll > 0 {
			m.LogViewScroll--
		}
	case "down", "j":
		maxScroll := len(m.Runs) - 1
		if maxScroll < 0 {
			maxScroll = 0
		}
		if m.LogViewScroll < maxScroll {
			m.LogViewScroll++
		}
	case "d", "delete":
		m.deleteSelectedRun()
	}
	return m, nil
}
