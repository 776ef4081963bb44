package main

import (
	"flag"
	"fmt"
	"os"

	"countdown_tui/internal"
	"countdown_tui/internal/config"
	"countdown_tui/internal/countdown"
	"countdown_tui/internal/history"
	"countdown_tui/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	initial := flag.String("d", "", "initial duration: HH:MM:SS, MM:SS, minutes, or 1h30m")
	autoStart := flag.Bool("start", false, "start the countdown immediately")
	flag.Parse()

	if err := run(*configPath, *initial, *autoStart); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, initial string, autoStart bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logs, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logs.Close()

	if initial == "" {
		initial = cfg.DefaultDuration
	}
	d, err := countdown.ParseDuration(initial)
	if err != nil {
		return fmt.Errorf("bad initial duration: %w", err)
	}

	repo, err := history.NewRepository(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	engine := countdown.New(countdown.WithInterval(cfg.TickInterval))
	defer engine.Close()

	m := internal.NewModel(engine, repo, internal.Options{
		Initial:      d,
		AutoStart:    autoStart,
		HistoryLimit: cfg.HistoryLimit,
	})
	defer m.Close()

	log.Info().
		Str("db", cfg.DBPath).
		Dur("tick_interval", cfg.TickInterval).
		Str("initial", d.String()).
		Msg("starting countdown")

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
