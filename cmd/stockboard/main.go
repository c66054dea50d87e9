package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"stockboard/internal/app"
	"stockboard/internal/scheduler"
	"stockboard/internal/util"
)

func main() {
	configPath := flag.String("config", app.DefaultConfigPath, "path to YAML config")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := util.OpenLogFile("stockboard", cfg.Logging.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, logFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	p := tea.NewProgram(
		initialModel(ctx, a),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if spec := cfg.Dashboard.RefreshCron; spec != "" {
		sched := scheduler.New(logger)
		if err := sched.Register("refresh", spec, func() { p.Send(scheduledRefreshMsg{}) }); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
