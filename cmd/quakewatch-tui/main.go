// Command quakewatch-tui is the terminal earthquake list. It runs its own
// state store in-process; logs go to a file so they do not tear the screen.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/couchcryptid/quake-watch/internal/app"
	"github.com/couchcryptid/quake-watch/internal/config"
	"github.com/couchcryptid/quake-watch/internal/observability"
	"github.com/couchcryptid/quake-watch/internal/tui"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/quakewatch/config.yml)")
	flag.Parse()

	cliCfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runTUI(cliCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cliCfg cliConfig) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLog(cliCfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := observability.NewLoggerTo(logOut, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	a, err := app.New(context.Background(), cfg, logger, observability.NewMetrics())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}()

	model := tui.NewModel(a.Store, tui.Options{
		RefreshOnStart: cliCfg.RefreshOnStart,
		ListHeight:     cliCfg.ListHeight,
		ShowChart:      cliCfg.ShowChart,
		NearMeTimeout:  cliCfg.NearMeTimeout,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// openLog opens path for appending. An empty path discards logs.
func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
