package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/MakeNowJust/heredoc"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/chasedut/chatfun/internal/app"
	"github.com/chasedut/chatfun/internal/config"
	"github.com/chasedut/chatfun/internal/env"
	"github.com/chasedut/chatfun/internal/log"
	"github.com/chasedut/chatfun/internal/store"
	"github.com/chasedut/chatfun/internal/tui"
	"github.com/chasedut/chatfun/internal/version"
	"github.com/spf13/cobra"
)

type terminalSize struct {
	Width  int
	Height int
}

func termSize() terminalSize {
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil {
		slog.Debug("Raw terminal size", "width", w, "height", h)
		return terminalSize{Width: max(w, 80), Height: max(h, 24)}
	}
	slog.Warn("Failed to get terminal size, using defaults")
	return terminalSize{Width: 80, Height: 24}
}

func init() {
	rootCmd.PersistentFlags().String("api-url", "", "ChatFun API base URL (overrides "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for the local database and logs (overrides "+config.EnvDataDir+")")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug logging")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, settingsCmd, exportCmd)
}

var rootCmd = &cobra.Command{
	Use:   "chatfun",
	Short: "Terminal client for ChatFun",
	Long: heredoc.Doc(`
		ChatFun in your terminal: the global room, direct messages and, for
		moderators, social spy and the report queue.
	`),
	Example: heredoc.Doc(`
		# Open the client
		chatfun

		# Sign in without opening the client
		chatfun login --username alice

		# Use another server
		chatfun --api-url https://chat.example.com/api

		# Print the effective settings
		chatfun settings
	`),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setupApp(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		size := termSize()
		program := tea.NewProgram(
			tui.NewWithSize(a, size.Width, size.Height),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
			tea.WithMouseCellMotion(),
			tea.WithFilter(tui.MouseEventFilter),
			tea.WithWindowSize(size.Width, size.Height),
		)

		go a.Subscribe(program)

		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %v", err)
		}
		return nil
	},
}

func Execute() {
	if err := env.LoadDotEnv(); err != nil {
		// .env is optional
		slog.Warn("Failed to load .env file", "error", err)
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(env.New())
	if err != nil {
		return config.Config{}, err
	}
	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDirectory = v
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// setupApp opens the local store and builds the app. The store is closed by
// app.Shutdown.
func setupApp(cmd *cobra.Command) (*app.App, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log.Setup(cfg.LogFile(), cfg.Debug)

	st, err := store.Open(ctx, cfg.DataDirectory)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, st)
	if err != nil {
		_ = st.Close()
		slog.Error("Failed to create app instance", "error", err)
		return nil, err
	}
	a.OnCleanup(func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close store", "error", err)
		}
		_ = log.Close()
	})
	return a, nil
}
