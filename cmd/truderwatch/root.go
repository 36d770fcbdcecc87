package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Pusher91/truderwatch/internal/config"
)

var (
	cfgFile   string
	logLevel  string
	verbosity int

	cfg    *config.Config
	logger = zerolog.Nop()
)

// skipConfig marks commands that must run without a valid configuration.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "truderwatch",
	Short: "Terminal dashboard for a webtruder scan server",
	Long: `truderwatch follows scans on a remote webtruder instance: the scan list,
per-host progress, findings with status/length/text filters, and the request log.

Configuration is read from truderwatch.yaml (see 'truderwatch config init'),
TRUDERWATCH_* environment variables and flags, in increasing priority.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd.ErrOrStderr())

		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}
		c, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = c
		logger.Debug().Str("server", cfg.Server).Msg("config loaded")
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file path (default: ./truderwatch.yaml or ~/.config/truderwatch/)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.CountVarP(&verbosity, "verbose", "v", "increase logging verbosity (repeatable)")

	pf.String("server", "", "webtruder base URL")
	pf.Duration("timeout", 0, "per-request timeout")
	pf.String("proxy", "", "HTTP proxy URL for reaching the server")
	pf.Bool("insecure", false, "skip TLS verification")
	pf.String("prefs", "", "file that remembers the last scan and filters")

	rootCmd.Version = "0.1.0-dev"
}

// newLogger writes console-formatted logs to w. --log-level wins over -v;
// without either only warnings and errors are shown.
func newLogger(w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case logLevel != "":
		if l, err := zerolog.ParseLevel(strings.ToLower(logLevel)); err == nil {
			level = l
		}
	case verbosity == 1:
		level = zerolog.InfoLevel
	case verbosity >= 2:
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: noColor}).
		With().Timestamp().Logger()
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
