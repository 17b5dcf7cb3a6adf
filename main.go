package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	FlagConfigFile = "config-file"
	FlagVerbosity  = "verbosity"
)

var (
	configPath string
	verbosity  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scatter",
		Short: "Spread small native token transfers to freshly generated wallets",
		Long: `A command-line tool that sends one small native token transfer from each
funded key to a batch of newly generated wallets, pausing randomly between
sends, then saves the new wallets until you confirm they are backed up.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(verbosity)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, FlagConfigFile, "f", "", "Path to an optional json/yaml/toml configuration file")
	rootCmd.PersistentFlags().StringVar(&verbosity, FlagVerbosity, "info", "Log level: trace, debug, info, warn, error, crit")

	rootCmd.AddCommand(
		runCmd(),
		keygenCmd(),
		balanceCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func setupLogger(name string) error {
	lvl, err := parseLevel(name)
	if err != nil {
		return err
	}
	useColor := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stdout, lvl, useColor)))
	return nil
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown verbosity %q", name)
	}
}
