// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Flag parsing and process setup for kidsai.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jeranaias/kidsai/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Options holds parsed command-line flags. Zero values mean "not given".
type Options struct {
	ConfigPath string
	Model      string
	MaxHistory int
	ChildName  string
	NoNotify   bool
	LogFile    string
	Debug      bool

	ShowVersion bool
	ShowConfig  bool
	InitConfig  bool
}

// =============================================================================
// FLAG PARSING
// =============================================================================

func newFlagSet(opts *Options) *pflag.FlagSet {
	fs := pflag.NewFlagSet("kidsai", pflag.ContinueOnError)
	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ~/.kidsai/config.toml)")
	fs.StringVarP(&opts.Model, "model", "m", "", "OpenRouter model to chat with")
	fs.IntVar(&opts.MaxHistory, "max-history", 0, "number of turns to remember")
	fs.StringVar(&opts.ChildName, "name", "", "child's name for greetings")
	fs.BoolVar(&opts.NoNotify, "no-notify", false, "do not send conversations to Telegram")
	fs.StringVar(&opts.LogFile, "log-file", "", "diagnostics log file (default ~/.kidsai/kidsai.log)")
	fs.BoolVar(&opts.Debug, "debug", false, "log debug diagnostics to stderr")
	fs.BoolVarP(&opts.ShowVersion, "version", "v", false, "print version and exit")
	fs.BoolVar(&opts.ShowConfig, "show-config", false, "print the effective configuration and exit")
	fs.BoolVar(&opts.InitConfig, "init-config", false, "write the effective configuration to the config file and exit")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

// ParseFlags parses args (without the program name). pflag.ErrHelp is
// returned after the help text has been written to out.
func ParseFlags(args []string, out io.Writer) (Options, error) {
	var opts Options
	fs := newFlagSet(&opts)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(out, fs)
			return opts, pflag.ErrHelp
		}
		return opts, &UsageError{Err: err}
	}
	if help, _ := fs.GetBool("help"); help {
		printHelp(out, fs)
		return opts, pflag.ErrHelp
	}
	if rest := fs.Args(); len(rest) > 0 {
		return opts, &UsageError{Err: fmt.Errorf("unexpected argument: %s", rest[0])}
	}
	if fs.Changed("max-history") && opts.MaxHistory < 1 {
		return opts, &UsageError{Err: fmt.Errorf("--max-history must be at least 1 (got %d)", opts.MaxHistory)}
	}
	return opts, nil
}

func printHelp(out io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(out, `kidsai - a friendly AI chat for kids

Usage:
  kidsai [flags]

Flags:
%s
Environment:
  %-20s OpenRouter API key (required)
  %-20s model name
  %-20s Telegram bot token for parent notifications
  %-20s Telegram chat to notify
  %-20s child's name
  %-20s number of turns to remember

Type "quit", "exit" or "bye" to end a chat.
`, fs.FlagUsages(),
		config.EnvOpenRouterKey, config.EnvOpenRouterModel,
		config.EnvTelegramToken, config.EnvTelegramChatID,
		config.EnvChildName, config.EnvMaxHistory)
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "kidsai %s (commit %s, built %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// LoadConfig loads configuration and applies flag overrides on top.
func LoadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{Path: opts.ConfigPath})
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	applyFlags(cfg, opts)
	return cfg, nil
}

func applyFlags(cfg *config.Config, opts Options) {
	if m := strings.TrimSpace(opts.Model); m != "" {
		cfg.OpenRouter.Model = m
	}
	if opts.MaxHistory > 0 {
		cfg.Chat.MaxHistory = opts.MaxHistory
	}
	if n := strings.TrimSpace(opts.ChildName); n != "" {
		cfg.Chat.ChildName = n
	}
	if opts.NoNotify {
		cfg.Telegram.Enabled = false
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}
	if opts.Debug {
		cfg.Logging.Level = "debug"
	}
}

func initConfig(cfg *config.Config, path string, out io.Writer) error {
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return &ConfigError{Err: err}
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil {
		return &ConfigError{Err: fmt.Errorf("%s already exists", path)}
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &ConfigError{Err: err}
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Run runs kidsai with the given arguments and returns the process exit code.
func Run(args []string) int {
	err := run(context.Background(), args, os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		DisplayError(os.Stderr, err)
	}
	return ExitCode(err)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := ParseFlags(args, stdout)
	if err != nil {
		return err
	}
	if opts.ShowVersion {
		printVersion(stdout)
		return nil
	}

	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}
	if opts.ShowConfig {
		fmt.Fprintln(stdout, cfg.String())
		return nil
	}
	if opts.InitConfig {
		return initConfig(cfg, opts.ConfigPath, stdout)
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	logger, closeLog, err := NewLogger(cfg.Logging, opts.Debug, stderr)
	if err != nil {
		return &ConfigError{Err: err}
	}
	defer closeLog()

	logger.Info().
		Str("version", Version).
		Str("model", cfg.OpenRouter.Model).
		Int("max_history", cfg.Chat.MaxHistory).
		Bool("notify", cfg.Telegram.Enabled).
		Msg("session start")

	chat := NewChat(cfg, stdout, DetectDisplay(), logger)
	input := NewChatCLI()
	defer input.Close()

	chat.Run(ctx, input)
	return nil
}
