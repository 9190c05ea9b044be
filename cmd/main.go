package main

import (
	"fmt"
	"os"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/util/htft"
	"github.com/urfave/cli/v2"
)

// Version is the application version
const Version = "1.0.0"

// exit codes
const (
	exitFailure  = 1
	exitReported = 2
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Error("htft failed", err)
		os.Exit(exitFailure)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "htft",
		Usage:   "half-time/full-time pattern analysis of football match logs",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "dotenv file with HTFT_* settings"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (overrides HTFT_LOG_LEVEL)"},
			&cli.BoolFlag{Name: "log-file", Usage: "log to HTFT_LOG_PATH instead of stderr"},
		},
		Before: setup,
		Commands: []*cli.Command{
			analyzeCommand(),
			valuesCommand(),
			importCommand(),
			requestCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}
}

// setup loads the configuration and configures logging before any command runs
func setup(c *cli.Context) error {
	cfg, err := htft.LoadConfig(c.String("env"))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	levelName := cfg.LogLevel
	if c.IsSet("log-level") {
		levelName = c.String("log-level")
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	logger.SetLevel(level)
	logger.SetLogFile(cfg.LogPath)

	if c.Bool("log-file") {
		logger.SetShowDateTime(true)
		if err := logger.SetLogOutput('f'); err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
	}
	logger.Debug("Configuration loaded", fmt.Sprintf("%+v", *cfg))
	return nil
}

// exitError converts err into a cli exit error. Reported conditions such as
// too few anchor occurrences exit with a distinct code.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	if htft.IsReported(err) {
		return cli.Exit(err.Error(), exitReported)
	}
	return cli.Exit(err.Error(), exitFailure)
}
