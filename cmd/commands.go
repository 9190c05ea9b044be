package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/internal/processor"
	"github.com/richard-senior/htft/pkg/api"
	"github.com/richard-senior/htft/pkg/matchlog"
	"github.com/richard-senior/htft/pkg/report"
	"github.com/richard-senior/htft/pkg/server"
	"github.com/richard-senior/htft/pkg/tools"
	"github.com/richard-senior/htft/pkg/transport"
	"github.com/richard-senior/htft/pkg/util/htft"
	"github.com/urfave/cli/v2"
)

func sourceFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "source",
		Aliases:  []string{"s"},
		Usage:    "match log path or URL (.xlsx, .csv, .html, .db)",
		EnvVars:  []string{"HTFT_SOURCE"},
		Required: required,
	}
}

// output opens the --output file, or returns the app writer when unset
func output(c *cli.Context) (io.Writer, func() error, error) {
	path := c.String("output")
	if path == "" {
		return c.App.Writer, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "count the sequences of anchor occurrences and report their outcomes",
		Flags: []cli.Flag{
			sourceFlag(true),
			&cli.StringFlag{Name: "first-half", Aliases: []string{"ht"}, Usage: "first-half score label, eg. 1x0", Required: true},
			&cli.StringFlag{Name: "full-time", Aliases: []string{"ft"}, Usage: "full-time score label, eg. 2x1", Required: true},
			&cli.IntFlag{Name: "min", Usage: "minimum anchor occurrences and sequence repeats (default HTFT_DEFAULT_MIN_OCCURRENCES)"},
			&cli.IntFlag{Name: "window", Aliases: []string{"w"}, Usage: "sequence length (default HTFT_DEFAULT_WINDOW_SIZE)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(report.FormatText), Usage: "text, markdown, html or json"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the report to this file"},
		},
		Action: func(c *cli.Context) error {
			format, err := report.ParseFormat(c.String("format"))
			if err != nil {
				return cli.Exit(err.Error(), exitFailure)
			}
			req := matchlog.AnalysisRequest{
				Source:         c.String("source"),
				FirstHalfScore: c.String("first-half"),
				FullTimeScore:  c.String("full-time"),
			}
			if c.IsSet("min") {
				m := c.Int("min")
				req.MinOccurrences = &m
			}
			if c.IsSet("window") {
				w := c.Int("window")
				req.WindowSize = &w
			}

			rep, err := req.Run(c.Context, nil)
			if err != nil {
				return exitError(err)
			}

			w, closeOutput, err := output(c)
			if err != nil {
				return exitError(err)
			}
			defer closeOutput()
			if format == report.FormatText {
				fmt.Fprintln(w, report.Summary(rep))
			}
			return exitError(report.Render(w, rep, format))
		},
	}
}

func valuesCommand() *cli.Command {
	return &cli.Command{
		Name:  "values",
		Usage: "list the first-half and full-time score labels of a match log",
		Flags: []cli.Flag{sourceFlag(true)},
		Action: func(c *cli.Context) error {
			values, err := tools.LoadScoreValues(c.Context, c.String("source"))
			if err != nil {
				return exitError(err)
			}
			w := c.App.Writer
			fmt.Fprintf(w, "First-half results: %s\n", strings.Join(values.Labels.FirstHalf, ", "))
			fmt.Fprintf(w, "Full-time results: %s\n", strings.Join(values.Labels.FullTime, ", "))
			fmt.Fprintf(w, "Rows: %d, usable %d, no result %d, malformed %d\n",
				values.Rows.Total, values.Rows.Kept, values.Rows.NoResult, values.Rows.Malformed)
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "store a match log in a sqlite match store for later analysis",
		Flags: []cli.Flag{
			sourceFlag(true),
			&cli.StringFlag{Name: "db", Usage: "sqlite file (default HTFT_DB_PATH)"},
		},
		Action: func(c *cli.Context) error {
			db := c.String("db")
			if db == "" {
				db = htft.Config.DbPath
			}
			table, err := matchlog.Load(c.Context, c.String("source"))
			if err != nil {
				return exitError(err)
			}
			stats, err := matchlog.Import(table, db)
			if err != nil {
				return exitError(err)
			}
			fmt.Fprintf(c.App.Writer, "Imported %d rows into %s (%d usable)\n", stats.Total, db, stats.Kept)
			return nil
		},
	}
}

func requestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "process a JSON request document ({\"query\": \"analyze\" | \"values\", ...})",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write the response to this file"},
		},
		Action: func(c *cli.Context) error {
			var input []byte
			var err error
			if c.Args().Len() > 0 {
				input, err = os.ReadFile(c.Args().First())
			} else {
				input, err = io.ReadAll(c.App.Reader)
			}
			if err != nil {
				return exitError(fmt.Errorf("failed to read request: %w", err))
			}

			result, err := processor.ProcessRequestContext(c.Context, input)
			if err != nil {
				return exitError(err)
			}
			w, closeOutput, err := output(c)
			if err != nil {
				return exitError(err)
			}
			defer closeOutput()
			_, err = fmt.Fprintln(w, string(result))
			return exitError(err)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the analysis over HTTP",
		Flags: []cli.Flag{
			sourceFlag(false),
			&cli.StringFlag{Name: "addr", Usage: "listen address (default HTFT_HTTP_ADDRESS)"},
			&cli.StringFlag{Name: "data-dir", Usage: "directory requests may name sources in (default HTFT_DATA_DIR)"},
		},
		Action: func(c *cli.Context) error {
			var table *matchlog.Table
			if source := c.String("source"); source != "" {
				var err error
				if table, err = matchlog.Load(c.Context, source); err != nil {
					return exitError(err)
				}
			}
			addr := c.String("addr")
			if addr == "" {
				addr = htft.Config.HTTPAddress
			}

			dataDir := c.String("data-dir")
			if dataDir == "" {
				dataDir = htft.Config.DataDir
			}

			srv := api.NewServer(addr, htft.Config.CORSOrigins, api.NewAPIHandler(table, dataDir))
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigChan
				logger.Info("Received signal:", sig)
				if err := srv.Shutdown(); err != nil {
					logger.Error("Server shutdown error", err)
				}
			}()
			return exitError(srv.Start())
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run the MCP server over stdio",
		Action: func(c *cli.Context) error {
			// stdout carries the protocol
			logger.SetShowDateTime(true)
			if err := logger.SetLogOutput('f'); err != nil {
				return exitError(err)
			}
			logger.Info("Starting htft MCP server", Version)

			s := server.InitInstance(transport.NewStdioTransport())
			if err := s.Start(); err != nil {
				return exitError(err)
			}
			logger.Info("MCP server shutting down")
			return nil
		},
	}
}
