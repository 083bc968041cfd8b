package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/j340m3/compiler/pkg/check"
	"github.com/j340m3/compiler/pkg/diag"
	"github.com/j340m3/compiler/pkg/ioctx"
	"github.com/j340m3/compiler/pkg/syntax"
)

// errDiagnostics makes the process exit non-zero after a report that
// contains diagnostics.
var errDiagnostics = errors.New("diagnostics reported")

// Flags holds the command-line flags. Flags that were not set leave the
// corresponding letcheck.toml values alone.
type Flags struct {
	Debug       bool
	ConfigPath  string
	Format      string
	Color       string
	MaxErrors   int
	Parallelism int
	Types       bool
}

func newRootCmd() *cobra.Command {
	var flags Flags

	rootCmd := &cobra.Command{
		Use:   "letcheck [flags] FILE...",
		Short: "Resolve names and infer types in let-constructs",
		Long: `letcheck checks .lc programs: every name must resolve, mutually
recursive bindings are grouped and solved together, and let-bound values
are generalized before the let body is checked.`,
		Example: `  # Check a file
  letcheck main.lc

  # Print the type of every declaration
  letcheck --types main.lc

  # Machine-readable output
  letcheck --format json main.lc other.lc

  # Run with debug logging enabled
  letcheck -d main.lc

  # Serve diagnostics to an editor
  letcheck lsp --log-file /tmp/letcheck-lsp.log`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), config, flags, args)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "Path to letcheck.toml (searched for upwards from the working directory if not specified)")
	rootCmd.PersistentFlags().IntVar(&flags.MaxErrors, "max-errors", 0, "Stop checking further declarations after this many errors (0 for no limit)")
	rootCmd.PersistentFlags().IntVar(&flags.Parallelism, "parallelism", 0, "Number of declarations checked at once (0 for one per CPU)")
	rootCmd.Flags().StringVar(&flags.Format, "format", "text", "Output format: text, json or yaml")
	rootCmd.Flags().StringVar(&flags.Color, "color", "auto", "Colorize text output: auto, always or never")
	rootCmd.Flags().BoolVar(&flags.Types, "types", false, "Print the type of every declaration")

	rootCmd.AddCommand(newLSPCmd(&flags))

	return rootCmd
}

func loadConfig(cmd *cobra.Command, flags Flags) (*check.Config, error) {
	var config *check.Config
	if flags.ConfigPath != "" {
		loaded, err := check.LoadConfig(flags.ConfigPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		_, found, err := check.FindConfig(cwd)
		if err != nil {
			return nil, err
		}
		config = found
	}
	if config == nil {
		config = check.DefaultConfig()
	}

	set := cmd.Flags().Changed
	if set("format") {
		config.Output.Format = flags.Format
	}
	if set("color") {
		config.Output.Color = flags.Color
	}
	if set("max-errors") {
		config.Check.MaxErrors = flags.MaxErrors
	}
	if set("parallelism") {
		config.Check.Parallelism = flags.Parallelism
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func run(ctx context.Context, config *check.Config, flags Flags, files []string) error {
	stdout := ioctx.StdoutFromContext(ctx)
	stderr := ioctx.StderrFromContext(ctx)

	level := slog.LevelInfo
	if flags.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))

	checker := check.NewChecker(config.Check, logger)

	var reports []*fileReport
	sources := map[string]string{}
	failed := false
	for _, file := range files {
		prog, source, err := syntax.ParseFile(file)
		if err != nil {
			return err
		}
		sources[file] = string(source)

		res, err := checker.CheckProgram(ctx, prog)
		if err != nil {
			return errors.Wrapf(err, "checking %s", file)
		}
		logger.Debug("checked file", "file", file, "declarations", len(res.Decls), "diagnostics", res.Diagnostics.Len())
		if res.Diagnostics.Len() > 0 {
			failed = true
		}
		reports = append(reports, newFileReport(file, res))

		if config.Output.Format == "text" {
			color := config.Output.Color == "always" ||
				config.Output.Color == "auto" && ioctx.IsTerminal(stdout) && os.Getenv("NO_COLOR") == ""
			if err := check.WriteReport(stdout, res, sources, check.ReportOptions{
				Color:   color,
				Types:   flags.Types,
				Context: 2,
			}); err != nil {
				return err
			}
		}
	}

	switch config.Output.Format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return errors.Wrap(err, "encoding json")
		}
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return errors.Wrap(err, "encoding yaml")
		}
		if err := enc.Close(); err != nil {
			return err
		}
	}

	if failed {
		return errDiagnostics
	}
	return nil
}

type fileReport struct {
	File         string        `json:"file" yaml:"file"`
	Declarations []*declReport `json:"declarations" yaml:"declarations"`
	Diagnostics  diag.List     `json:"diagnostics" yaml:"diagnostics"`
	Skipped      []string      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

type declReport struct {
	Name string             `json:"name" yaml:"name"`
	Type string             `json:"type" yaml:"type"`
	Lets []*check.LetReport `json:"lets,omitempty" yaml:"lets,omitempty"`
}

func newFileReport(file string, res *check.ProgramResult) *fileReport {
	report := &fileReport{
		File:        file,
		Diagnostics: res.Diagnostics,
		Skipped:     res.Skipped,
	}
	if report.Diagnostics == nil {
		report.Diagnostics = diag.List{}
	}
	for _, d := range res.Decls {
		report.Declarations = append(report.Declarations, &declReport{
			Name: d.Name,
			Type: d.Scheme.String(),
			Lets: d.Lets,
		})
	}
	return report
}
