package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Andrei-Barwood/annotaudit/internal/config"
	"github.com/Andrei-Barwood/annotaudit/internal/format"
	"github.com/Andrei-Barwood/annotaudit/internal/model"
	"github.com/Andrei-Barwood/annotaudit/internal/quality"
	"github.com/Andrei-Barwood/annotaudit/internal/report"
	"github.com/Andrei-Barwood/annotaudit/internal/scaleapi"
)

const (
	defaultConfigPath = "annotaudit.yaml"
	defaultEnvFile    = ".env"
	defaultOutPath    = "results.json"
)

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type globalFlags struct {
	logLevel  string
	logFormat string
}

// Run executes the CLI and returns the process exit code.
func Run(ctx context.Context, args []string) int {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "annotaudit",
		Short:         "Quality checks for box annotations from the Scale tasks API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetOut(cmd.ErrOrStderr())
			_ = cmd.Usage()
			return usageError{errors.New("a command is required")}
		},
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log format: text|json")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(newAuditCmd(g), newReportCmd(), newSummarizeCmd())
	return root
}

// noArgs rejects positional arguments. On the root command a stray argument
// is an unknown subcommand.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if !cmd.HasParent() {
		return usageError{fmt.Errorf("unknown command %q", args[0])}
	}
	return usageError{fmt.Errorf("%s takes no arguments, got %q", cmd.CommandPath(), args[0])}
}

func newLogger(g *globalFlags, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(g.logLevel)
	if err != nil {
		return nil, usageError{err}
	}
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	switch strings.ToLower(g.logFormat) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, usageError{fmt.Errorf("invalid log-format: %s", g.logFormat)}
	}
	return logger, nil
}

type auditFlags struct {
	configPath   string
	envFile      string
	input        string
	saveTasks    string
	out          string
	stdoutFormat string
	project      string
	status       string
	percentile   float64
	maxPages     int
}

func newAuditCmd(g *globalFlags) *cobra.Command {
	f := &auditFlags{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Fetch tasks, run quality checks and write the results file",
		Long: `Fetch tasks for a project (or read them from --input), compute the size
thresholds over every annotation and flag annotations that break a rule.

Rules, first match wins:
  1. error    label is not the exempt label but background_color is not_applicable
  2. warning  width and height both exceed the percentile thresholds

Examples:
  # Audit the default project, writing results.json
  annotaudit audit

  # Audit a saved tasks export without touching the network
  annotaudit audit --input tasks.json --stdout-format markdown`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, g, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", defaultConfigPath, "YAML config file")
	fl.StringVar(&f.envFile, "env-file", defaultEnvFile, "dotenv file with LIVE_API_KEY")
	fl.StringVar(&f.input, "input", "", "Read tasks from a saved JSON document instead of the API")
	fl.StringVar(&f.saveTasks, "save-tasks", "", "Also write the fetched tasks to this path")
	fl.StringVar(&f.out, "out", "", "Results JSON path (default from config, results.json)")
	fl.StringVar(&f.stdoutFormat, "stdout-format", "summary", "Output format: summary|json|markdown")
	fl.StringVar(&f.project, "project", "", "Project name (overrides config)")
	fl.StringVar(&f.status, "status", "", "Only fetch tasks with this status")
	fl.Float64Var(&f.percentile, "percentile", 0, "Size threshold percentile (overrides config)")
	fl.IntVar(&f.maxPages, "max-pages", 0, "Stop after this many pages (0 = all)")
	return cmd
}

func runAudit(cmd *cobra.Command, g *globalFlags, f *auditFlags) error {
	logger, err := newLogger(g, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath, f.envFile, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	applyAuditFlags(&cfg, cmd, f)
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	stdoutFormat := strings.ToLower(strings.TrimSpace(f.stdoutFormat))
	switch stdoutFormat {
	case "summary", "json", "markdown", "md":
	default:
		return usageError{fmt.Errorf("invalid stdout-format: %s", f.stdoutFormat)}
	}

	tasks, err := loadTasks(cmd.Context(), cfg, f, logger)
	if err != nil {
		return err
	}

	auditor := quality.New(quality.Options{
		Project:      cfg.API.Project,
		Percentile:   cfg.Rules.Percentile,
		ExemptLabel:  cfg.Rules.ExemptLabel,
		AuditBaseURL: cfg.Audit.BaseURL,
		Logger:       logger,
	})
	result, err := auditor.Run(tasks)
	if err != nil {
		return err
	}

	jsonBytes, err := format.JSON(result.Issues)
	if err != nil {
		return err
	}
	outPath := cfg.Output.Path
	if outPath != "" {
		if err := report.Save(outPath, jsonBytes); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"path": outPath, "issues": len(result.Issues)}).Info("saved results")
	}

	w := cmd.OutOrStdout()
	switch stdoutFormat {
	case "summary":
		printSummary(w, result, outPath)
	case "json":
		_, err = w.Write(jsonBytes)
	case "markdown", "md":
		md, mdErr := format.Markdown(result)
		if mdErr != nil {
			return mdErr
		}
		_, err = w.Write(md)
	}
	return err
}

func applyAuditFlags(cfg *config.Config, cmd *cobra.Command, f *auditFlags) {
	fl := cmd.Flags()
	if fl.Changed("project") {
		cfg.API.Project = f.project
	}
	if fl.Changed("status") {
		cfg.API.Status = f.status
	}
	if fl.Changed("percentile") {
		cfg.Rules.Percentile = f.percentile
	}
	if fl.Changed("max-pages") {
		cfg.API.MaxPages = f.maxPages
	}
	if fl.Changed("out") {
		cfg.Output.Path = f.out
	}
}

func loadTasks(ctx context.Context, cfg config.Config, f *auditFlags, logger *logrus.Logger) ([]model.Task, error) {
	if f.input != "" {
		tasks, err := scaleapi.LoadTasks(f.input)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{"path": f.input, "tasks": len(tasks)}).Info("loaded tasks from file")
		return tasks, nil
	}

	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	client := scaleapi.New(scaleapi.Options{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.API.Key,
		Timeout:           timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Logger:            logger,
	})
	tasks, err := client.ListTasks(ctx, scaleapi.TaskQuery{
		Project:  cfg.API.Project,
		Status:   cfg.API.Status,
		Limit:    cfg.API.PageSize,
		MaxPages: cfg.API.MaxPages,
	})
	if errors.Is(err, scaleapi.ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w: set %s (or %s) or pass --input", err, config.EnvLiveAPIKey, config.EnvScaleAPIKey)
	}
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"project": cfg.API.Project, "tasks": len(tasks)}).Info("retrieved tasks")

	if f.saveTasks != "" {
		raw, err := json.MarshalIndent(scaleapi.TaskPage{Docs: tasks, Total: len(tasks)}, "", "  ")
		if err != nil {
			return nil, err
		}
		if err := report.Save(f.saveTasks, raw); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func newReportCmd() *cobra.Command {
	var from, out, outputFormat string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a results file as json|markdown|csv|sarif",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := report.LoadIssues(from)
			if err != nil {
				return err
			}

			var payload []byte
			switch strings.ToLower(strings.TrimSpace(outputFormat)) {
			case "json":
				payload, err = format.JSON(issues)
			case "markdown", "md":
				payload, err = format.Markdown(model.RunResult{Issues: issues})
			case "csv":
				payload, err = format.CSV(issues)
			case "sarif":
				payload, err = format.SARIF(issues)
			default:
				return usageError{fmt.Errorf("invalid format: %s", outputFormat)}
			}
			if err != nil {
				return err
			}

			if out != "" {
				if err := report.Save(out, payload); err != nil {
					return err
				}
			}

			_, err = cmd.OutOrStdout().Write(payload)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", defaultOutPath, "Input results JSON file")
	cmd.Flags().StringVar(&out, "out", "", "Optional output path")
	cmd.Flags().StringVar(&outputFormat, "format", "markdown", "Output format: json|markdown|csv|sarif")
	return cmd
}

func newSummarizeCmd() *cobra.Command {
	var from, outputFormat string
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Count issues in a results file by rule and label",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := report.LoadIssues(from)
			if err != nil {
				return err
			}

			groups := report.Summarize(issues)
			w := cmd.OutOrStdout()
			switch strings.ToLower(strings.TrimSpace(outputFormat)) {
			case "table":
				_, err = io.WriteString(w, renderGroupsTable(groups))
			case "json":
				var b []byte
				b, err = json.MarshalIndent(groups, "", "  ")
				if err == nil {
					_, err = w.Write(append(b, '\n'))
				}
			default:
				return usageError{fmt.Errorf("invalid format: %s", outputFormat)}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", defaultOutPath, "Input results JSON file")
	cmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table|json")
	return cmd
}
