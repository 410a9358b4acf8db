package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/npratt/prfkit/internal/config"
	"github.com/npratt/prfkit/internal/controller"
	"github.com/npratt/prfkit/internal/eval"
	"github.com/npratt/prfkit/internal/remote"
	"github.com/npratt/prfkit/internal/scaffold"
	"github.com/npratt/prfkit/internal/treefile"
)

var version = "dev"

// bindFlags binds a command's own flags to viper when that command runs.
// eval and step share flag names, so binding at construction time would let
// the last registered command win.
func bindFlags(cmd *cobra.Command, _ []string) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr := viper.BindPFlag(f.Name, f); bindErr != nil && err == nil {
			err = bindErr
		}
	})
	return err
}

// loadConfig loads layered config with the flags set explicitly on cmd
// applied on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetViper(), cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// controlClient returns a client for the socket named by config or --socket.
func controlClient(cmd *cobra.Command) (*remote.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return remote.NewClient(cfg.Paths.Socket), nil
}

// controlCmd builds a command that sends one request to a listening step
// session and prints msg on success.
func controlCmd(use, short, msg string, fn func(c *remote.Client, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Args:    cobra.NoArgs,
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient(cmd)
			if err != nil {
				return err
			}
			if err := fn(client, args); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func main() {
	logLevel := &slog.LevelVar{}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	viper.SetEnvPrefix("PRFKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "prfkit",
		Short: "Build, check and step through primitive recursive functions",
		Long: `prfkit evaluates primitive recursive functions described as block trees.

A tree file (JSON or YAML) combines Zero, Successor, Projection, Composition,
Primitive Recursion, Minimization and named Custom blocks. prfkit can evaluate
a tree directly, validate it, or step through its evaluation one block at a
time with breakpoints, pause, single-step and halt.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if viper.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
				logger.Debug("verbose logging enabled")
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .prfkit/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Debug log path used while the TUI is running")
	rootCmd.PersistentFlags().String(FlagSocket, "", "Control socket path (default: .prfkit/prfkit.sock)")

	// Bind all flags to viper
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("prfkit %s\n", version)
		},
	}

	// Eval command
	evalCmd := &cobra.Command{
		Use:     "eval <tree-file>",
		Short:   "Evaluate a tree on the given inputs",
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			inputs := viper.GetIntSlice(FlagInputs)
			tree, err := loadRun(args[0], inputs)
			if err != nil {
				return err
			}

			engine := eval.New(
				eval.WithMinimizationLimit(cfg.Engine.MinimizationLimit),
				eval.WithLogger(logger),
			)
			return runEval(cmd.Context(), cmd.OutOrStdout(), engine, tree, inputs, viper.GetBool(FlagJSON))
		},
	}
	evalCmd.Flags().IntSlice(FlagInputs, nil, "Input values (comma-separated natural numbers)")
	evalCmd.Flags().Int(FlagMinimizationLimit, 0, "Candidates a minimization tries before giving up")
	evalCmd.Flags().Bool(FlagJSON, false, "Output the result as JSON")

	// Step command
	stepCmd := &cobra.Command{
		Use:   "step <tree-file>",
		Short: "Step through an evaluation",
		Long: `Step through the evaluation of a tree one block at a time.

On a terminal the interactive debugger starts (space: pause/resume, s: single
step, h: halt, b: toggle breakpoints, v: cycle speed, q: quit). Otherwise one
line is printed per step. Breakpoints come from the tree file and from --break.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			inputs := viper.GetIntSlice(FlagInputs)
			tree, err := loadRun(args[0], inputs)
			if err != nil {
				return err
			}
			speed, err := controller.ParseSpeed(cfg.Stepper.Speed)
			if err != nil {
				return err
			}

			// Determine TUI mode: explicit flag > auto-detect from TTY
			tuiEnabled := viper.GetBool(FlagTUI)
			if !cmd.Flags().Changed(FlagTUI) {
				tuiEnabled = term.IsTerminal(int(os.Stdout.Fd())) && !viper.GetBool(FlagJSON)
			}
			if tuiEnabled && viper.GetBool(FlagJSON) {
				return fmt.Errorf("--tui and --json flags are incompatible")
			}

			// TUI mode: redirect logger to a file so it cannot corrupt the display
			runLogger := logger
			if tuiEnabled {
				tuiLog, err := SetupTUILogger(cfg.Paths.Log, logLevel, cfg.LogRotation)
				if err != nil {
					return err
				}
				defer func() { _ = tuiLog.Close() }()
				runLogger = tuiLog.Logger
				slog.SetDefault(runLogger)
			}

			opts := stepOptions{
				Speed:       speed,
				Breakpoints: viper.GetStringSlice(FlagBreak),
				TUI:         tuiEnabled,
				JSON:        viper.GetBool(FlagJSON),
				Listen:      viper.GetBool(FlagListen),
			}
			return runStep(cmd.Context(), cfg, tree, inputs, opts, runLogger, cmd.OutOrStdout())
		},
	}
	stepCmd.Flags().IntSlice(FlagInputs, nil, "Input values (comma-separated natural numbers)")
	stepCmd.Flags().Int(FlagMinimizationLimit, 0, "Candidates a minimization tries before giving up")
	stepCmd.Flags().Bool(FlagTUI, false, "Enable terminal UI")
	stepCmd.Flags().String(FlagSpeed, "", "Step speed (none/fast/slow)")
	stepCmd.Flags().StringSlice(FlagBreak, nil, "Block ids to break after (repeatable)")
	stepCmd.Flags().Bool(FlagIgnoreBreakpoints, false, "Run through breakpoints")
	stepCmd.Flags().String(FlagTrace, "", "Record every run event to this JSONL file")
	stepCmd.Flags().Bool(FlagJSON, false, "Print only a JSON summary of the run")
	stepCmd.Flags().Bool(FlagListen, false, "Serve the control socket so status/pause/resume/next/halt work from another terminal")

	// Validate command
	validateCmd := &cobra.Command{
		Use:     "validate <tree-file>",
		Short:   "Report validation errors in a tree",
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := treefile.Load(args[0])
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), tree, viper.GetBool(FlagJSON))
		},
	}
	validateCmd.Flags().Bool(FlagJSON, false, "Output errors as JSON")

	// Trace command
	traceCmd := &cobra.Command{
		Use:   "trace <trace-file>",
		Short: "Print a recorded run trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTrace(cmd.OutOrStdout(), args[0])
		},
	}

	// Convert command
	convertCmd := &cobra.Command{
		Use:   "convert <tree-file> --output <path>",
		Short: "Rewrite a tree file as JSON or YAML",
		Long: `Load a tree file and save it again. The output format follows the
extension of --output (.yaml/.yml for YAML, anything else for JSON).`,
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := viper.GetString(FlagOutput)
			if dst == "" {
				return fmt.Errorf("--%s is required", FlagOutput)
			}
			return convertTree(args[0], dst)
		},
	}
	convertCmd.Flags().String(FlagOutput, "", "Destination file")

	// Status command
	statusCmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the state of a listening step session",
		Args:    cobra.NoArgs,
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := controlClient(cmd)
			if err != nil {
				return err
			}
			status, err := client.Status()
			if err != nil {
				return err
			}
			if viper.GetBool(FlagJSON) {
				return writeJSON(cmd.OutOrStdout(), status)
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	statusCmd.Flags().Bool(FlagJSON, false, "Output status as JSON")

	pauseCmd := controlCmd("pause", "Pause a listening step session at the next block", "Pause requested",
		func(c *remote.Client, _ []string) error { return c.Pause() })
	resumeCmd := controlCmd("resume", "Resume a paused step session", "Resume requested",
		func(c *remote.Client, _ []string) error { return c.Resume() })
	nextCmd := controlCmd("next", "Advance a paused step session by one block", "Single step requested",
		func(c *remote.Client, _ []string) error { return c.Step() })
	haltCmd := controlCmd("halt", "Halt a listening step session", "Halt requested",
		func(c *remote.Client, _ []string) error { return c.Halt() })

	breakCmd := controlCmd("break <block-id>", "Set or clear a breakpoint in a listening step session", "Breakpoint updated",
		func(c *remote.Client, args []string) error { return c.SetBreakpoint(args[0], !viper.GetBool(FlagOff)) })
	breakCmd.Args = cobra.ExactArgs(1)
	breakCmd.Flags().Bool(FlagOff, false, "Clear the breakpoint instead of setting it")

	speedCmd := controlCmd("speed <none|fast|slow>", "Change the step speed of a listening step session", "Speed updated",
		func(c *remote.Client, args []string) error { return c.SetSpeed(args[0]) })
	speedCmd.Args = cobra.ExactArgs(1)

	// Init command
	initCmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a starter prfkit project",
		Long: `Write a commented project config and example trees.

Creates the following structure:
  .prfkit/
    config.yaml
  examples/ (unless --skip-examples)
    add.yaml
    mult.yaml
    pred.yaml

Existing files that differ are shown as a diff and left alone unless
--force is given.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := scaffold.Options{
				DryRun:       viper.GetBool(FlagDryRun),
				Force:        viper.GetBool(FlagForce),
				SkipExamples: viper.GetBool(FlagSkipExamples),
				Writer:       cmd.OutOrStdout(),
			}
			if len(args) == 1 {
				opts.Dir = args[0]
			}
			_, err := scaffold.Run(opts)
			return err
		},
	}
	initCmd.Flags().Bool(FlagDryRun, false, "Show what would be changed without making changes")
	initCmd.Flags().Bool(FlagForce, false, "Overwrite files that differ from the templates")
	initCmd.Flags().Bool(FlagSkipExamples, false, "Write only the config")

	// Register all commands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(breakCmd)
	rootCmd.AddCommand(speedCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errInvalidTree) {
			logger.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}
