package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/frederic-klein/yapi/internal/config"
	"github.com/frederic-klein/yapi/internal/definition"
	"github.com/frederic-klein/yapi/internal/installer"
	"github.com/frederic-klein/yapi/internal/interpreter"
	"github.com/frederic-klein/yapi/internal/orchestrator"
	"github.com/frederic-klein/yapi/internal/promoter"
	"github.com/frederic-klein/yapi/internal/prompt"
	"github.com/frederic-klein/yapi/internal/reqfile"
	"github.com/frederic-klein/yapi/internal/subprocess"
	"github.com/frederic-klein/yapi/internal/system"
)

// Set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath      string
	verbose         bool
	outputPath      string
	definitionsPath string
	pythonSelector  string
	requirements    []string
	installRoot     string
	workDir         string
	editable        bool
	noDependencies  bool
	overwrite       bool
	skip            bool
	continueOnError bool
	failFast        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "yapi",
		Short:         "Yet Another Python Installer - installs packages for the wiz environment manager",
		Long:          "YAPI installs Python packages and their dependencies into one directory per package version, and writes a wiz definition for each of them.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(versionString() + "\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $YAPI_CONFIG or <user config dir>/yapi/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	installCmd := &cobra.Command{
		Use:   "install [requests...]",
		Short: "Install packages and their dependencies",
		Example: `  yapi install foo "bar>=1,<2" -o /opt/python -d /opt/wiz
  yapi install . --editable -o ~/dev/python -d ~/dev/wiz
  yapi install -r requirements.txt --python /usr/bin/python3 -o /opt/python -d /opt/wiz`,
		RunE: runInstall,
	}
	flags := installCmd.Flags()
	flags.StringVarP(&outputPath, "output", "o", "", "Root directory packages are installed under")
	flags.StringVarP(&definitionsPath, "definitions", "d", "", "Directory definitions are written to")
	flags.StringVar(&pythonSelector, "python", "", "Interpreter request or path to an interpreter binary (default \"python==2.7.*\")")
	flags.StringArrayVarP(&requirements, "requirement", "r", nil, "Install requests listed in a requirements file (repeatable)")
	flags.StringVar(&installRoot, "install-root", "", "Absolute install location written in definitions instead of ${INSTALL_LOCATION}")
	flags.StringVar(&workDir, "work-dir", "", "Directory for temporary staging and cache files")
	flags.BoolVarP(&editable, "editable", "e", false, "Install the requested packages in editable mode")
	flags.BoolVar(&noDependencies, "no-dependencies", false, "Do not install dependencies")
	flags.BoolVar(&overwrite, "overwrite-installed", false, "Overwrite packages already installed")
	flags.BoolVar(&skip, "skip-installed", false, "Skip packages already installed")
	flags.BoolVar(&continueOnError, "continue-on-error", false, "Exit successfully even if some packages failed")
	flags.BoolVar(&failFast, "fail-fast", false, "Stop at the first package that fails")
	installCmd.MarkFlagsMutuallyExclusive("overwrite-installed", "skip-installed")
	installCmd.MarkFlagsMutuallyExclusive("continue-on-error", "fail-fast")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}

	rootCmd.AddCommand(installCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		newLogger(os.Stderr, log.InfoLevel).Error(err)
		os.Exit(1)
	}
}

func versionString() string {
	return fmt.Sprintf("yapi %s (commit %s, built %s)", version, commit, date)
}

func runInstall(cmd *cobra.Command, args []string) error {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := newLogger(os.Stderr, level)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	if cfg.Output == "" || cfg.Definitions == "" {
		return fmt.Errorf("an output directory (-o) and a definitions directory (-d) are required")
	}

	requests := append([]string{}, args...)
	parser := reqfile.NewParser()
	for _, path := range requirements {
		listed, err := parser.Parse(path)
		if err != nil {
			return fmt.Errorf("parsing requirements: %w", err)
		}
		logger.Debug("requirements file", "path", path, "requests", len(listed))
		requests = append(requests, listed...)
	}
	if len(requests) == 0 {
		return fmt.Errorf("nothing to install: give requests or a requirements file")
	}

	var decide promoter.Decider
	if policy == promoter.Ask && interactive() {
		decide = prompt.Decider(os.Stdin, os.Stderr)
	}

	driver := subprocess.NewDriver(logger)
	orch := orchestrator.New(orchestrator.Components{
		Context:     interpreter.NewResolver(driver, cfg.Manager),
		Installer:   installer.New(driver, cfg.Installer, system.Probe, logger),
		Promoter:    promoter.New(cfg.Output, decide, logger),
		Synthesizer: definition.NewSynthesizer(cfg.InstallRoot),
		Definitions: definition.NewWriter(cfg.Definitions),
	}, orchestrator.Options{
		Python:          cfg.Python,
		WorkDir:         cfg.WorkDir,
		Policy:          policy,
		Editable:        editable,
		NoDependencies:  cfg.NoDependencies,
		ContinueOnError: cfg.ContinueOnError,
		FailFast:        cfg.FailFast,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := orch.Run(ctx, requests)
	if report != nil {
		printSummary(cmd.OutOrStdout(), report)
	}
	return err
}

// loadConfig reads the config file and applies the flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, explicit := config.Locate(configPath)
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = outputPath
	}
	if flags.Changed("definitions") {
		cfg.Definitions = definitionsPath
	}
	if flags.Changed("python") {
		cfg.Python = pythonSelector
	}
	if flags.Changed("install-root") {
		cfg.InstallRoot = installRoot
	}
	if flags.Changed("work-dir") {
		cfg.WorkDir = workDir
	}
	if flags.Changed("no-dependencies") {
		cfg.NoDependencies = noDependencies
	}
	if flags.Changed("continue-on-error") {
		cfg.ContinueOnError = continueOnError
		cfg.FailFast = cfg.FailFast && !continueOnError
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = failFast
		cfg.ContinueOnError = cfg.ContinueOnError && !failFast
	}
	switch {
	case overwrite:
		cfg.Overwrite = string(promoter.Yes)
	case skip:
		cfg.Overwrite = string(promoter.No)
	}
	return cfg, nil
}

// interactive reports whether stdin is a terminal a prompt can read from.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
